package calculator

import (
	"fmt"
	"math"

	"github.com/mmynk/equisplit/internal/models"
)

// fairnessScale maps a contribution ratio to a score. A member paying
// exactly what they consume scores 50; paying twice as much scores 100.
const fairnessScale = 50

// CalculateFairness returns one FairnessStats per user, in the order of users.
//
// ratio = contribution / consumption (1 when nothing was consumed)
// score = clamp(ratio * 50, 0, 100)
func CalculateFairness(users []models.User, expenses []models.Expense) ([]models.FairnessStats, error) {
	stats := make(map[string]*models.FairnessStats, len(users))
	for _, u := range users {
		stats[u.ID] = &models.FairnessStats{UserID: u.ID}
	}

	for _, expense := range expenses {
		payer, ok := stats[expense.PaidBy]
		if !ok {
			return nil, fmt.Errorf("%w: payer %q of expense %s", ErrUnknownUser, expense.PaidBy, expense.ID)
		}
		payer.Contribution += expense.Amount

		for _, split := range expense.Splits {
			consumer, ok := stats[split.UserID]
			if !ok {
				return nil, fmt.Errorf("%w: split user %q of expense %s", ErrUnknownUser, split.UserID, expense.ID)
			}
			consumer.Consumption += split.Amount
		}
	}

	result := make([]models.FairnessStats, 0, len(users))
	for _, u := range users {
		s := stats[u.ID]
		s.FairnessScore = FairnessScore(s.Contribution, s.Consumption)
		result = append(result, *s)
	}
	return result, nil
}

// FairnessScore converts contribution and consumption to a 0-100 score.
func FairnessScore(contribution, consumption float64) float64 {
	ratio := 1.0
	if consumption > 0 {
		ratio = contribution / consumption
	}
	return math.Min(100, math.Max(0, ratio*fairnessScale))
}
