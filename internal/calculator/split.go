package calculator

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/equisplit/internal/models"
)

// UserWeight is one member's proportional weight in a split.
type UserWeight struct {
	UserID string
	Weight float64
}

// WeightedSplits divides amount among users in proportion to their weights.
// Negative or non-finite weights count as zero. If every weight is zero the
// divisor falls back to 1, which leaves every share at zero.
func WeightedSplits(amount float64, weights []UserWeight) []models.Split {
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(decimal.NewFromFloat(sanitizeWeight(w.Weight)))
	}
	if total.IsZero() {
		total = decimal.NewFromInt(1)
	}

	amt := decimal.NewFromFloat(amount)
	splits := make([]models.Split, len(weights))
	for i, w := range weights {
		weight := sanitizeWeight(w.Weight)
		share := decimal.NewFromFloat(weight).Mul(amt).Div(total)
		splits[i] = models.Split{
			UserID: w.UserID,
			Weight: weight,
			Amount: share.InexactFloat64(),
		}
	}
	return splits
}

// EqualSplits divides amount equally among the given users.
func EqualSplits(amount float64, userIDs []string) []models.Split {
	weights := make([]UserWeight, len(userIDs))
	for i, id := range userIDs {
		weights[i] = UserWeight{UserID: id, Weight: 1}
	}
	return WeightedSplits(amount, weights)
}

func sanitizeWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}
