// Package calculator derives balances, settlements and fairness scores from
// a ledger snapshot. Every function is pure and safe for concurrent use.
package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/equisplit/internal/models"
)

// Tolerance is the smallest amount treated as a real debt. Anything within
// one cent of zero is considered settled.
const Tolerance = 0.01

// ErrUnknownUser is returned when an expense references a user that is not
// a member of the group.
var ErrUnknownUser = errors.New("unknown user")

// CalculateBalances folds the ledger into one net balance per user.
// Every member starts at zero; the payer of an expense gains its amount and
// each split user loses their share.
//
// Positive = owed money, Negative = owes money.
func CalculateBalances(users []models.User, expenses []models.Expense) (map[string]float64, error) {
	balances := make(map[string]float64, len(users))
	for _, u := range users {
		balances[u.ID] = 0
	}

	for _, expense := range expenses {
		if _, ok := balances[expense.PaidBy]; !ok {
			return nil, fmt.Errorf("%w: payer %q of expense %s", ErrUnknownUser, expense.PaidBy, expense.ID)
		}
		balances[expense.PaidBy] += expense.Amount

		for _, split := range expense.Splits {
			if _, ok := balances[split.UserID]; !ok {
				return nil, fmt.Errorf("%w: split user %q of expense %s", ErrUnknownUser, split.UserID, expense.ID)
			}
			balances[split.UserID] -= split.Amount
		}
	}

	return balances, nil
}
