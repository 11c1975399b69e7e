package calculator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/equisplit/internal/models"
)

// ErrUnsettled is returned when applying settlements leaves a balance
// outside the tolerance band.
var ErrUnsettled = errors.New("balances not settled")

// party is one side of the matching: a debtor or a creditor with the
// amount still to be matched.
type party struct {
	id     string
	amount float64
}

// Settle computes the settlements that clear the ledger.
func Settle(users []models.User, expenses []models.Expense) ([]models.Settlement, error) {
	balances, err := CalculateBalances(users, expenses)
	if err != nil {
		return nil, err
	}
	return CalculateSettlements(users, balances), nil
}

// CalculateSettlements reduces net balances to a short list of transfers.
//
// Algorithm:
// - Debtors owe more than a cent, creditors are owed more than a cent
// - Both lists are sorted by amount, largest first; ties keep the order of users
// - Greedy matching: the largest debtor pays the largest creditor
// - Transfers of a cent or less are dropped, amounts are rounded to cents
//
// Users missing from balances are treated as settled.
func CalculateSettlements(users []models.User, balances map[string]float64) []models.Settlement {
	var debtors, creditors []party
	for _, u := range users {
		bal := balances[u.ID]
		if bal < -Tolerance {
			debtors = append(debtors, party{id: u.ID, amount: -bal})
		} else if bal > Tolerance {
			creditors = append(creditors, party{id: u.ID, amount: bal})
		}
	}

	sort.SliceStable(debtors, func(a, b int) bool { return debtors[a].amount > debtors[b].amount })
	sort.SliceStable(creditors, func(a, b int) bool { return creditors[a].amount > creditors[b].amount })

	settlements := []models.Settlement{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := math.Min(debtor.amount, creditor.amount)
		if amount > Tolerance {
			settlements = append(settlements, models.Settlement{
				From:   debtor.id,
				To:     creditor.id,
				Amount: RoundCents(amount),
			})
		}

		debtor.amount -= amount
		creditor.amount -= amount

		if debtor.amount < Tolerance {
			i++
		}
		if creditor.amount < Tolerance {
			j++
		}
	}

	if residue := unmatched(debtors[i:]) + unmatched(creditors[j:]); residue > Tolerance {
		slog.Warn("Settlement left unmatched balance",
			"residue", residue,
			"debtors_left", len(debtors)-i,
			"creditors_left", len(creditors)-j,
		)
	}

	return settlements
}

func unmatched(parties []party) float64 {
	var total float64
	for _, p := range parties {
		total += p.amount
	}
	return total
}

// VerifySettlements applies the settlements to a copy of balances and checks
// that every balance ends within tolerance of zero.
func VerifySettlements(balances map[string]float64, settlements []models.Settlement) error {
	remaining := make(map[string]float64, len(balances))
	for id, bal := range balances {
		remaining[id] = bal
	}
	for _, s := range settlements {
		remaining[s.From] += s.Amount
		remaining[s.To] -= s.Amount
	}
	for id, bal := range remaining {
		if math.Abs(bal) > Tolerance {
			return fmt.Errorf("%w: %s left at %.4f", ErrUnsettled, id, bal)
		}
	}
	return nil
}

// RoundCents rounds an amount to two decimal places, half away from zero.
// It rounds the shortest decimal form of the float, so 1.005 becomes 1.01
// even though its binary value sits just below the midpoint.
func RoundCents(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}
