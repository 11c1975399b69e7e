package storage

import "github.com/mmynk/equisplit/internal/models"

// CloneExpense returns a copy of e that shares no slices with it.
// In-process backends use it so callers can't mutate stored expenses.
func CloneExpense(e models.Expense) models.Expense {
	e.Splits = append([]models.Split(nil), e.Splits...)
	return e
}
