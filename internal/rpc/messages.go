package rpc

import "github.com/mmynk/equisplit/internal/models"

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []models.User `json:"users"`
}

type ListExpensesRequest struct{}

type ListExpensesResponse struct {
	Expenses []models.Expense `json:"expenses"`
	Version  int64            `json:"version"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *models.Expense `json:"expense"`
}

// SplitInput is an explicit share of an expense.
type SplitInput struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

// WeightInput is a proportional share of an expense.
type WeightInput struct {
	UserID string  `json:"userId"`
	Weight float64 `json:"weight"`
}

// AddExpenseRequest records a new expense. Exactly one of Splits or Weights
// may be set; when both are empty the amount is split equally across the
// whole group.
type AddExpenseRequest struct {
	Description string        `json:"description"`
	Amount      float64       `json:"amount"`
	PaidBy      string        `json:"paidBy"`
	Tag         string        `json:"tag"`
	Date        string        `json:"date,omitempty"`
	ReceiptURL  string        `json:"receiptUrl,omitempty"`
	Splits      []SplitInput  `json:"splits,omitempty"`
	Weights     []WeightInput `json:"weights,omitempty"`
}

type AddExpenseResponse struct {
	Expense *models.Expense `json:"expense"`
	Version int64           `json:"version"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type DeleteExpenseResponse struct {
	Version int64 `json:"version"`
}

type ResetLedgerRequest struct{}

type ResetLedgerResponse struct {
	Version int64 `json:"version"`
}

type GetBalancesRequest struct{}

// Balance is one member's net position: positive means the group owes them.
type Balance struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type GetBalancesResponse struct {
	Balances []Balance `json:"balances"`
	Version  int64     `json:"version"`
}

type GetSettlementsRequest struct{}

type GetSettlementsResponse struct {
	Settlements []models.Settlement `json:"settlements"`
	Version     int64               `json:"version"`
}

type GetFairnessRequest struct{}

type GetFairnessResponse struct {
	Stats   []models.FairnessStats `json:"stats"`
	Version int64                  `json:"version"`
}

type GetSettlementSummaryRequest struct{}

type GetSettlementSummaryResponse struct {
	Summary     string              `json:"summary"`
	Settlements []models.Settlement `json:"settlements"`
	Version     int64               `json:"version"`
}

type LoginRequest struct {
	UserID     string `json:"userId"`
	Passphrase string `json:"passphrase"`
}

type LoginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expiresAt"`
}

type GetSpendingByTagRequest struct{}

type GetSpendingByTagResponse struct {
	Totals  []models.TagTotal `json:"totals"`
	Version int64             `json:"version"`
}
