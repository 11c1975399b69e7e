// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/equisplit/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, Redis, memory)
// without changing the service layer.
type Store interface {
	// EnsureUsers inserts any of the given members that are not stored yet.
	// Existing members are left untouched.
	EnsureUsers(ctx context.Context, users []models.User) error

	// ListUsers returns all group members in a stable order.
	ListUsers(ctx context.Context) ([]models.User, error)

	// GetUser retrieves a member by ID. Returns ErrNotFound if missing.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// CreateExpense persists a new expense.
	// The expense.ID and expense.Date fields are populated by the store when empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense by ID. Returns ErrNotFound if missing.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses returns the ledger, newest expense first.
	ListExpenses(ctx context.Context) ([]models.Expense, error)

	// DeleteExpense removes an expense by ID. Returns ErrNotFound if missing.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ClearExpenses removes every expense from the ledger.
	ClearExpenses(ctx context.Context) error

	// Version returns a counter that increases with every ledger mutation.
	Version(ctx context.Context) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
