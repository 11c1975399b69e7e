// Package memory provides an in-process implementation of storage.Store.
// Data lives only as long as the process.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/equisplit/internal/models"
	"github.com/mmynk/equisplit/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store in memory, guarded by a read-write mutex.
// Expenses are cloned on the way in and out so callers never share slices
// with the stored ledger.
type Store struct {
	mu       sync.RWMutex
	users    []models.User
	expenses []models.Expense // newest first
	version  int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// EnsureUsers appends members that are not stored yet, keeping insertion order.
func (s *Store) EnsureUsers(_ context.Context, users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		if s.indexOfUser(u.ID) < 0 {
			s.users = append(s.users, u)
		}
	}
	return nil
}

// ListUsers returns all members in insertion order.
func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.users...), nil
}

// GetUser retrieves a member by ID. Returns storage.ErrNotFound if missing.
func (s *Store) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfUser(userID)
	if i < 0 {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	u := s.users[i]
	return &u, nil
}

// CreateExpense prepends a new expense to the ledger.
// It generates the ID and date when they are empty.
func (s *Store) CreateExpense(_ context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date == "" {
		expense.Date = time.Now().UTC().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOfExpense(expense.ID) >= 0 {
		return fmt.Errorf("expense %s already exists", expense.ID)
	}
	s.expenses = append([]models.Expense{storage.CloneExpense(*expense)}, s.expenses...)
	s.version++
	return nil
}

// GetExpense retrieves an expense by ID. Returns storage.ErrNotFound if missing.
func (s *Store) GetExpense(_ context.Context, expenseID string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfExpense(expenseID)
	if i < 0 {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	e := storage.CloneExpense(s.expenses[i])
	return &e, nil
}

// ListExpenses returns the ledger, newest expense first.
func (s *Store) ListExpenses(_ context.Context) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Expense, len(s.expenses))
	for i, e := range s.expenses {
		out[i] = storage.CloneExpense(e)
	}
	return out, nil
}

// DeleteExpense removes an expense by ID. Returns storage.ErrNotFound if missing.
func (s *Store) DeleteExpense(_ context.Context, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfExpense(expenseID)
	if i < 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	s.expenses = append(s.expenses[:i:i], s.expenses[i+1:]...)
	s.version++
	return nil
}

// ClearExpenses removes every expense from the ledger.
func (s *Store) ClearExpenses(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = nil
	s.version++
	return nil
}

// Version returns the ledger version counter.
func (s *Store) Version(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

// Close is a no-op; the data lives only as long as the process.
func (s *Store) Close() error { return nil }

func (s *Store) indexOfUser(id string) int {
	for i, u := range s.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfExpense(id string) int {
	for i, e := range s.expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}
