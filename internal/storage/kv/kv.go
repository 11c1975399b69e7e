// Package kv stores the ledger in Redis as a single JSON document under a
// fixed key, the same shape the browser client keeps in local storage.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/mmynk/equisplit/internal/models"
	"github.com/mmynk/equisplit/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// DefaultLedgerKey is the key holding the JSON-encoded expense list.
const DefaultLedgerKey = "equisplit_expenses"

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 10

// Config is the redis configuration
type Config struct {
	Addr      string
	Password  string
	DB        int
	LedgerKey string
}

// Store implements storage.Store on top of Redis.
type Store struct {
	rdb        *redis.Client
	ledgerKey  string
	usersKey   string
	versionKey string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewWithClient(rdb, cfg.LedgerKey), nil
}

// NewWithClient wraps an existing client. An empty ledgerKey selects
// DefaultLedgerKey.
func NewWithClient(rdb *redis.Client, ledgerKey string) *Store {
	if ledgerKey == "" {
		ledgerKey = DefaultLedgerKey
	}
	return &Store{
		rdb:        rdb,
		ledgerKey:  ledgerKey,
		usersKey:   ledgerKey + ":users",
		versionKey: ledgerKey + ":version",
	}
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// EnsureUsers appends members that are not stored yet.
func (s *Store) EnsureUsers(ctx context.Context, users []models.User) error {
	return s.transact(ctx, s.usersKey, func(tx *redis.Tx) (func(redis.Pipeliner) error, error) {
		stored, err := getJSON[[]models.User](ctx, tx, s.usersKey)
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool, len(stored))
		for _, u := range stored {
			known[u.ID] = true
		}
		changed := false
		for _, u := range users {
			if !known[u.ID] {
				stored = append(stored, u)
				known[u.ID] = true
				changed = true
			}
		}
		if !changed {
			return nil, nil
		}
		data, err := json.Marshal(stored)
		if err != nil {
			return nil, fmt.Errorf("failed to encode users: %w", err)
		}
		return func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.usersKey, data, 0)
			return nil
		}, nil
	})
}

// ListUsers returns all members in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return getJSON[[]models.User](ctx, s.rdb, s.usersKey)
}

// GetUser retrieves a member by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == userID {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
}

// CreateExpense prepends the expense to the stored ledger.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date == "" {
		expense.Date = time.Now().UTC().Format(time.RFC3339)
	}
	return s.updateLedger(ctx, func(expenses []models.Expense) ([]models.Expense, error) {
		for _, e := range expenses {
			if e.ID == expense.ID {
				return nil, fmt.Errorf("expense %s already exists", expense.ID)
			}
		}
		return append([]models.Expense{*expense}, expenses...), nil
	})
}

// GetExpense retrieves an expense by ID.
func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expenses, err := s.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		if e.ID == expenseID {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
}

// ListExpenses returns the ledger, newest first.
func (s *Store) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	return getJSON[[]models.Expense](ctx, s.rdb, s.ledgerKey)
}

// DeleteExpense removes an expense from the ledger.
func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	return s.updateLedger(ctx, func(expenses []models.Expense) ([]models.Expense, error) {
		for i, e := range expenses {
			if e.ID == expenseID {
				return append(expenses[:i:i], expenses[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	})
}

// ClearExpenses removes the ledger key.
func (s *Store) ClearExpenses(ctx context.Context) error {
	return s.transact(ctx, s.ledgerKey, func(tx *redis.Tx) (func(redis.Pipeliner) error, error) {
		return func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.ledgerKey)
			pipe.Incr(ctx, s.versionKey)
			return nil
		}, nil
	})
}

// Version returns the ledger version counter.
func (s *Store) Version(ctx context.Context) (int64, error) {
	v, err := s.rdb.Get(ctx, s.versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get ledger version: %w", err)
	}
	return v, nil
}

// updateLedger applies fn to the stored ledger inside an optimistic
// transaction and bumps the version.
func (s *Store) updateLedger(ctx context.Context, fn func([]models.Expense) ([]models.Expense, error)) error {
	return s.transact(ctx, s.ledgerKey, func(tx *redis.Tx) (func(redis.Pipeliner) error, error) {
		expenses, err := getJSON[[]models.Expense](ctx, tx, s.ledgerKey)
		if err != nil {
			return nil, err
		}
		updated, err := fn(expenses)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return nil, fmt.Errorf("failed to encode ledger: %w", err)
		}
		return func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.ledgerKey, data, 0)
			pipe.Incr(ctx, s.versionKey)
			return nil
		}, nil
	})
}

// transact watches key, lets prepare read it, and runs the returned writes
// in MULTI/EXEC. A nil write function means nothing to do. Conflicting
// writers are retried.
func (s *Store) transact(ctx context.Context, key string, prepare func(*redis.Tx) (func(redis.Pipeliner) error, error)) error {
	txf := func(tx *redis.Tx) error {
		write, err := prepare(tx)
		if err != nil || write == nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, write)
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis transaction on %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("redis transaction on %s: too much contention", key)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// getJSON reads and decodes key; a missing key yields the zero value.
func getJSON[T any](ctx context.Context, c getter, key string) (T, error) {
	var out T
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return out, nil
}
