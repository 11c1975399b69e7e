package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/mmynk/equisplit/internal/cache"
	"github.com/mmynk/equisplit/internal/calculator"
	"github.com/mmynk/equisplit/internal/events"
	"github.com/mmynk/equisplit/internal/metrics"
	"github.com/mmynk/equisplit/internal/models"
	"github.com/mmynk/equisplit/internal/rpc"
	"github.com/mmynk/equisplit/internal/storage"
)

// ErrInvalidExpense is returned when an expense fails validation.
var ErrInvalidExpense = errors.New("invalid expense")

// maxSnapshotAttempts bounds re-reads of a ledger that keeps changing.
const maxSnapshotAttempts = 5

// projection is everything derived from one ledger version.
type projection struct {
	version     int64
	users       []models.User
	expenses    []models.Expense
	balances    map[string]float64
	settlements []models.Settlement
	fairness    []models.FairnessStats
	summary     string
}

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store     storage.Store
	cache     *cache.LRU[int64, *projection]
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

var _ rpc.LedgerServiceHandler = (*LedgerService)(nil)

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithProjectionCache memoises derived views per ledger version.
func WithProjectionCache(size int, ttl time.Duration) Option {
	return func(s *LedgerService) {
		if size > 0 {
			s.cache = cache.NewLRU[int64, *projection](size, ttl)
		}
	}
}

// WithPublisher sets the publisher notified after every mutation.
func WithPublisher(p events.Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithMetrics records projection gauges and cache lookups.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// NewLedgerService creates a new LedgerService with the given storage backend.
func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:     store,
		publisher: events.NopPublisher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListUsers returns the group members in their canonical order.
func (s *LedgerService) ListUsers(ctx context.Context, req *connect.Request[rpc.ListUsersRequest]) (*connect.Response[rpc.ListUsersResponse], error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("ListUsers failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.ListUsersResponse{Users: users}), nil
}

// ListExpenses returns the ledger, newest first.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[rpc.ListExpensesRequest]) (*connect.Response[rpc.ListExpensesResponse], error) {
	p, err := s.project(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.ListExpensesResponse{
		Expenses: cloneExpenses(p.expenses),
		Version:  p.version,
	}), nil
}

// GetExpense retrieves an expense by ID.
func (s *LedgerService) GetExpense(ctx context.Context, req *connect.Request[rpc.GetExpenseRequest]) (*connect.Response[rpc.GetExpenseResponse], error) {
	if req.Msg.ExpenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: expense ID is required", ErrInvalidExpense))
	}

	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("GetExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		}
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.GetExpenseResponse{Expense: expense}), nil
}

// AddExpense validates and records a new expense.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[rpc.AddExpenseRequest]) (*connect.Response[rpc.AddExpenseResponse], error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("AddExpense: failed to list users", "error", err)
		return nil, toConnectError(err)
	}

	expense, err := buildExpense(req.Msg, users)
	if err != nil {
		s.logger.Warn("AddExpense validation failed", "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		s.logger.Error("AddExpense failed", "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Expense added",
		"expense_id", expense.ID,
		"amount", expense.Amount,
		"paid_by", expense.PaidBy,
		"tag", expense.Tag,
		"splits", len(expense.Splits),
	)

	version := s.afterMutation(ctx, events.KindExpenseAdded, expense.ID)
	return connect.NewResponse(&rpc.AddExpenseResponse{Expense: expense, Version: version}), nil
}

// DeleteExpense removes an expense from the ledger.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[rpc.DeleteExpenseRequest]) (*connect.Response[rpc.DeleteExpenseResponse], error) {
	if req.Msg.ExpenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: expense ID is required", ErrInvalidExpense))
	}

	if err := s.store.DeleteExpense(ctx, req.Msg.ExpenseID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("DeleteExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		}
		return nil, toConnectError(err)
	}

	s.logger.Info("Expense deleted", "expense_id", req.Msg.ExpenseID)
	version := s.afterMutation(ctx, events.KindExpenseDeleted, req.Msg.ExpenseID)
	return connect.NewResponse(&rpc.DeleteExpenseResponse{Version: version}), nil
}

// ResetLedger removes every expense.
func (s *LedgerService) ResetLedger(ctx context.Context, req *connect.Request[rpc.ResetLedgerRequest]) (*connect.Response[rpc.ResetLedgerResponse], error) {
	if err := s.store.ClearExpenses(ctx); err != nil {
		s.logger.Error("ResetLedger failed", "error", err)
		return nil, toConnectError(err)
	}

	// Every cached projection belongs to an older version now.
	if s.cache != nil {
		s.cache.Purge()
	}

	s.logger.Info("Ledger reset")
	version := s.afterMutation(ctx, events.KindLedgerReset, "")
	return connect.NewResponse(&rpc.ResetLedgerResponse{Version: version}), nil
}

// GetBalances returns every member's net balance in member order.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[rpc.GetBalancesRequest]) (*connect.Response[rpc.GetBalancesResponse], error) {
	p, err := s.project(ctx)
	if err != nil {
		return nil, err
	}

	balances := make([]rpc.Balance, len(p.users))
	for i, u := range p.users {
		balances[i] = rpc.Balance{
			UserID: u.ID,
			Name:   u.Name,
			Amount: calculator.RoundCents(p.balances[u.ID]),
		}
	}
	return connect.NewResponse(&rpc.GetBalancesResponse{Balances: balances, Version: p.version}), nil
}

// GetSettlements returns the transfers that settle the ledger.
func (s *LedgerService) GetSettlements(ctx context.Context, req *connect.Request[rpc.GetSettlementsRequest]) (*connect.Response[rpc.GetSettlementsResponse], error) {
	p, err := s.project(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.GetSettlementsResponse{
		Settlements: append([]models.Settlement{}, p.settlements...),
		Version:     p.version,
	}), nil
}

// GetFairness returns the fairness stats of every member.
func (s *LedgerService) GetFairness(ctx context.Context, req *connect.Request[rpc.GetFairnessRequest]) (*connect.Response[rpc.GetFairnessResponse], error) {
	p, err := s.project(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.GetFairnessResponse{
		Stats:   append([]models.FairnessStats{}, p.fairness...),
		Version: p.version,
	}), nil
}

// GetSettlementSummary returns the settlements narrated as plain text.
func (s *LedgerService) GetSettlementSummary(ctx context.Context, req *connect.Request[rpc.GetSettlementSummaryRequest]) (*connect.Response[rpc.GetSettlementSummaryResponse], error) {
	p, err := s.project(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.GetSettlementSummaryResponse{
		Summary:     p.summary,
		Settlements: append([]models.Settlement{}, p.settlements...),
		Version:     p.version,
	}), nil
}

// GetSpendingByTag returns the ledger total per tag.
func (s *LedgerService) GetSpendingByTag(ctx context.Context, req *connect.Request[rpc.GetSpendingByTagRequest]) (*connect.Response[rpc.GetSpendingByTagResponse], error) {
	p, err := s.project(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.GetSpendingByTagResponse{
		Totals:  calculator.SpendingByTag(p.expenses),
		Version: p.version,
	}), nil
}

// project returns the derived views of the current ledger version, from the
// cache when possible. Returned projections are shared and must not be mutated.
func (s *LedgerService) project(ctx context.Context) (*projection, error) {
	version, err := s.store.Version(ctx)
	if err != nil {
		s.logger.Error("Failed to read ledger version", "error", err)
		return nil, toConnectError(err)
	}

	if s.cache != nil {
		if p, ok := s.cache.Get(version); ok {
			s.metrics.CacheLookup(true)
			return p, nil
		}
		s.metrics.CacheLookup(false)
	}

	users, expenses, version, err := s.snapshot(ctx, version)
	if err != nil {
		return nil, err
	}

	balances, err := calculator.CalculateBalances(users, expenses)
	if err != nil {
		s.logger.Error("Ledger references unknown member", "version", version, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	settlements := calculator.CalculateSettlements(users, balances)
	if err := calculator.VerifySettlements(balances, settlements); err != nil {
		s.logger.Error("Settlements do not clear the ledger", "version", version, "error", err)
	}
	fairness, err := calculator.CalculateFairness(users, expenses)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	p := &projection{
		version:     version,
		users:       users,
		expenses:    expenses,
		balances:    balances,
		settlements: settlements,
		fairness:    fairness,
		summary:     calculator.SettlementSummary(users, settlements),
	}
	s.metrics.ObserveProjection(len(expenses), len(settlements))

	if s.cache != nil {
		s.cache.Set(version, p)
	}
	return p, nil
}

// snapshot reads members and expenses and returns them with the version they
// belong to. A mutation landing mid-read restarts the read at the new version.
func (s *LedgerService) snapshot(ctx context.Context, version int64) ([]models.User, []models.Expense, int64, error) {
	for attempt := 1; attempt <= maxSnapshotAttempts; attempt++ {
		users, err := s.store.ListUsers(ctx)
		if err != nil {
			s.logger.Error("Failed to list users", "error", err)
			return nil, nil, 0, toConnectError(err)
		}
		expenses, err := s.store.ListExpenses(ctx)
		if err != nil {
			s.logger.Error("Failed to list expenses", "error", err)
			return nil, nil, 0, toConnectError(err)
		}
		after, err := s.store.Version(ctx)
		if err != nil {
			s.logger.Error("Failed to read ledger version", "error", err)
			return nil, nil, 0, toConnectError(err)
		}
		if after == version {
			return users, expenses, version, nil
		}
		s.logger.Debug("Ledger changed while reading, retrying", "version", version, "now", after, "attempt", attempt)
		version = after
	}
	return nil, nil, 0, connect.NewError(connect.CodeAborted,
		fmt.Errorf("ledger changed on each of %d reads", maxSnapshotAttempts))
}

// afterMutation recomputes the projection and publishes a change event.
// Failures are logged and never fail the mutation.
func (s *LedgerService) afterMutation(ctx context.Context, kind, expenseID string) int64 {
	p, err := s.project(ctx)
	if err != nil {
		s.logger.Warn("Failed to project ledger after mutation", "kind", kind, "error", err)
		return 0
	}

	msg := &events.LedgerChanged{
		Kind:         kind,
		ExpenseID:    expenseID,
		Version:      p.version,
		ExpenseCount: len(p.expenses),
		Settlements:  p.settlements,
		Summary:      p.summary,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.Warn("Failed to publish ledger change", "kind", kind, "version", p.version, "error", err)
	}
	return p.version
}

// buildExpense validates the request against the group and derives splits.
func buildExpense(msg *rpc.AddExpenseRequest, users []models.User) (*models.Expense, error) {
	description := strings.TrimSpace(msg.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidExpense)
	}
	if math.IsNaN(msg.Amount) || math.IsInf(msg.Amount, 0) || msg.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidExpense, msg.Amount)
	}

	members := make(map[string]bool, len(users))
	for _, u := range users {
		members[u.ID] = true
	}
	if !members[msg.PaidBy] {
		return nil, fmt.Errorf("%w: payer %q", calculator.ErrUnknownUser, msg.PaidBy)
	}

	tag := models.TagShared
	if strings.TrimSpace(msg.Tag) != "" {
		parsed, err := models.ParseTag(msg.Tag)
		if err != nil {
			return nil, err
		}
		tag = parsed
	}

	date, err := normalizeDate(msg.Date)
	if err != nil {
		return nil, err
	}

	var splits []models.Split
	switch {
	case len(msg.Splits) > 0 && len(msg.Weights) > 0:
		return nil, fmt.Errorf("%w: set either splits or weights, not both", ErrInvalidExpense)
	case len(msg.Splits) > 0:
		splits, err = explicitSplits(msg.Splits, members)
	case len(msg.Weights) > 0:
		splits, err = weightedSplits(msg.Amount, msg.Weights, members)
	default:
		ids := make([]string, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		splits = calculator.EqualSplits(msg.Amount, ids)
	}
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		Description: description,
		Amount:      msg.Amount,
		PaidBy:      msg.PaidBy,
		Tag:         tag,
		Date:        date,
		Splits:      splits,
		ReceiptURL:  strings.TrimSpace(msg.ReceiptURL),
	}
	if diff := math.Abs(expense.SplitTotal() - expense.Amount); diff > calculator.Tolerance {
		return nil, fmt.Errorf("%w: splits sum to %.2f, amount is %.2f", ErrInvalidExpense, expense.SplitTotal(), expense.Amount)
	}
	return expense, nil
}

func explicitSplits(inputs []rpc.SplitInput, members map[string]bool) ([]models.Split, error) {
	seen := make(map[string]bool, len(inputs))
	splits := make([]models.Split, len(inputs))
	for i, in := range inputs {
		if err := checkParticipant(in.UserID, members, seen); err != nil {
			return nil, err
		}
		if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount < 0 {
			return nil, fmt.Errorf("%w: split amount for %q must be non-negative", ErrInvalidExpense, in.UserID)
		}
		// An explicit share is its own weight.
		splits[i] = models.Split{UserID: in.UserID, Weight: in.Amount, Amount: in.Amount}
	}
	return splits, nil
}

func weightedSplits(amount float64, inputs []rpc.WeightInput, members map[string]bool) ([]models.Split, error) {
	seen := make(map[string]bool, len(inputs))
	weights := make([]calculator.UserWeight, len(inputs))
	for i, in := range inputs {
		if err := checkParticipant(in.UserID, members, seen); err != nil {
			return nil, err
		}
		weights[i] = calculator.UserWeight{UserID: in.UserID, Weight: in.Weight}
	}
	return calculator.WeightedSplits(amount, weights), nil
}

func checkParticipant(userID string, members, seen map[string]bool) error {
	if !members[userID] {
		return fmt.Errorf("%w: split user %q", calculator.ErrUnknownUser, userID)
	}
	if seen[userID] {
		return fmt.Errorf("%w: duplicate split for %q", ErrInvalidExpense, userID)
	}
	seen[userID] = true
	return nil
}

// normalizeDate accepts RFC 3339 timestamps or plain dates. Empty input is
// left for the store to fill in.
func normalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.RFC3339), nil
	}
	return "", fmt.Errorf("%w: date %q is not RFC 3339 or YYYY-MM-DD", ErrInvalidExpense, s)
}

func cloneExpenses(expenses []models.Expense) []models.Expense {
	out := make([]models.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = storage.CloneExpense(e)
	}
	return out
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, calculator.ErrUnknownUser),
		errors.Is(err, models.ErrInvalidTag),
		errors.Is(err, ErrInvalidExpense):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
