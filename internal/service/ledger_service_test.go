package service

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/equisplit/internal/events"
	"github.com/mmynk/equisplit/internal/metrics"
	"github.com/mmynk/equisplit/internal/models"
	"github.com/mmynk/equisplit/internal/rpc"
	"github.com/mmynk/equisplit/internal/storage/sqlite"
)

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []*events.LedgerChanged
}

func (p *recordingPublisher) PublishLedgerChanged(_ context.Context, msg *events.LedgerChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) all() []*events.LedgerChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.LedgerChanged(nil), p.messages...)
}

type testEnv struct {
	client    *rpc.LedgerServiceClient
	publisher *recordingPublisher
	registry  *prometheus.Registry
}

// setupTestServer runs a LedgerService over HTTP against a temp SQLite store
// seeded with the default members.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "equisplit-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.EnsureUsers(context.Background(), models.DefaultUsers()); err != nil {
		t.Fatalf("failed to seed users: %v", err)
	}

	publisher := &recordingPublisher{}
	registry := prometheus.NewRegistry()
	svc := NewLedgerService(store,
		WithProjectionCache(8, time.Minute),
		WithPublisher(publisher),
		WithMetrics(metrics.New(registry)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	path, handler := rpc.NewLedgerServiceHandler(svc)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		client:    rpc.NewLedgerServiceClient(http.DefaultClient, server.URL),
		publisher: publisher,
		registry:  registry,
	}
}

func addExpense(t *testing.T, client *rpc.LedgerServiceClient, req *rpc.AddExpenseRequest) *rpc.AddExpenseResponse {
	t.Helper()
	resp, err := client.AddExpense(context.Background(), connect.NewRequest(req))
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	return resp.Msg
}

func TestListUsers(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.client.ListUsers(context.Background(), connect.NewRequest(&rpc.ListUsersRequest{}))
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(resp.Msg.Users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(resp.Msg.Users))
	}
	if resp.Msg.Users[0].Name != "Alex" || resp.Msg.Users[2].Name != "Casey" {
		t.Errorf("unexpected member order: %+v", resp.Msg.Users)
	}
}

func TestAddExpense_DefaultsToEqualSplit(t *testing.T) {
	env := setupTestServer(t)

	resp := addExpense(t, env.client, &rpc.AddExpenseRequest{
		Description: "Groceries",
		Amount:      30,
		PaidBy:      "1",
	})

	if resp.Expense.ID == "" {
		t.Error("expected non-empty expense ID")
	}
	if resp.Expense.Tag != models.TagShared {
		t.Errorf("tag: expected shared, got %s", resp.Expense.Tag)
	}
	if resp.Expense.Date == "" {
		t.Error("expected date to be set")
	}
	if len(resp.Expense.Splits) != 3 {
		t.Fatalf("splits: expected 3, got %d", len(resp.Expense.Splits))
	}
	for _, split := range resp.Expense.Splits {
		if split.Amount != 10 || split.Weight != 1 {
			t.Errorf("split %s: expected 10 with weight 1, got %+v", split.UserID, split)
		}
	}
	if resp.Version == 0 {
		t.Error("expected version to advance")
	}
}

func TestAddExpense_WeightedAndExplicitSplits(t *testing.T) {
	env := setupTestServer(t)

	weighted := addExpense(t, env.client, &rpc.AddExpenseRequest{
		Description: "Cabin",
		Amount:      120,
		PaidBy:      "2",
		Tag:         "Travel",
		Weights: []rpc.WeightInput{
			{UserID: "1", Weight: 2},
			{UserID: "2", Weight: 1},
			{UserID: "3", Weight: 1},
		},
	})
	want := map[string]float64{"1": 60, "2": 30, "3": 30}
	for _, split := range weighted.Expense.Splits {
		if split.Amount != want[split.UserID] {
			t.Errorf("weighted split %s: expected %.2f, got %.2f", split.UserID, want[split.UserID], split.Amount)
		}
	}
	if weighted.Expense.Tag != models.TagTravel {
		t.Errorf("tag: expected travel, got %s", weighted.Expense.Tag)
	}

	explicit := addExpense(t, env.client, &rpc.AddExpenseRequest{
		Description: "Concert",
		Amount:      50,
		PaidBy:      "3",
		Tag:         "entertainment",
		Date:        "2024-06-01",
		Splits: []rpc.SplitInput{
			{UserID: "1", Amount: 20},
			{UserID: "3", Amount: 30},
		},
	})
	if explicit.Expense.Date != "2024-06-01T00:00:00Z" {
		t.Errorf("date: expected normalised RFC 3339, got %s", explicit.Expense.Date)
	}
	if len(explicit.Expense.Splits) != 2 || explicit.Expense.Splits[1].Amount != 30 {
		t.Errorf("unexpected explicit splits: %+v", explicit.Expense.Splits)
	}
}

func TestAddExpense_Validation(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		req  *rpc.AddExpenseRequest
	}{
		{
			name: "missing description",
			req:  &rpc.AddExpenseRequest{Amount: 10, PaidBy: "1"},
		},
		{
			name: "zero amount",
			req:  &rpc.AddExpenseRequest{Description: "x", Amount: 0, PaidBy: "1"},
		},
		{
			name: "negative amount",
			req:  &rpc.AddExpenseRequest{Description: "x", Amount: -5, PaidBy: "1"},
		},
		{
			name: "unknown payer",
			req:  &rpc.AddExpenseRequest{Description: "x", Amount: 10, PaidBy: "42"},
		},
		{
			name: "invalid tag",
			req:  &rpc.AddExpenseRequest{Description: "x", Amount: 10, PaidBy: "1", Tag: "gifts"},
		},
		{
			name: "invalid date",
			req:  &rpc.AddExpenseRequest{Description: "x", Amount: 10, PaidBy: "1", Date: "yesterday"},
		},
		{
			name: "splits do not add up",
			req: &rpc.AddExpenseRequest{Description: "x", Amount: 10, PaidBy: "1", Splits: []rpc.SplitInput{
				{UserID: "1", Amount: 4},
				{UserID: "2", Amount: 4},
			}},
		},
		{
			name: "unknown split user",
			req: &rpc.AddExpenseRequest{Description: "x", Amount: 10, PaidBy: "1", Splits: []rpc.SplitInput{
				{UserID: "9", Amount: 10},
			}},
		},
		{
			name: "duplicate split user",
			req: &rpc.AddExpenseRequest{Description: "x", Amount: 10, PaidBy: "1", Splits: []rpc.SplitInput{
				{UserID: "1", Amount: 5},
				{UserID: "1", Amount: 5},
			}},
		},
		{
			name: "all weights zero",
			req: &rpc.AddExpenseRequest{Description: "x", Amount: 10, PaidBy: "1", Weights: []rpc.WeightInput{
				{UserID: "1", Weight: 0},
				{UserID: "2", Weight: 0},
			}},
		},
		{
			name: "splits and weights together",
			req: &rpc.AddExpenseRequest{
				Description: "x", Amount: 10, PaidBy: "1",
				Splits:  []rpc.SplitInput{{UserID: "1", Amount: 10}},
				Weights: []rpc.WeightInput{{UserID: "1", Weight: 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.AddExpense(context.Background(), connect.NewRequest(tt.req))
			if connect.CodeOf(err) != connect.CodeInvalidArgument {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}

	if got := len(env.publisher.all()); got != 0 {
		t.Errorf("expected no events for rejected expenses, got %d", got)
	}
}

func TestSettlementFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	// Alex pays 30 and Jordan pays 60, both split three ways.
	addExpense(t, env.client, &rpc.AddExpenseRequest{Description: "Lunch", Amount: 30, PaidBy: "1", Tag: "food"})
	addExpense(t, env.client, &rpc.AddExpenseRequest{Description: "Taxi", Amount: 60, PaidBy: "2", Tag: "travel"})

	t.Run("balances", func(t *testing.T) {
		resp, err := env.client.GetBalances(ctx, connect.NewRequest(&rpc.GetBalancesRequest{}))
		if err != nil {
			t.Fatalf("GetBalances failed: %v", err)
		}
		want := []float64{0, 30, -30}
		for i, b := range resp.Msg.Balances {
			if math.Abs(b.Amount-want[i]) > 1e-9 {
				t.Errorf("balance of %s: expected %.2f, got %.2f", b.Name, want[i], b.Amount)
			}
		}
	})

	t.Run("settlements", func(t *testing.T) {
		resp, err := env.client.GetSettlements(ctx, connect.NewRequest(&rpc.GetSettlementsRequest{}))
		if err != nil {
			t.Fatalf("GetSettlements failed: %v", err)
		}
		want := models.Settlement{From: "3", To: "2", Amount: 30}
		if len(resp.Msg.Settlements) != 1 || resp.Msg.Settlements[0] != want {
			t.Errorf("expected [%+v], got %+v", want, resp.Msg.Settlements)
		}
	})

	t.Run("summary", func(t *testing.T) {
		resp, err := env.client.GetSettlementSummary(ctx, connect.NewRequest(&rpc.GetSettlementSummaryRequest{}))
		if err != nil {
			t.Fatalf("GetSettlementSummary failed: %v", err)
		}
		if resp.Msg.Summary != "Casey owes Jordan $30.00." {
			t.Errorf("unexpected summary: %q", resp.Msg.Summary)
		}
	})

	t.Run("fairness", func(t *testing.T) {
		resp, err := env.client.GetFairness(ctx, connect.NewRequest(&rpc.GetFairnessRequest{}))
		if err != nil {
			t.Fatalf("GetFairness failed: %v", err)
		}
		want := []float64{50, 100, 0}
		for i, s := range resp.Msg.Stats {
			if s.FairnessScore != want[i] {
				t.Errorf("fairness of %s: expected %.0f, got %.2f", s.UserID, want[i], s.FairnessScore)
			}
		}
	})

	t.Run("spending by tag", func(t *testing.T) {
		resp, err := env.client.GetSpendingByTag(ctx, connect.NewRequest(&rpc.GetSpendingByTagRequest{}))
		if err != nil {
			t.Fatalf("GetSpendingByTag failed: %v", err)
		}
		want := []models.TagTotal{{Tag: models.TagFood, Total: 30}, {Tag: models.TagTravel, Total: 60}}
		if len(resp.Msg.Totals) != 2 || resp.Msg.Totals[0] != want[0] || resp.Msg.Totals[1] != want[1] {
			t.Errorf("expected %+v, got %+v", want, resp.Msg.Totals)
		}
	})

	t.Run("events", func(t *testing.T) {
		msgs := env.publisher.all()
		if len(msgs) != 2 {
			t.Fatalf("expected 2 events, got %d", len(msgs))
		}
		last := msgs[1]
		if last.Kind != events.KindExpenseAdded || last.ExpenseCount != 2 {
			t.Errorf("unexpected event: %+v", last)
		}
		if last.Summary != "Casey owes Jordan $30.00." {
			t.Errorf("event summary: %q", last.Summary)
		}
		if last.Version <= msgs[0].Version {
			t.Errorf("expected increasing versions, got %d then %d", msgs[0].Version, last.Version)
		}
	})
}

func TestEmptyLedger(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	settlements, err := env.client.GetSettlements(ctx, connect.NewRequest(&rpc.GetSettlementsRequest{}))
	if err != nil {
		t.Fatalf("GetSettlements failed: %v", err)
	}
	if len(settlements.Msg.Settlements) != 0 {
		t.Errorf("expected no settlements, got %+v", settlements.Msg.Settlements)
	}

	fairness, err := env.client.GetFairness(ctx, connect.NewRequest(&rpc.GetFairnessRequest{}))
	if err != nil {
		t.Fatalf("GetFairness failed: %v", err)
	}
	for _, s := range fairness.Msg.Stats {
		if s.FairnessScore != 50 {
			t.Errorf("fairness of %s: expected 50, got %.2f", s.UserID, s.FairnessScore)
		}
	}

	summary, err := env.client.GetSettlementSummary(ctx, connect.NewRequest(&rpc.GetSettlementSummaryRequest{}))
	if err != nil {
		t.Fatalf("GetSettlementSummary failed: %v", err)
	}
	if summary.Msg.Summary != "" {
		t.Errorf("expected empty summary, got %q", summary.Msg.Summary)
	}
}

func TestGetAndDeleteExpense(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	created := addExpense(t, env.client, &rpc.AddExpenseRequest{Description: "Rent", Amount: 900, PaidBy: "3", Tag: "housing"})

	got, err := env.client.GetExpense(ctx, connect.NewRequest(&rpc.GetExpenseRequest{ExpenseID: created.Expense.ID}))
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if got.Msg.Expense.Description != "Rent" {
		t.Errorf("description: expected Rent, got %s", got.Msg.Expense.Description)
	}

	deleted, err := env.client.DeleteExpense(ctx, connect.NewRequest(&rpc.DeleteExpenseRequest{ExpenseID: created.Expense.ID}))
	if err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if deleted.Msg.Version <= created.Version {
		t.Errorf("expected version to advance past %d, got %d", created.Version, deleted.Msg.Version)
	}

	_, err = env.client.GetExpense(ctx, connect.NewRequest(&rpc.GetExpenseRequest{ExpenseID: created.Expense.ID}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound after delete, got %v", err)
	}

	_, err = env.client.DeleteExpense(ctx, connect.NewRequest(&rpc.DeleteExpenseRequest{ExpenseID: created.Expense.ID}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound on second delete, got %v", err)
	}

	_, err = env.client.GetExpense(ctx, connect.NewRequest(&rpc.GetExpenseRequest{}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument for empty ID, got %v", err)
	}

	msgs := env.publisher.all()
	if len(msgs) != 2 || msgs[1].Kind != events.KindExpenseDeleted || msgs[1].ExpenseID != created.Expense.ID {
		t.Errorf("unexpected events: %+v", msgs)
	}
}

func TestResetLedger(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	addExpense(t, env.client, &rpc.AddExpenseRequest{Description: "Lunch", Amount: 30, PaidBy: "1"})
	addExpense(t, env.client, &rpc.AddExpenseRequest{Description: "Dinner", Amount: 45, PaidBy: "2"})

	if _, err := env.client.ResetLedger(ctx, connect.NewRequest(&rpc.ResetLedgerRequest{})); err != nil {
		t.Fatalf("ResetLedger failed: %v", err)
	}

	resp, err := env.client.ListExpenses(ctx, connect.NewRequest(&rpc.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(resp.Msg.Expenses) != 0 {
		t.Errorf("expected empty ledger, got %d expenses", len(resp.Msg.Expenses))
	}

	msgs := env.publisher.all()
	if last := msgs[len(msgs)-1]; last.Kind != events.KindLedgerReset || last.ExpenseCount != 0 || len(last.Settlements) != 0 {
		t.Errorf("unexpected reset event: %+v", last)
	}
}

func TestListExpenses_NewestFirst(t *testing.T) {
	env := setupTestServer(t)

	for _, desc := range []string{"first", "second", "third"} {
		addExpense(t, env.client, &rpc.AddExpenseRequest{Description: desc, Amount: 3, PaidBy: "1"})
	}

	resp, err := env.client.ListExpenses(context.Background(), connect.NewRequest(&rpc.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(resp.Msg.Expenses) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(resp.Msg.Expenses))
	}
	if resp.Msg.Expenses[0].Description != "third" || resp.Msg.Expenses[2].Description != "first" {
		t.Errorf("unexpected order: %s, %s, %s",
			resp.Msg.Expenses[0].Description, resp.Msg.Expenses[1].Description, resp.Msg.Expenses[2].Description)
	}
}

func TestProjectionCache(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	addExpense(t, env.client, &rpc.AddExpenseRequest{Description: "Lunch", Amount: 30, PaidBy: "1"})
	before := cacheLookups(t, env.registry, "hit")

	for i := 0; i < 3; i++ {
		if _, err := env.client.GetSettlements(ctx, connect.NewRequest(&rpc.GetSettlementsRequest{})); err != nil {
			t.Fatalf("GetSettlements failed: %v", err)
		}
	}

	if got := cacheLookups(t, env.registry, "hit") - before; got != 3 {
		t.Errorf("expected 3 cache hits, got %v", got)
	}
}

func cacheLookups(t *testing.T, g prometheus.Gatherer, result string) float64 {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "equisplit_projection_cache_lookups_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
