package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the LedgerService service.
const LedgerServiceName = "equisplit.v1.LedgerService"

// Procedure names of the LedgerService RPCs.
const (
	LedgerServiceListUsersProcedure            = "/equisplit.v1.LedgerService/ListUsers"
	LedgerServiceListExpensesProcedure         = "/equisplit.v1.LedgerService/ListExpenses"
	LedgerServiceGetExpenseProcedure           = "/equisplit.v1.LedgerService/GetExpense"
	LedgerServiceAddExpenseProcedure           = "/equisplit.v1.LedgerService/AddExpense"
	LedgerServiceDeleteExpenseProcedure        = "/equisplit.v1.LedgerService/DeleteExpense"
	LedgerServiceResetLedgerProcedure          = "/equisplit.v1.LedgerService/ResetLedger"
	LedgerServiceGetBalancesProcedure          = "/equisplit.v1.LedgerService/GetBalances"
	LedgerServiceGetSettlementsProcedure       = "/equisplit.v1.LedgerService/GetSettlements"
	LedgerServiceGetFairnessProcedure          = "/equisplit.v1.LedgerService/GetFairness"
	LedgerServiceGetSettlementSummaryProcedure = "/equisplit.v1.LedgerService/GetSettlementSummary"
	LedgerServiceGetSpendingByTagProcedure     = "/equisplit.v1.LedgerService/GetSpendingByTag"
)

// LedgerServiceHandler is implemented by the ledger service.
type LedgerServiceHandler interface {
	ListUsers(context.Context, *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	AddExpense(context.Context, *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
	ResetLedger(context.Context, *connect.Request[ResetLedgerRequest]) (*connect.Response[ResetLedgerResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	GetSettlements(context.Context, *connect.Request[GetSettlementsRequest]) (*connect.Response[GetSettlementsResponse], error)
	GetFairness(context.Context, *connect.Request[GetFairnessRequest]) (*connect.Response[GetFairnessResponse], error)
	GetSettlementSummary(context.Context, *connect.Request[GetSettlementSummaryRequest]) (*connect.Response[GetSettlementSummaryResponse], error)
	GetSpendingByTag(context.Context, *connect.Request[GetSpendingByTagRequest]) (*connect.Response[GetSpendingByTagResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	handlers := map[string]http.Handler{
		LedgerServiceListUsersProcedure:            connect.NewUnaryHandler(LedgerServiceListUsersProcedure, svc.ListUsers, opts...),
		LedgerServiceListExpensesProcedure:         connect.NewUnaryHandler(LedgerServiceListExpensesProcedure, svc.ListExpenses, opts...),
		LedgerServiceGetExpenseProcedure:           connect.NewUnaryHandler(LedgerServiceGetExpenseProcedure, svc.GetExpense, opts...),
		LedgerServiceAddExpenseProcedure:           connect.NewUnaryHandler(LedgerServiceAddExpenseProcedure, svc.AddExpense, opts...),
		LedgerServiceDeleteExpenseProcedure:        connect.NewUnaryHandler(LedgerServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...),
		LedgerServiceResetLedgerProcedure:          connect.NewUnaryHandler(LedgerServiceResetLedgerProcedure, svc.ResetLedger, opts...),
		LedgerServiceGetBalancesProcedure:          connect.NewUnaryHandler(LedgerServiceGetBalancesProcedure, svc.GetBalances, opts...),
		LedgerServiceGetSettlementsProcedure:       connect.NewUnaryHandler(LedgerServiceGetSettlementsProcedure, svc.GetSettlements, opts...),
		LedgerServiceGetFairnessProcedure:          connect.NewUnaryHandler(LedgerServiceGetFairnessProcedure, svc.GetFairness, opts...),
		LedgerServiceGetSettlementSummaryProcedure: connect.NewUnaryHandler(LedgerServiceGetSettlementSummaryProcedure, svc.GetSettlementSummary, opts...),
		LedgerServiceGetSpendingByTagProcedure:     connect.NewUnaryHandler(LedgerServiceGetSpendingByTagProcedure, svc.GetSpendingByTag, opts...),
	}
	return "/" + LedgerServiceName + "/", routeProcedures(handlers)
}

// LedgerServiceClient is a client for the equisplit.v1.LedgerService service.
type LedgerServiceClient struct {
	listUsers            *connect.Client[ListUsersRequest, ListUsersResponse]
	listExpenses         *connect.Client[ListExpensesRequest, ListExpensesResponse]
	getExpense           *connect.Client[GetExpenseRequest, GetExpenseResponse]
	addExpense           *connect.Client[AddExpenseRequest, AddExpenseResponse]
	deleteExpense        *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	resetLedger          *connect.Client[ResetLedgerRequest, ResetLedgerResponse]
	getBalances          *connect.Client[GetBalancesRequest, GetBalancesResponse]
	getSettlements       *connect.Client[GetSettlementsRequest, GetSettlementsResponse]
	getFairness          *connect.Client[GetFairnessRequest, GetFairnessResponse]
	getSettlementSummary *connect.Client[GetSettlementSummaryRequest, GetSettlementSummaryResponse]
	getSpendingByTag     *connect.Client[GetSpendingByTagRequest, GetSpendingByTagResponse]
}

// NewLedgerServiceClient constructs a client for the LedgerService service.
// baseURL is the server root, e.g. http://localhost:8080.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	opts = clientOptions(opts)
	return &LedgerServiceClient{
		listUsers:            connect.NewClient[ListUsersRequest, ListUsersResponse](httpClient, baseURL+LedgerServiceListUsersProcedure, opts...),
		listExpenses:         connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+LedgerServiceListExpensesProcedure, opts...),
		getExpense:           connect.NewClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL+LedgerServiceGetExpenseProcedure, opts...),
		addExpense:           connect.NewClient[AddExpenseRequest, AddExpenseResponse](httpClient, baseURL+LedgerServiceAddExpenseProcedure, opts...),
		deleteExpense:        connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+LedgerServiceDeleteExpenseProcedure, opts...),
		resetLedger:          connect.NewClient[ResetLedgerRequest, ResetLedgerResponse](httpClient, baseURL+LedgerServiceResetLedgerProcedure, opts...),
		getBalances:          connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+LedgerServiceGetBalancesProcedure, opts...),
		getSettlements:       connect.NewClient[GetSettlementsRequest, GetSettlementsResponse](httpClient, baseURL+LedgerServiceGetSettlementsProcedure, opts...),
		getFairness:          connect.NewClient[GetFairnessRequest, GetFairnessResponse](httpClient, baseURL+LedgerServiceGetFairnessProcedure, opts...),
		getSettlementSummary: connect.NewClient[GetSettlementSummaryRequest, GetSettlementSummaryResponse](httpClient, baseURL+LedgerServiceGetSettlementSummaryProcedure, opts...),
		getSpendingByTag:     connect.NewClient[GetSpendingByTagRequest, GetSpendingByTagResponse](httpClient, baseURL+LedgerServiceGetSpendingByTagProcedure, opts...),
	}
}

func (c *LedgerServiceClient) ListUsers(ctx context.Context, req *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error) {
	return c.listUsers.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ResetLedger(ctx context.Context, req *connect.Request[ResetLedgerRequest]) (*connect.Response[ResetLedgerResponse], error) {
	return c.resetLedger.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetSettlements(ctx context.Context, req *connect.Request[GetSettlementsRequest]) (*connect.Response[GetSettlementsResponse], error) {
	return c.getSettlements.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetFairness(ctx context.Context, req *connect.Request[GetFairnessRequest]) (*connect.Response[GetFairnessResponse], error) {
	return c.getFairness.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetSettlementSummary(ctx context.Context, req *connect.Request[GetSettlementSummaryRequest]) (*connect.Response[GetSettlementSummaryResponse], error) {
	return c.getSettlementSummary.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetSpendingByTag(ctx context.Context, req *connect.Request[GetSpendingByTagRequest]) (*connect.Response[GetSpendingByTagResponse], error) {
	return c.getSpendingByTag.CallUnary(ctx, req)
}

func routeProcedures(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
