package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the ledger service.
const LedgerServiceName = "settleup.v1.LedgerService"

// Procedure paths served by NewLedgerServiceHandler.
const (
	CreateGroupProcedure        = "/" + LedgerServiceName + "/CreateGroup"
	GetGroupProcedure           = "/" + LedgerServiceName + "/GetGroup"
	ListGroupsProcedure         = "/" + LedgerServiceName + "/ListGroups"
	AddExpenseProcedure         = "/" + LedgerServiceName + "/AddExpense"
	ListExpensesProcedure       = "/" + LedgerServiceName + "/ListExpenses"
	DeleteExpenseProcedure      = "/" + LedgerServiceName + "/DeleteExpense"
	SettleSplitProcedure        = "/" + LedgerServiceName + "/SettleSplit"
	GetGroupBalancesProcedure   = "/" + LedgerServiceName + "/GetGroupBalances"
	RecordSettlementProcedure   = "/" + LedgerServiceName + "/RecordSettlement"
	CompleteSettlementProcedure = "/" + LedgerServiceName + "/CompleteSettlement"
	ListSettlementsProcedure    = "/" + LedgerServiceName + "/ListSettlements"
)

// NewLedgerServiceHandler builds an HTTP handler for svc. It returns the path
// prefix to mount the handler on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateGroupProcedure, connect.NewUnaryHandler(CreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GetGroupProcedure, connect.NewUnaryHandler(GetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(ListGroupsProcedure, connect.NewUnaryHandler(ListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(AddExpenseProcedure, connect.NewUnaryHandler(AddExpenseProcedure, svc.AddExpense, opts...))
	mux.Handle(ListExpensesProcedure, connect.NewUnaryHandler(ListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(DeleteExpenseProcedure, connect.NewUnaryHandler(DeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(SettleSplitProcedure, connect.NewUnaryHandler(SettleSplitProcedure, svc.SettleSplit, opts...))
	mux.Handle(GetGroupBalancesProcedure, connect.NewUnaryHandler(GetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	mux.Handle(RecordSettlementProcedure, connect.NewUnaryHandler(RecordSettlementProcedure, svc.RecordSettlement, opts...))
	mux.Handle(CompleteSettlementProcedure, connect.NewUnaryHandler(CompleteSettlementProcedure, svc.CompleteSettlement, opts...))
	mux.Handle(ListSettlementsProcedure, connect.NewUnaryHandler(ListSettlementsProcedure, svc.ListSettlements, opts...))

	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient is a Connect client for the ledger service.
type LedgerServiceClient struct {
	createGroup        *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup           *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups         *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addExpense         *connect.Client[AddExpenseRequest, AddExpenseResponse]
	listExpenses       *connect.Client[ListExpensesRequest, ListExpensesResponse]
	deleteExpense      *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	settleSplit        *connect.Client[SettleSplitRequest, SettleSplitResponse]
	getGroupBalances   *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	recordSettlement   *connect.Client[RecordSettlementRequest, RecordSettlementResponse]
	completeSettlement *connect.Client[CompleteSettlementRequest, CompleteSettlementResponse]
	listSettlements    *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
}

// NewLedgerServiceClient creates a client for the ledger service at baseURL
// (for example http://localhost:8080).
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &LedgerServiceClient{
		createGroup:        connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+CreateGroupProcedure, opts...),
		getGroup:           connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GetGroupProcedure, opts...),
		listGroups:         connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+ListGroupsProcedure, opts...),
		addExpense:         connect.NewClient[AddExpenseRequest, AddExpenseResponse](httpClient, baseURL+AddExpenseProcedure, opts...),
		listExpenses:       connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ListExpensesProcedure, opts...),
		deleteExpense:      connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+DeleteExpenseProcedure, opts...),
		settleSplit:        connect.NewClient[SettleSplitRequest, SettleSplitResponse](httpClient, baseURL+SettleSplitProcedure, opts...),
		getGroupBalances:   connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL+GetGroupBalancesProcedure, opts...),
		recordSettlement:   connect.NewClient[RecordSettlementRequest, RecordSettlementResponse](httpClient, baseURL+RecordSettlementProcedure, opts...),
		completeSettlement: connect.NewClient[CompleteSettlementRequest, CompleteSettlementResponse](httpClient, baseURL+CompleteSettlementProcedure, opts...),
		listSettlements:    connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+ListSettlementsProcedure, opts...),
	}
}

func (c *LedgerServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SettleSplit(ctx context.Context, req *connect.Request[SettleSplitRequest]) (*connect.Response[SettleSplitResponse], error) {
	return c.settleSplit.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CompleteSettlement(ctx context.Context, req *connect.Request[CompleteSettlementRequest]) (*connect.Response[CompleteSettlementResponse], error) {
	return c.completeSettlement.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}
