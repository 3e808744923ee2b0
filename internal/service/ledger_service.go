package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

const defaultCurrency = "usd"

// LedgerService implements the settleup.v1.LedgerService Connect service.
type LedgerService struct {
	store    storage.Store
	reporter *BalanceReporter
	now      func() time.Time
}

// NewLedgerService creates a new LedgerService with the given storage backend.
// m may be nil.
func NewLedgerService(store storage.Store, policy RejectPolicy, m *metrics.Metrics) *LedgerService {
	return &LedgerService{
		store:    store,
		reporter: NewBalanceReporter(store, policy, m),
		now:      time.Now,
	}
}

// findNewMembers returns ids that are not already in existing, without repeats.
func findNewMembers(ids, existing []string) []string {
	memberSet := make(map[string]bool, len(existing))
	for _, m := range existing {
		memberSet[m] = true
	}
	var newOnes []string
	for _, id := range ids {
		if id == "" || memberSet[id] {
			continue
		}
		memberSet[id] = true
		newOnes = append(newOnes, id)
	}
	return newOnes
}

// addMissingMembers adds the payer and split members to the group when they
// are not in it yet.
func (s *LedgerService) addMissingMembers(ctx context.Context, group *models.Group, expense *models.Expense) error {
	people := make([]string, 0, len(expense.Splits)+1)
	people = append(people, expense.PayerID)
	for _, split := range expense.Splits {
		people = append(people, split.MemberID)
	}

	newMembers := findNewMembers(people, group.Members)
	if len(newMembers) == 0 {
		return nil
	}
	if err := s.store.AddGroupMembers(ctx, group.ID, newMembers); err != nil {
		return err
	}
	group.Members = append(group.Members, newMembers...)
	slog.Info("Auto-added members to group", "group_id", group.ID, "new_members", newMembers)
	return nil
}

// CreateGroup creates a new group.
func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	if req.Msg.Name == "" {
		return nil, toConnectError(invalidf("group name is required"))
	}

	group := &models.Group{
		Name:    req.Msg.Name,
		Members: req.Msg.Members,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "group_id", group.ID)
	return connect.NewResponse(&CreateGroupResponse{Group: group}), nil
}

// GetGroup retrieves a group by ID.
func (s *LedgerService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetGroupResponse{Group: group}), nil
}

// ListGroups returns every group with its members, newest first.
func (s *LedgerService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	slog.Info("ListGroups successful", "groups", len(groups))
	return connect.NewResponse(&ListGroupsResponse{Groups: groups}), nil
}

// AddExpense resolves the requested split policy into concrete splits and
// records the expense. Unknown payers and split members join the group.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[AddExpenseRequest]) (*connect.Response[AddExpenseResponse], error) {
	msg := req.Msg
	slog.Info("AddExpense request received",
		"group_id", msg.GroupID,
		"payer_id", msg.PayerID,
		"amount", msg.Amount,
		"split_policy", msg.SplitPolicy,
		"shares", len(msg.Shares),
	)

	if msg.PayerID == "" {
		return nil, toConnectError(invalidf("payer_id is required"))
	}
	policy, err := models.ParseSplitPolicy(msg.SplitPolicy)
	if err != nil {
		return nil, toConnectError(invalidf("%v", err))
	}

	group, err := s.store.GetGroup(ctx, msg.GroupID)
	if err != nil {
		slog.Error("AddExpense failed to get group", "group_id", msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	shares := make([]calculator.Share, 0, len(msg.Shares))
	for _, sh := range msg.Shares {
		shares = append(shares, calculator.Share{MemberID: sh.MemberID, Amount: sh.Amount, Percentage: sh.Percentage})
	}
	if len(shares) == 0 && policy == models.SplitEqual {
		for _, m := range group.Members {
			shares = append(shares, calculator.Share{MemberID: m})
		}
	}

	splits, err := calculator.ResolveSplits(policy, msg.Amount, msg.PayerID, shares)
	if err != nil {
		slog.Warn("AddExpense split resolution failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	currency := msg.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	expense := models.Expense{
		ID:          uuid.New().String(),
		GroupID:     group.ID,
		PayerID:     msg.PayerID,
		Amount:      msg.Amount,
		Currency:    currency,
		SplitPolicy: policy,
		Splits:      splits,
		Description: msg.Description,
		Category:    msg.Category,
		OccurredAt:  msg.OccurredAt,
		CreatedAt:   s.now().Unix(),
	}
	if expense.OccurredAt.IsZero() {
		expense.OccurredAt = s.now().UTC()
	}

	// Same checks the balance computation will apply later.
	if _, rejected := calculator.ValidateExpenses(group.ID, []models.Expense{expense}); len(rejected) > 0 {
		return nil, toConnectError(rejected[0].Err)
	}

	if err := s.addMissingMembers(ctx, group, &expense); err != nil {
		slog.Error("AddExpense failed to add members", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}
	if err := s.store.CreateExpense(ctx, &expense); err != nil {
		slog.Error("AddExpense failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense created", "expense_id", expense.ID, "group_id", group.ID)
	return connect.NewResponse(&AddExpenseResponse{Expense: &expense}), nil
}

// ListExpenses returns every expense of a group, oldest first.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}
	expenses, err := s.store.ListExpensesByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("ListExpenses failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	return connect.NewResponse(&ListExpensesResponse{Expenses: expenses}), nil
}

// DeleteExpense removes an expense and its splits.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	slog.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)

	if err := s.store.DeleteExpense(ctx, req.Msg.ExpenseID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

// SettleSplit marks one member's share of an expense as paid back (or not).
func (s *LedgerService) SettleSplit(ctx context.Context, req *connect.Request[SettleSplitRequest]) (*connect.Response[SettleSplitResponse], error) {
	slog.Info("SettleSplit request received",
		"expense_id", req.Msg.ExpenseID,
		"member_id", req.Msg.MemberID,
		"settled", req.Msg.Settled,
	)

	if err := s.store.SetSplitSettled(ctx, req.Msg.ExpenseID, req.Msg.MemberID, req.Msg.Settled); err != nil {
		slog.Error("SettleSplit failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}
	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SettleSplitResponse{Expense: expense}), nil
}

// GetGroupBalances computes net balances and a settlement plan for a group.
func (s *LedgerService) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	slog.Info("GetGroupBalances request received", "group_id", req.Msg.GroupID)

	report, err := s.reporter.Report(ctx, req.Msg.GroupID, req.Msg.IncludeDebts)
	if err != nil {
		slog.Error("GetGroupBalances failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	resp := &GetGroupBalancesResponse{
		GroupID:     report.GroupID,
		Balances:    report.Balances,
		Suggestions: report.Suggestions,
		Debts:       report.Debts,
	}
	for _, rej := range report.Rejected {
		resp.Rejected = append(resp.Rejected, RejectedExpense{
			ExpenseID: rej.ExpenseID,
			Reason:    RejectionReason(rej.Err),
			Error:     rej.Err.Error(),
		})
	}

	slog.Info("GetGroupBalances successful",
		"group_id", report.GroupID,
		"members", len(resp.Balances),
		"suggestions", len(resp.Suggestions),
	)
	return connect.NewResponse(resp), nil
}

// RecordSettlement stores a payment between two group members.
func (s *LedgerService) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error) {
	msg := req.Msg
	slog.Info("RecordSettlement request received",
		"group_id", msg.GroupID,
		"from", msg.FromMemberID,
		"to", msg.ToMemberID,
		"amount", msg.Amount,
	)

	switch {
	case msg.FromMemberID == "" || msg.ToMemberID == "":
		return nil, toConnectError(invalidf("from_member_id and to_member_id are required"))
	case msg.FromMemberID == msg.ToMemberID:
		return nil, toConnectError(invalidf("cannot settle with yourself"))
	case msg.Amount <= 0:
		return nil, toConnectError(invalidf("amount must be positive"))
	}

	group, err := s.store.GetGroup(ctx, msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	for _, id := range []string{msg.FromMemberID, msg.ToMemberID} {
		if !group.HasMember(id) {
			return nil, toConnectError(fmt.Errorf("%w: %s is not in group %s", calculator.ErrUnknownMember, id, group.ID))
		}
	}

	settlement := &models.Settlement{
		GroupID:      group.ID,
		FromMemberID: msg.FromMemberID,
		ToMemberID:   msg.ToMemberID,
		Amount:       msg.Amount,
		Status:       models.SettlementPending,
		CreatedAt:    s.now().Unix(),
		Note:         msg.Note,
	}
	if msg.Completed {
		settlement.Status = models.SettlementCompleted
		settlement.SettledAt = settlement.CreatedAt
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("RecordSettlement failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Settlement recorded", "settlement_id", settlement.ID, "status", settlement.Status)
	return connect.NewResponse(&RecordSettlementResponse{Settlement: settlement}), nil
}

// CompleteSettlement confirms a pending settlement. Completing an already
// completed settlement is a no-op.
func (s *LedgerService) CompleteSettlement(ctx context.Context, req *connect.Request[CompleteSettlementRequest]) (*connect.Response[CompleteSettlementResponse], error) {
	slog.Info("CompleteSettlement request received", "settlement_id", req.Msg.SettlementID)

	if err := s.store.CompleteSettlement(ctx, req.Msg.SettlementID, s.now().Unix()); err != nil {
		slog.Error("CompleteSettlement failed", "settlement_id", req.Msg.SettlementID, "error", err)
		return nil, toConnectError(err)
	}
	settlement, err := s.store.GetSettlement(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CompleteSettlementResponse{Settlement: settlement}), nil
}

// ListSettlements returns every settlement of a group, newest first.
func (s *LedgerService) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("ListSettlements failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	if settlements == nil {
		settlements = []models.Settlement{}
	}
	return connect.NewResponse(&ListSettlementsResponse{Settlements: settlements}), nil
}
