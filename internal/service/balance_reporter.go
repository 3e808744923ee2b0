package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mock_service -source=balance_reporter.go ExpenseSource

// ExpenseSource is the read side of storage needed to compute balances.
type ExpenseSource interface {
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error)
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]models.Settlement, error)
}

// RejectPolicy decides what happens to invalid expense records during a
// balance computation.
type RejectPolicy string

const (
	// RejectAbort fails the whole computation on the first invalid record.
	RejectAbort RejectPolicy = "abort"
	// RejectSkip leaves invalid records out and reports them.
	RejectSkip RejectPolicy = "skip"
)

// ParseRejectPolicy normalizes a policy name. An empty string means RejectAbort.
func ParseRejectPolicy(s string) (RejectPolicy, error) {
	switch p := RejectPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RejectAbort, nil
	case RejectAbort, RejectSkip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown reject policy %q (want abort or skip)", s)
	}
}

// BalanceReport is everything known about who owes whom in one group.
type BalanceReport struct {
	GroupID     string
	Balances    []calculator.MemberBalance
	Suggestions []calculator.SettlementSuggestion
	Debts       []calculator.DebtEdge // only when requested
	Rejected    []calculator.Rejection
}

// BalanceReporter fetches a group's ledger and runs the settlement engine on it.
type BalanceReporter struct {
	source  ExpenseSource
	policy  RejectPolicy
	metrics *metrics.Metrics
}

// NewBalanceReporter creates a BalanceReporter. m may be nil.
func NewBalanceReporter(source ExpenseSource, policy RejectPolicy, m *metrics.Metrics) *BalanceReporter {
	if policy == "" {
		policy = RejectAbort
	}
	return &BalanceReporter{source: source, policy: policy, metrics: m}
}

// Report computes balances and settlement suggestions for a group.
// Payers and split members must belong to the group; completed settlements
// are applied on top of the expenses.
func (r *BalanceReporter) Report(ctx context.Context, groupID string, includeDebts bool) (*BalanceReport, error) {
	start := time.Now()
	report, err := r.report(ctx, groupID, includeDebts)

	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case len(report.Rejected) > 0:
		outcome = metrics.OutcomeRejected
	}
	r.metrics.ObserveComputation(outcome, time.Since(start))
	return report, err
}

func (r *BalanceReporter) report(ctx context.Context, groupID string, includeDebts bool) (*BalanceReport, error) {
	group, err := r.source.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	expenses, err := r.source.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	settlements, err := r.source.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}

	opts := []calculator.Option{
		calculator.WithMembers(group.Members...),
		calculator.WithSettlements(settlements),
	}

	valid, rejected := calculator.ValidateExpenses(groupID, expenses, opts...)
	for _, rej := range rejected {
		r.metrics.ObserveRejection(RejectionReason(rej.Err))
		slog.Warn("Expense rejected",
			"group_id", groupID,
			"expense_id", rej.ExpenseID,
			"policy", r.policy,
			"error", rej.Err,
		)
	}
	if len(rejected) > 0 && r.policy == RejectAbort {
		return nil, rejected[0].Err
	}

	balances, err := calculator.ComputeBalances(groupID, valid, opts...)
	if err != nil {
		return nil, err
	}
	suggestions, err := calculator.SuggestSettlements(balances)
	if err != nil {
		return nil, err
	}

	report := &BalanceReport{
		GroupID:     groupID,
		Balances:    balances,
		Suggestions: suggestions,
		Rejected:    rejected,
	}
	if includeDebts {
		// Settlements are left out: this view shows what the expenses alone imply.
		report.Debts, err = calculator.PairwiseDebts(groupID, valid, calculator.WithMembers(group.Members...))
		if err != nil {
			return nil, err
		}
	}

	slog.Debug("Balances computed",
		"group_id", groupID,
		"expenses", len(valid),
		"rejected", len(rejected),
		"members", len(balances),
		"suggestions", len(suggestions),
	)
	return report, nil
}

// RejectionReason maps an engine error to a short, stable label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, calculator.ErrSplitAmountMismatch):
		return "split_amount_mismatch"
	case errors.Is(err, calculator.ErrNegativeAmount):
		return "negative_amount"
	case errors.Is(err, calculator.ErrUnknownMember):
		return "unknown_member"
	case errors.Is(err, calculator.ErrInvalidPercentage):
		return "invalid_percentage"
	case errors.Is(err, calculator.ErrInvalidExpense):
		return "invalid_expense"
	default:
		return "other"
	}
}
