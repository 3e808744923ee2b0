package calculator

import (
	"fmt"

	"github.com/mmynk/settleup/internal/models"
)

// Option configures a balance computation.
type Option func(*options)

type options struct {
	members     map[string]bool
	settlements []models.Settlement
}

// WithMembers restricts payers and split members to the given IDs.
// Any other ID fails with ErrUnknownMember.
func WithMembers(ids ...string) Option {
	return func(o *options) {
		o.members = make(map[string]bool, len(ids))
		for _, id := range ids {
			o.members[id] = true
		}
	}
}

// WithSettlements applies recorded settlements on top of the expense debts.
// Only completed settlements count; pending ones are ignored.
func WithSettlements(settlements []models.Settlement) Option {
	return func(o *options) {
		o.settlements = settlements
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) known(id string) bool {
	return o.members == nil || o.members[id]
}

// Rejection is an expense that failed validation and the reason why.
type Rejection struct {
	ExpenseID string
	Err       error
}

// ValidateExpenses splits expenses into the records ComputeBalances would
// accept and the ones it would reject, so a caller can skip bad records
// instead of failing the whole computation.
func ValidateExpenses(groupID string, expenses []models.Expense, opts ...Option) ([]models.Expense, []Rejection) {
	o := newOptions(opts)
	seen := make(map[string]bool, len(expenses))
	var valid []models.Expense
	var rejected []Rejection
	for i := range expenses {
		if err := validateExpense(groupID, &expenses[i], o, seen); err != nil {
			rejected = append(rejected, Rejection{ExpenseID: expenses[i].ID, Err: err})
			continue
		}
		valid = append(valid, expenses[i])
	}
	return valid, rejected
}

// validateExpense checks a record before any accumulation. Sign checks run
// first so a negative split is reported as such rather than as a mismatch.
func validateExpense(groupID string, e *models.Expense, o *options, seen map[string]bool) error {
	if e.ID == "" {
		return expenseErr(e.ID, ErrInvalidExpense, "missing id")
	}
	if seen[e.ID] {
		return expenseErr(e.ID, ErrInvalidExpense, "duplicate expense id")
	}
	if e.GroupID != groupID {
		return expenseErr(e.ID, ErrInvalidExpense, "belongs to group %q, not %q", e.GroupID, groupID)
	}
	if e.PayerID == "" {
		return expenseErr(e.ID, ErrInvalidExpense, "missing payer")
	}
	if e.Amount < 0 {
		return expenseErr(e.ID, ErrNegativeAmount, "amount %s", e.Amount)
	}
	if e.Amount == 0 {
		return expenseErr(e.ID, ErrInvalidExpense, "amount must be positive")
	}
	for _, s := range e.Splits {
		if s.MemberID == "" {
			return expenseErr(e.ID, ErrInvalidExpense, "split without member")
		}
		if s.Owed < 0 {
			return &ExpenseError{ExpenseID: e.ID, MemberID: s.MemberID, Err: ErrNegativeAmount, Detail: "owes " + s.Owed.String()}
		}
	}
	total, err := e.SplitTotal()
	if err != nil {
		return &ExpenseError{ExpenseID: e.ID, Err: fmt.Errorf("%w: %w", ErrSplitAmountMismatch, err)}
	}
	if !total.Near(e.Amount) {
		return expenseErr(e.ID, ErrSplitAmountMismatch, "splits total %s, expense is %s", total, e.Amount)
	}
	if !o.known(e.PayerID) {
		return &ExpenseError{ExpenseID: e.ID, MemberID: e.PayerID, Err: ErrUnknownMember}
	}
	for _, s := range e.Splits {
		if !o.known(s.MemberID) {
			return &ExpenseError{ExpenseID: e.ID, MemberID: s.MemberID, Err: ErrUnknownMember}
		}
	}
	seen[e.ID] = true
	return nil
}

func validateSettlement(s *models.Settlement, groupID string, o *options) error {
	switch {
	case s.GroupID != "" && s.GroupID != groupID:
		return settlementErr(s.ID, ErrInvalidExpense, "belongs to group %q, not %q", s.GroupID, groupID)
	case s.FromMemberID == "" || s.ToMemberID == "":
		return settlementErr(s.ID, ErrInvalidExpense, "needs both parties")
	case s.FromMemberID == s.ToMemberID:
		return settlementErr(s.ID, ErrInvalidExpense, "from %s to itself", s.FromMemberID)
	case s.Amount < 0:
		return settlementErr(s.ID, ErrNegativeAmount, "amount %s", s.Amount)
	case !o.known(s.FromMemberID):
		return &SettlementError{SettlementID: s.ID, MemberID: s.FromMemberID, Err: ErrUnknownMember}
	case !o.known(s.ToMemberID):
		return &SettlementError{SettlementID: s.ID, MemberID: s.ToMemberID, Err: ErrUnknownMember}
	}
	return nil
}
