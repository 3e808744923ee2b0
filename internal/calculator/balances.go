package calculator

import (
	"fmt"
	"sort"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/money"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	MemberID string `json:"member_id"`

	// NetBalance is positive when the member is owed money, negative when
	// they owe money.
	NetBalance money.Amount `json:"net_balance"`

	// OwesTo maps each creditor to the netted amount this member owes them.
	OwesTo map[string]money.Amount `json:"owes_to"`

	// OwedFrom maps each debtor to the netted amount they owe this member.
	OwedFrom map[string]money.Amount `json:"owed_from"`

	TotalPaid  money.Amount `json:"total_paid"`  // sum of expenses this member paid for
	TotalShare money.Amount `json:"total_share"` // sum of this member's splits, settled or not
}

// DebtEdge represents a debt from one member to another.
type DebtEdge struct {
	From   string       `json:"from"` // member who owes
	To     string       `json:"to"`   // member who is owed
	Amount money.Amount `json:"amount"`
}

// ComputeBalances computes per-member balances for one group's expenses.
//
// Algorithm:
//   - Validate every record; the first bad one aborts the computation
//   - For each unsettled split not belonging to the payer: split member owes payer
//   - Accumulate per (debtor, creditor) pair, then net opposing pairs
//   - net_balance = owed to member - owed by member; the total must be zero
//
// The result holds one entry per participant (payers, split members and
// settlement parties), sorted by member ID.
func ComputeBalances(groupID string, expenses []models.Expense, opts ...Option) ([]MemberBalance, error) {
	o := newOptions(opts)
	l, err := buildLedger(groupID, expenses, o)
	if err != nil {
		return nil, err
	}

	balances := l.balances()
	var residual money.Amount
	for _, b := range balances {
		residual += b.NetBalance
	}
	if !residual.IsZero() {
		return nil, &InconsistencyError{Residual: residual}
	}
	return balances, nil
}

// PairwiseDebts returns the raw, un-netted debt per direction, sorted by
// (From, To). If A owes B 30 and B owes A 10 both edges are reported.
func PairwiseDebts(groupID string, expenses []models.Expense, opts ...Option) ([]DebtEdge, error) {
	l, err := buildLedger(groupID, expenses, newOptions(opts))
	if err != nil {
		return nil, err
	}

	edges := make([]DebtEdge, 0, len(l.owed))
	for p, amt := range l.owed {
		if amt.IsZero() {
			continue
		}
		edges = append(edges, DebtEdge{From: l.ids[p.debtor], To: l.ids[p.creditor], Amount: amt})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges, nil
}

// pair is a directed (debtor -> creditor) key into the ledger.
type pair struct {
	debtor, creditor int
}

// ledger is a sparse pair-keyed debt table. Member IDs are mapped to integer
// handles in sorted order so iteration and output are deterministic.
type ledger struct {
	ids    []string
	index  map[string]int
	owed   map[pair]money.Amount
	paid   []money.Amount
	shares []money.Amount
}

func buildLedger(groupID string, expenses []models.Expense, o *options) (*ledger, error) {
	seen := make(map[string]bool, len(expenses))
	for i := range expenses {
		if err := validateExpense(groupID, &expenses[i], o, seen); err != nil {
			return nil, err
		}
	}
	var settlements []*models.Settlement
	for i := range o.settlements {
		s := &o.settlements[i]
		if !s.Completed() {
			continue
		}
		if err := validateSettlement(s, groupID, o); err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}

	if err := checkVolume(expenses, settlements); err != nil {
		return nil, err
	}

	l := newLedger(participants(expenses, settlements))
	for i := range expenses {
		e := &expenses[i]
		payer := l.index[e.PayerID]
		l.paid[payer] += e.Amount
		for _, s := range e.Splits {
			member := l.index[s.MemberID]
			l.shares[member] += s.Owed
			if member == payer || s.Settled {
				continue
			}
			l.owed[pair{debtor: member, creditor: payer}] += s.Owed
		}
	}
	// A completed payment From -> To is a debt of To back to From; netting
	// then cancels it against what From owed.
	for _, s := range settlements {
		l.owed[pair{debtor: l.index[s.ToMemberID], creditor: l.index[s.FromMemberID]}] += s.Amount
	}
	return l, nil
}

// checkVolume bounds every accumulator in the ledger: paid, shares, pair
// debts and net balances are all at most the sum of expense amounts, split
// totals and settlement amounts.
func checkVolume(expenses []models.Expense, settlements []*models.Settlement) error {
	var volume money.Amount
	var err error
	for i := range expenses {
		e := &expenses[i]
		total, _ := e.SplitTotal()
		if volume, err = money.Sum(volume, e.Amount, total); err != nil {
			return &ExpenseError{ExpenseID: e.ID, Err: fmt.Errorf("%w: ledger volume: %w", ErrInvalidExpense, err)}
		}
	}
	for _, s := range settlements {
		if volume, err = money.Add(volume, s.Amount); err != nil {
			return &SettlementError{SettlementID: s.ID, Err: fmt.Errorf("%w: ledger volume: %w", ErrInvalidExpense, err)}
		}
	}
	return nil
}

func participants(expenses []models.Expense, settlements []*models.Settlement) []string {
	set := make(map[string]bool)
	for i := range expenses {
		set[expenses[i].PayerID] = true
		for _, s := range expenses[i].Splits {
			set[s.MemberID] = true
		}
	}
	for _, s := range settlements {
		set[s.FromMemberID] = true
		set[s.ToMemberID] = true
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newLedger(ids []string) *ledger {
	l := &ledger{
		ids:    ids,
		index:  make(map[string]int, len(ids)),
		owed:   make(map[pair]money.Amount),
		paid:   make([]money.Amount, len(ids)),
		shares: make([]money.Amount, len(ids)),
	}
	for i, id := range ids {
		l.index[id] = i
	}
	return l
}

// balances nets each unordered pair and folds the result into one
// MemberBalance per handle.
func (l *ledger) balances() []MemberBalance {
	out := make([]MemberBalance, len(l.ids))
	for i, id := range l.ids {
		out[i] = MemberBalance{
			MemberID:   id,
			OwesTo:     make(map[string]money.Amount),
			OwedFrom:   make(map[string]money.Amount),
			TotalPaid:  l.paid[i],
			TotalShare: l.shares[i],
		}
	}

	for p, amt := range l.owed {
		net := amt - l.owed[pair{debtor: p.creditor, creditor: p.debtor}]
		if net <= 0 {
			continue
		}
		debtor, creditor := &out[p.debtor], &out[p.creditor]
		debtor.OwesTo[creditor.MemberID] = net
		debtor.NetBalance -= net
		creditor.OwedFrom[debtor.MemberID] = net
		creditor.NetBalance += net
	}
	return out
}
