package calculator

import (
	"fmt"
	"math"
	"sort"

	"github.com/mmynk/settleup/internal/money"
)

// SettlementSuggestion is a proposed payment that reduces outstanding balances.
type SettlementSuggestion struct {
	From   string       `json:"from"` // debtor
	To     string       `json:"to"`   // creditor
	Amount money.Amount `json:"amount"`
}

type position struct {
	member string
	amount money.Amount // always positive
}

// SuggestSettlements produces a minimal list of transfers that brings every
// net balance to zero.
//
// Greedy algorithm: repeatedly match the largest debtor with the largest
// creditor and transfer min(debt, credit). Each transfer clears at least one
// side, so N members with non-zero balances need at most N-1 transfers.
// Equal magnitudes are ordered by member ID for deterministic output.
func SuggestSettlements(balances []MemberBalance) ([]SettlementSuggestion, error) {
	var debtors, creditors []position
	var total money.Amount
	seen := make(map[string]bool, len(balances))
	for _, b := range balances {
		if seen[b.MemberID] {
			return nil, fmt.Errorf("%w: duplicate balance for member %s", ErrLedgerInconsistency, b.MemberID)
		}
		seen[b.MemberID] = true
		var err error
		if b.NetBalance == math.MinInt64 {
			err = money.ErrOverflow
		} else {
			total, err = money.Add(total, b.NetBalance)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: balance for member %s: %v", ErrLedgerInconsistency, b.MemberID, err)
		}
		switch {
		case b.NetBalance < 0:
			debtors = append(debtors, position{member: b.MemberID, amount: -b.NetBalance})
		case b.NetBalance > 0:
			creditors = append(creditors, position{member: b.MemberID, amount: b.NetBalance})
		}
	}
	if total > money.Tolerance || total < -money.Tolerance {
		return nil, &InconsistencyError{Residual: total}
	}

	var suggestions []SettlementSuggestion
	for len(debtors) > 0 && len(creditors) > 0 {
		sortPositions(debtors)
		sortPositions(creditors)

		d, c := &debtors[0], &creditors[0]
		amount := money.Min(d.amount, c.amount)
		suggestions = append(suggestions, SettlementSuggestion{From: d.member, To: c.member, Amount: amount})
		d.amount -= amount
		c.amount -= amount

		debtors = dropSettled(debtors)
		creditors = dropSettled(creditors)
	}
	return suggestions, nil
}

// sortPositions orders by amount descending, then member ID ascending.
func sortPositions(ps []position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].amount != ps[j].amount {
			return ps[i].amount > ps[j].amount
		}
		return ps[i].member < ps[j].member
	})
}

// dropSettled removes the head position once it has reached zero.
// Only the head can change between rounds.
func dropSettled(ps []position) []position {
	if len(ps) > 0 && ps[0].amount.IsZero() {
		return ps[1:]
	}
	return ps
}
