package calculator

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/money"
)

const group = "g1"

func amt(s string) money.Amount { return money.MustParse(s) }

func expense(id, payer, total string, splits ...models.Split) models.Expense {
	return models.Expense{
		ID:          id,
		GroupID:     group,
		PayerID:     payer,
		Amount:      amt(total),
		SplitPolicy: models.SplitExact,
		Splits:      splits,
	}
}

func owes(member, amount string) models.Split {
	return models.Split{MemberID: member, Owed: amt(amount)}
}

func paid(member, amount string) models.Split {
	return models.Split{MemberID: member, Owed: amt(amount), Settled: true}
}

func byMember(balances []MemberBalance) map[string]MemberBalance {
	m := make(map[string]MemberBalance, len(balances))
	for _, b := range balances {
		m[b.MemberID] = b
	}
	return m
}

func sumNet(balances []MemberBalance) money.Amount {
	var total money.Amount
	for _, b := range balances {
		total += b.NetBalance
	}
	return total
}

// scenario is the A/B/C group: A pays 90 split three ways with A's own
// share settled, B pays 30 split between B and C.
func scenario() []models.Expense {
	return []models.Expense{
		expense("e1", "A", "90.00", paid("A", "30.00"), owes("B", "30.00"), owes("C", "30.00")),
		expense("e2", "B", "30.00", owes("B", "15.00"), owes("C", "15.00")),
	}
}

func TestComputeBalances_Scenario(t *testing.T) {
	balances, err := ComputeBalances(group, scenario())
	require.NoError(t, err)
	require.Len(t, balances, 3)

	got := byMember(balances)
	assert.Equal(t, amt("60.00"), got["A"].NetBalance)
	assert.Equal(t, amt("-15.00"), got["B"].NetBalance)
	assert.Equal(t, amt("-45.00"), got["C"].NetBalance)
	assert.Equal(t, money.Zero, sumNet(balances))

	assert.Equal(t, map[string]money.Amount{"B": amt("30.00"), "C": amt("30.00")}, got["A"].OwedFrom)
	assert.Empty(t, got["A"].OwesTo)
	assert.Equal(t, map[string]money.Amount{"A": amt("30.00")}, got["B"].OwesTo)
	assert.Equal(t, map[string]money.Amount{"C": amt("15.00")}, got["B"].OwedFrom)
	assert.Equal(t, map[string]money.Amount{"A": amt("30.00"), "B": amt("15.00")}, got["C"].OwesTo)

	assert.Equal(t, amt("90.00"), got["A"].TotalPaid)
	assert.Equal(t, amt("30.00"), got["A"].TotalShare)
	assert.Equal(t, amt("45.00"), got["C"].TotalShare)

	suggestions, err := SuggestSettlements(balances)
	require.NoError(t, err)
	assert.Equal(t, []SettlementSuggestion{
		{From: "C", To: "A", Amount: amt("45.00")},
		{From: "B", To: "A", Amount: amt("15.00")},
	}, suggestions)
}

func TestComputeBalances_SortedByMember(t *testing.T) {
	balances, err := ComputeBalances(group, []models.Expense{
		expense("e1", "Zed", "20.00", owes("Mia", "10.00"), owes("Abe", "10.00")),
	})
	require.NoError(t, err)

	ids := make([]string, len(balances))
	for i, b := range balances {
		ids[i] = b.MemberID
	}
	assert.Equal(t, []string{"Abe", "Mia", "Zed"}, ids)
}

func TestComputeBalances_SettledSplitExcluded(t *testing.T) {
	balances, err := ComputeBalances(group, []models.Expense{
		expense("e1", "A", "40.00", paid("A", "20.00"), paid("B", "20.00")),
	})
	require.NoError(t, err)

	got := byMember(balances)
	require.Contains(t, got, "B", "settled members still get an entry")
	assert.Equal(t, money.Zero, got["A"].NetBalance)
	assert.Equal(t, money.Zero, got["B"].NetBalance)
	assert.Empty(t, got["B"].OwesTo)
	assert.Empty(t, got["A"].OwedFrom)
}

func TestComputeBalances_SelfPayerExcluded(t *testing.T) {
	// The payer's split is not marked settled but still contributes nothing.
	balances, err := ComputeBalances(group, []models.Expense{
		expense("e1", "A", "50.00", owes("A", "25.00"), owes("B", "25.00")),
	})
	require.NoError(t, err)

	got := byMember(balances)
	assert.Equal(t, amt("25.00"), got["A"].NetBalance)
	assert.NotContains(t, got["A"].OwesTo, "A")
	assert.NotContains(t, got["A"].OwedFrom, "A")
}

func TestComputeBalances_Netting(t *testing.T) {
	balances, err := ComputeBalances(group, []models.Expense{
		expense("e1", "B", "30.00", owes("A", "30.00")),
		expense("e2", "A", "10.00", owes("B", "10.00")),
	})
	require.NoError(t, err)

	got := byMember(balances)
	assert.Equal(t, map[string]money.Amount{"B": amt("20.00")}, got["A"].OwesTo)
	assert.Empty(t, got["A"].OwedFrom)
	assert.Empty(t, got["B"].OwesTo)
	assert.Equal(t, map[string]money.Amount{"A": amt("20.00")}, got["B"].OwedFrom)
	assert.Equal(t, amt("-20.00"), got["A"].NetBalance)
}

func TestComputeBalances_FullyNettedPair(t *testing.T) {
	balances, err := ComputeBalances(group, []models.Expense{
		expense("e1", "B", "12.00", owes("A", "12.00")),
		expense("e2", "A", "12.00", owes("B", "12.00")),
	})
	require.NoError(t, err)

	for _, b := range balances {
		assert.Equal(t, money.Zero, b.NetBalance)
		assert.Empty(t, b.OwesTo)
		assert.Empty(t, b.OwedFrom)
	}
}

func TestComputeBalances_EmptyInput(t *testing.T) {
	balances, err := ComputeBalances(group, nil)
	require.NoError(t, err)
	assert.Empty(t, balances)

	suggestions, err := SuggestSettlements(balances)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestComputeBalances_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		expense models.Expense
		opts    []Option
		wantErr error
	}{
		{
			name:    "splits short of the total",
			expense: expense("bad", "A", "100.00", owes("A", "45.00"), owes("B", "45.00")),
			wantErr: ErrSplitAmountMismatch,
		},
		{
			name:    "negative split",
			expense: expense("bad", "A", "10.00", owes("A", "20.00"), owes("B", "-10.00")),
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "negative total",
			expense: expense("bad", "A", "-10.00", owes("A", "-10.00")),
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "zero total",
			expense: expense("bad", "A", "0", owes("A", "0")),
			wantErr: ErrInvalidExpense,
		},
		{
			name: "wrong group",
			expense: func() models.Expense {
				e := expense("bad", "A", "10.00", owes("B", "10.00"))
				e.GroupID = "other"
				return e
			}(),
			wantErr: ErrInvalidExpense,
		},
		{
			name:    "missing payer",
			expense: expense("bad", "", "10.00", owes("B", "10.00")),
			wantErr: ErrInvalidExpense,
		},
		{
			name:    "unknown split member",
			expense: expense("bad", "A", "10.00", owes("Mallory", "10.00")),
			opts:    []Option{WithMembers("A", "B", "C")},
			wantErr: ErrUnknownMember,
		},
		{
			name:    "unknown payer",
			expense: expense("bad", "Mallory", "10.00", owes("A", "10.00")),
			opts:    []Option{WithMembers("A", "B", "C")},
			wantErr: ErrUnknownMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expenses := append(scenario(), tt.expense)
			balances, err := ComputeBalances(group, expenses, tt.opts...)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, balances)
			assert.True(t, IsValidationError(err))

			var expErr *ExpenseError
			require.ErrorAs(t, err, &expErr)
			assert.Equal(t, "bad", expErr.ExpenseID)
		})
	}
}

func TestComputeBalances_OneCentTolerance(t *testing.T) {
	// 100.00 split three ways as 33.33 each is one cent short and accepted.
	balances, err := ComputeBalances(group, []models.Expense{
		expense("e1", "A", "100.00", paid("A", "33.33"), owes("B", "33.33"), owes("C", "33.33")),
	})
	require.NoError(t, err)
	assert.Equal(t, money.Zero, sumNet(balances))
	assert.Equal(t, amt("66.66"), byMember(balances)["A"].NetBalance)
}

func TestComputeBalances_DuplicateExpenseID(t *testing.T) {
	_, err := ComputeBalances(group, []models.Expense{
		expense("e1", "A", "10.00", owes("B", "10.00")),
		expense("e1", "B", "10.00", owes("A", "10.00")),
	})
	require.ErrorIs(t, err, ErrInvalidExpense)
}

func TestComputeBalances_WithMembersAccepted(t *testing.T) {
	_, err := ComputeBalances(group, scenario(), WithMembers("A", "B", "C", "D"))
	require.NoError(t, err)
}

func TestComputeBalances_OrderIndependent(t *testing.T) {
	expenses := []models.Expense{
		expense("e1", "A", "90.00", paid("A", "30.00"), owes("B", "30.00"), owes("C", "30.00")),
		expense("e2", "B", "30.00", owes("B", "15.00"), owes("C", "15.00")),
		expense("e3", "C", "12.34", owes("A", "6.17"), owes("B", "6.17")),
		expense("e4", "D", "7.00", owes("A", "3.50"), owes("C", "3.50")),
		expense("e5", "A", "0.03", owes("D", "0.01"), owes("B", "0.01"), owes("C", "0.01")),
	}
	want, err := ComputeBalances(group, expenses)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Expense(nil), expenses...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := ComputeBalances(group, shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestComputeBalances_WithSettlements(t *testing.T) {
	settlements := []models.Settlement{
		{ID: "s1", GroupID: group, FromMemberID: "C", ToMemberID: "A", Amount: amt("45.00"), Status: models.SettlementCompleted},
		{ID: "s2", GroupID: group, FromMemberID: "B", ToMemberID: "A", Amount: amt("15.00"), Status: models.SettlementPending},
	}
	balances, err := ComputeBalances(group, scenario(), WithSettlements(settlements))
	require.NoError(t, err)

	got := byMember(balances)
	assert.Equal(t, amt("15.00"), got["A"].NetBalance)
	assert.Equal(t, amt("-15.00"), got["B"].NetBalance)
	assert.Equal(t, money.Zero, got["C"].NetBalance)
	assert.Equal(t, money.Zero, sumNet(balances))
}

func TestComputeBalances_InvalidSettlement(t *testing.T) {
	settlements := []models.Settlement{
		{ID: "s1", FromMemberID: "A", ToMemberID: "A", Amount: amt("5.00"), Status: models.SettlementCompleted},
	}
	_, err := ComputeBalances(group, scenario(), WithSettlements(settlements))
	require.ErrorIs(t, err, ErrInvalidExpense)
	assert.True(t, IsValidationError(err))

	var settleErr *SettlementError
	require.ErrorAs(t, err, &settleErr)
	assert.Equal(t, "s1", settleErr.SettlementID)
	assert.Contains(t, err.Error(), "settlement s1")

	var expErr *ExpenseError
	assert.False(t, errors.As(err, &expErr))
}

func TestComputeBalances_UnknownSettlementMember(t *testing.T) {
	settlements := []models.Settlement{
		{ID: "s9", GroupID: group, FromMemberID: "Z", ToMemberID: "A", Amount: amt("5.00"), Status: models.SettlementCompleted},
	}
	_, err := ComputeBalances(group, scenario(), WithMembers("A", "B", "C", "D"), WithSettlements(settlements))
	require.ErrorIs(t, err, ErrUnknownMember)
	assert.EqualError(t, err, "settlement s9: unknown member (member Z)")
}

func TestComputeBalances_SplitTotalWraps(t *testing.T) {
	// 184 * 1e17 + 46744073709561616 wraps around int64 to exactly 100.00.
	e := expense("e1", "A", "100.00")
	for i := 0; i < 184; i++ {
		e.Splits = append(e.Splits, models.Split{MemberID: "B", Owed: 1e17})
	}
	e.Splits = append(e.Splits, models.Split{MemberID: "C", Owed: 46744073709561616})

	_, err := ComputeBalances(group, []models.Expense{e})
	require.ErrorIs(t, err, ErrSplitAmountMismatch)
	assert.ErrorIs(t, err, money.ErrOverflow)

	_, rejected := ValidateExpenses(group, []models.Expense{e})
	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0].Err, ErrSplitAmountMismatch)
}

func TestComputeBalances_LedgerVolumeOutOfRange(t *testing.T) {
	// Each expense is valid on its own; together they exceed what an
	// Amount can hold.
	var expenses []models.Expense
	for i := 0; i < 50; i++ {
		expenses = append(expenses, models.Expense{
			ID:      fmt.Sprintf("e%02d", i),
			GroupID: group,
			PayerID: "A",
			Amount:  1e17,
			Splits:  []models.Split{{MemberID: "B", Owed: 1e17}},
		})
	}
	_, err := ComputeBalances(group, expenses)
	require.ErrorIs(t, err, ErrInvalidExpense)
	assert.ErrorIs(t, err, money.ErrOverflow)

	_, err = PairwiseDebts(group, expenses)
	require.ErrorIs(t, err, ErrInvalidExpense)
}

func TestValidateExpenses(t *testing.T) {
	bad := expense("bad", "A", "100.00", owes("A", "45.00"), owes("B", "45.00"))
	valid, rejected := ValidateExpenses(group, append(scenario(), bad))

	require.Len(t, valid, 2)
	require.Len(t, rejected, 1)
	assert.Equal(t, "bad", rejected[0].ExpenseID)
	assert.ErrorIs(t, rejected[0].Err, ErrSplitAmountMismatch)

	balances, err := ComputeBalances(group, valid)
	require.NoError(t, err)
	assert.Equal(t, amt("60.00"), byMember(balances)["A"].NetBalance, "rejected record must not leak into balances")
}

func TestPairwiseDebts(t *testing.T) {
	edges, err := PairwiseDebts(group, []models.Expense{
		expense("e1", "B", "30.00", owes("A", "30.00")),
		expense("e2", "A", "10.00", owes("B", "10.00")),
		expense("e3", "B", "5.00", owes("A", "5.00")),
	})
	require.NoError(t, err)
	assert.Equal(t, []DebtEdge{
		{From: "A", To: "B", Amount: amt("35.00")},
		{From: "B", To: "A", Amount: amt("10.00")},
	}, edges)
}
