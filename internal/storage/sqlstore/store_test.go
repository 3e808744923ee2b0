package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/money"
	"github.com/mmynk/settleup/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Roommates", Members: []string{"Alice", "Bob", "Alice", ""}}

	t.Run("CreateGroup generates ID and dedupes members", func(t *testing.T) {
		err := store.CreateGroup(ctx, group)
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, "Roommates", got.Name)
		assert.Equal(t, []string{"Alice", "Bob"}, got.Members)
	})

	t.Run("AddGroupMembers appends only new members", func(t *testing.T) {
		require.NoError(t, store.AddGroupMembers(ctx, group.ID, []string{"Bob", "Charlie"}))

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, got.Members)

		err = store.AddGroupMembers(ctx, "missing", []string{"Dan"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListGroups", func(t *testing.T) {
		groups, err := store.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, group.ID, groups[0].ID)
		assert.Len(t, groups[0].Members, 3)
	})

	occurred := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)
	expense := &models.Expense{
		GroupID:     "",
		PayerID:     "Alice",
		Amount:      money.MustParse("90.00"),
		Currency:    "usd",
		SplitPolicy: models.SplitEqual,
		Description: "Groceries",
		Category:    "Food",
		OccurredAt:  occurred,
		Splits: []models.Split{
			{MemberID: "Alice", Owed: 3000, Settled: true},
			{MemberID: "Bob", Owed: 3000},
			{MemberID: "Charlie", Owed: 3000},
		},
	}

	t.Run("CreateExpense and GetExpense round trip", func(t *testing.T) {
		expense.GroupID = group.ID
		require.NoError(t, store.CreateExpense(ctx, expense))
		require.NotEmpty(t, expense.ID)

		got, err := store.GetExpense(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, expense.PayerID, got.PayerID)
		assert.Equal(t, expense.Amount, got.Amount)
		assert.Equal(t, models.SplitEqual, got.SplitPolicy)
		assert.Equal(t, "Groceries", got.Description)
		assert.True(t, occurred.Equal(got.OccurredAt), "occurred_at %v != %v", got.OccurredAt, occurred)
		assert.Equal(t, expense.Splits, got.Splits)
	})

	t.Run("GetExpense returns ErrNotFound for nonexistent expense", func(t *testing.T) {
		_, err := store.GetExpense(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListExpensesByGroup orders by occurrence and attaches splits", func(t *testing.T) {
		earlier := &models.Expense{
			GroupID:     group.ID,
			PayerID:     "Bob",
			Amount:      money.MustParse("30.00"),
			SplitPolicy: models.SplitExact,
			OccurredAt:  occurred.Add(-24 * time.Hour),
			Splits: []models.Split{
				{MemberID: "Bob", Owed: 1500, Settled: true},
				{MemberID: "Charlie", Owed: 1500},
			},
		}
		require.NoError(t, store.CreateExpense(ctx, earlier))

		expenses, err := store.ListExpensesByGroup(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, earlier.ID, expenses[0].ID)
		assert.Equal(t, expense.ID, expenses[1].ID)
		assert.Len(t, expenses[0].Splits, 2)
		assert.Len(t, expenses[1].Splits, 3)
	})

	t.Run("SetSplitSettled", func(t *testing.T) {
		require.NoError(t, store.SetSplitSettled(ctx, expense.ID, "Bob", true))
		// Setting the same value again must not look like a missing row.
		require.NoError(t, store.SetSplitSettled(ctx, expense.ID, "Bob", true))

		got, err := store.GetExpense(ctx, expense.ID)
		require.NoError(t, err)
		assert.True(t, got.Splits[1].Settled)

		err = store.SetSplitSettled(ctx, expense.ID, "Mallory", true)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DeleteExpense", func(t *testing.T) {
		require.NoError(t, store.DeleteExpense(ctx, expense.ID))
		_, err := store.GetExpense(ctx, expense.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		err = store.DeleteExpense(ctx, expense.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Settlement lifecycle", func(t *testing.T) {
		settlement := &models.Settlement{
			GroupID:      group.ID,
			FromMemberID: "Charlie",
			ToMemberID:   "Alice",
			Amount:       money.MustParse("45.00"),
			Note:         "cash",
		}
		require.NoError(t, store.CreateSettlement(ctx, settlement))
		assert.NotEmpty(t, settlement.ID)
		assert.Equal(t, models.SettlementPending, settlement.Status)

		require.NoError(t, store.CompleteSettlement(ctx, settlement.ID, 1700000000))
		require.NoError(t, store.CompleteSettlement(ctx, settlement.ID, 1800000000))

		got, err := store.GetSettlement(ctx, settlement.ID)
		require.NoError(t, err)
		assert.True(t, got.Completed())
		assert.Equal(t, int64(1700000000), got.SettledAt)
		assert.Equal(t, "cash", got.Note)
		assert.Equal(t, settlement.Amount, got.Amount)

		list, err := store.ListSettlementsByGroup(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, settlement.ID, list[0].ID)

		err = store.CompleteSettlement(ctx, "missing", 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("GetGroup returns ErrNotFound for nonexistent group", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "nonexistent-id")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{nil, []string{}},
		{[]string{"a", "b"}, []string{"a", "b"}},
		{[]string{"a", "", "a", "b", "b"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := dedupe(tt.in); !assert.Equal(t, tt.want, got) {
			t.Logf("dedupe(%v)", tt.in)
		}
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", "whatever")
	require.Error(t, err)
}

func TestOpenInvalidMySQLDSN(t *testing.T) {
	_, err := Open(DriverMySQL, "not a dsn ::")
	require.Error(t, err)
}
