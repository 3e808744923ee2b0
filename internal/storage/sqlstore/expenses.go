package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/money"
	"github.com/mmynk/settleup/internal/storage"
)

const expenseColumns = "id, group_id, payer_id, amount, currency, split_policy, description, category, occurred_at, created_at"

// CreateExpense persists an expense and its splits in one transaction.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.OccurredAt.IsZero() {
		expense.OccurredAt = time.Unix(expense.CreatedAt, 0).UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		expense.ID, expense.GroupID, expense.PayerID, int64(expense.Amount), expense.Currency,
		string(expense.SplitPolicy), expense.Description, expense.Category,
		toUnixMilli(expense.OccurredAt), expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, split := range expense.Splits {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, member_id, position, owed, percentage, settled)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			expense.ID, split.MemberID, i, int64(split.Owed), split.Percentage, split.Settled,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its splits.
func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?",
		expenseID,
	)
	expense, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT expense_id, member_id, owed, percentage, settled
		 FROM expense_splits WHERE expense_id = ? ORDER BY position`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	splits, err := scanSplits(rows)
	if err != nil {
		return nil, err
	}
	expense.Splits = splits[expenseID]
	return expense, nil
}

// ListExpensesByGroup retrieves all expenses of a group with their splits,
// ordered by when they occurred.
func (s *Store) ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE group_id = ? ORDER BY occurred_at, created_at, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by group: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	splitRows, err := s.db.QueryContext(ctx,
		`SELECT sp.expense_id, sp.member_id, sp.owed, sp.percentage, sp.settled
		 FROM expense_splits sp JOIN expenses e ON e.id = sp.expense_id
		 WHERE e.group_id = ? ORDER BY sp.expense_id, sp.position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits by group: %w", err)
	}
	defer splitRows.Close()

	splits, err := scanSplits(splitRows)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Splits = splits[expenses[i].ID]
	}
	return expenses, nil
}

// DeleteExpense removes an expense and its splits.
func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expenseID); err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if err := expectRow(res, "expense", expenseID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetSplitSettled flips the settled flag of one member's split.
func (s *Store) SetSplitSettled(ctx context.Context, expenseID, memberID string, settled bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE expense_splits SET settled = ? WHERE expense_id = ? AND member_id = ?",
		settled, expenseID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to update split: %w", err)
	}
	return expectRow(res, "split", expenseID+"/"+memberID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		expense    models.Expense
		amount     int64
		policy     string
		occurredAt int64
	)
	err := row.Scan(&expense.ID, &expense.GroupID, &expense.PayerID, &amount, &expense.Currency,
		&policy, &expense.Description, &expense.Category, &occurredAt, &expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	expense.Amount = money.Amount(amount)
	expense.SplitPolicy = models.SplitPolicy(policy)
	expense.OccurredAt = fromUnixMilli(occurredAt)
	return &expense, nil
}

// scanSplits groups split rows by expense ID, preserving row order.
func scanSplits(rows *sql.Rows) (map[string][]models.Split, error) {
	out := make(map[string][]models.Split)
	for rows.Next() {
		var (
			expenseID string
			split     models.Split
			owed      int64
		)
		if err := rows.Scan(&expenseID, &split.MemberID, &owed, &split.Percentage, &split.Settled); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		split.Owed = money.Amount(owed)
		out[expenseID] = append(out[expenseID], split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return out, nil
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
