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

const settlementColumns = "id, group_id, from_member_id, to_member_id, amount, status, created_at, settled_at, note"

// CreateSettlement persists a new settlement to the database.
func (s *Store) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	if settlement.Status == "" {
		settlement.Status = models.SettlementPending
	}

	var note any
	if settlement.Note != "" {
		note = settlement.Note
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settlements ("+settlementColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		settlement.ID, settlement.GroupID, settlement.FromMemberID, settlement.ToMemberID,
		int64(settlement.Amount), string(settlement.Status), settlement.CreatedAt, settlement.SettledAt, note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *Store) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement, err := scanSettlement(s.db.QueryRowContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE id = ?",
		settlementID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// ListSettlementsByGroup retrieves all settlements for a group.
func (s *Store) ListSettlementsByGroup(ctx context.Context, groupID string) ([]models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE group_id = ? ORDER BY created_at DESC, id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by group: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, *settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// CompleteSettlement marks a pending settlement as completed.
func (s *Store) CompleteSettlement(ctx context.Context, settlementID string, settledAt int64) error {
	existing, err := s.GetSettlement(ctx, settlementID)
	if err != nil {
		return err
	}
	if existing.Completed() {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE settlements SET status = ?, settled_at = ? WHERE id = ? AND status = ?",
		string(models.SettlementCompleted), settledAt, settlementID, string(models.SettlementPending),
	)
	if err != nil {
		return fmt.Errorf("failed to complete settlement: %w", err)
	}
	return nil
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	var (
		settlement models.Settlement
		amount     int64
		status     string
		note       sql.NullString
	)
	err := row.Scan(&settlement.ID, &settlement.GroupID, &settlement.FromMemberID, &settlement.ToMemberID,
		&amount, &status, &settlement.CreatedAt, &settlement.SettledAt, &note)
	if err != nil {
		return nil, err
	}
	settlement.Amount = money.Amount(amount)
	settlement.Status = models.SettlementStatus(status)
	if note.Valid {
		settlement.Note = note.String
	}
	return &settlement, nil
}
