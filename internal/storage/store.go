// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/settleup/internal/models"
)

// ErrNotFound is wrapped by every store error caused by a missing row.
var ErrNotFound = errors.New("not found")

// Store defines the persistence operations behind the ledger service.
// This abstraction allows swapping storage backends (SQLite, MySQL, ...)
// without changing the service layer.
type Store interface {
	// CreateGroup persists a new group. ID and CreatedAt are filled in when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members in insertion order.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups retrieves all groups, newest first.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// AddGroupMembers appends members that are not in the group yet.
	AddGroupMembers(ctx context.Context, groupID string, members []string) error

	// CreateExpense persists an expense and its splits.
	// ID and CreatedAt are filled in when empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup retrieves every expense of a group, oldest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]models.Expense, error)

	// DeleteExpense removes an expense and its splits.
	DeleteExpense(ctx context.Context, expenseID string) error

	// SetSplitSettled marks one member's split of an expense as settled or not.
	SetSplitSettled(ctx context.Context, expenseID, memberID string, settled bool) error

	// CreateSettlement persists a settlement. ID, CreatedAt and Status are
	// filled in when empty.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// GetSettlement retrieves a settlement by ID.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlementsByGroup retrieves all settlements for a group, newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]models.Settlement, error)

	// CompleteSettlement marks a pending settlement completed at the given
	// Unix time. Completing an already completed settlement is a no-op.
	CompleteSettlement(ctx context.Context, settlementID string, settledAt int64) error

	// Close releases any resources held by the store.
	Close() error
}
