package models

import "github.com/mmynk/settleup/internal/money"

// SettlementStatus is the lifecycle state of a recorded settlement.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
)

// Settlement represents a payment between group members to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id" yaml:"id"`

	// GroupID is the group this settlement belongs to.
	GroupID string `json:"group_id" yaml:"group_id"`

	// FromMemberID is the member who paid (debtor settling up).
	FromMemberID string `json:"from_member_id" yaml:"from"`

	// ToMemberID is the member who received payment (creditor being paid).
	ToMemberID string `json:"to_member_id" yaml:"to"`

	// Amount is the payment amount.
	Amount money.Amount `json:"amount" yaml:"amount"`

	// Status is pending until the receiver confirms the transfer.
	Status SettlementStatus `json:"status" yaml:"status"`

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64 `json:"created_at" yaml:"-"`

	// SettledAt is the Unix timestamp when the settlement completed, zero if pending.
	SettledAt int64 `json:"settled_at,omitempty" yaml:"-"`

	// Note is an optional description for the settlement.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Completed reports whether the transfer has been confirmed.
func (s *Settlement) Completed() bool {
	return s.Status == SettlementCompleted
}
