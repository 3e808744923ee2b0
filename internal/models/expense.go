package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/settleup/internal/money"
)

// SplitPolicy records how an expense's splits were derived.
type SplitPolicy string

const (
	SplitEqual      SplitPolicy = "equal"
	SplitExact      SplitPolicy = "exact"
	SplitPercentage SplitPolicy = "percentage"
)

// ParseSplitPolicy normalizes a policy name. An empty string means SplitEqual.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch p := SplitPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return SplitEqual, nil
	case SplitEqual, SplitExact, SplitPercentage:
		return p, nil
	default:
		return "", fmt.Errorf("unknown split policy %q", s)
	}
}

// Expense is a single shared expense within a group.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id" yaml:"id"`

	// GroupID is the group this expense belongs to.
	GroupID string `json:"group_id" yaml:"group_id"`

	// PayerID is the member who advanced the money.
	PayerID string `json:"payer_id" yaml:"payer_id"`

	// Amount is the total paid, always positive.
	Amount money.Amount `json:"amount" yaml:"amount"`

	// Currency is an ISO 4217 code kept for display. No conversion happens.
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`

	// SplitPolicy is how Splits were produced (audit/display only).
	SplitPolicy SplitPolicy `json:"split_policy" yaml:"split_policy"`

	// Splits is the ordered, resolved share of each member.
	// Their Owed amounts must add up to Amount.
	Splits []Split `json:"splits" yaml:"splits"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`

	// OccurredAt is when the expense happened. Display and ordering only.
	OccurredAt time.Time `json:"occurred_at" yaml:"occurred_at"`

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64 `json:"created_at,omitempty" yaml:"-"`
}

// Split is one member's share of an expense.
type Split struct {
	MemberID string       `json:"member_id" yaml:"member_id"`
	Owed     money.Amount `json:"owed" yaml:"owed"`

	// Percentage is the share in basis points (10000 = 100%) for
	// percentage-split expenses, zero otherwise.
	Percentage int64 `json:"percentage,omitempty" yaml:"percentage,omitempty"`

	// Settled marks the share as already paid back to the payer.
	Settled bool `json:"settled" yaml:"settled"`
}

// SplitTotal returns the sum of all split amounts. It fails with
// money.ErrOverflow rather than wrapping around.
func (e *Expense) SplitTotal() (money.Amount, error) {
	owed := make([]money.Amount, len(e.Splits))
	for i, s := range e.Splits {
		owed[i] = s.Owed
	}
	return money.Sum(owed...)
}
