package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/settleup/internal/money"
)

// Sentinel errors. Match with errors.Is; the concrete error usually is an
// *ExpenseError, *SettlementError or *InconsistencyError carrying the details.
var (
	ErrSplitAmountMismatch = errors.New("split amounts do not add up to the expense amount")
	ErrNegativeAmount      = errors.New("negative amount")
	ErrLedgerInconsistency = errors.New("ledger inconsistency")
	ErrUnknownMember       = errors.New("unknown member")
	ErrInvalidExpense      = errors.New("invalid expense")
	ErrInvalidPercentage   = errors.New("percentages must add up to 100")
)

// ExpenseError reports why a single expense record was rejected.
type ExpenseError struct {
	ExpenseID string
	MemberID  string // set when a specific member caused the failure
	Err       error
	Detail    string
}

func (e *ExpenseError) Error() string {
	msg := fmt.Sprintf("expense %s: %v", e.ExpenseID, e.Err)
	if e.MemberID != "" {
		msg += fmt.Sprintf(" (member %s)", e.MemberID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ExpenseError) Unwrap() error { return e.Err }

// SettlementError reports why a recorded settlement was rejected.
type SettlementError struct {
	SettlementID string
	MemberID     string
	Err          error
	Detail       string
}

func (e *SettlementError) Error() string {
	msg := fmt.Sprintf("settlement %s: %v", e.SettlementID, e.Err)
	if e.MemberID != "" {
		msg += fmt.Sprintf(" (member %s)", e.MemberID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *SettlementError) Unwrap() error { return e.Err }

// InconsistencyError is returned when the computed balances do not sum to zero.
type InconsistencyError struct {
	Residual money.Amount
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%v: balances sum to %s instead of zero", ErrLedgerInconsistency, e.Residual)
}

func (e *InconsistencyError) Unwrap() error { return ErrLedgerInconsistency }

// IsValidationError reports whether err describes bad input rather than a
// corrupted ledger.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSplitAmountMismatch) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrUnknownMember) ||
		errors.Is(err, ErrInvalidExpense) ||
		errors.Is(err, ErrInvalidPercentage)
}

func expenseErr(id string, err error, format string, args ...any) *ExpenseError {
	return &ExpenseError{ExpenseID: id, Err: err, Detail: fmt.Sprintf(format, args...)}
}

func settlementErr(id string, err error, format string, args ...any) *SettlementError {
	return &SettlementError{SettlementID: id, Err: err, Detail: fmt.Sprintf(format, args...)}
}
