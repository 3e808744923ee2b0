package service

import (
	"time"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/money"
)

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *models.Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group *models.Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*models.Group `json:"groups"`
}

// ShareInput is one member's requested portion of a new expense.
// Amount is read for exact splits, Percentage (basis points) for percentage
// splits; both are ignored for equal splits.
type ShareInput struct {
	MemberID   string       `json:"member_id"`
	Amount     money.Amount `json:"amount,omitempty"`
	Percentage int64        `json:"percentage,omitempty"`
}

// AddExpenseRequest records a new expense. When Shares is empty the amount
// is split equally between all current group members.
type AddExpenseRequest struct {
	GroupID     string       `json:"group_id"`
	PayerID     string       `json:"payer_id"`
	Amount      money.Amount `json:"amount"`
	Currency    string       `json:"currency,omitempty"`
	SplitPolicy string       `json:"split_policy,omitempty"`
	Shares      []ShareInput `json:"shares,omitempty"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

type AddExpenseResponse struct {
	Expense *models.Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListExpensesResponse struct {
	Expenses []models.Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

type SettleSplitRequest struct {
	ExpenseID string `json:"expense_id"`
	MemberID  string `json:"member_id"`
	Settled   bool   `json:"settled"`
}

type SettleSplitResponse struct {
	Expense *models.Expense `json:"expense"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`

	// IncludeDebts adds the raw, un-netted per-direction debts.
	IncludeDebts bool `json:"include_debts,omitempty"`
}

// RejectedExpense is an expense left out of a computation under the skip policy.
type RejectedExpense struct {
	ExpenseID string `json:"expense_id"`
	Reason    string `json:"reason"`
	Error     string `json:"error"`
}

type GetGroupBalancesResponse struct {
	GroupID     string                            `json:"group_id"`
	Balances    []calculator.MemberBalance        `json:"balances"`
	Suggestions []calculator.SettlementSuggestion `json:"suggestions"`
	Debts       []calculator.DebtEdge             `json:"debts,omitempty"`
	Rejected    []RejectedExpense                 `json:"rejected,omitempty"`
}

// RecordSettlementRequest records a payment between two members.
// Completed settlements count towards balances immediately.
type RecordSettlementRequest struct {
	GroupID      string       `json:"group_id"`
	FromMemberID string       `json:"from_member_id"`
	ToMemberID   string       `json:"to_member_id"`
	Amount       money.Amount `json:"amount"`
	Note         string       `json:"note,omitempty"`
	Completed    bool         `json:"completed,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *models.Settlement `json:"settlement"`
}

type CompleteSettlementRequest struct {
	SettlementID string `json:"settlement_id"`
}

type CompleteSettlementResponse struct {
	Settlement *models.Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"group_id"`
}

type ListSettlementsResponse struct {
	Settlements []models.Settlement `json:"settlements"`
}
