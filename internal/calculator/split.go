package calculator

import (
	"fmt"
	"math"
	"sort"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/money"
)

// FullPercentage is 100% expressed in basis points.
const FullPercentage int64 = 10000

// Share is one member's requested portion of a new expense.
// Amount is read for exact splits, Percentage (basis points) for percentage splits.
type Share struct {
	MemberID   string
	Amount     money.Amount
	Percentage int64
}

// ResolveSplits turns a split policy and the requested shares into concrete
// splits that add up to amount exactly.
//
// Equal and percentage splits hand leftover minor units out one at a time so
// no cent is lost: equal splits favour members in the given order, percentage
// splits favour the largest rounding remainder first. The payer's own split is
// created already settled.
func ResolveSplits(policy models.SplitPolicy, amount money.Amount, payerID string, shares []Share) ([]models.Split, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: expense amount %s", ErrNegativeAmount, amount)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: must have at least one participant", ErrInvalidExpense)
	}

	seen := make(map[string]bool, len(shares))
	for _, sh := range shares {
		if sh.MemberID == "" {
			return nil, fmt.Errorf("%w: share without member", ErrInvalidExpense)
		}
		if seen[sh.MemberID] {
			return nil, fmt.Errorf("%w: member %s listed twice", ErrInvalidExpense, sh.MemberID)
		}
		seen[sh.MemberID] = true
	}

	var owed []money.Amount
	var err error
	switch policy {
	case models.SplitEqual:
		owed = splitEqual(amount, len(shares))
	case models.SplitExact:
		owed, err = splitExact(amount, shares)
	case models.SplitPercentage:
		owed, err = splitPercentage(amount, shares)
	default:
		err = fmt.Errorf("%w: unknown split policy %q", ErrInvalidExpense, policy)
	}
	if err != nil {
		return nil, err
	}

	splits := make([]models.Split, len(shares))
	for i, sh := range shares {
		splits[i] = models.Split{
			MemberID: sh.MemberID,
			Owed:     owed[i],
			Settled:  sh.MemberID == payerID,
		}
		if policy == models.SplitPercentage {
			splits[i].Percentage = sh.Percentage
		}
	}
	return splits, nil
}

func splitEqual(amount money.Amount, n int) []money.Amount {
	base := amount / money.Amount(n)
	rem := int(amount % money.Amount(n))
	owed := make([]money.Amount, n)
	for i := range owed {
		owed[i] = base
		if i < rem {
			owed[i]++
		}
	}
	return owed
}

func splitExact(amount money.Amount, shares []Share) ([]money.Amount, error) {
	owed := make([]money.Amount, len(shares))
	var total money.Amount
	for i, sh := range shares {
		if sh.Amount < 0 {
			return nil, fmt.Errorf("%w: share of %s is %s", ErrNegativeAmount, sh.MemberID, sh.Amount)
		}
		owed[i] = sh.Amount
		total += sh.Amount
	}
	if !total.Near(amount) {
		return nil, fmt.Errorf("%w: shares total %s, expense is %s", ErrSplitAmountMismatch, total, amount)
	}
	return owed, nil
}

func splitPercentage(amount money.Amount, shares []Share) ([]money.Amount, error) {
	if int64(amount) > math.MaxInt64/FullPercentage {
		return nil, fmt.Errorf("%w: amount %s too large for a percentage split", ErrInvalidExpense, amount)
	}

	var totalBP int64
	for _, sh := range shares {
		if sh.Percentage < 0 {
			return nil, fmt.Errorf("%w: percentage of %s is negative", ErrNegativeAmount, sh.MemberID)
		}
		totalBP += sh.Percentage
	}
	if totalBP != FullPercentage {
		return nil, fmt.Errorf("%w: got %d basis points", ErrInvalidPercentage, totalBP)
	}

	owed := make([]money.Amount, len(shares))
	remainders := make([]int64, len(shares))
	var allocated money.Amount
	for i, sh := range shares {
		raw := int64(amount) * sh.Percentage
		owed[i] = money.Amount(raw / FullPercentage)
		remainders[i] = raw % FullPercentage
		allocated += owed[i]
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for left, k := amount-allocated, 0; left > 0; left, k = left-1, k+1 {
		owed[order[k%len(order)]]++
	}
	return owed, nil
}
