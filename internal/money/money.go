// Package money provides a fixed-point currency amount stored in minor units.
//
// All ledger arithmetic happens on Amount (int64 cents). Decimal strings are
// only produced or consumed at the edges: JSON, YAML, SQL and CLI output.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Places is the number of decimal places carried by every Amount.
const Places = 2

// Tolerance is the largest difference treated as "equal" when comparing
// amounts that went through rounding (one minor unit).
const Tolerance Amount = 1

var minorPerMajor = decimal.New(1, Places)

// Amount is a signed monetary value in minor units (cents).
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

// Parse converts a decimal string such as "90.00" or "-12.5" into an Amount.
// Values with more than two decimal places are rejected rather than rounded.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for literals in tests and fixtures. It panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromDecimal converts a decimal into minor units.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Mul(minorPerMajor)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), Places)
	}
	if scaled.Abs().GreaterThan(decimal.New(1, 17)) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Amount(scaled.IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Places)
}

// String formats the amount with exactly two decimal places: "90.00".
func (a Amount) String() string {
	return a.Decimal().StringFixed(Places)
}

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a == 0 }

// Near reports whether a and b differ by at most Tolerance.
func (a Amount) Near(b Amount) bool {
	return (a - b).Abs() <= Tolerance
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// ErrOverflow is returned when a sum does not fit in an Amount.
var ErrOverflow = errors.New("amount overflow")

// Add returns a+b, or ErrOverflow when the result would wrap around.
func Add(a, b Amount) (Amount, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return a + b, nil
}

// Sum adds the given amounts, failing with ErrOverflow instead of wrapping.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		var err error
		if total, err = Add(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// MarshalJSON encodes the amount as a decimal string, e.g. "90.00".
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
// null leaves the amount unchanged.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return fmt.Errorf("parse amount %s: %w", data, err)
		}
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalYAML encodes the amount as a decimal string.
func (a Amount) MarshalYAML() (any, error) {
	return a.String(), nil
}

// UnmarshalYAML accepts scalar nodes such as 90, 90.5 or "90.00".
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", value.Line)
	}
	v, err := Parse(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*a = v
	return nil
}
