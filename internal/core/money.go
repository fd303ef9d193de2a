// Package core holds the ledger domain types shared by every other package.
//
// Money is an exact decimal amount. Sums are never computed in floating
// point; Float64 exists only for chart rendering.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("negative amount")
)

// Money is an exact decimal amount of currency.
type Money struct {
	amount decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

func NewMoney(d decimal.Decimal) Money {
	return Money{amount: d}
}

// MoneyFromInt returns a whole-unit amount.
func MoneyFromInt(units int64) Money {
	return Money{amount: decimal.NewFromInt(units)}
}

// MoneyFromFloat converts a float coming from a JSON document. The shortest
// decimal representation of f is used, so 0.1 becomes exactly 0.1.
func MoneyFromFloat(f float64) Money {
	return Money{amount: decimal.NewFromFloat(f)}
}

// ParseMoney parses a decimal string such as "12.34" or "12,34".
//
// The sign is preserved; rejecting negative amounts is the caller's
// decision. Thousands separators are not accepted.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{amount: d}, nil
}

// MustParseMoney is ParseMoney for literals known to be valid.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }
func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }
func (m Money) Neg() Money        { return Money{amount: m.amount.Neg()} }
func (m Money) Abs() Money        { return Money{amount: m.amount.Abs()} }

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }
func (m Money) Sign() int        { return m.amount.Sign() }

// Cmp returns -1, 0 or +1 comparing m to o.
func (m Money) Cmp(o Money) int { return m.amount.Cmp(o.amount) }

func (m Money) Equal(o Money) bool { return m.amount.Equal(o.amount) }

func (m Money) Decimal() decimal.Decimal { return m.amount }

// Float64 is lossy and meant for display purposes such as charts.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// Round rounds half to even at the given number of decimal places.
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.RoundBank(places)}
}

func (m Money) String() string {
	return m.amount.String()
}

// StringFixed renders the amount with exactly two decimals.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(2)
}

func (m Money) Validate() error {
	if m.amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return m.amount.MarshalJSON()
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.amount.UnmarshalJSON(b)
}

// Sum adds the amounts together.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
