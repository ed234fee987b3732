package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a currency value held at two decimal places. All rounding uses
// banker's rounding so repeated splits do not drift in one direction.
type Amount struct {
	d decimal.Decimal
}

const scale = 2

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{d: decimal.Zero}
}

// FromDecimal normalizes an arbitrary decimal to a two-place Amount.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d.RoundBank(scale)}
}

// FromString parses a decimal string such as "15.00".
func FromString(value string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// MustFromString parses a decimal string and panics on failure. It exists for
// wiring static policy values such as the flat shipping fee.
func MustFromString(value string) Amount {
	a, err := FromString(value)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCents builds an Amount from an integer cent count.
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -scale)}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Neg returns the amount with its sign flipped.
func (a Amount) Neg() Amount {
	return Amount{d: a.d.Neg()}
}

// MulInt returns a * n.
func (a Amount) MulInt(n int64) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromInt(n))}
}

// MulRate applies a fractional rate and rounds the result to two places.
func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return FromDecimal(a.d.Mul(rate))
}

// Ratio returns a / b without rounding. Callers apply the unrounded ratio to
// other amounts before rounding so proportional splits stay exact.
func (a Amount) Ratio(b Amount) decimal.Decimal {
	return a.d.Div(b.d)
}

// Cents converts the amount to an integer cent count.
func (a Amount) Cents() int64 {
	return a.d.RoundBank(scale).Shift(scale).IntPart()
}

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// Cmp compares two amounts: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports whether two amounts carry the same value.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// IsPositive reports whether the amount is above zero.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// String renders the amount with exactly two decimal places.
func (a Amount) String() string {
	return a.d.StringFixedBank(scale)
}

// Sum adds the provided amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON renders the amount as a quoted fixed-point string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses quoted or bare decimal values.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = FromDecimal(d)
	return nil
}

// Value implements driver.Valuer so amounts map to numeric columns.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*a = FromDecimal(d)
	return nil
}
