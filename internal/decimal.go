package internal

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

var decimalContext = apd.BaseContext.WithPrecision(34)

type Decimal struct {
	value apd.Decimal
}

func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	_, _, err := d.SetString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("invalid decimal: %q is not finite", s)
	}
	return Decimal{value: d}, nil
}

func NewDecimalFromInt64(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d}
}

func (d Decimal) String() string {
	return d.value.String()
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}

// Sub returns d minus other.
func (d Decimal) Sub(other Decimal) Decimal {
	var result apd.Decimal
	decimalContext.Sub(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Div returns the quotient of d divided by other.
func (d Decimal) Div(other Decimal) Decimal {
	var result apd.Decimal
	decimalContext.Quo(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Int64 returns d as an integer. It fails when d has a fractional part.
func (d Decimal) Int64() (int64, error) {
	var integral apd.Decimal
	if _, err := decimalContext.RoundToIntegralExact(&integral, &d.value); err != nil {
		return 0, err
	}
	if integral.Cmp(&d.value) != 0 {
		return 0, fmt.Errorf("%s is not an integer", d.String())
	}
	return integral.Int64()
}

// Float64 returns the nearest float64 to d.
func (d Decimal) Float64() float64 {
	f, _ := d.value.Float64()
	return f
}
