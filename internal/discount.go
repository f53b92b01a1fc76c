package internal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chrisconley/couponfeat/specs"
)

// DiscountInfo is the typed form of a raw discount-rate field.
type DiscountInfo struct {
	Rate            float64
	IsFullReduction bool
	Condition       int
	Save            int
}

// missingDiscount is returned for missing discount fields.
var missingDiscount = DiscountInfo{Rate: -1, IsFullReduction: false, Condition: -1, Save: -1}

var decimalOne = NewDecimalFromInt64(1)

// NormalizeDiscountSpec implements specs.NormalizeDiscount.
func NormalizeDiscountSpec(raw *string) (specs.DiscountInfoSpec, error) {
	info, err := NormalizeDiscount(raw)
	if err != nil {
		return specs.DiscountInfoSpec{}, err
	}
	return info.ToSpec(), nil
}

// NormalizeDiscount parses "rate", "condition:save" or a missing marker.
func NormalizeDiscount(raw *string) (DiscountInfo, error) {
	if raw == nil || specs.IsMissing(*raw) {
		return missingDiscount, nil
	}

	tokens := strings.Split(strings.TrimSpace(*raw), ":")
	switch len(tokens) {
	case 1:
		return parseDiscountRate(*raw, tokens[0])
	case 2:
		return parseFullReduction(*raw, tokens[0], tokens[1])
	default:
		return DiscountInfo{}, fmt.Errorf("%w: %q", ErrMalformedDiscount, *raw)
	}
}

func parseDiscountRate(raw, token string) (DiscountInfo, error) {
	rate, err := NewDecimal(strings.TrimSpace(token))
	if err != nil {
		return DiscountInfo{}, fmt.Errorf("%w: %q: %w", ErrMalformedDiscount, raw, err)
	}
	if rate.Cmp(NewDecimalFromInt64(0)) <= 0 || rate.Cmp(decimalOne) > 0 {
		return DiscountInfo{}, fmt.Errorf("%w: rate %q outside (0, 1]", ErrMalformedDiscount, raw)
	}
	return DiscountInfo{
		Rate:            rate.Float64(),
		IsFullReduction: false,
		Condition:       -1,
		Save:            -1,
	}, nil
}

func parseFullReduction(raw, condToken, saveToken string) (DiscountInfo, error) {
	cond, err := parseDiscountAmount(condToken)
	if err != nil {
		return DiscountInfo{}, fmt.Errorf("%w: condition of %q: %w", ErrMalformedDiscount, raw, err)
	}
	save, err := parseDiscountAmount(saveToken)
	if err != nil {
		return DiscountInfo{}, fmt.Errorf("%w: save of %q: %w", ErrMalformedDiscount, raw, err)
	}

	// cond > save > 0
	if save.Cmp(NewDecimalFromInt64(0)) <= 0 || cond.Cmp(save) <= 0 {
		return DiscountInfo{}, fmt.Errorf("%w: %q needs condition > save > 0", ErrMalformedDiscount, raw)
	}

	condInt, _ := cond.Int64()
	saveInt, _ := save.Int64()
	if condInt > math.MaxInt32 {
		return DiscountInfo{}, fmt.Errorf("%w: condition of %q out of range", ErrMalformedDiscount, raw)
	}

	return DiscountInfo{
		Rate:            decimalOne.Sub(save.Div(cond)).Float64(),
		IsFullReduction: true,
		Condition:       int(condInt),
		Save:            int(saveInt),
	}, nil
}

func parseDiscountAmount(token string) (Decimal, error) {
	amount, err := NewDecimal(strings.TrimSpace(token))
	if err != nil {
		return Decimal{}, err
	}
	if _, err := amount.Int64(); err != nil {
		return Decimal{}, err
	}
	return amount, nil
}

// ToSpec converts DiscountInfo to specs.DiscountInfoSpec.
func (d DiscountInfo) ToSpec() specs.DiscountInfoSpec {
	return specs.DiscountInfoSpec{
		Rate:            d.Rate,
		IsFullReduction: d.IsFullReduction,
		Condition:       d.Condition,
		Save:            d.Save,
	}
}

// NormalizeDistance maps a missing distance to -1 and truncates anything else
// toward zero.
func NormalizeDistance(raw *string) (int, error) {
	if raw == nil || specs.IsMissing(*raw) {
		return -1, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDistance, *raw)
	}
	return int(f), nil
}
