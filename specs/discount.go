package specs

// NormalizeDiscount parses a raw discount-rate field into its typed parts.
//
// Process:
//  1. A missing marker yields the sentinel -1 in every numeric field
//  2. A single token is a plain rate in (0, 1]
//  3. "condition:save" is a full reduction with rate 1 - save/condition
//
// Returns an error when the value is present but malformed. A malformed value is
// a data-contract violation and callers are expected to abort the run.
//
// See internal.NormalizeDiscountSpec for the reference implementation.
type NormalizeDiscount func(raw *string) (DiscountInfoSpec, error)

// DiscountInfoSpec is the typed form of a raw discount-rate field.
type DiscountInfoSpec struct {
	// Effective fraction of the price paid, in (0, 1], or -1 when missing.
	Rate float64 `json:"rate"`

	// True when the discount is a "spend condition, save amount" rule.
	IsFullReduction bool `json:"isFullReduction"`

	// Minimum spend for a full reduction, or -1 for plain rates and missing values.
	Condition int `json:"condition"`

	// Amount saved by a full reduction, or -1 for plain rates and missing values.
	Save int `json:"save"`
}
