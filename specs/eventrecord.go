package specs

import "strings"

// Split identifies which half of the dataset a table belongs to.
//
// The training split carries the redemption date and therefore the label; the
// test split has no redemption date column at all.
type Split string

const (
	SplitTrain Split = "train"
	SplitTest  Split = "test"
)

// EventRecordSpec represents one coupon-issue or redemption event.
//
// Event records are the input boundary of the feature engine. Every field is
// kept in its raw textual form so that parsing rules (discount syntax, date
// format, distance truncation) live in one place inside the engine rather than
// in each source adapter. A nil pointer marks a missing value.
type EventRecordSpec struct {
	// Identifier of the user who received or used the coupon.
	//
	// Always present. Used as the grouping key for user features and, together
	// with MerchantID, for user-merchant features.
	UserID string `json:"userID"`

	// Identifier of the merchant that issued the coupon or made the sale.
	//
	// Always present. Dropped from the final tables before they are written.
	MerchantID string `json:"merchantID"`

	// Identifier of the issued coupon.
	//
	// Missing for ordinary purchases made without a coupon.
	CouponID *string `json:"couponID,omitempty"`

	// Raw discount rate as it appears in the source file.
	//
	// Either a plain rate in (0, 1] such as "0.95", or a full-reduction rule
	// "condition:save" such as "200:20" (spend 200, save 20).
	DiscountRate *string `json:"discountRate,omitempty"`

	// Distance bucket between the user and the merchant, 0 (nearest) to 10.
	Distance *string `json:"distance,omitempty"`

	// Date the coupon was received, formatted YYYYMMDD.
	DateReceived *string `json:"dateReceived,omitempty"`

	// Date of the purchase, formatted YYYYMMDD.
	//
	// Only the training split carries this field. Combined with DateReceived it
	// determines the label, so it never reaches a finalized feature table.
	DateUsed *string `json:"dateUsed,omitempty"`
}

// IsMissing reports whether a raw field value is one of the missing-value
// markers used by the source files: an empty string, "null" or "NaN".
func IsMissing(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "null", "nan":
		return true
	}
	return false
}
