package internal

const (
	UMPayCount             = "um_pay_count"
	UMCouponReceived       = "um_coupon_received"
	UMCouponUsed           = "um_coupon_used"
	UMInteractionCount     = "um_interaction_count"
	UMCouponUnused         = "um_coupon_unused"
	UMCouponUsedRate       = "um_coupon_used_rate"
	UMPayWithCouponRate    = "um_pay_with_coupon_rate"
	UMPayProbability       = "um_pay_probability"
	UMPayWithoutCouponRate = "um_pay_without_coupon_rate"
)

// BuildUserMerchantFeatures derives features for each (user, merchant) pair.
func BuildUserMerchantFeatures(events *Table) (*Table, error) {
	s := newFeatureSteps(events, ColumnUserID, ColumnMerchantID)

	s.count(UMPayCount, s.where(hasUsed))
	s.count(UMCouponReceived, s.where(hasCoupon))
	s.count(UMCouponUsed, s.where(hasUsed, hasReceived))
	s.count(UMInteractionCount, events)
	s.count(UMCouponUnused, s.where(not(hasUsed), not(hasCoupon)))

	s.ratio(UMCouponUsedRate, UMCouponUsed, UMCouponReceived)
	s.ratio(UMPayWithCouponRate, UMCouponUsed, UMPayCount)
	s.ratio(UMPayProbability, UMPayCount, UMInteractionCount)
	s.ratio(UMPayWithoutCouponRate, UMCouponUnused, UMPayCount)

	return s.table()
}
