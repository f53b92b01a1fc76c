package internal

const (
	UserDistinctMerchants = "user_distinct_merchants"
	UserBuyWithCoupon     = "user_buy_with_coupon"
	UserBuyTotal          = "user_buy_total"
	UserCouponReceived    = "user_coupon_received"
	UserPayWithCouponRate = "user_pay_with_coupon_rate"
	UserCouponUsedRate    = "user_coupon_used_rate"
)

// BuildUserFeatures derives per-user purchase, coupon, distance and
// redemption-delay features.
func BuildUserFeatures(events *Table) (*Table, error) {
	s := newFeatureSteps(events, ColumnUserID)

	s.countDistinct(UserDistinctMerchants, ColumnMerchantID, s.where(hasUsed))
	s.stats("user", ColumnDistance, s.where(hasUsed, hasCoupon, knownDistance))
	s.count(UserBuyWithCoupon, s.where(hasUsed, hasCoupon))
	s.count(UserBuyTotal, s.where(hasUsed))
	s.count(UserCouponReceived, s.where(hasCoupon))

	redeemed, err := withDaysGap(s.where(hasUsed, hasCoupon, hasReceived))
	if err != nil {
		return nil, err
	}
	s.stats("user", ColumnDaysGap, redeemed)

	s.ratio(UserPayWithCouponRate, UserBuyWithCoupon, UserBuyTotal)
	s.ratio(UserCouponUsedRate, UserBuyWithCoupon, UserCouponReceived)

	return s.table()
}
