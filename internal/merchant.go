package internal

const (
	MerchantTotalSales          = "merchant_total_sales"
	MerchantSalesWithCoupon     = "merchant_sales_with_coupon"
	MerchantTotalCoupon         = "merchant_total_coupon"
	MerchantCouponUsedRate      = "merchant_coupon_used_rate"
	MerchantSalesWithCouponRate = "merchant_sales_with_coupon_rate"
)

// BuildMerchantFeatures derives per-merchant sales, coupon and distance
// features. Distance statistics are named merchant_distance_{max,min,mean,median}.
func BuildMerchantFeatures(events *Table) (*Table, error) {
	s := newFeatureSteps(events, ColumnMerchantID)

	s.count(MerchantTotalSales, s.where(hasUsed))
	s.count(MerchantSalesWithCoupon, s.where(hasUsed, hasCoupon))
	s.count(MerchantTotalCoupon, s.where(hasCoupon))
	s.stats("merchant", ColumnDistance, s.where(hasUsed, hasCoupon, knownDistance))

	s.ratio(MerchantCouponUsedRate, MerchantSalesWithCoupon, MerchantTotalCoupon)
	s.ratio(MerchantSalesWithCouponRate, MerchantSalesWithCoupon, MerchantTotalSales)

	return s.table()
}
