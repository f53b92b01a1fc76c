package internal

// RedemptionWindowDays is the inclusive number of days after receipt within
// which a redemption counts as positive.
const RedemptionWindowDays = 15

// Label is the training target for one issued coupon.
type Label int

const (
	LabelNegative   Label = -1
	LabelDegenerate Label = 0
	LabelPositive   Label = 1
)

// DeriveLabel assigns the label for a (received, used) date pair.
//
//   - received missing: LabelDegenerate
//   - used missing: LabelNegative, the coupon was never redeemed
//   - redeemed within RedemptionWindowDays: LabelPositive
//   - redeemed later: LabelNegative
func DeriveLabel(received, used *Date8) Label {
	if received == nil {
		return LabelDegenerate
	}
	if used == nil {
		return LabelNegative
	}
	if DayGap(received, used) <= RedemptionWindowDays {
		return LabelPositive
	}
	return LabelNegative
}

func (l Label) ToInt() int {
	return int(l)
}
