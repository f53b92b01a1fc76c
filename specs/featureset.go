package specs

// BuildFeatures turns event records into a finalized feature table.
//
// Process:
//  1. Normalize discount and distance fields of every record
//  2. For training data, derive days_gap and label from the two dates
//  3. For the "relation" variant, join merchant, user and user-merchant features
//  4. Drop leakage columns: the redemption date (training only) and the merchant id
//
// Returns an error if any record violates the input contract (unparseable
// discount, distance or date). Division by zero inside ratio features is not an
// error; the affected cells are NaN.
//
// See internal.BuildFeatures for the reference implementation.
type BuildFeatures func(records []EventRecordSpec, config FeatureSetConfigSpec) (FeatureTableSpec, error)

// FeatureSetConfigSpec selects how one split is turned into features.
type FeatureSetConfigSpec struct {
	// Feature-set variant.
	//
	//   - "basic": normalized discount fields, plus days_gap and label for training
	//   - "relation": basic plus all merchant, user and user-merchant features
	Variant string `json:"variant"`

	// Whether the records come from the training split.
	//
	// Labels are only derived for training data, and only training data carries
	// the redemption date that has to be dropped afterwards.
	IsTrain bool `json:"isTrain"`

	// Keep merchant_id in the output instead of dropping it.
	KeepMerchantID bool `json:"keepMerchantID,omitempty"`

	// Run the three entity builders of the relation variant concurrently.
	Parallel bool `json:"parallel,omitempty"`
}

// PipelineConfigSpec configures a full run over both splits.
type PipelineConfigSpec struct {
	// Feature-set variant applied to both splits. See FeatureSetConfigSpec.Variant.
	Variant string `json:"variant"`

	// Keep merchant_id in both outputs.
	KeepMerchantID bool `json:"keepMerchantID,omitempty"`

	// Run entity builders concurrently.
	Parallel bool `json:"parallel,omitempty"`
}
