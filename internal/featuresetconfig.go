package internal

import (
	"fmt"

	"github.com/chrisconley/couponfeat/specs"
)

type FeatureSetConfig struct {
	variant        FeatureSetVariant
	isTrain        bool
	keepMerchantID bool
	parallel       bool
}

func NewFeatureSetConfig(spec specs.FeatureSetConfigSpec) (FeatureSetConfig, error) {
	variant, err := NewFeatureSetVariant(spec.Variant)
	if err != nil {
		return FeatureSetConfig{}, fmt.Errorf("invalid variant: %w", err)
	}

	return FeatureSetConfig{
		variant:        variant,
		isTrain:        spec.IsTrain,
		keepMerchantID: spec.KeepMerchantID,
		parallel:       spec.Parallel,
	}, nil
}

func (c FeatureSetConfig) Variant() FeatureSetVariant {
	return c.variant
}

func (c FeatureSetConfig) IsTrain() bool {
	return c.isTrain
}

func (c FeatureSetConfig) KeepMerchantID() bool {
	return c.keepMerchantID
}

func (c FeatureSetConfig) Parallel() bool {
	return c.parallel
}

// Builder returns the FeatureSetBuilder this config selects.
func (c FeatureSetConfig) Builder() (FeatureSetBuilder, error) {
	var opts []FeatureSetOption
	if c.parallel {
		opts = append(opts, WithParallelBuilders())
	}
	return NewFeatureSetBuilder(c.variant, opts...)
}

// LeakageColumns lists the columns removed from a finished feature table.
func (c FeatureSetConfig) LeakageColumns() []string {
	var columns []string
	if c.isTrain {
		columns = append(columns, ColumnDateUsed)
	}
	if !c.keepMerchantID {
		columns = append(columns, ColumnMerchantID)
	}
	return columns
}
