package internal

import (
	"fmt"

	"github.com/chrisconley/couponfeat/specs"
)

// BuildFeatures implements specs.BuildFeatures.
// Converts specs to domain objects, transforms, and converts back to specs.
func BuildFeatures(recordSpecs []specs.EventRecordSpec, configSpec specs.FeatureSetConfigSpec) (specs.FeatureTableSpec, error) {
	config, err := NewFeatureSetConfig(configSpec)
	if err != nil {
		return specs.FeatureTableSpec{}, fmt.Errorf("invalid config: %w", err)
	}

	events, err := NewEventTableFromSpecs(recordSpecs, config.IsTrain())
	if err != nil {
		return specs.FeatureTableSpec{}, err
	}

	features, err := buildFeatures(events, config)
	if err != nil {
		return specs.FeatureTableSpec{}, err
	}

	return features.ToSpec(featureTableName(config)), nil
}

// buildFeatures runs the configured variant and drops leakage columns.
// This is the private domain-level function that operates on domain objects.
func buildFeatures(events *Table, config FeatureSetConfig) (*Table, error) {
	builder, err := config.Builder()
	if err != nil {
		return nil, err
	}

	features, err := builder.Build(events, config.IsTrain())
	if err != nil {
		return nil, fmt.Errorf("build %s features: %w", builder.Variant().ToString(), err)
	}

	return features.Drop(config.LeakageColumns()...), nil
}

func featureTableName(config FeatureSetConfig) string {
	if config.IsTrain() {
		return string(specs.SplitTrain) + "_features"
	}
	return string(specs.SplitTest) + "_features"
}
