package internal

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

type FeatureSetVariant struct {
	value string
}

func NewFeatureSetVariant(value string) (FeatureSetVariant, error) {
	switch value {
	case "basic", "relation":
		return FeatureSetVariant{value: value}, nil
	case "":
		return FeatureSetVariant{}, fmt.Errorf("%w: variant is required", ErrUnknownVariant)
	default:
		return FeatureSetVariant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, value)
	}
}

func (v FeatureSetVariant) ToString() string {
	return v.value
}

func (v FeatureSetVariant) IsBasic() bool {
	return v.value == "basic"
}

func (v FeatureSetVariant) IsRelation() bool {
	return v.value == "relation"
}

// FeatureSetBuilder turns a raw event table into a feature table.
type FeatureSetBuilder interface {
	Variant() FeatureSetVariant
	Build(events *Table, isTrain bool) (*Table, error)
}

type featureSetOptions struct {
	parallel bool
}

type FeatureSetOption func(*featureSetOptions)

// WithParallelBuilders runs the entity builders of the relation variant
// concurrently.
func WithParallelBuilders() FeatureSetOption {
	return func(o *featureSetOptions) {
		o.parallel = true
	}
}

func NewFeatureSetBuilder(variant FeatureSetVariant, opts ...FeatureSetOption) (FeatureSetBuilder, error) {
	var options featureSetOptions
	for _, opt := range opts {
		opt(&options)
	}

	switch {
	case variant.IsBasic():
		return basicFeatureSet{}, nil
	case variant.IsRelation():
		return relationFeatureSet{parallel: options.parallel}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant.ToString())
	}
}

// basicFeatureSet normalizes discount and distance, labels training rows and
// drops duplicate rows.
type basicFeatureSet struct{}

func (basicFeatureSet) Variant() FeatureSetVariant {
	return FeatureSetVariant{value: "basic"}
}

func (basicFeatureSet) Build(events *Table, isTrain bool) (*Table, error) {
	t, err := normalizeRecords(events)
	if err != nil {
		return nil, err
	}
	if isTrain {
		t, err = deriveLabels(t)
		if err != nil {
			return nil, err
		}
	}
	return t.Distinct()
}

// relationFeatureSet extends the basic variant with merchant, user and
// user-merchant features.
type relationFeatureSet struct {
	parallel bool
}

type entityJoin struct {
	build EntityBuilder
	keys  []string
}

var entityJoins = []entityJoin{
	{build: BuildMerchantFeatures, keys: []string{ColumnMerchantID}},
	{build: BuildUserFeatures, keys: []string{ColumnUserID}},
	{build: BuildUserMerchantFeatures, keys: []string{ColumnUserID, ColumnMerchantID}},
}

func (relationFeatureSet) Variant() FeatureSetVariant {
	return FeatureSetVariant{value: "relation"}
}

func (f relationFeatureSet) Build(events *Table, isTrain bool) (*Table, error) {
	t, err := basicFeatureSet{}.Build(events, isTrain)
	if err != nil {
		return nil, err
	}

	entities, err := f.buildEntities(events)
	if err != nil {
		return nil, err
	}

	for i, join := range entityJoins {
		t, err = t.LeftJoin(entities[i], join.keys...)
		if err != nil {
			return nil, fmt.Errorf("join %v features: %w", join.keys, err)
		}
	}
	return t.Distinct()
}

// buildEntities runs every entity builder on the raw events. The builders
// share nothing but the read-only event table.
func (f relationFeatureSet) buildEntities(events *Table) ([]*Table, error) {
	entities := make([]*Table, len(entityJoins))
	if !f.parallel {
		for i, join := range entityJoins {
			t, err := join.build(events)
			if err != nil {
				return nil, err
			}
			entities[i] = t
		}
		return entities, nil
	}

	var g errgroup.Group
	for i, join := range entityJoins {
		g.Go(func() error {
			t, err := join.build(events)
			if err != nil {
				return err
			}
			entities[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entities, nil
}
