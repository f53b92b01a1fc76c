package internal

import (
	"testing"

	"github.com/chrisconley/couponfeat/specs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuilder(t *testing.T, variant string, opts ...FeatureSetOption) FeatureSetBuilder {
	t.Helper()
	v, err := NewFeatureSetVariant(variant)
	require.NoError(t, err)
	builder, err := NewFeatureSetBuilder(v, opts...)
	require.NoError(t, err)
	return builder
}

func TestNewFeatureSetVariant(t *testing.T) {
	t.Run("accepts basic and relation", func(t *testing.T) {
		basic, err := NewFeatureSetVariant("basic")
		require.NoError(t, err)
		assert.True(t, basic.IsBasic())

		relation, err := NewFeatureSetVariant("relation")
		require.NoError(t, err)
		assert.True(t, relation.IsRelation())
	})

	t.Run("rejects unknown variants", func(t *testing.T) {
		_, err := NewFeatureSetVariant("advanced")
		assert.ErrorIs(t, err, ErrUnknownVariant)

		_, err = NewFeatureSetVariant("")
		assert.ErrorIs(t, err, ErrUnknownVariant)
	})
}

func TestBasicFeatureSet(t *testing.T) {
	events := mustEventTable(t, true, sampleEvents()...)
	builder := mustBuilder(t, "basic")

	t.Run("normalizes discount and distance", func(t *testing.T) {
		features, err := builder.Build(events, false)
		require.NoError(t, err)

		row := map[string]string{ColumnUserID: "u1", ColumnMerchantID: "m1", ColumnCouponID: "c2"}
		assertNumber(t, 0.9, lookup(t, features, row, ColumnDiscountRate))
		assertNumber(t, 1, lookup(t, features, row, ColumnIsFullReduction))
		assertNumber(t, 200, lookup(t, features, row, ColumnFullCond))
		assertNumber(t, 20, lookup(t, features, row, ColumnFullSave))
		assertNumber(t, 3, lookup(t, features, row, ColumnDistance))

		idle := map[string]string{ColumnUserID: "u2", ColumnMerchantID: "m2"}
		assertNumber(t, -1, lookup(t, features, idle, ColumnDiscountRate))
		assertNumber(t, -1, lookup(t, features, idle, ColumnDistance))
		assertNumber(t, 0, lookup(t, features, idle, ColumnIsFullReduction))
	})

	t.Run("labels only training data", func(t *testing.T) {
		test, err := builder.Build(events, false)
		require.NoError(t, err)
		assert.False(t, test.Has(ColumnLabel))
		assert.False(t, test.Has(ColumnDaysGap))

		train, err := builder.Build(events, true)
		require.NoError(t, err)

		assertNumber(t, 1, lookup(t, train, map[string]string{ColumnCouponID: "c1"}, ColumnLabel))
		assertNumber(t, 4, lookup(t, train, map[string]string{ColumnCouponID: "c1"}, ColumnDaysGap))
		assertNumber(t, -1, lookup(t, train, map[string]string{ColumnCouponID: "c2"}, ColumnLabel))
		assertNumber(t, -1, lookup(t, train, map[string]string{ColumnCouponID: "c2"}, ColumnDaysGap))
		assertNumber(t, -1, lookup(t, train, map[string]string{ColumnCouponID: "c3"}, ColumnLabel))
		assertNumber(t, 0, lookup(t, train, map[string]string{ColumnUserID: "u1", ColumnMerchantID: "m2"}, ColumnLabel))
	})

	t.Run("drops duplicate rows", func(t *testing.T) {
		records := append(sampleEvents(), sampleEvents()[0])
		withDuplicate := mustEventTable(t, true, records...)

		features, err := builder.Build(withDuplicate, true)

		require.NoError(t, err)
		assert.Equal(t, 5, features.Rows())
	})

	t.Run("is idempotent", func(t *testing.T) {
		first, err := builder.Build(events, true)
		require.NoError(t, err)
		second, err := builder.Build(events, true)
		require.NoError(t, err)

		assert.Equal(t, first.ToSpec("train"), second.ToSpec("train"))
	})

	t.Run("malformed discount aborts the build", func(t *testing.T) {
		bad := mustEventTable(t, true, newTestEvent(withCoupon("c1"), withDiscount("200/20")))

		_, err := builder.Build(bad, true)

		require.ErrorIs(t, err, ErrMalformedDiscount)
		assert.Contains(t, err.Error(), "200/20")
	})
}

func TestRelationFeatureSet(t *testing.T) {
	events := mustEventTable(t, true, sampleEvents()...)

	t.Run("joins entity features onto every row", func(t *testing.T) {
		features, err := mustBuilder(t, "relation").Build(events, true)
		require.NoError(t, err)

		assert.Equal(t, 5, features.Rows())
		for _, column := range []string{ColumnLabel, MerchantTotalSales, UserBuyTotal, UMPayCount, "user_days_gap_mean"} {
			assert.True(t, features.Has(column), column)
		}

		c1 := map[string]string{ColumnCouponID: "c1"}
		assertNumber(t, 2, lookup(t, features, c1, MerchantTotalSales))
		assertNumber(t, 2, lookup(t, features, c1, UserBuyTotal))
		assertNumber(t, 2, lookup(t, features, c1, UMInteractionCount))
	})

	t.Run("parallel builders give the same table", func(t *testing.T) {
		sequential, err := mustBuilder(t, "relation").Build(events, true)
		require.NoError(t, err)
		parallel, err := mustBuilder(t, "relation", WithParallelBuilders()).Build(events, true)
		require.NoError(t, err)

		assert.Equal(t, sequential.ToSpec("train"), parallel.ToSpec("train"))
	})
}

func TestBuildFeatures(t *testing.T) {
	t.Run("training output drops date_used and merchant_id", func(t *testing.T) {
		table, err := BuildFeatures(sampleEvents(), specs.FeatureSetConfigSpec{Variant: "relation", IsTrain: true})

		require.NoError(t, err)
		assert.Equal(t, "train_features", table.Name)
		assert.NotContains(t, table.Header(), ColumnDateUsed)
		assert.NotContains(t, table.Header(), ColumnMerchantID)
		assert.Contains(t, table.Header(), ColumnLabel)
		assert.Contains(t, table.Header(), MerchantCouponUsedRate)
	})

	t.Run("test output drops merchant_id and has no label", func(t *testing.T) {
		records := sampleEvents()
		for i := range records {
			records[i].DateUsed = nil
		}

		table, err := BuildFeatures(records, specs.FeatureSetConfigSpec{Variant: "relation"})

		require.NoError(t, err)
		assert.Equal(t, "test_features", table.Name)
		assert.NotContains(t, table.Header(), ColumnMerchantID)
		assert.NotContains(t, table.Header(), ColumnDateUsed)
		assert.NotContains(t, table.Header(), ColumnLabel)
	})

	t.Run("keeps merchant_id on request", func(t *testing.T) {
		table, err := BuildFeatures(sampleEvents(), specs.FeatureSetConfigSpec{Variant: "basic", IsTrain: true, KeepMerchantID: true})

		require.NoError(t, err)
		assert.Contains(t, table.Header(), ColumnMerchantID)
	})

	t.Run("with unknown variant returns error", func(t *testing.T) {
		_, err := BuildFeatures(sampleEvents(), specs.FeatureSetConfigSpec{Variant: "everything"})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownVariant)
		assert.Contains(t, err.Error(), "invalid config")
	})
}
