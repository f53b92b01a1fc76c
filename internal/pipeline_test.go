package internal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrisconley/couponfeat/internal/infra"
	"github.com/chrisconley/couponfeat/specs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	splits map[specs.Split][]specs.EventRecordSpec
	err    error
}

func (s fakeSource) Load(_ context.Context, split specs.Split) ([]specs.EventRecordSpec, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.splits[split], nil
}

type recordingSink struct {
	tables []specs.FeatureTableSpec
}

func (s *recordingSink) Write(_ context.Context, table specs.FeatureTableSpec) (specs.WriteReceiptSpec, error) {
	s.tables = append(s.tables, table)
	return specs.WriteReceiptSpec{
		Table:    table.Name,
		Location: "memory://" + table.Name,
		Format:   "memory",
		RowCount: table.RowCount,
	}, nil
}

func testSplits() map[specs.Split][]specs.EventRecordSpec {
	test := sampleEvents()
	for i := range test {
		test[i].DateUsed = nil
	}
	return map[specs.Split][]specs.EventRecordSpec{
		specs.SplitTrain: sampleEvents(),
		specs.SplitTest:  test,
	}
}

func TestPipelineRun(t *testing.T) {
	t.Run("writes train and test feature tables", func(t *testing.T) {
		// Arrange
		sink := &recordingSink{}
		pipeline, err := NewPipeline(fakeSource{splits: testSplits()}, sink, infra.NewBus(), specs.PipelineConfigSpec{Variant: "relation"})
		require.NoError(t, err)

		// Act
		receipts, err := pipeline.Run(context.Background())

		// Assert
		require.NoError(t, err)
		require.Len(t, receipts, 2)
		assert.Equal(t, "train_features", receipts[0].Table)
		assert.Equal(t, "test_features", receipts[1].Table)
		assert.NotEmpty(t, receipts[0].RunID)
		assert.Equal(t, receipts[0].RunID, receipts[1].RunID)

		train, test := sink.tables[0], sink.tables[1]
		assert.Equal(t, 3, train.RowCount, "only rows with a coupon and a received date")
		assert.NotContains(t, train.Header(), ColumnDateUsed)
		assert.NotContains(t, train.Header(), ColumnMerchantID)
		assert.Contains(t, train.Header(), ColumnLabel)

		assert.Equal(t, 5, test.RowCount)
		assert.NotContains(t, test.Header(), ColumnMerchantID)
		assert.NotContains(t, test.Header(), ColumnLabel)
	})

	t.Run("publishes progress events", func(t *testing.T) {
		// Arrange
		bus := infra.NewBus()
		var types []infra.EventType
		record := func(e infra.Event) { types = append(types, e.EventType()) }
		for _, et := range []infra.EventType{infra.SplitLoaded, infra.FeaturesBuilt, infra.TableWritten, infra.RunCompleted} {
			bus.Subscribe(et, record)
		}

		var completed infra.RunCompletedEvent
		bus.Subscribe(infra.RunCompleted, func(e infra.Event) { completed = e.(infra.RunCompletedEvent) })

		ticks := []time.Time{time.Unix(100, 0), time.Unix(103, 0)}
		clock := func() time.Time {
			now := ticks[0]
			ticks = ticks[1:]
			return now
		}

		pipeline, err := NewPipeline(fakeSource{splits: testSplits()}, &recordingSink{}, bus, specs.PipelineConfigSpec{Variant: "basic"}, WithClock(clock))
		require.NoError(t, err)

		// Act
		_, err = pipeline.Run(context.Background())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []infra.EventType{
			infra.SplitLoaded, infra.FeaturesBuilt, infra.TableWritten,
			infra.SplitLoaded, infra.FeaturesBuilt, infra.TableWritten,
			infra.RunCompleted,
		}, types)
		assert.Equal(t, 3*time.Second, completed.Elapsed)
		assert.Len(t, completed.Receipts, 2)
	})

	t.Run("writes intermediate tables before leakage columns are dropped", func(t *testing.T) {
		// Arrange
		prep := &recordingSink{}
		pipeline, err := NewPipeline(fakeSource{splits: testSplits()}, &recordingSink{}, nil, specs.PipelineConfigSpec{Variant: "basic"}, WithIntermediateSink(prep))
		require.NoError(t, err)

		// Act
		receipts, err := pipeline.Run(context.Background())

		// Assert
		require.NoError(t, err)
		assert.Len(t, receipts, 4)
		require.Len(t, prep.tables, 2)
		assert.Equal(t, "train_prep", prep.tables[0].Name)
		assert.Contains(t, prep.tables[0].Header(), ColumnDateUsed)
		assert.Contains(t, prep.tables[0].Header(), ColumnMerchantID)
	})

	t.Run("source failure aborts the run", func(t *testing.T) {
		// Arrange
		bus := infra.NewBus()
		var failed []infra.Event
		bus.Subscribe(infra.RunFailed, func(e infra.Event) { failed = append(failed, e) })

		boom := errors.New("disk gone")
		pipeline, err := NewPipeline(fakeSource{err: boom}, &recordingSink{}, bus, specs.PipelineConfigSpec{Variant: "basic"})
		require.NoError(t, err)

		// Act
		_, err = pipeline.Run(context.Background())

		// Assert
		assert.ErrorIs(t, err, boom)
		assert.Len(t, failed, 1)
	})

	t.Run("malformed records abort the run", func(t *testing.T) {
		// Arrange
		splits := testSplits()
		splits[specs.SplitTrain] = append(splits[specs.SplitTrain],
			newTestEvent(withCoupon("c9"), withDiscount("lots"), withReceived("20160101")))
		sink := &recordingSink{}
		pipeline, err := NewPipeline(fakeSource{splits: splits}, sink, nil, specs.PipelineConfigSpec{Variant: "basic"})
		require.NoError(t, err)

		// Act
		_, err = pipeline.Run(context.Background())

		// Assert
		assert.ErrorIs(t, err, ErrMalformedDiscount)
		assert.Empty(t, sink.tables)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pipeline, err := NewPipeline(fakeSource{splits: testSplits()}, &recordingSink{}, nil, specs.PipelineConfigSpec{Variant: "basic"})
		require.NoError(t, err)

		// Act
		_, err = pipeline.Run(ctx)

		// Assert
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("rejects an unknown variant", func(t *testing.T) {
		_, err := NewPipeline(fakeSource{}, &recordingSink{}, nil, specs.PipelineConfigSpec{Variant: "deep"})

		assert.ErrorIs(t, err, ErrUnknownVariant)
	})
}
