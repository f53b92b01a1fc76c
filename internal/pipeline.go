package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/chrisconley/couponfeat/internal/infra"
	"github.com/chrisconley/couponfeat/specs"
	"github.com/google/uuid"
)

// TableSource reads the raw event records of one split.
type TableSource interface {
	Load(ctx context.Context, split specs.Split) ([]specs.EventRecordSpec, error)
}

// TableSink stores a finished table and reports where it went.
type TableSink interface {
	Write(ctx context.Context, table specs.FeatureTableSpec) (specs.WriteReceiptSpec, error)
}

type Pipeline struct {
	source       TableSource
	sink         TableSink
	intermediate TableSink
	bus          *infra.Bus
	variant      FeatureSetVariant
	keepMerchant bool
	parallel     bool
	now          func() time.Time
}

type PipelineOption func(*Pipeline)

// WithIntermediateSink also writes the basic feature table of each split,
// before leakage columns are dropped, as "<split>_prep".
func WithIntermediateSink(sink TableSink) PipelineOption {
	return func(p *Pipeline) {
		p.intermediate = sink
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

func NewPipeline(source TableSource, sink TableSink, bus *infra.Bus, configSpec specs.PipelineConfigSpec, opts ...PipelineOption) (*Pipeline, error) {
	variant, err := NewFeatureSetVariant(configSpec.Variant)
	if err != nil {
		return nil, fmt.Errorf("invalid variant: %w", err)
	}
	if bus == nil {
		bus = infra.NewBus()
	}

	p := &Pipeline{
		source:       source,
		sink:         sink,
		bus:          bus,
		variant:      variant,
		keepMerchant: configSpec.KeepMerchantID,
		parallel:     configSpec.Parallel,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run builds and writes the feature tables of both splits:
//  1. Load the training split and keep rows with both a coupon and a received date
//  2. Load the test split, which has no date_used column
//  3. Build each split with the configured variant, labelling only training rows
//  4. Drop date_used from training output and merchant_id from both
//  5. Write both tables through the sink
//
// Any malformed input aborts the run.
func (p *Pipeline) Run(ctx context.Context) ([]specs.WriteReceiptSpec, error) {
	runID := uuid.NewString()
	start := p.now()

	receipts, err := p.run(ctx, runID)
	if err != nil {
		p.bus.Publish(infra.RunFailedEvent{RunID: runID, Err: err})
		return nil, err
	}

	p.bus.Publish(infra.RunCompletedEvent{
		RunID:    runID,
		Variant:  p.variant.ToString(),
		Elapsed:  p.now().Sub(start),
		Receipts: receipts,
	})
	return receipts, nil
}

func (p *Pipeline) run(ctx context.Context, runID string) ([]specs.WriteReceiptSpec, error) {
	var receipts []specs.WriteReceiptSpec
	for _, split := range []specs.Split{specs.SplitTrain, specs.SplitTest} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		written, err := p.runSplit(ctx, runID, split)
		if err != nil {
			return nil, fmt.Errorf("%s split: %w", split, err)
		}
		receipts = append(receipts, written...)
	}
	return receipts, nil
}

func (p *Pipeline) runSplit(ctx context.Context, runID string, split specs.Split) ([]specs.WriteReceiptSpec, error) {
	isTrain := split == specs.SplitTrain

	records, err := p.source.Load(ctx, split)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	events, err := NewEventTableFromSpecs(records, isTrain)
	if err != nil {
		return nil, err
	}
	if isTrain {
		events = RestrictToIssuedCoupons(events)
	}
	p.bus.Publish(infra.SplitLoadedEvent{RunID: runID, Split: split, Rows: events.Rows()})

	config := FeatureSetConfig{
		variant:        p.variant,
		isTrain:        isTrain,
		keepMerchantID: p.keepMerchant,
		parallel:       p.parallel,
	}

	var receipts []specs.WriteReceiptSpec
	if p.intermediate != nil {
		prep, err := basicFeatureSet{}.Build(events, isTrain)
		if err != nil {
			return nil, fmt.Errorf("build intermediate table: %w", err)
		}
		receipt, err := p.write(ctx, p.intermediate, runID, prep.ToSpec(string(split)+"_prep"))
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}

	features, err := buildFeatures(events, config)
	if err != nil {
		return nil, err
	}
	p.bus.Publish(infra.FeaturesBuiltEvent{
		RunID:   runID,
		Split:   split,
		Variant: p.variant.ToString(),
		Rows:    features.Rows(),
		Columns: len(features.Columns()),
	})

	receipt, err := p.write(ctx, p.sink, runID, features.ToSpec(featureTableName(config)))
	if err != nil {
		return nil, err
	}
	return append(receipts, receipt), nil
}

func (p *Pipeline) write(ctx context.Context, sink TableSink, runID string, table specs.FeatureTableSpec) (specs.WriteReceiptSpec, error) {
	receipt, err := sink.Write(ctx, table)
	if err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("write %s: %w", table.Name, err)
	}
	receipt.RunID = runID
	p.bus.Publish(infra.TableWrittenEvent{Receipt: receipt})
	return receipt, nil
}

// RestrictToIssuedCoupons keeps the rows that carry both a coupon and a
// received date. Other rows have no label signal.
func RestrictToIssuedCoupons(events *Table) *Table {
	return events.Filter(func(r Row) bool {
		return hasCoupon(r) && hasReceived(r)
	})
}
