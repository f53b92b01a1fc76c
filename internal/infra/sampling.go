package infra

import (
	"context"
	"math/rand/v2"

	"github.com/chrisconley/couponfeat/specs"
)

// Source is anything that loads the event records of a split.
type Source interface {
	Load(ctx context.Context, split specs.Split) ([]specs.EventRecordSpec, error)
}

// SampledSource draws a fixed-size random subset of each split for
// development runs. The same seed always picks the same rows, in the same
// shuffled order. Splits smaller than Size are returned whole.
type SampledSource struct {
	Source Source
	Size   int
	Seed   uint64
}

// NewSampledSource wraps source when sampling is enabled and returns it
// unchanged otherwise.
func NewSampledSource(source Source, cfg SampleConfig) Source {
	if !cfg.Enabled {
		return source
	}
	return &SampledSource{Source: source, Size: cfg.Size, Seed: cfg.Seed}
}

func (s *SampledSource) Load(ctx context.Context, split specs.Split) ([]specs.EventRecordSpec, error) {
	records, err := s.Source.Load(ctx, split)
	if err != nil {
		return nil, err
	}
	if len(records) <= s.Size {
		return records, nil
	}

	rng := rand.New(rand.NewPCG(s.Seed, s.Seed))
	picked := rng.Perm(len(records))[:s.Size]

	sample := make([]specs.EventRecordSpec, len(picked))
	for i, idx := range picked {
		sample[i] = records[idx]
	}
	return sample, nil
}
