package internal

import (
	"fmt"
	"math"
)

// EntityBuilder derives one feature row per entity from raw event columns.
type EntityBuilder func(events *Table) (*Table, error)

// rowPredicate selects event rows for a feature.
type rowPredicate func(Row) bool

func hasUsed(r Row) bool { return r.Present(ColumnDateUsed) }

func hasCoupon(r Row) bool { return r.Present(ColumnCouponID) }

func hasReceived(r Row) bool { return r.Present(ColumnDateReceived) }

func knownDistance(r Row) bool {
	d, ok := r.Number(ColumnDistance)
	return ok && d >= 0
}

func not(p rowPredicate) rowPredicate {
	return func(r Row) bool { return !p(r) }
}

// featureSteps accumulates feature columns onto the canonical id set of one
// entity. The first failing step is kept and later steps are skipped.
type featureSteps struct {
	events *Table
	keys   []string
	out    *Table
	err    error
}

func newFeatureSteps(events *Table, keys ...string) *featureSteps {
	s := &featureSteps{events: events, keys: keys}
	ids, err := events.Select(keys...)
	if err != nil {
		s.err = err
		return s
	}
	s.out, s.err = ids.Distinct()
	return s
}

// where filters the events by every predicate.
func (s *featureSteps) where(preds ...rowPredicate) *Table {
	return s.events.Filter(func(r Row) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	})
}

// count adds a zero-filled row count of subset per entity.
func (s *featureSteps) count(name string, subset *Table) {
	if s.err != nil {
		return
	}
	out, err := CountFeature(s.out, subset, s.keys, name)
	if err != nil {
		s.err = fmt.Errorf("%s: %w", name, err)
		return
	}
	s.out, s.err = out.FillMissing(name, NumberCell(0))
}

// countDistinct adds a zero-filled count of distinct column values per entity.
func (s *featureSteps) countDistinct(name, column string, subset *Table) {
	if s.err != nil {
		return
	}
	pairs, err := subset.Select(append(append([]string{}, s.keys...), column)...)
	if err != nil {
		s.err = fmt.Errorf("%s: %w", name, err)
		return
	}
	distinct, err := pairs.Distinct()
	if err != nil {
		s.err = fmt.Errorf("%s: %w", name, err)
		return
	}
	s.count(name, distinct)
}

// stats adds every statistic of column over subset. Entities without values
// keep missing cells.
func (s *featureSteps) stats(prefix, column string, subset *Table) {
	if s.err != nil {
		return
	}
	out, err := StatFeature(s.out, subset, s.keys, column, AllStats, prefix)
	if err != nil {
		s.err = fmt.Errorf("%s_%s: %w", prefix, column, err)
		return
	}
	s.out = out
}

// ratio adds numerator / denominator. A zero or missing denominator gives NaN.
func (s *featureSteps) ratio(name, numerator, denominator string) {
	if s.err != nil {
		return
	}
	s.out, s.err = s.out.Derive(name, NumberColumn, func(r Row) (Cell, error) {
		return NumberCell(safeRatio(r, numerator, denominator)), nil
	})
}

func (s *featureSteps) table() (*Table, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func safeRatio(r Row, numerator, denominator string) float64 {
	num, ok := r.Number(numerator)
	if !ok {
		return math.NaN()
	}
	den, ok := r.Number(denominator)
	if !ok || den == 0 {
		return math.NaN()
	}
	return num / den
}

// withDaysGap recomputes days_gap from the raw dates of each row.
func withDaysGap(events *Table) (*Table, error) {
	return events.Drop(ColumnDaysGap).Derive(ColumnDaysGap, NumberColumn, func(r Row) (Cell, error) {
		received, used, err := rowDates(r)
		if err != nil {
			return Cell{}, err
		}
		if received == nil || used == nil {
			return MissingCell(), nil
		}
		return NumberCell(float64(DayGap(received, used))), nil
	})
}
