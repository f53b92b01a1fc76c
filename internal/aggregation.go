package internal

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CountFeature counts the rows of events per group and left-joins the count
// onto ids as featureName. Ids without events get a missing count; callers
// decide how to fill it.
func CountFeature(ids, events *Table, groupKeys []string, featureName string) (*Table, error) {
	groups, err := groupRows(events, groupKeys)
	if err != nil {
		return nil, err
	}

	counts := make([]Cell, len(groups.order))
	for i, key := range groups.order {
		counts[i] = NumberCell(float64(len(groups.rows[key])))
	}

	right, err := groups.keyTable(NewColumn(featureName, NumberColumn, counts))
	if err != nil {
		return nil, err
	}
	return ids.LeftJoin(right, groupKeys...)
}

// StatFeature computes each op over valueColumn per group and left-joins the
// results onto ids as {namePrefix}_{valueColumn}_{op}. Missing values are
// skipped; a group with no values gets a missing statistic.
func StatFeature(ids, events *Table, groupKeys []string, valueColumn string, ops []StatOp, namePrefix string) (*Table, error) {
	if err := events.requireColumns(valueColumn); err != nil {
		return nil, err
	}
	groups, err := groupRows(events, groupKeys)
	if err != nil {
		return nil, err
	}

	values := make([][]float64, len(groups.order))
	for i, key := range groups.order {
		for _, row := range groups.rows[key] {
			r := events.Row(row)
			if !r.Present(valueColumn) {
				continue
			}
			v, ok := r.Number(valueColumn)
			if !ok {
				text, _ := r.Text(valueColumn)
				return nil, fmt.Errorf("%w: %q in column %q", ErrNonNumeric, text, valueColumn)
			}
			values[i] = append(values[i], v)
		}
	}

	columns := make([]*Column, len(ops))
	for j, op := range ops {
		cells := make([]Cell, len(groups.order))
		for i := range groups.order {
			if len(values[i]) == 0 {
				continue
			}
			cells[i] = NumberCell(op.Apply(values[i]))
		}
		columns[j] = NewColumn(fmt.Sprintf("%s_%s_%s", namePrefix, valueColumn, op.ToString()), NumberColumn, cells)
	}

	right, err := groups.keyTable(columns...)
	if err != nil {
		return nil, err
	}
	return ids.LeftJoin(right, groupKeys...)
}

// rowGroups holds row indices per group key in first-seen order.
type rowGroups struct {
	table *Table
	keys  []string
	order []string
	rows  map[string][]int
}

func groupRows(t *Table, keys []string) (rowGroups, error) {
	if len(keys) == 0 {
		return rowGroups{}, fmt.Errorf("grouping needs at least one key column")
	}
	if err := t.requireColumns(keys...); err != nil {
		return rowGroups{}, err
	}
	g := rowGroups{table: t, keys: keys, rows: make(map[string][]int)}
	for i := 0; i < t.Rows(); i++ {
		key, ok := t.groupKey(i, keys)
		if !ok {
			continue
		}
		if _, seen := g.rows[key]; !seen {
			g.order = append(g.order, key)
		}
		g.rows[key] = append(g.rows[key], i)
	}
	return g, nil
}

// keyTable builds one row per group: the key columns taken from the group's
// first row, followed by the given value columns.
func (g rowGroups) keyTable(values ...*Column) (*Table, error) {
	first := make([]int, len(g.order))
	for i, key := range g.order {
		first[i] = g.rows[key][0]
	}
	cols := make([]*Column, 0, len(g.keys)+len(values))
	for _, key := range g.keys {
		cols = append(cols, g.table.Column(key).take(first))
	}
	return NewTable(append(cols, values...)...)
}

// StatOp is a named summary statistic.
type StatOp struct {
	value string
}

var (
	StatMax    = StatOp{value: "max"}
	StatMin    = StatOp{value: "min"}
	StatMean   = StatOp{value: "mean"}
	StatMedian = StatOp{value: "median"}

	// AllStats is the order used for every statistic feature.
	AllStats = []StatOp{StatMax, StatMin, StatMean, StatMedian}
)

func NewStatOp(value string) (StatOp, error) {
	switch value {
	case "max", "min", "mean", "median":
		return StatOp{value: value}, nil
	default:
		return StatOp{}, fmt.Errorf("%w: %q", ErrUnknownStatistic, value)
	}
}

func (o StatOp) ToString() string {
	return o.value
}

// Apply computes the statistic. values must be non-empty.
func (o StatOp) Apply(values []float64) float64 {
	switch o.value {
	case "max":
		return floats.Max(values)
	case "min":
		return floats.Min(values)
	case "mean":
		return stat.Mean(values, nil)
	case "median":
		return median(values)
	default:
		return math.NaN()
	}
}

// median averages the two middle values for even-length input.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
