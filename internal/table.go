package internal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chrisconley/couponfeat/specs"
)

type ColumnKind int

const (
	TextColumn ColumnKind = iota
	NumberColumn
)

func (k ColumnKind) ToString() string {
	if k == NumberColumn {
		return specs.ColumnKindNumber
	}
	return specs.ColumnKindText
}

// Cell is a single table value. A present number cell may still hold NaN.
type Cell struct {
	Text    string
	Number  float64
	Present bool
}

func TextCell(s string) Cell { return Cell{Text: s, Present: true} }

func NumberCell(f float64) Cell { return Cell{Number: f, Present: true} }

func MissingCell() Cell { return Cell{} }

// OptionalTextCell maps nil to a missing cell.
func OptionalTextCell(s *string) Cell {
	if s == nil {
		return MissingCell()
	}
	return TextCell(*s)
}

// Column is a named, typed, immutable sequence of cells.
type Column struct {
	name  string
	kind  ColumnKind
	cells []Cell
}

func NewColumn(name string, kind ColumnKind, cells []Cell) *Column {
	return &Column{name: name, kind: kind, cells: cells}
}

func (c *Column) Name() string { return c.name }

func (c *Column) Kind() ColumnKind { return c.kind }

func (c *Column) Len() int { return len(c.cells) }

func (c *Column) Cell(i int) Cell { return c.cells[i] }

func (c *Column) renamed(name string) *Column {
	return &Column{name: name, kind: c.kind, cells: c.cells}
}

func (c *Column) take(indices []int) *Column {
	cells := make([]Cell, len(indices))
	for i, idx := range indices {
		cells[i] = c.cells[idx]
	}
	return &Column{name: c.name, kind: c.kind, cells: cells}
}

// format renders a cell as text; ok is false for missing cells.
func (c *Column) format(i int) (string, bool) {
	cell := c.cells[i]
	if !cell.Present {
		return "", false
	}
	if c.kind == TextColumn {
		return cell.Text, true
	}
	return formatNumber(cell.Number), true
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Table is an ordered set of equal-length columns. Operations never modify
// the receiver; they return a new table that may share unchanged columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable builds a table. Column names must be unique and lengths equal.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if i == 0 {
			t.rows = col.Len()
		}
		if col.Len() != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrColumnLength, col.name, col.Len(), t.rows)
		}
		if _, exists := t.index[col.name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, col.name)
		}
		t.index[col.name] = len(t.columns)
		t.columns = append(t.columns, col)
	}
	return t, nil
}

func (t *Table) Rows() int { return t.rows }

func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.columns[i]
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.name
	}
	return names
}

func (t *Table) Row(i int) Row { return Row{table: t, index: i} }

func (t *Table) requireColumns(names ...string) error {
	for _, name := range names {
		if !t.Has(name) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
	}
	return nil
}

// Select keeps the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	if err := t.requireColumns(names...); err != nil {
		return nil, err
	}
	cols := make([]*Column, len(names))
	for i, name := range names {
		cols[i] = t.Column(name)
	}
	return t.withColumns(cols)
}

// Drop removes the named columns. Names that are not present are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	cols := make([]*Column, 0, len(t.columns))
	for _, col := range t.columns {
		if !drop[col.name] {
			cols = append(cols, col)
		}
	}
	out, _ := t.withColumns(cols)
	return out
}

func (t *Table) Rename(from, to string) (*Table, error) {
	if err := t.requireColumns(from); err != nil {
		return nil, err
	}
	if from != to && t.Has(to) {
		return nil, fmt.Errorf("%w: %q", ErrColumnExists, to)
	}
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		if col.name == from {
			col = col.renamed(to)
		}
		cols[i] = col
	}
	return t.withColumns(cols)
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	indices := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(t.Row(i)) {
			indices = append(indices, i)
		}
	}
	return t.take(indices)
}

// Derive appends a column computed from each row.
func (t *Table) Derive(name string, kind ColumnKind, fn func(Row) (Cell, error)) (*Table, error) {
	if t.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrColumnExists, name)
	}
	col, err := t.compute(name, kind, fn)
	if err != nil {
		return nil, err
	}
	return t.withColumns(append(append([]*Column{}, t.columns...), col))
}

// Replace recomputes an existing column in place, possibly changing its kind.
func (t *Table) Replace(name string, kind ColumnKind, fn func(Row) (Cell, error)) (*Table, error) {
	if err := t.requireColumns(name); err != nil {
		return nil, err
	}
	col, err := t.compute(name, kind, fn)
	if err != nil {
		return nil, err
	}
	cols := append([]*Column{}, t.columns...)
	cols[t.index[name]] = col
	return t.withColumns(cols)
}

func (t *Table) compute(name string, kind ColumnKind, fn func(Row) (Cell, error)) (*Column, error) {
	cells := make([]Cell, t.rows)
	for i := 0; i < t.rows; i++ {
		cell, err := fn(t.Row(i))
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		cells[i] = cell
	}
	return NewColumn(name, kind, cells), nil
}

// FillMissing replaces missing cells of one column. NaN cells are present and
// are left alone.
func (t *Table) FillMissing(name string, value Cell) (*Table, error) {
	col := t.Column(name)
	if col == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return t.Replace(name, col.kind, func(r Row) (Cell, error) {
		cell := col.cells[r.index]
		if !cell.Present {
			return value, nil
		}
		return cell, nil
	})
}

// Distinct drops rows whose key repeats an earlier row, keeping the first.
// With no keys the whole row is the key. Missing cells compare equal to each
// other, as do NaN cells.
func (t *Table) Distinct(keys ...string) (*Table, error) {
	cols := t.columns
	if len(keys) > 0 {
		if err := t.requireColumns(keys...); err != nil {
			return nil, err
		}
		cols = make([]*Column, len(keys))
		for i, key := range keys {
			cols[i] = t.Column(key)
		}
	}

	seen := make(map[string]bool, t.rows)
	indices := make([]int, 0, t.rows)
	var b strings.Builder
	for i := 0; i < t.rows; i++ {
		b.Reset()
		for _, col := range cols {
			if s, ok := col.format(i); ok {
				b.WriteByte('+')
				b.WriteString(s)
			} else {
				b.WriteByte('-')
			}
			b.WriteByte(keySeparator)
		}
		key := b.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		indices = append(indices, i)
	}
	return t.take(indices), nil
}

// LeftJoin merges right onto t by the key columns.
//
// Contract:
//   - every row of t appears exactly once in the result, in its original order
//   - key tuples in right must be unique, otherwise ErrDuplicateJoinKey
//   - right's non-key columns are appended and must not already exist in t
//   - rows of t without a match, or with a missing key cell, get missing cells
//
// Filling the missing cells is left to the caller.
func (t *Table) LeftJoin(right *Table, keys ...string) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("left join needs at least one key column")
	}
	if err := t.requireColumns(keys...); err != nil {
		return nil, fmt.Errorf("left table: %w", err)
	}
	if err := right.requireColumns(keys...); err != nil {
		return nil, fmt.Errorf("right table: %w", err)
	}

	isKey := make(map[string]bool, len(keys))
	for _, key := range keys {
		isKey[key] = true
	}
	var appended []*Column
	for _, col := range right.columns {
		if isKey[col.name] {
			continue
		}
		if t.Has(col.name) {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, col.name)
		}
		appended = append(appended, col)
	}

	rightRows := make(map[string]int, right.rows)
	for i := 0; i < right.rows; i++ {
		key, ok := right.groupKey(i, keys)
		if !ok {
			continue
		}
		if _, dup := rightRows[key]; dup {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateJoinKey, strings.Split(key, string(keySeparator)))
		}
		rightRows[key] = i
	}

	matches := make([]int, t.rows)
	for i := 0; i < t.rows; i++ {
		matches[i] = -1
		if key, ok := t.groupKey(i, keys); ok {
			if j, found := rightRows[key]; found {
				matches[i] = j
			}
		}
	}

	cols := append([]*Column{}, t.columns...)
	for _, col := range appended {
		cells := make([]Cell, t.rows)
		for i, j := range matches {
			if j >= 0 {
				cells[i] = col.cells[j]
			}
		}
		cols = append(cols, NewColumn(col.name, col.kind, cells))
	}
	return t.withColumns(cols)
}

const keySeparator = '\x1f'

// groupKey joins the key cells of row i. ok is false if any key cell is missing.
func (t *Table) groupKey(i int, keys []string) (string, bool) {
	parts := make([]string, len(keys))
	for k, key := range keys {
		s, ok := t.Column(key).format(i)
		if !ok {
			return "", false
		}
		parts[k] = s
	}
	return strings.Join(parts, string(keySeparator)), true
}

func (t *Table) take(indices []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, col := range t.columns {
		cols[i] = col.take(indices)
	}
	out, _ := NewTable(cols...)
	if len(cols) == 0 {
		out.rows = len(indices)
	}
	return out
}

func (t *Table) withColumns(cols []*Column) (*Table, error) {
	out, err := NewTable(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out, nil
}

// ToSpec converts the table to specs.FeatureTableSpec.
func (t *Table) ToSpec(name string) specs.FeatureTableSpec {
	columns := make([]specs.ColumnSpec, len(t.columns))
	for j, col := range t.columns {
		values := make([]*string, t.rows)
		for i := 0; i < t.rows; i++ {
			if s, ok := col.format(i); ok {
				values[i] = &s
			}
		}
		columns[j] = specs.ColumnSpec{
			Name:   col.name,
			Kind:   col.kind.ToString(),
			Values: values,
		}
	}
	return specs.FeatureTableSpec{
		Name:     name,
		Columns:  columns,
		RowCount: t.rows,
	}
}

// Row is a read-only view of one table row.
type Row struct {
	table *Table
	index int
}

func (r Row) Index() int { return r.index }

// Cell returns the named cell. Absent columns read as missing.
func (r Row) Cell(name string) Cell {
	col := r.table.Column(name)
	if col == nil {
		return MissingCell()
	}
	return col.cells[r.index]
}

// Present reports whether the named cell exists and is not missing.
func (r Row) Present(name string) bool {
	return r.Cell(name).Present
}

// Text returns the named cell as text, formatting numbers.
func (r Row) Text(name string) (string, bool) {
	col := r.table.Column(name)
	if col == nil {
		return "", false
	}
	return col.format(r.index)
}

// Number returns the named cell as a number, parsing text. ok is false when
// the cell is missing or the text is not numeric.
func (r Row) Number(name string) (float64, bool) {
	col := r.table.Column(name)
	if col == nil {
		return 0, false
	}
	cell := col.cells[r.index]
	if !cell.Present {
		return 0, false
	}
	if col.kind == NumberColumn {
		return cell.Number, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(cell.Text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Date returns the named cell as a Date8, nil when missing.
func (r Row) Date(name string) (*Date8, error) {
	s, ok := r.Text(name)
	if !ok {
		return nil, nil
	}
	d, err := ParseDate8(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
