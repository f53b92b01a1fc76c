package specs

import "time"

const (
	ColumnKindText   = "text"
	ColumnKindNumber = "number"
)

// FeatureTableSpec is a finished feature table ready to be written to a sink.
//
// Tables are column-major: every column holds exactly RowCount values. Numbers
// are rendered as decimal strings, "NaN" marks a ratio whose denominator was
// zero or missing, and a nil value marks a missing cell.
type FeatureTableSpec struct {
	// Table name, used as the file stem or database table name by sinks.
	//
	// Examples: "train_features", "test_features", "train_prep".
	Name string `json:"name"`

	// Columns in output order.
	Columns []ColumnSpec `json:"columns"`

	// Number of rows in every column.
	RowCount int `json:"rowCount"`
}

// ColumnSpec is one named, typed column of a FeatureTableSpec.
type ColumnSpec struct {
	// Column name, for example "user_id" or "merchant_total_sales".
	Name string `json:"name"`

	// Either ColumnKindText or ColumnKindNumber.
	//
	// Sinks with typed storage (SQLite, spreadsheets) use it to pick a cell type.
	Kind string `json:"kind"`

	// Cell values, nil for missing.
	Values []*string `json:"values"`
}

// Header returns the column names in order.
func (t FeatureTableSpec) Header() []string {
	header := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Name
	}
	return header
}

// Row returns the cells of row i in column order.
func (t FeatureTableSpec) Row(i int) []*string {
	row := make([]*string, len(t.Columns))
	for j, col := range t.Columns {
		row[j] = col.Values[i]
	}
	return row
}

// WriteReceiptSpec confirms that a feature table reached its sink.
type WriteReceiptSpec struct {
	// Identifier shared by every table written during one pipeline run.
	RunID string `json:"runID"`

	// Name of the table that was written.
	Table string `json:"table"`

	// Where the table was written: a file path, or "path#table" for SQLite.
	Location string `json:"location"`

	// Object-storage URL of the uploaded copy, empty when no upload happened.
	RemoteLocation string `json:"remoteLocation,omitempty"`

	// Output format: "csv", "xlsx" or "sqlite".
	Format string `json:"format"`

	// Number of data rows written, excluding any header.
	RowCount int `json:"rowCount"`

	// System time the write completed.
	WrittenAt time.Time `json:"writtenAt"`
}
