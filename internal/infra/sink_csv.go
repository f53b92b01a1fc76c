package infra

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chrisconley/couponfeat/specs"
	"github.com/golang/snappy"
)

// CSVSink writes each table to <Dir>/<name>.csv, or <name>.csv.sz through a
// snappy framed writer when Compress is set. Missing cells are written empty.
type CSVSink struct {
	Dir      string
	Compress bool
	now      func() time.Time
}

func NewCSVSink(dir string, compress bool) *CSVSink {
	return &CSVSink{Dir: dir, Compress: compress, now: time.Now}
}

func (s *CSVSink) Write(ctx context.Context, table specs.FeatureTableSpec) (specs.WriteReceiptSpec, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("create %s: %w", s.Dir, err)
	}

	name := table.Name + ".csv"
	if s.Compress {
		name += snappyExt
	}
	path := filepath.Join(s.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var sw *snappy.Writer
	if s.Compress {
		sw = snappy.NewBufferedWriter(f)
		w = sw
	}

	if err := writeCSV(ctx, w, table); err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("write %s: %w", path, err)
	}
	if sw != nil {
		if err := sw.Close(); err != nil {
			return specs.WriteReceiptSpec{}, fmt.Errorf("flush %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("close %s: %w", path, err)
	}

	return receipt(table, path, FormatCSV, s.now), nil
}

func writeCSV(ctx context.Context, w io.Writer, table specs.FeatureTableSpec) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header()); err != nil {
		return err
	}

	record := make([]string, len(table.Columns))
	for i := 0; i < table.RowCount; i++ {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, v := range table.Row(i) {
			record[j] = ""
			if v != nil {
				record[j] = *v
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
