package infra

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chrisconley/couponfeat/specs"
	"github.com/xuri/excelize/v2"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// XLSXSink writes each table to <Dir>/<name>.xlsx as a single sheet with a
// bold header row. Number columns are stored as numbers except NaN, which
// Excel cannot represent and is stored as the text "NaN".
type XLSXSink struct {
	Dir string
	now func() time.Time
}

func NewXLSXSink(dir string) *XLSXSink {
	return &XLSXSink{Dir: dir, now: time.Now}
}

func (s *XLSXSink) Write(ctx context.Context, table specs.FeatureTableSpec) (specs.WriteReceiptSpec, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("create %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, table.Name+".xlsx")

	f, err := buildWorkbook(ctx, table)
	if err != nil {
		return specs.WriteReceiptSpec{}, err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("save %s: %w", path, err)
	}
	return receipt(table, path, FormatXLSX, s.now), nil
}

func sheetName(table string) string {
	if len(table) > maxSheetName {
		return table[:maxSheetName]
	}
	return table
}

func buildWorkbook(ctx context.Context, table specs.FeatureTableSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := sheetName(table.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(table.Columns))
	for j, name := range table.Header() {
		header[j] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
	})
	if err == nil && len(table.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	row := make([]any, len(table.Columns))
	for i := 0; i < table.RowCount; i++ {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				f.Close()
				return nil, err
			}
		}
		for j, v := range table.Row(i) {
			row[j] = xlsxValue(table.Columns[j].Kind, v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return f, nil
}

func xlsxValue(kind string, v *string) any {
	if v == nil {
		return nil
	}
	if kind == specs.ColumnKindNumber {
		if f, err := strconv.ParseFloat(*v, 64); err == nil && !math.IsNaN(f) {
			return f
		}
	}
	return *v
}
