package infra

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chrisconley/couponfeat/specs"
	"github.com/golang/snappy"
)

// snappyExt marks snappy-framed files on both the read and write side.
const snappyExt = ".sz"

// trainColumns is the positional schema of the training file. The test file
// has the same columns minus the last one.
var trainColumns = []string{"user_id", "merchant_id", "coupon_id", "discount_rate", "distance", "date_received", "date"}

// CSVSource reads the train and test files from Dir. The header row is
// skipped and columns are bound by position, so upstream header spellings do
// not matter. Files ending in .sz are read through a snappy decoder.
type CSVSource struct {
	Dir   string
	Files FilesConfig
}

func NewCSVSource(paths PathsConfig, files FilesConfig) *CSVSource {
	return &CSVSource{Dir: paths.SourceDir, Files: files}
}

func (s *CSVSource) Load(ctx context.Context, split specs.Split) ([]specs.EventRecordSpec, error) {
	var name string
	switch split {
	case specs.SplitTrain:
		name = s.Files.Train
	case specs.SplitTest:
		name = s.Files.Test
	default:
		return nil, fmt.Errorf("unknown split %q", split)
	}

	path := filepath.Join(s.Dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(name, snappyExt) {
		r = snappy.NewReader(f)
	}

	records, err := readEventRecords(ctx, r, split == specs.SplitTrain)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func readEventRecords(ctx context.Context, r io.Reader, withUsedDate bool) ([]specs.EventRecordSpec, error) {
	columns := len(trainColumns)
	if !withUsedDate {
		columns--
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = columns
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("header: %w", err)
	}

	var records []specs.EventRecordSpec
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		record := specs.EventRecordSpec{
			UserID:       strings.TrimSpace(fields[0]),
			MerchantID:   strings.TrimSpace(fields[1]),
			CouponID:     field(fields[2]),
			DiscountRate: field(fields[3]),
			Distance:     field(fields[4]),
			DateReceived: field(fields[5]),
		}
		if withUsedDate {
			record.DateUsed = field(fields[6])
		}
		records = append(records, record)
	}
	return records, nil
}

// field copies a raw CSV value, mapping missing markers to nil.
func field(raw string) *string {
	if specs.IsMissing(raw) {
		return nil
	}
	s := strings.TrimSpace(raw)
	return &s
}
