package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/chrisconley/couponfeat/specs"
)

// Sink stores a finished table and reports where it went.
type Sink interface {
	Write(ctx context.Context, table specs.FeatureTableSpec) (specs.WriteReceiptSpec, error)
}

// OpenSink builds the sink selected by cfg.Output for dir. SQLite output
// opens cfg.Output.SQLitePath; the returned close function releases it and is
// never nil. When S3 is configured the sink also uploads every file it writes.
func OpenSink(cfg Config, dir string) (Sink, func() error, error) {
	noop := func() error { return nil }

	var sink Sink
	closeFn := noop
	switch cfg.Output.Format {
	case FormatCSV, "":
		sink = NewCSVSink(dir, cfg.Output.Compress)
	case FormatXLSX:
		sink = NewXLSXSink(dir)
	case FormatSQLite:
		db, err := OpenSQLite(cfg.Output.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		sink = NewSQLiteSink(db, cfg.Output.SQLitePath)
		closeFn = db.Close
	default:
		return nil, noop, fmt.Errorf("unknown output format %q", cfg.Output.Format)
	}

	if cfg.S3.Enabled() && cfg.Output.Format != FormatSQLite {
		sink = NewUploadingSink(sink, newS3Client(cfg.S3), cfg.S3.Bucket, cfg.S3.Prefix)
	}
	return sink, closeFn, nil
}

func receipt(table specs.FeatureTableSpec, location, format string, now func() time.Time) specs.WriteReceiptSpec {
	return specs.WriteReceiptSpec{
		Table:     table.Name,
		Location:  location,
		Format:    format,
		RowCount:  table.RowCount,
		WrittenAt: now().UTC(),
	}
}
