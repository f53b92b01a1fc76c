package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chrisconley/couponfeat/specs"
	"github.com/rs/zerolog"
)

// Ledger records every written table in the feature_runs table.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Record(ctx context.Context, r specs.WriteReceiptSpec) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO feature_runs (run_id, table_name, location, remote_location, format, row_count, written_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Table, r.Location, r.RemoteLocation, r.Format, r.RowCount, r.WrittenAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", r.Table, err)
	}
	return nil
}

// Runs returns the receipts recorded for runID in insertion order.
func (l *Ledger) Runs(ctx context.Context, runID string) ([]specs.WriteReceiptSpec, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, table_name, location, remote_location, format, row_count, written_at
		 FROM feature_runs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var receipts []specs.WriteReceiptSpec
	for rows.Next() {
		var r specs.WriteReceiptSpec
		var writtenAt string
		if err := rows.Scan(&r.RunID, &r.Table, &r.Location, &r.RemoteLocation, &r.Format, &r.RowCount, &writtenAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.WrittenAt, err = time.Parse(time.RFC3339Nano, writtenAt)
		if err != nil {
			return nil, fmt.Errorf("parse written_at: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// Subscribe records each TableWritten event. Failures are logged; a missing
// ledger row never fails the run.
func (l *Ledger) Subscribe(bus *Bus, logger zerolog.Logger) {
	bus.Subscribe(TableWritten, func(e Event) {
		r := e.(TableWrittenEvent).Receipt
		if err := l.Record(context.Background(), r); err != nil {
			logger.Warn().Err(err).Str("run_id", r.RunID).Msg("ledger write failed")
		}
	})
}
