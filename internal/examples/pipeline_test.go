package examples

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrisconley/couponfeat/internal"
	"github.com/chrisconley/couponfeat/internal/infra"
	"github.com/chrisconley/couponfeat/specs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end runs: raw CSV files in, feature tables and a run ledger out.

const offlineTrain = `User_id,Merchant_id,Coupon_id,Discount_rate,Distance,Date_received,Date
1,10,100,150:20,1,20160501,20160510
1,10,101,0.9,null,20160502,null
2,10,null,null,0,null,20160503
2,20,102,30:5,2,20160505,20160601
`

const offlineTest = `User_id,Merchant_id,Coupon_id,Discount_rate,Distance,Date_received
1,10,200,0.8,1,20160701
3,20,201,50:10,null,20160702
`

type harness struct {
	cfg    infra.Config
	bus    *infra.Bus
	ledger *infra.Ledger
	logs   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	raw := filepath.Join(root, "raw")
	require.NoError(t, os.MkdirAll(raw, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "train.csv"), []byte(offlineTrain), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "test.csv"), []byte(offlineTest), 0o644))

	cfg := infra.DefaultConfig()
	cfg.Paths = infra.PathsConfig{
		SourceDir:  raw,
		FeatureDir: filepath.Join(root, "features"),
	}
	cfg.Files = infra.FilesConfig{Train: "train.csv", Test: "test.csv"}

	db, err := infra.OpenSQLite(filepath.Join(root, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logs := &bytes.Buffer{}
	logger := infra.NewLogger(infra.LogConfig{Level: "info", Format: "json"}, logs)
	bus := infra.NewBus()
	infra.LogEvents(bus, logger)
	ledger := infra.NewLedger(db)
	ledger.Subscribe(bus, logger)

	return &harness{cfg: cfg, bus: bus, ledger: ledger, logs: logs}
}

func (h *harness) run(t *testing.T, opts ...internal.PipelineOption) []specs.WriteReceiptSpec {
	t.Helper()
	sink, closeSink, err := infra.OpenSink(h.cfg, h.cfg.Paths.FeatureDir)
	require.NoError(t, err)
	t.Cleanup(func() { closeSink() })

	pipeline, err := internal.NewPipeline(infra.NewCSVSource(h.cfg.Paths, h.cfg.Files), sink, h.bus, specs.PipelineConfigSpec{
		Variant:        h.cfg.Variant,
		KeepMerchantID: h.cfg.KeepMerchantID,
		Parallel:       h.cfg.Parallel,
	}, opts...)
	require.NoError(t, err)

	receipts, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	return receipts
}

func readCSV(t *testing.T, path string) (header []string, rows []map[string]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, lines)

	header = lines[0]
	for _, line := range lines[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			row[name] = line[i]
		}
		rows = append(rows, row)
	}
	return header, rows
}

func TestRelationRunToCSV(t *testing.T) {
	h := newHarness(t)
	h.cfg.Parallel = true

	receipts := h.run(t)

	require.Len(t, receipts, 2)
	trainReceipt, testReceipt := receipts[0], receipts[1]

	t.Run("writes the training table without leakage columns", func(t *testing.T) {
		header, rows := readCSV(t, trainReceipt.Location)

		assert.Equal(t, "train_features", trainReceipt.Table)
		assert.NotContains(t, header, internal.ColumnDateUsed)
		assert.NotContains(t, header, internal.ColumnMerchantID)
		assert.Contains(t, header, internal.ColumnLabel)
		assert.Contains(t, header, internal.MerchantTotalSales)
		assert.Contains(t, header, internal.UserCouponReceived)
		assert.Contains(t, header, internal.UMCouponReceived)

		// The purchase without a coupon is filtered out before building.
		require.Len(t, rows, 3)
		labels := map[string]string{}
		for _, row := range rows {
			labels[row[internal.ColumnCouponID]] = row[internal.ColumnLabel]
		}
		assert.Equal(t, map[string]string{"100": "1", "101": "-1", "102": "-1"}, labels)
	})

	t.Run("writes the test table unlabelled", func(t *testing.T) {
		header, rows := readCSV(t, testReceipt.Location)

		assert.Equal(t, "test_features", testReceipt.Table)
		assert.NotContains(t, header, internal.ColumnLabel)
		assert.NotContains(t, header, internal.ColumnMerchantID)
		assert.Contains(t, header, internal.MerchantTotalCoupon)
		assert.Len(t, rows, 2)
	})

	t.Run("ledger holds one receipt per table", func(t *testing.T) {
		runs, err := h.ledger.Runs(context.Background(), trainReceipt.RunID)

		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "train_features", runs[0].Table)
		assert.Equal(t, "test_features", runs[1].Table)
		assert.Equal(t, 3, runs[0].RowCount)
	})

	t.Run("logs the run", func(t *testing.T) {
		assert.Contains(t, h.logs.String(), "table written")
		assert.Contains(t, h.logs.String(), "run completed")
	})
}

func TestBasicRunWithIntermediateTables(t *testing.T) {
	h := newHarness(t)
	h.cfg.Variant = "basic"
	h.cfg.KeepMerchantID = true
	prepDir := filepath.Join(t.TempDir(), "prep")

	receipts := h.run(t, internal.WithIntermediateSink(infra.NewCSVSink(prepDir, false)))

	require.Len(t, receipts, 4)
	assert.Equal(t, "train_prep", receipts[0].Table)
	assert.Equal(t, "train_features", receipts[1].Table)
	assert.Equal(t, "test_prep", receipts[2].Table)
	assert.Equal(t, "test_features", receipts[3].Table)

	t.Run("intermediate table keeps the used date", func(t *testing.T) {
		header, _ := readCSV(t, receipts[0].Location)

		assert.Contains(t, header, internal.ColumnDateUsed)
		assert.Contains(t, header, internal.ColumnFullCond)
	})

	t.Run("final table keeps merchant_id when asked", func(t *testing.T) {
		header, rows := readCSV(t, receipts[1].Location)

		assert.Contains(t, header, internal.ColumnMerchantID)
		assert.NotContains(t, header, internal.ColumnDateUsed)
		assert.NotContains(t, header, internal.MerchantTotalSales)
		assert.Len(t, rows, 3)
	})
}

func TestRelationRunToSQLite(t *testing.T) {
	h := newHarness(t)
	h.cfg.Output.Format = infra.FormatSQLite
	h.cfg.Output.SQLitePath = filepath.Join(t.TempDir(), "features.db")

	receipts := h.run(t)

	require.Len(t, receipts, 2)
	assert.Equal(t, h.cfg.Output.SQLitePath+"#train_features", receipts[0].Location)

	db, err := infra.OpenSQLite(h.cfg.Output.SQLitePath)
	require.NoError(t, err)
	defer db.Close()

	var positives int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM train_features WHERE label = 1`).Scan(&positives))
	assert.Equal(t, 1, positives)

	var testRows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM test_features`).Scan(&testRows))
	assert.Equal(t, 2, testRows)
}

func TestFailedRunIsLogged(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.cfg.Paths.SourceDir, "train.csv"),
		[]byte("User_id,Merchant_id,Coupon_id,Discount_rate,Distance,Date_received,Date\n1,10,100,abc,1,20160501,null\n"), 0o644))

	sink, closeSink, err := infra.OpenSink(h.cfg, h.cfg.Paths.FeatureDir)
	require.NoError(t, err)
	defer closeSink()
	pipeline, err := internal.NewPipeline(infra.NewCSVSource(h.cfg.Paths, h.cfg.Files), sink, h.bus, specs.PipelineConfigSpec{Variant: "basic"})
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, internal.ErrMalformedDiscount)
	assert.Contains(t, h.logs.String(), "run failed")
}
