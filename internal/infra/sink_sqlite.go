package infra

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/chrisconley/couponfeat/specs"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// OpenSQLite opens a SQLite database at the given path and runs migrations.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// SQLiteSink replaces one table per feature table in a SQLite database.
// Number columns are REAL, text columns TEXT, missing cells NULL. NaN is kept
// as the text "NaN" since SQLite would otherwise store it as NULL.
type SQLiteSink struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

func NewSQLiteSink(db *sql.DB, path string) *SQLiteSink {
	return &SQLiteSink{db: db, path: path, now: time.Now}
}

func (s *SQLiteSink) Write(ctx context.Context, table specs.FeatureTableSpec) (specs.WriteReceiptSpec, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	name := quoteIdent(table.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("drop %s: %w", table.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table)); err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("create %s: %w", table.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table))
	if err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < table.RowCount; i++ {
		if _, err := stmt.ExecContext(ctx, rowArgs(table, i)...); err != nil {
			return specs.WriteReceiptSpec{}, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("commit: %w", err)
	}
	return receipt(table, s.path+"#"+table.Name, FormatSQLite, s.now), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createTableSQL(table specs.FeatureTableSpec) string {
	defs := make([]string, len(table.Columns))
	for j, col := range table.Columns {
		typ := "TEXT"
		if col.Kind == specs.ColumnKindNumber {
			typ = "REAL"
		}
		defs[j] = quoteIdent(col.Name) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table.Name), strings.Join(defs, ", "))
}

func insertSQL(table specs.FeatureTableSpec) string {
	names := make([]string, len(table.Columns))
	marks := make([]string, len(table.Columns))
	for j, col := range table.Columns {
		names[j] = quoteIdent(col.Name)
		marks[j] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table.Name), strings.Join(names, ", "), strings.Join(marks, ", "))
}

// rowArgs binds present cells as text and lets column affinity convert
// numbers. Missing cells become NULL.
func rowArgs(table specs.FeatureTableSpec, row int) []any {
	args := make([]any, len(table.Columns))
	for j, v := range table.Row(row) {
		if v == nil {
			args[j] = nil
			continue
		}
		args[j] = *v
	}
	return args
}
