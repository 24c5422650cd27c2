// Package mssql adapts a SQL Server table into an engine.RecordSource.
// SQL authentication only; the DSN carries everything the driver needs.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssqldriver "github.com/microsoft/go-mssqldb"

	"github.com/apicrafter/metacrafter-go/pkg/retry"
)

// Config contains SQL Server connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Encrypt  bool
}

func (c Config) dsn() string {
	query := fmt.Sprintf("database=%s&encrypt=%t", c.Database, c.Encrypt)
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s", c.User, c.Password, c.Host, c.Port, query)
}

// Open establishes a *sql.DB for Config using the mssql driver, retrying the
// initial ping with exponential backoff since sql.Open itself never touches
// the network (the driver connects lazily on first use).
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open sqlserver: %w", err)
	}
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}
	return db, nil
}

// TableSource streams a table's rows as engine.RecordSource records.
type TableSource struct {
	rows    *sql.Rows
	columns []string
	closed  bool
}

// NewTableSource runs `SELECT * FROM [schema].[table]` and returns a
// streaming source over its result set. schema may be empty for "dbo".
func NewTableSource(ctx context.Context, db *sql.DB, schema, table string) (*TableSource, error) {
	if schema == "" {
		schema = "dbo"
	}
	qualified := fmt.Sprintf("[%s].[%s]", schema, table)
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", qualified))
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", table, err)
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}

	return &TableSource{rows: rows, columns: columns}, nil
}

// Next implements engine.RecordSource.
func (s *TableSource) Next(ctx context.Context) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, false, fmt.Errorf("iterate rows: %w", err)
		}
		return nil, false, nil
	}

	values := make([]any, len(s.columns))
	scanDest := make([]any, len(s.columns))
	for i := range values {
		scanDest[i] = &values[i]
	}
	if err := s.rows.Scan(scanDest...); err != nil {
		return nil, false, fmt.Errorf("scan row: %w", err)
	}

	record := make(map[string]any, len(s.columns))
	for i, col := range s.columns {
		record[col] = normalizeValue(values[i])
	}
	return record, true, nil
}

// normalizeValue converts mssql driver-specific types (e.g.
// uniqueidentifier) into the plain scalars engine.RecordSource's contract
// allows.
func normalizeValue(v any) any {
	if guid, ok := v.(mssqldriver.UniqueIdentifier); ok {
		return guid.String()
	}
	return v
}

// Close releases the underlying cursor. Safe to call multiple times.
func (s *TableSource) Close() {
	if s.closed {
		return
	}
	s.rows.Close()
	s.closed = true
}
