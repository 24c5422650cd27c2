// Package postgres adapts a PostgreSQL table into an engine.RecordSource:
// a lazy, single-pass sequence of records. Rows stream through an open
// cursor rather than being collected into memory, so arbitrarily large
// tables profile in constant space.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apicrafter/metacrafter-go/pkg/retry"
)

// Config contains PostgreSQL connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
}

func (c Config) sslMode() string {
	if c.SSLMode == "" {
		return "require"
	}
	return c.SSLMode
}

func (c Config) connString() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		c.sslMode(),
	)
}

// Open establishes a connection pool for Config, retrying pool creation and
// the initial ping with exponential backoff: a database that is still
// coming up (common right after a container restart) otherwise turns into a
// hard failure on the very first scan attempt.
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		return pgxpool.New(ctx, cfg.connString())
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// TableSource streams a table's rows as engine.RecordSource records. It
// holds one open *pgx.Rows cursor for its whole lifetime; Close must be
// called once the scan is done (or abandoned).
type TableSource struct {
	rows    pgx.Rows
	columns []string
	closed  bool
}

// NewTableSource runs `SELECT * FROM <schema>.<table>` and returns a
// streaming source over its result set. schema may be empty to use the
// search_path default.
func NewTableSource(ctx context.Context, pool *pgxpool.Pool, schema, table string) (*TableSource, error) {
	qualified := pgx.Identifier{table}.Sanitize()
	if schema != "" {
		qualified = pgx.Identifier{schema, table}.Sanitize()
	}
	rows, err := pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s", qualified))
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", table, err)
	}

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
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

	values, err := s.rows.Values()
	if err != nil {
		return nil, false, fmt.Errorf("read row values: %w", err)
	}

	record := make(map[string]any, len(s.columns))
	for i, col := range s.columns {
		record[col] = values[i]
	}
	return record, true, nil
}

// Close releases the underlying cursor. Safe to call multiple times.
func (s *TableSource) Close() {
	if s.closed {
		return
	}
	s.rows.Close()
	s.closed = true
}
