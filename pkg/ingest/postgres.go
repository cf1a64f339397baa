package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table read when the source URI names none.
const DefaultTable = "corridors"

// PostgresSource reads corridors from a PostgreSQL table. Every column of the
// table becomes a row column.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
	name  string
}

// NewPostgresSource opens a small connection pool and verifies it.
func NewPostgresSource(ctx context.Context, databaseURL, table string) (*PostgresSource, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Ingest runs one query per reload.
	config.MaxConns = 4
	config.MinConns = 0
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if table == "" {
		table = DefaultTable
	}
	name := fmt.Sprintf("postgres://%s:%d/%s?table=%s",
		config.ConnConfig.Host, config.ConnConfig.Port, config.ConnConfig.Database, table)
	return &PostgresSource{pool: pool, table: table, name: name}, nil
}

// Name returns the connection target without credentials.
func (s *PostgresSource) Name() string { return s.name }

// Rows selects the whole table.
func (s *PostgresSource) Rows(ctx context.Context) ([]Row, error) {
	query := "SELECT * FROM " + pgx.Identifier{s.table}.Sanitize()
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = pgValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	return out, nil
}

// Ping checks database connectivity.
func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}

// pgValue renders a decoded column value. NUMERIC columns arrive as
// pgtype.Numeric and are converted through float64.
func pgValue(v any) string {
	if n, ok := v.(pgtype.Numeric); ok {
		if !n.Valid || n.NaN {
			return ""
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return formatValue(f.Float64)
	}
	return formatValue(v)
}
