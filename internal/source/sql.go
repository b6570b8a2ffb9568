package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"go-report-stream/internal/model"
)

// SQLSource pages through the result set of a SQL query using LIMIT/OFFSET.
// The query must be stable between pages (no ORDER BY randomness); the
// source does not retry, a failed page is fatal to the pipeline.
type SQLSource struct {
	db     *sql.DB
	query  string
	offset int64
	ownsDB bool
	done   bool
}

// OpenSQL opens a database connection and wraps query as a paged source.
// The query must not already carry LIMIT or OFFSET clauses.
func OpenSQL(driver, dsn, query string) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", driver, err)
	}
	return &SQLSource{db: db, query: query, ownsDB: true}, nil
}

// NewSQLSource wraps an existing connection. Close leaves the connection open.
func NewSQLSource(db *sql.DB, query string) *SQLSource {
	return &SQLSource{db: db, query: query}
}

// Validate implements Validator by pinging the database, so a dead
// connection fails the pipeline at start time instead of mid-stream.
func (s *SQLSource) Validate(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLSource) NextPage(ctx context.Context, limit int) ([]model.Record, error) {
	if s.done {
		return nil, nil
	}
	paged := fmt.Sprintf("%s LIMIT %d OFFSET %d", s.query, limit, s.offset)
	rows, err := s.db.QueryContext(ctx, paged)
	if err != nil {
		return nil, fmt.Errorf("query page at offset %d: %w", s.offset, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var page []model.Record
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(model.Record, len(cols))
		for i, col := range cols {
			rec[col] = normalize(raw[i])
		}
		page = append(page, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.offset += int64(len(page))
	if len(page) < limit {
		s.done = true
	}
	return page, nil
}

func (s *SQLSource) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// normalize maps driver byte slices to strings so records compare and
// serialize predictably.
func normalize(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
