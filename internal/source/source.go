// Package source defines the paged data-source boundary the producer pulls
// from. The pipeline never sees cursors or queries, only "fetch the next
// page"; retries and connection management belong behind this interface.
package source

import (
	"context"

	"go-report-stream/internal/model"
)

// Source is a paged record source. NextPage returns at most limit records;
// an empty page signals exhaustion, which is terminal. Implementations are
// pulled from a single goroutine and need no internal locking.
type Source interface {
	NextPage(ctx context.Context, limit int) ([]model.Record, error)
	Close() error
}

// Sized is implemented by sources that know their total record count up
// front. The count is advisory, used only for progress metadata.
type Sized interface {
	TotalRecords() int64
}

// Validator is implemented by sources that can be checked before the
// pipeline spawns its stages, e.g. by pinging a database connection.
type Validator interface {
	Validate(ctx context.Context) error
}

// SliceSource serves records from memory. Used by tests and by callers that
// already hold their dataset.
type SliceSource struct {
	records []model.Record
	pos     int
}

// NewSliceSource wraps records in a Source.
func NewSliceSource(records []model.Record) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) NextPage(ctx context.Context, limit int) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, nil
	}
	end := s.pos + limit
	if end > len(s.records) {
		end = len(s.records)
	}
	page := s.records[s.pos:end]
	s.pos = end
	return page, nil
}

func (s *SliceSource) Close() error { return nil }

// TotalRecords implements Sized.
func (s *SliceSource) TotalRecords() int64 { return int64(len(s.records)) }
