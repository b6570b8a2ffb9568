package pipeline

import (
	"context"

	"go-report-stream/internal/model"
)

// Stream is the lazy, pull-based consumer handle of a running pipeline.
// Every Next call releases one record's worth of demand, which propagates
// upstream through the aggregator to the producer and source. No error ever
// crosses the stream except the caller's own context: a failed pipeline
// simply ends the stream early, and callers must check pipeline status.
type Stream struct {
	ch <-chan model.Record
}

// Next blocks until a record is ready or the stream ends. The second return
// is false exactly once, at end-of-stream.
func (s *Stream) Next(ctx context.Context) (model.Record, bool, error) {
	select {
	case rec, ok := <-s.ch:
		if !ok {
			return nil, false, nil
		}
		return rec, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Collect drains the stream into a slice. Intended for tests and small
// result sets; report rendering should pull with Next instead.
func (s *Stream) Collect(ctx context.Context) ([]model.Record, error) {
	var out []model.Record
	for {
		rec, ok, err := s.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}

// Drain pulls the stream to end-of-stream, discarding records.
func (s *Stream) Drain(ctx context.Context) error {
	for {
		_, ok, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}
