package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"go-report-stream/internal/model"
	"go-report-stream/internal/source"
	"go-report-stream/internal/telemetry"
)

// Producer pulls pages from the source adapter and emits fixed-size chunks
// into a bounded channel. The channel capacity is the demand window: the
// producer can never run further ahead of the slowest consumer than that.
type Producer struct {
	pipelineID string
	src        source.Source
	chunkSize  int
	gate       *gate
	out        chan model.Chunk
	events     *telemetry.Events
	log        zerolog.Logger
}

func newProducer(pipelineID string, src source.Source, chunkSize, window int, g *gate, events *telemetry.Events, log zerolog.Logger) *Producer {
	return &Producer{
		pipelineID: pipelineID,
		src:        src,
		chunkSize:  chunkSize,
		gate:       g,
		out:        make(chan model.Chunk, window),
		events:     events,
		log:        log.With().Str("stage", "producer").Logger(),
	}
}

// run fetches until the source is exhausted or fails. The caller closes
// p.out after run returns; end-of-stream is a one-time terminal event for
// every downstream stage. Source errors are returned as-is and are fatal to
// the pipeline; the producer never retries.
func (p *Producer) run(ctx context.Context) error {
	var (
		seq   uint64
		start uint64
		buf   []model.Record
	)

	emit := func() error {
		chunk := model.Chunk{Seq: seq, Start: start, Records: buf}
		select {
		case p.out <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
		p.events.ChunkFetched(p.pipelineID, seq, len(buf))
		seq++
		start += uint64(len(buf))
		buf = nil
		return nil
	}

	for {
		// Pause halts new demand only; anything already buffered drains.
		if err := p.gate.Wait(ctx); err != nil {
			return err
		}

		page, err := p.src.NextPage(ctx, p.chunkSize-len(buf))
		if err != nil {
			return err
		}
		if len(page) == 0 {
			if len(buf) > 0 {
				if err := emit(); err != nil {
					return err
				}
			}
			p.log.Debug().Uint64("chunks", seq).Uint64("records", start).
				Msg("source exhausted")
			return nil
		}

		buf = append(buf, page...)
		if len(buf) >= p.chunkSize {
			if err := emit(); err != nil {
				return err
			}
		}
	}
}
