package engine

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
	"github.com/erisonnicodemos/QuickIngestFile/internal/repository"
)

// pipelineBufferSize bounds how many parsed rows can sit between the
// parser goroutine and the batching/persisting goroutine before the
// parser blocks, capping peak memory regardless of file size (spec §5).
const pipelineBufferSize = 10000

// Counters is the atomically-updated running total a Pipeline exposes
// while it runs, so a concurrent progress read never takes a lock.
type Counters struct {
	Processed int64
	Failed    int64
}

// Load reads a consistent snapshot of both counters.
func (c *Counters) Load() (processed, failed int64) {
	return atomic.LoadInt64(&c.Processed), atomic.LoadInt64(&c.Failed)
}

// Pipeline streams a job's rows from its parser to its repository in
// fixed-size batches, joining the producer (parse) and consumer
// (persist) goroutines with an errgroup so either side's error cancels
// the other (spec §4.8, grounded on the teacher's processStreamingRecords
// two-phase read/flush loop in internal/core/upload.go, restructured here
// as an explicit producer/consumer pair per the pipeline's own
// concurrency model).
type Pipeline struct {
	Repo      repository.RecordRepository
	BatchSize int
	Counters  Counters
}

// NewPipeline returns a Pipeline with the spec's default batch size.
func NewPipeline(repo repository.RecordRepository) *Pipeline {
	return &Pipeline{Repo: repo, BatchSize: 1000}
}

// Run drains p's rows to the repository in batches. It returns once the
// parser's row channel closes, its error channel reports a terminal
// error, or ctx is cancelled. A batch write failure is a terminal
// pipeline error (PersistenceFailure); a malformed-row ParsedRow is not —
// it increments Counters.Failed and continues, per spec §4.8's row-level
// fault isolation.
func (pl *Pipeline) Run(ctx context.Context, jobID string, p parser.Parser, source parser.Source, opts parser.Options) error {
	opts = opts.WithDefaults()
	if pl.BatchSize <= 0 {
		pl.BatchSize = opts.BatchSize
	}
	rows, perrc := p.ParseStream(ctx, source, opts)

	batchBuffer := pipelineBufferSize / pl.BatchSize
	if batchBuffer < 2 {
		batchBuffer = 2
	}
	batches := make(chan []model.Record, batchBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		batch := make([]model.Record, 0, pl.BatchSize)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([]model.Record, 0, pl.BatchSize)
			return nil
		}

		for row := range rows {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if !row.OK {
				atomic.AddInt64(&pl.Counters.Failed, 1)
				continue
			}

			batch = append(batch, model.Record{JobID: jobID, RowNumber: row.RowNumber, Data: row.Data})
			if len(batch) >= pl.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	g.Go(func() error {
		for batch := range batches {
			inserted, err := pl.Repo.InsertBatch(gctx, jobID, batch)
			if err != nil {
				return model.NewKindError(model.FailurePersistence, "inserting batch", err)
			}
			atomic.AddInt64(&pl.Counters.Processed, inserted)
			if failedInBatch := int64(len(batch)) - inserted; failedInBatch > 0 {
				atomic.AddInt64(&pl.Counters.Failed, failedInBatch)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	select {
	case err := <-perrc:
		if err != nil {
			return model.NewKindError(model.FailureMalformedRow, "parse stream", err)
		}
	default:
	}
	return nil
}
