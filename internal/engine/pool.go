package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
	"github.com/erisonnicodemos/QuickIngestFile/internal/queue"
	"github.com/erisonnicodemos/QuickIngestFile/internal/repository"
)

// DefaultConcurrency is the number of jobs the pool runs at once (spec
// §5 resource model).
const DefaultConcurrency = 3

// Task is one unit of work dequeued and run by the pool: a job plus the
// input it was submitted with.
type Task struct {
	Job    model.Job
	Source parser.Source
	Opts   parser.Options
}

// Pool runs at most Concurrency tasks at a time, pulling them off a
// queue.Queue[Task]. It is grounded on the sem-channel worker-pool
// pattern in the pack's bulk-import-export-api job_service.go: a
// buffered channel of empty structs gates how many goroutines run a job
// body concurrently, and a panic in one job's processing is recovered
// and turned into a Failed status rather than taking down the pool.
type Pool struct {
	Registry *parser.Registry
	Repo     repository.Repository
	Log      *slog.Logger

	Concurrency int

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPool returns a pool with the given concurrency (DefaultConcurrency
// if non-positive).
func NewPool(registry *parser.Registry, repo repository.Repository, log *slog.Logger, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pool{
		Registry:    registry,
		Repo:        repo,
		Log:         log,
		Concurrency: concurrency,
		sem:         make(chan struct{}, concurrency),
	}
}

// Run dequeues tasks from q until ctx is cancelled or q is closed and
// drained, dispatching each to a goroutine bounded by the pool's
// semaphore. It then waits for every in-flight task to return.
func (p *Pool) Run(ctx context.Context, q *queue.Queue[Task]) {
	for {
		task, ok, err := q.Dequeue(ctx)
		if err != nil {
			p.wg.Wait()
			return
		}
		if !ok {
			p.wg.Wait()
			return
		}

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			p.wg.Wait()
			return
		}

		p.wg.Add(1)
		go func(t Task) {
			defer p.wg.Done()
			defer func() { <-p.sem }()
			p.runTask(ctx, t)
		}(task)
	}
}

func (p *Pool) runTask(ctx context.Context, task Task) {
	job := task.Job

	defer func() {
		if r := recover(); r != nil {
			p.Log.Error("job processing panicked", "job_id", job.ID, "panic", r)
			job.Status = model.StatusFailed
			job.ErrorMessage = "internal error during processing"
			now := time.Now()
			job.CompletedAt = &now
			p.Repo.UpdateJob(context.Background(), &job)
		}
	}()

	p.process(ctx, job, task.Source, task.Opts)
}

func (p *Pool) process(ctx context.Context, job model.Job, source parser.Source, opts parser.Options) {
	log := p.Log.With("job_id", job.ID, "file_name", job.FileName)

	startedAt := time.Now()
	job.StartedAt = &startedAt
	if err := Transition(&job, model.StatusProcessing); err != nil {
		log.Error("illegal transition to Processing", "error", err)
		return
	}
	if err := p.Repo.UpdateJob(ctx, &job); err != nil {
		log.Error("persisting Processing status", "error", err)
		return
	}

	schema, estimatedRows, parserImpl, err := DetectSchema(ctx, p.Registry, job.ID, job.FileName, source, opts)
	if err != nil {
		p.fail(ctx, &job, err)
		return
	}
	job.Total = estimatedRows
	if err := p.Repo.CreateSchema(ctx, &schema); err != nil {
		p.fail(ctx, &job, model.NewKindError(model.FailurePersistence, "persisting schema", err))
		return
	}

	opts.ColumnTypes = make(map[string]model.ColumnType, len(schema.Columns))
	for _, c := range schema.Columns {
		opts.ColumnTypes[c.Name] = c.DetectedType
	}

	pipeline := NewPipeline(p.Repo)
	pipeline.BatchSize = opts.BatchSize
	runErr := pipeline.Run(ctx, job.ID, parserImpl, source, opts)

	processed, failed := pipeline.Counters.Load()
	job.Processed = processed
	job.Failed = failed
	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if runErr != nil {
		p.fail(ctx, &job, runErr)
		return
	}

	finalStatus := model.StatusCompleted
	if failed > 0 {
		finalStatus = model.StatusCompletedWithErrors
	}
	if err := Transition(&job, finalStatus); err != nil {
		log.Error("illegal terminal transition", "error", err)
		return
	}
	if err := p.Repo.UpdateJob(ctx, &job); err != nil {
		log.Error("persisting terminal status", "error", err)
	}
}

func (p *Pool) fail(ctx context.Context, job *model.Job, cause error) {
	job.ErrorMessage = cause.Error()
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	if err := Transition(job, model.StatusFailed); err != nil {
		p.Log.Error("illegal transition to Failed", "job_id", job.ID, "error", err)
		return
	}
	if err := p.Repo.UpdateJob(ctx, job); err != nil {
		p.Log.Error("persisting Failed status", "job_id", job.ID, "error", err)
	}
}

// Shutdown waits for in-flight tasks to finish or ctx to be cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
