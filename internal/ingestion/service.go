// Package ingestion exposes the business-logic facade (C11, spec §4.11)
// the API layer calls: submit a file, await or poll its progress, list
// and inspect jobs and their records. It owns the queue and worker pool
// wiring; everything downstream of Submit runs asynchronously.
package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erisonnicodemos/QuickIngestFile/internal/engine"
	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
	"github.com/erisonnicodemos/QuickIngestFile/internal/queue"
	"github.com/erisonnicodemos/QuickIngestFile/internal/repository"
)

// Service is the ingestion engine's single entry point.
type Service struct {
	Registry *parser.Registry
	Repo     repository.Repository
	Queue    *queue.Queue[engine.Task]
	Pool     *engine.Pool
	Log      *slog.Logger
}

// New wires a Service with its queue and worker pool; it starts nothing.
// Run starts the pool.
func New(registry *parser.Registry, repo repository.Repository, log *slog.Logger, queueCapacity, concurrency int) *Service {
	return &Service{
		Registry: registry,
		Repo:     repo,
		Queue:    queue.New[engine.Task](queueCapacity),
		Pool:     engine.NewPool(registry, repo, log, concurrency),
		Log:      log,
	}
}

// Run starts the worker pool's dequeue loop. Call it in its own
// goroutine; it returns when ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.Pool.Run(ctx, s.Queue)
}

// Shutdown waits for in-flight jobs to finish, bounded by ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.Pool.Shutdown(ctx)
}

// Submit accepts a file for ingestion: it validates the format is
// supported and the payload non-empty, creates the Job in Pending state,
// and enqueues it for background processing. It returns immediately; use
// Progress or Get to observe the job's advancement (spec §4.11, §6
// POST /api/v1/jobs?mode=async).
func (s *Service) Submit(ctx context.Context, fileName string, data []byte, opts parser.Options) (model.Job, error) {
	if len(data) == 0 {
		return model.Job{}, model.ErrEmptyInput
	}
	if _, err := s.Registry.Resolve(fileName); err != nil {
		return model.Job{}, &model.UnsupportedFormatError{FileName: fileName, Extensions: s.Registry.Extensions()}
	}

	job := model.Job{
		ID:        uuid.NewString(),
		FileName:  fileName,
		FileExt:   extOf(fileName),
		FileSize:  int64(len(data)),
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	}

	if err := s.Repo.CreateJob(ctx, &job); err != nil {
		return model.Job{}, fmt.Errorf("ingestion: creating job: %w", err)
	}

	task := engine.Task{
		Job:    job,
		Source: bytes.NewReader(data),
		Opts:   opts,
	}
	if err := s.Queue.Enqueue(ctx, task); err != nil {
		job.Status = model.StatusFailed
		job.ErrorMessage = err.Error()
		s.Repo.UpdateJob(ctx, &job)
		return job, fmt.Errorf("ingestion: enqueueing job: %w", err)
	}

	return job, nil
}

// SubmitSync runs Submit and then blocks until the job reaches a
// terminal state, for callers that asked for mode=sync (spec §6).
func (s *Service) SubmitSync(ctx context.Context, fileName string, data []byte, opts parser.Options) (model.Job, error) {
	job, err := s.Submit(ctx, fileName, data, opts)
	if err != nil {
		return job, err
	}
	return s.AwaitTerminal(ctx, job.ID)
}

// AwaitTerminal polls until job reaches a terminal status or ctx is
// cancelled.
func (s *Service) AwaitTerminal(ctx context.Context, jobID string) (model.Job, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := s.Repo.GetJob(ctx, jobID)
		if err != nil {
			return model.Job{}, err
		}
		if job.Status.IsTerminal() {
			return *job, nil
		}

		select {
		case <-ctx.Done():
			return *job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Get returns a job's current snapshot.
func (s *Service) Get(ctx context.Context, jobID string) (model.Job, error) {
	job, err := s.Repo.GetJob(ctx, jobID)
	if err != nil {
		return model.Job{}, err
	}
	return *job, nil
}

// Progress returns the read-only progress projection of a job.
func (s *Service) Progress(ctx context.Context, jobID string) (engine.Progress, error) {
	job, err := s.Repo.GetJob(ctx, jobID)
	if err != nil {
		return engine.Progress{}, err
	}
	return engine.ProgressOf(*job), nil
}

// List returns a page of jobs, most recently created first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	return s.Repo.ListJobs(ctx, limit, offset)
}

// Delete removes a job and its records.
func (s *Service) Delete(ctx context.Context, jobID string) error {
	if err := s.Repo.DeleteRecords(ctx, jobID); err != nil {
		return err
	}
	return s.Repo.DeleteJob(ctx, jobID)
}

// Schema returns a job's detected schema.
func (s *Service) Schema(ctx context.Context, jobID string) (model.Schema, error) {
	schema, err := s.Repo.GetSchema(ctx, jobID)
	if err != nil {
		return model.Schema{}, err
	}
	return *schema, nil
}

// Records returns a page of a job's persisted rows.
func (s *Service) Records(ctx context.Context, jobID string, limit, offset int) ([]model.Record, error) {
	return s.Repo.ListRecords(ctx, jobID, limit, offset)
}

// SearchRecords returns rows whose field (or, if empty, any field)
// contains substr, case-insensitively (spec §9 design note: per-field
// substring match, not a whole-row join).
func (s *Service) SearchRecords(ctx context.Context, jobID, field, substr string, limit, offset int) ([]model.Record, error) {
	return s.Repo.SearchRecords(ctx, jobID, field, substr, limit, offset)
}

func extOf(fileName string) string {
	for i := len(fileName) - 1; i >= 0; i-- {
		if fileName[i] == '.' {
			return fileName[i+1:]
		}
	}
	return ""
}
