package engine

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser/delimited"
	"github.com/erisonnicodemos/QuickIngestFile/internal/queue"
	"github.com/erisonnicodemos/QuickIngestFile/internal/repository/memory"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_RunProcessesQueuedJobToCompletion(t *testing.T) {
	store := memory.New()
	registry := parser.NewRegistry()
	registry.Register(delimited.New())

	pool := NewPool(registry, store, silentLogger(), 2)
	q := queue.New[Task](4)

	job := model.Job{ID: "job-1", FileName: "data.csv", Status: model.StatusPending, CreatedAt: time.Now()}
	store.CreateJob(context.Background(), &job)

	data := "name,age\nalice,30\nbob,25\n"
	task := Task{Job: job, Source: bytes.NewReader([]byte(data)), Opts: parser.Options{HasHeader: true}}

	if err := q.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Run(ctx, q)

	got, err := store.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("job.Status = %v, want Completed", got.Status)
	}
	if got.Processed != 2 {
		t.Errorf("job.Processed = %d, want 2", got.Processed)
	}

	count, _ := store.CountRecords(context.Background(), "job-1")
	if count != 2 {
		t.Errorf("CountRecords = %d, want 2", count)
	}
}

func TestPool_UnsupportedFormatFailsJob(t *testing.T) {
	store := memory.New()
	registry := parser.NewRegistry()
	registry.Register(delimited.New())

	pool := NewPool(registry, store, silentLogger(), 1)
	q := queue.New[Task](1)

	job := model.Job{ID: "job-2", FileName: "data.pdf", Status: model.StatusPending, CreatedAt: time.Now()}
	store.CreateJob(context.Background(), &job)

	task := Task{Job: job, Source: bytes.NewReader([]byte("irrelevant")), Opts: parser.Options{}}
	q.Enqueue(context.Background(), task)
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Run(ctx, q)

	got, err := store.GetJob(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != model.StatusFailed {
		t.Fatalf("job.Status = %v, want Failed", got.Status)
	}
}

func TestPool_ConcurrencyIsBoundedBySemaphoreSize(t *testing.T) {
	registry := parser.NewRegistry()
	registry.Register(delimited.New())
	store := memory.New()

	pool := NewPool(registry, store, silentLogger(), 2)
	if cap(pool.sem) != 2 {
		t.Errorf("pool.sem capacity = %d, want 2", cap(pool.sem))
	}
}

func TestNewPool_NonPositiveConcurrencyDefaults(t *testing.T) {
	registry := parser.NewRegistry()
	store := memory.New()
	pool := NewPool(registry, store, silentLogger(), 0)
	if pool.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want DefaultConcurrency (%d)", pool.Concurrency, DefaultConcurrency)
	}
}
