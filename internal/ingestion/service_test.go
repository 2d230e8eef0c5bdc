package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser/delimited"
	"github.com/erisonnicodemos/QuickIngestFile/internal/repository/memory"
)

func newTestService() *Service {
	registry := parser.NewRegistry()
	registry.Register(delimited.New())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(registry, memory.New(), log, 10, 2)
}

func TestService_SubmitRejectsEmptyInput(t *testing.T) {
	s := newTestService()
	_, err := s.Submit(context.Background(), "data.csv", nil, parser.Options{})
	if !errors.Is(err, model.ErrEmptyInput) {
		t.Errorf("Submit(empty data) = %v, want ErrEmptyInput", err)
	}
}

func TestService_SubmitRejectsUnsupportedFormat(t *testing.T) {
	s := newTestService()
	_, err := s.Submit(context.Background(), "data.pdf", []byte("x"), parser.Options{})
	var unsupported *model.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Errorf("Submit(unsupported format) = %v, want *model.UnsupportedFormatError", err)
	}
}

func TestService_SubmitCreatesPendingJob(t *testing.T) {
	s := newTestService()
	job, err := s.Submit(context.Background(), "data.csv", []byte("a,b\n1,2\n"), parser.Options{HasHeader: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.Status != model.StatusPending {
		t.Errorf("job.Status = %v, want Pending", job.Status)
	}
	if job.FileExt != "csv" {
		t.Errorf("job.FileExt = %q, want %q", job.FileExt, "csv")
	}

	stored, err := s.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.ID != job.ID {
		t.Errorf("Get returned job %q, want %q", stored.ID, job.ID)
	}
}

func TestService_SubmitSyncRunsToCompletion(t *testing.T) {
	s := newTestService()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	job, err := s.SubmitSync(context.Background(), "data.csv", []byte("name,age\nalice,30\nbob,25\n"), parser.Options{HasHeader: true})
	if err != nil {
		t.Fatalf("SubmitSync failed: %v", err)
	}
	if !job.Status.IsTerminal() {
		t.Fatalf("job.Status = %v, want a terminal status", job.Status)
	}
	if job.Status != model.StatusCompleted {
		t.Errorf("job.Status = %v, want Completed", job.Status)
	}

	records, err := s.Records(context.Background(), job.ID, 0, 0)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Records returned %d rows, want 2", len(records))
	}
}

func TestService_DeleteRemovesJobAndRecords(t *testing.T) {
	s := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	job, err := s.SubmitSync(context.Background(), "data.csv", []byte("a\n1\n"), parser.Options{HasHeader: true})
	if err != nil {
		t.Fatalf("SubmitSync failed: %v", err)
	}

	if err := s.Delete(context.Background(), job.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(context.Background(), job.ID); !errors.Is(err, model.ErrJobNotFound) {
		t.Errorf("Get after Delete = %v, want ErrJobNotFound", err)
	}
}

func TestService_AwaitTerminalTimesOutWithContextDeadline(t *testing.T) {
	s := newTestService()
	// Create the job directly without running the pool, so it never
	// reaches a terminal state.
	job, err := s.Submit(context.Background(), "data.csv", []byte("a\n1\n"), parser.Options{HasHeader: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.AwaitTerminal(ctx, job.ID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AwaitTerminal with no running pool = %v, want context.DeadlineExceeded", err)
	}
}
