package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

func TestStore_JobLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	job := &model.Job{ID: "job-1", FileName: "a.csv", Status: model.StatusPending, CreatedAt: time.Now()}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.FileName != "a.csv" {
		t.Errorf("GetJob().FileName = %q, want %q", got.FileName, "a.csv")
	}

	// Mutating the returned pointer must not affect the store's copy.
	got.FileName = "mutated.csv"
	reread, _ := s.GetJob(ctx, "job-1")
	if reread.FileName != "a.csv" {
		t.Errorf("store's internal copy was mutated via a returned pointer: got %q", reread.FileName)
	}

	job.Status = model.StatusCompleted
	if err := s.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	updated, _ := s.GetJob(ctx, "job-1")
	if updated.Status != model.StatusCompleted {
		t.Errorf("after UpdateJob, Status = %v, want Completed", updated.Status)
	}

	if err := s.DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if _, err := s.GetJob(ctx, "job-1"); !errors.Is(err, model.ErrJobNotFound) {
		t.Errorf("GetJob after delete = %v, want ErrJobNotFound", err)
	}
}

func TestStore_GetJobNotFound(t *testing.T) {
	s := New()
	if _, err := s.GetJob(context.Background(), "missing"); !errors.Is(err, model.ErrJobNotFound) {
		t.Errorf("GetJob(missing) = %v, want ErrJobNotFound", err)
	}
}

func TestStore_UpdateJobNotFound(t *testing.T) {
	s := New()
	err := s.UpdateJob(context.Background(), &model.Job{ID: "ghost"})
	if !errors.Is(err, model.ErrJobNotFound) {
		t.Errorf("UpdateJob(ghost) = %v, want ErrJobNotFound", err)
	}
}

func TestStore_ListJobsOrderingAndPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.CreateJob(ctx, &model.Job{
			ID:        string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	all, err := s.ListJobs(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("ListJobs returned %d jobs, want 5", len(all))
	}
	if all[0].ID != "e" {
		t.Errorf("ListJobs[0].ID = %q, want %q (most recent first)", all[0].ID, "e")
	}

	page, err := s.ListJobs(ctx, 2, 1)
	if err != nil {
		t.Fatalf("ListJobs(2,1) failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "d" {
		t.Errorf("ListJobs(limit=2,offset=1) = %+v, want [d, c]", page)
	}
}

func TestStore_InsertBatchAndListRecords(t *testing.T) {
	s := New()
	ctx := context.Background()

	records := []model.Record{
		{ID: "r1", JobID: "job-1", RowNumber: 1, Data: model.RowData{"name": model.NewString("alice")}},
		{ID: "r2", JobID: "job-1", RowNumber: 2, Data: model.RowData{"name": model.NewString("bob")}},
	}
	n, err := s.InsertBatch(ctx, "job-1", records)
	if err != nil || n != 2 {
		t.Fatalf("InsertBatch = (%d, %v), want (2, nil)", n, err)
	}

	count, err := s.CountRecords(ctx, "job-1")
	if err != nil || count != 2 {
		t.Fatalf("CountRecords = (%d, %v), want (2, nil)", count, err)
	}

	listed, err := s.ListRecords(ctx, "job-1", 0, 0)
	if err != nil || len(listed) != 2 {
		t.Fatalf("ListRecords = (%d records, %v), want 2", len(listed), err)
	}
}

func TestStore_SearchRecords(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.InsertBatch(ctx, "job-1", []model.Record{
		{ID: "r1", Data: model.RowData{"name": model.NewString("Alice Smith"), "city": model.NewString("Boston")}},
		{ID: "r2", Data: model.RowData{"name": model.NewString("Bob Jones"), "city": model.NewString("Austin")}},
	})

	t.Run("field-scoped search is case-insensitive substring", func(t *testing.T) {
		matches, err := s.SearchRecords(ctx, "job-1", "name", "alice", 0, 0)
		if err != nil || len(matches) != 1 || matches[0].ID != "r1" {
			t.Fatalf("SearchRecords(field=name, alice) = (%+v, %v), want [r1]", matches, err)
		}
	})

	t.Run("unscoped search checks every field independently", func(t *testing.T) {
		matches, err := s.SearchRecords(ctx, "job-1", "", "austin", 0, 0)
		if err != nil || len(matches) != 1 || matches[0].ID != "r2" {
			t.Fatalf("SearchRecords(\"\", austin) = (%+v, %v), want [r2]", matches, err)
		}
	})

	t.Run("no match returns empty slice not nil error", func(t *testing.T) {
		matches, err := s.SearchRecords(ctx, "job-1", "", "nonexistent", 0, 0)
		if err != nil || len(matches) != 0 {
			t.Fatalf("SearchRecords(\"\", nonexistent) = (%+v, %v), want empty", matches, err)
		}
	})
}

func TestStore_DeleteJobCascadesRecordsAndSchema(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.CreateJob(ctx, &model.Job{ID: "job-1"})
	s.CreateSchema(ctx, &model.Schema{JobID: "job-1"})
	s.InsertBatch(ctx, "job-1", []model.Record{{ID: "r1"}})

	if err := s.DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}

	if _, err := s.GetSchema(ctx, "job-1"); !errors.Is(err, model.ErrJobNotFound) {
		t.Errorf("GetSchema after DeleteJob = %v, want ErrJobNotFound", err)
	}
	count, _ := s.CountRecords(ctx, "job-1")
	if count != 0 {
		t.Errorf("CountRecords after DeleteJob = %d, want 0", count)
	}
}
