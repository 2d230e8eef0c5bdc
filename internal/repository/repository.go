// Package repository defines the storage-agnostic persistence boundary
// (spec §4.5/§4.6): a JobRepository for job/schema metadata and a
// RecordRepository for the parsed rows themselves. Concrete
// implementations live in the postgres, mongo, and memory subpackages —
// one relational (COPY-based bulk insert, grounded on the teacher's
// internal/core/upload.go), one document-store (grounded on the pack's
// mongo-driver usage), one in-process for tests.
package repository

import (
	"context"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

// JobRepository persists job and schema metadata.
type JobRepository interface {
	CreateJob(ctx context.Context, job *model.Job) error
	CreateSchema(ctx context.Context, schema *model.Schema) error
	UpdateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	GetSchema(ctx context.Context, jobID string) (*model.Schema, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// RecordRepository persists and queries the rows belonging to a job.
type RecordRepository interface {
	// InsertBatch bulk-inserts records for a single job. Implementations
	// should prefer their backend's native bulk path (COPY, InsertMany)
	// and fall back to row-by-row insertion so one malformed row never
	// fails an entire batch (spec §4.5 edge case, grounded on the
	// teacher's insertWithCopy/insertRowByRow fallback).
	InsertBatch(ctx context.Context, jobID string, records []model.Record) (inserted int64, err error)

	ListRecords(ctx context.Context, jobID string, limit, offset int) ([]model.Record, error)
	SearchRecords(ctx context.Context, jobID string, field, substr string, limit, offset int) ([]model.Record, error)
	CountRecords(ctx context.Context, jobID string) (int64, error)
	DeleteRecords(ctx context.Context, jobID string) error
}

// Repository bundles both halves of the persistence boundary. A backend
// (postgres, mongo, memory) implements both interfaces on one type so
// callers wire a single value.
type Repository interface {
	JobRepository
	RecordRepository
}
