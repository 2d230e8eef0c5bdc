// Package postgres implements repository.Repository on PostgreSQL via
// pgx/pgxpool. Bulk insertion prefers the COPY protocol and falls back to
// savepoint-guarded row-by-row insertion on failure, the same two-tier
// strategy as the teacher's insertWithCopy/insertRowByRow in
// internal/core/upload.go — generalized from per-table fixed columns to
// a single jsonb-backed records table, since an ingested file's schema
// is arbitrary and not known ahead of time (spec §4.5).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

// schemaDDL creates the tables this repository needs. Callers run it once
// at startup; it is idempotent.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS ingestion_jobs (
	id             text PRIMARY KEY,
	file_name      text NOT NULL,
	file_ext       text NOT NULL,
	file_size      bigint NOT NULL,
	status         text NOT NULL,
	total          bigint NOT NULL DEFAULT 0,
	processed      bigint NOT NULL DEFAULT 0,
	failed         bigint NOT NULL DEFAULT 0,
	created_at     timestamptz NOT NULL,
	started_at     timestamptz,
	completed_at   timestamptz,
	error_message  text NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ingestion_schemas (
	job_id    text PRIMARY KEY REFERENCES ingestion_jobs(id) ON DELETE CASCADE,
	file_name text NOT NULL,
	columns   jsonb NOT NULL
);

CREATE TABLE IF NOT EXISTS ingestion_records (
	job_id     text NOT NULL REFERENCES ingestion_jobs(id) ON DELETE CASCADE,
	row_number bigint NOT NULL,
	data       jsonb NOT NULL
);

CREATE INDEX IF NOT EXISTS ingestion_records_job_id_idx ON ingestion_records(job_id);
`

// Repository is a PostgreSQL-backed repository.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema runs the DDL needed for this repository to operate.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schemaDDL)
	return err
}

func (r *Repository) CreateJob(ctx context.Context, job *model.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ingestion_jobs (id, file_name, file_ext, file_size, status, total, processed, failed, created_at, started_at, completed_at, error_message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		job.ID, job.FileName, job.FileExt, job.FileSize, job.Status,
		job.Total, job.Processed, job.Failed, job.CreatedAt, job.StartedAt, job.CompletedAt, job.ErrorMessage)
	return err
}

func (r *Repository) CreateSchema(ctx context.Context, schema *model.Schema) error {
	cols, err := json.Marshal(schema.Columns)
	if err != nil {
		return fmt.Errorf("postgres: marshal columns: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO ingestion_schemas (job_id, file_name, columns) VALUES ($1,$2,$3)`,
		schema.JobID, schema.FileName, cols)
	return err
}

func (r *Repository) UpdateJob(ctx context.Context, job *model.Job) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ingestion_jobs
		SET status=$2, total=$3, processed=$4, failed=$5, started_at=$6, completed_at=$7, error_message=$8
		WHERE id=$1`,
		job.ID, job.Status, job.Total, job.Processed, job.Failed, job.StartedAt, job.CompletedAt, job.ErrorMessage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrJobNotFound
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := r.pool.QueryRow(ctx, `
		SELECT id, file_name, file_ext, file_size, status, total, processed, failed, created_at, started_at, completed_at, error_message
		FROM ingestion_jobs WHERE id=$1`, id).
		Scan(&job.ID, &job.FileName, &job.FileExt, &job.FileSize, &job.Status,
			&job.Total, &job.Processed, &job.Failed, &job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.ErrorMessage)
	if err == pgx.ErrNoRows {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Repository) GetSchema(ctx context.Context, jobID string) (*model.Schema, error) {
	var schema model.Schema
	var cols []byte
	schema.JobID = jobID
	err := r.pool.QueryRow(ctx, `SELECT file_name, columns FROM ingestion_schemas WHERE job_id=$1`, jobID).
		Scan(&schema.FileName, &cols)
	if err == pgx.ErrNoRows {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cols, &schema.Columns); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal columns: %w", err)
	}
	return &schema, nil
}

func (r *Repository) ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, file_name, file_ext, file_size, status, total, processed, failed, created_at, started_at, completed_at, error_message
		FROM ingestion_jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.ID, &job.FileName, &job.FileExt, &job.FileSize, &job.Status,
			&job.Total, &job.Processed, &job.Failed, &job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.ErrorMessage); err != nil {
			return nil, err
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

func (r *Repository) DeleteJob(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ingestion_jobs WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrJobNotFound
	}
	return nil
}

// InsertBatch bulk-inserts records via COPY, falling back to a
// savepoint-guarded row-by-row insert when COPY fails — identical
// two-tier strategy to the teacher's insertBatch, generalized to a
// single jsonb column instead of per-table typed columns.
func (r *Repository) InsertBatch(ctx context.Context, jobID string, records []model.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := r.insertWithCopy(ctx, tx, jobID, records)
	if err != nil {
		inserted, err = r.insertRowByRow(ctx, tx, jobID, records)
		if err != nil {
			return inserted, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit tx: %w", err)
	}
	return inserted, nil
}

func (r *Repository) insertWithCopy(ctx context.Context, tx pgx.Tx, jobID string, records []model.Record) (int64, error) {
	if _, err := tx.Exec(ctx, "SAVEPOINT copy_sp"); err != nil {
		return 0, err
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		data, err := json.Marshal(rec.Data)
		if err != nil {
			return 0, fmt.Errorf("postgres: marshal row %d: %w", rec.RowNumber, err)
		}
		rows[i] = []any{jobID, rec.RowNumber, data}
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ingestion_records"},
		[]string{"job_id", "row_number", "data"},
		pgx.CopyFromRows(rows))
	if err != nil {
		tx.Exec(ctx, "ROLLBACK TO SAVEPOINT copy_sp")
		tx.Exec(ctx, "RELEASE SAVEPOINT copy_sp")
		return 0, err
	}

	tx.Exec(ctx, "RELEASE SAVEPOINT copy_sp")
	return n, nil
}

func (r *Repository) insertRowByRow(ctx context.Context, tx pgx.Tx, jobID string, records []model.Record) (int64, error) {
	var inserted int64
	for i, rec := range records {
		sp := fmt.Sprintf("row_sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			continue
		}

		data, err := json.Marshal(rec.Data)
		if err == nil {
			_, err = tx.Exec(ctx,
				`INSERT INTO ingestion_records (job_id, row_number, data) VALUES ($1,$2,$3)`,
				jobID, rec.RowNumber, data)
		}

		if err != nil {
			tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp)
		} else {
			inserted++
		}
		tx.Exec(ctx, "RELEASE SAVEPOINT "+sp)
	}
	return inserted, nil
}

func (r *Repository) ListRecords(ctx context.Context, jobID string, limit, offset int) ([]model.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT row_number, data FROM ingestion_records WHERE job_id=$1 ORDER BY row_number LIMIT $2 OFFSET $3`,
		jobID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows, jobID)
}

func (r *Repository) SearchRecords(ctx context.Context, jobID string, field, substr string, limit, offset int) ([]model.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	var query string
	var args []any
	if field != "" {
		query = `SELECT row_number, data FROM ingestion_records
			WHERE job_id=$1 AND data->$2->>'value' ILIKE '%' || $3 || '%'
			ORDER BY row_number LIMIT $4 OFFSET $5`
		args = []any{jobID, field, substr, limit, offset}
	} else {
		query = `SELECT row_number, data FROM ingestion_records
			WHERE job_id=$1 AND EXISTS (SELECT 1 FROM jsonb_each(data) AS e WHERE e.value->>'value' ILIKE '%' || $2 || '%')
			ORDER BY row_number LIMIT $3 OFFSET $4`
		args = []any{jobID, substr, limit, offset}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows, jobID)
}

func (r *Repository) CountRecords(ctx context.Context, jobID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM ingestion_records WHERE job_id=$1`, jobID).Scan(&n)
	return n, err
}

func (r *Repository) DeleteRecords(ctx context.Context, jobID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ingestion_records WHERE job_id=$1`, jobID)
	return err
}

func scanRecords(rows pgx.Rows, jobID string) ([]model.Record, error) {
	var out []model.Record
	for rows.Next() {
		var rec model.Record
		var data []byte
		if err := rows.Scan(&rec.RowNumber, &data); err != nil {
			return nil, err
		}
		rec.JobID = jobID
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal row %d: %w", rec.RowNumber, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
