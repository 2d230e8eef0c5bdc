// Package mongo implements repository.Repository on MongoDB via
// go.mongodb.org/mongo-driver, the document-store driver carried by the
// pack's rich-crm-backend example. Bulk insertion uses InsertMany, the
// driver's own bulk path, rather than looping single Inserts.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

func unixNanoTime(n int64) time.Time { return time.Unix(0, n).UTC() }

// Repository is a MongoDB-backed repository.Repository.
type Repository struct {
	jobs    *mongo.Collection
	schemas *mongo.Collection
	records *mongo.Collection
}

// New wraps collections in database db of an already-connected client.
func New(client *mongo.Client, database string) *Repository {
	db := client.Database(database)
	return &Repository{
		jobs:    db.Collection("ingestion_jobs"),
		schemas: db.Collection("ingestion_schemas"),
		records: db.Collection("ingestion_records"),
	}
}

type jobDoc struct {
	ID           string     `bson:"_id"`
	FileName     string     `bson:"file_name"`
	FileExt      string     `bson:"file_ext"`
	FileSize     int64      `bson:"file_size"`
	Status       string     `bson:"status"`
	Total        int64      `bson:"total"`
	Processed    int64      `bson:"processed"`
	Failed       int64      `bson:"failed"`
	CreatedAt    int64      `bson:"created_at_unix_nano"`
	StartedAt    *int64     `bson:"started_at_unix_nano,omitempty"`
	CompletedAt  *int64     `bson:"completed_at_unix_nano,omitempty"`
	ErrorMessage string     `bson:"error_message"`
}

func (r *Repository) CreateJob(ctx context.Context, job *model.Job) error {
	_, err := r.jobs.InsertOne(ctx, toJobDoc(job))
	return err
}

func (r *Repository) CreateSchema(ctx context.Context, schema *model.Schema) error {
	_, err := r.schemas.InsertOne(ctx, bson.M{
		"_id":       schema.JobID,
		"file_name": schema.FileName,
		"columns":   schema.Columns,
	})
	return err
}

func (r *Repository) UpdateJob(ctx context.Context, job *model.Job) error {
	res, err := r.jobs.ReplaceOne(ctx, bson.M{"_id": job.ID}, toJobDoc(job))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrJobNotFound
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var doc jobDoc
	if err := r.jobs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, model.ErrJobNotFound
		}
		return nil, err
	}
	return fromJobDoc(doc), nil
}

func (r *Repository) GetSchema(ctx context.Context, jobID string) (*model.Schema, error) {
	var doc struct {
		FileName string         `bson:"file_name"`
		Columns  []model.Column `bson:"columns"`
	}
	if err := r.schemas.FindOne(ctx, bson.M{"_id": jobID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, model.ErrJobNotFound
		}
		return nil, err
	}
	return &model.Schema{JobID: jobID, FileName: doc.FileName, Columns: doc.Columns}, nil
}

func (r *Repository) ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.M{"created_at_unix_nano": -1}).SetLimit(int64(limit)).SetSkip(int64(offset))
	cur, err := r.jobs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var jobs []*model.Job
	for cur.Next(ctx) {
		var doc jobDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		jobs = append(jobs, fromJobDoc(doc))
	}
	return jobs, cur.Err()
}

func (r *Repository) DeleteJob(ctx context.Context, id string) error {
	res, err := r.jobs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return model.ErrJobNotFound
	}
	r.schemas.DeleteOne(ctx, bson.M{"_id": id})
	r.records.DeleteMany(ctx, bson.M{"job_id": id})
	return nil
}

type recordDoc struct {
	JobID     string         `bson:"job_id"`
	RowNumber int64          `bson:"row_number"`
	Data      model.RowData  `bson:"data"`
}

// InsertBatch uses InsertMany, the driver's bulk-write path, instead of
// looping InsertOne — the same "prefer the backend's native bulk
// operation" rule the postgres implementation follows with COPY.
func (r *Repository) InsertBatch(ctx context.Context, jobID string, records []model.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	docs := make([]any, len(records))
	for i, rec := range records {
		docs[i] = recordDoc{JobID: jobID, RowNumber: rec.RowNumber, Data: rec.Data}
	}

	res, err := r.records.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return int64(len(res.InsertedIDs)), nil
	}

	// Ordered=false lets independent documents succeed even when some
	// fail; mongo-driver reports the partial count via BulkWriteException.
	if bwErr, ok := err.(mongo.BulkWriteException); ok {
		return int64(len(records) - len(bwErr.WriteErrors)), nil
	}
	return 0, err
}

func (r *Repository) ListRecords(ctx context.Context, jobID string, limit, offset int) ([]model.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.M{"row_number": 1}).SetLimit(int64(limit)).SetSkip(int64(offset))
	cur, err := r.records.Find(ctx, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeRecords(ctx, cur)
}

func (r *Repository) SearchRecords(ctx context.Context, jobID string, field, substr string, limit, offset int) ([]model.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	filter := bson.M{"job_id": jobID}
	pattern := bson.M{"$regex": substr, "$options": "i"}
	if field != "" {
		filter["data."+field+".value"] = pattern
	} else {
		filter["$text"] = bson.M{"$search": substr}
	}

	opts := options.Find().SetSort(bson.M{"row_number": 1}).SetLimit(int64(limit)).SetSkip(int64(offset))
	cur, err := r.records.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeRecords(ctx, cur)
}

func (r *Repository) CountRecords(ctx context.Context, jobID string) (int64, error) {
	return r.records.CountDocuments(ctx, bson.M{"job_id": jobID})
}

func (r *Repository) DeleteRecords(ctx context.Context, jobID string) error {
	_, err := r.records.DeleteMany(ctx, bson.M{"job_id": jobID})
	return err
}

func decodeRecords(ctx context.Context, cur *mongo.Cursor) ([]model.Record, error) {
	var out []model.Record
	for cur.Next(ctx) {
		var doc recordDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, model.Record{JobID: doc.JobID, RowNumber: doc.RowNumber, Data: doc.Data})
	}
	return out, cur.Err()
}

func toJobDoc(job *model.Job) jobDoc {
	doc := jobDoc{
		ID:           job.ID,
		FileName:     job.FileName,
		FileExt:      job.FileExt,
		FileSize:     job.FileSize,
		Status:       string(job.Status),
		Total:        job.Total,
		Processed:    job.Processed,
		Failed:       job.Failed,
		CreatedAt:    job.CreatedAt.UnixNano(),
		ErrorMessage: job.ErrorMessage,
	}
	if job.StartedAt != nil {
		n := job.StartedAt.UnixNano()
		doc.StartedAt = &n
	}
	if job.CompletedAt != nil {
		n := job.CompletedAt.UnixNano()
		doc.CompletedAt = &n
	}
	return doc
}

func fromJobDoc(doc jobDoc) *model.Job {
	job := &model.Job{
		ID:           doc.ID,
		FileName:     doc.FileName,
		FileExt:      doc.FileExt,
		FileSize:     doc.FileSize,
		Status:       model.Status(doc.Status),
		Total:        doc.Total,
		Processed:    doc.Processed,
		Failed:       doc.Failed,
		ErrorMessage: doc.ErrorMessage,
	}
	job.CreatedAt = unixNanoTime(doc.CreatedAt)
	if doc.StartedAt != nil {
		t := unixNanoTime(*doc.StartedAt)
		job.StartedAt = &t
	}
	if doc.CompletedAt != nil {
		t := unixNanoTime(*doc.CompletedAt)
		job.CompletedAt = &t
	}
	return job
}
