// Package memory implements repository.Repository entirely in process
// memory, for tests and for running the engine without a configured
// database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

// Store is an in-memory Repository. The zero value is not usable; call
// New.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*model.Job
	schemas map[string]*model.Schema
	records map[string][]model.Record
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*model.Job),
		schemas: make(map[string]*model.Schema),
		records: make(map[string][]model.Record),
	}
}

func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *Store) CreateSchema(ctx context.Context, schema *model.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *schema
	s.schemas[schema.JobID] = &cp
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return model.ErrJobNotFound
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *Store) GetSchema(ctx context.Context, jobID string) (*model.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[jobID]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	cp := *schema
	return &cp, nil
}

func (s *Store) ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return paginateJobs(all, limit, offset), nil
}

func paginateJobs(all []*model.Job, limit, offset int) []*model.Job {
	if offset >= len(all) {
		return []*model.Job{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return model.ErrJobNotFound
	}
	delete(s.jobs, id)
	delete(s.schemas, id)
	delete(s.records, id)
	return nil
}

func (s *Store) InsertBatch(ctx context.Context, jobID string, records []model.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[jobID] = append(s.records[jobID], records...)
	return int64(len(records)), nil
}

func (s *Store) ListRecords(ctx context.Context, jobID string, limit, offset int) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	return paginateRecords(s.records[jobID], limit, offset), nil
}

func (s *Store) SearchRecords(ctx context.Context, jobID string, field, substr string, limit, offset int) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	needle := strings.ToLower(substr)
	var matches []model.Record
	for _, r := range s.records[jobID] {
		if field != "" {
			v, ok := r.Data[field]
			if ok && strings.Contains(strings.ToLower(v.String()), needle) {
				matches = append(matches, r)
			}
			continue
		}
		for _, v := range r.Data {
			if strings.Contains(strings.ToLower(v.String()), needle) {
				matches = append(matches, r)
				break
			}
		}
	}
	return paginateRecords(matches, limit, offset), nil
}

func (s *Store) CountRecords(ctx context.Context, jobID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records[jobID])), nil
}

func (s *Store) DeleteRecords(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, jobID)
	return nil
}

func paginateRecords(all []model.Record, limit, offset int) []model.Record {
	if offset >= len(all) {
		return []model.Record{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]model.Record, end-offset)
	copy(out, all[offset:end])
	return out
}
