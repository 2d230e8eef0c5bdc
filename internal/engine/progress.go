package engine

import (
	"time"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

// Progress is the read-only projection of a Job the API surface returns
// from GET .../progress (spec §4.10). It is derived, not stored: every
// field is computed from the Job snapshot passed in.
type Progress struct {
	JobID        string        `json:"job_id"`
	Status       model.Status  `json:"status"`
	Total        int64         `json:"total"`
	Processed    int64         `json:"processed"`
	Failed       int64         `json:"failed"`
	PercentDone  float64       `json:"percent_done"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// ProgressOf derives a Progress snapshot from job. PercentDone is the pure
// function of §4.10: processed*100/total, or 0 when Total is unknown (still
// being detected). It is not overridden on terminal states — a Failed job
// that only persisted part of its rows before failing reports that partial
// percentage, not 100.
func ProgressOf(job model.Job) Progress {
	p := Progress{
		JobID:        job.ID,
		Status:       job.Status,
		Total:        job.Total,
		Processed:    job.Processed,
		Failed:       job.Failed,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		Duration:     job.Duration(),
		ErrorMessage: job.ErrorMessage,
	}

	if job.Total > 0 {
		p.PercentDone = float64(job.Processed) * 100 / float64(job.Total)
	}
	return p
}
