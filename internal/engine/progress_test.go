package engine

import (
	"testing"
	"time"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

func TestProgressOf(t *testing.T) {
	tests := []struct {
		name string
		job  model.Job
		want float64
	}{
		{
			name: "no total yet is zero percent",
			job:  model.Job{Status: model.StatusPending},
			want: 0,
		},
		{
			name: "half processed",
			job:  model.Job{Status: model.StatusProcessing, Total: 100, Processed: 50},
			want: 50,
		},
		{
			name: "failed rows do not count toward percent",
			job:  model.Job{Status: model.StatusProcessing, Total: 100, Processed: 40, Failed: 10},
			want: 40,
		},
		{
			name: "failed terminal job reports its partial percent, not 100",
			job:  model.Job{Status: model.StatusFailed, Total: 10, Processed: 3, Failed: 1},
			want: 30,
		},
		{
			name: "terminal with zero total is zero",
			job:  model.Job{Status: model.StatusFailed},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProgressOf(tt.job)
			if got.PercentDone != tt.want {
				t.Errorf("ProgressOf(%+v).PercentDone = %v, want %v", tt.job, got.PercentDone, tt.want)
			}
		})
	}
}

func TestProgressOf_FieldsCarryThrough(t *testing.T) {
	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	completed := started.Add(5 * time.Minute)
	job := model.Job{
		ID:           "job-1",
		Status:       model.StatusFailed,
		Total:        10,
		Processed:    3,
		Failed:       7,
		StartedAt:    &started,
		CompletedAt:  &completed,
		ErrorMessage: "boom",
	}
	p := ProgressOf(job)
	if p.JobID != job.ID || p.Status != job.Status || p.Total != job.Total ||
		p.Processed != job.Processed || p.Failed != job.Failed || p.ErrorMessage != job.ErrorMessage {
		t.Errorf("ProgressOf(%+v) = %+v, fields did not carry through", job, p)
	}
	if p.StartedAt != job.StartedAt || p.CompletedAt != job.CompletedAt {
		t.Errorf("ProgressOf(%+v) did not carry through StartedAt/CompletedAt", job)
	}
	if p.Duration != 5*time.Minute {
		t.Errorf("ProgressOf(%+v).Duration = %v, want 5m", job, p.Duration)
	}
}
