package engine

import (
	"testing"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from model.Status
		to   model.Status
		want bool
	}{
		{name: "pending to processing", from: model.StatusPending, to: model.StatusProcessing, want: true},
		{name: "pending to failed", from: model.StatusPending, to: model.StatusFailed, want: true},
		{name: "pending to completed is illegal", from: model.StatusPending, to: model.StatusCompleted, want: false},
		{name: "processing to completed", from: model.StatusProcessing, to: model.StatusCompleted, want: true},
		{name: "processing to completed with errors", from: model.StatusProcessing, to: model.StatusCompletedWithErrors, want: true},
		{name: "processing to failed", from: model.StatusProcessing, to: model.StatusFailed, want: true},
		{name: "processing back to pending is illegal", from: model.StatusProcessing, to: model.StatusPending, want: false},
		{name: "completed has no outgoing edges", from: model.StatusCompleted, to: model.StatusProcessing, want: false},
		{name: "failed has no outgoing edges", from: model.StatusFailed, to: model.StatusProcessing, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTransition_LegalMovesSucceed(t *testing.T) {
	job := &model.Job{ID: "job-1", Status: model.StatusPending}

	if err := Transition(job, model.StatusProcessing); err != nil {
		t.Fatalf("Transition(Pending -> Processing) failed: %v", err)
	}
	if job.Status != model.StatusProcessing {
		t.Errorf("job.Status = %v, want Processing", job.Status)
	}

	if err := Transition(job, model.StatusCompleted); err != nil {
		t.Fatalf("Transition(Processing -> Completed) failed: %v", err)
	}
	if job.Status != model.StatusCompleted {
		t.Errorf("job.Status = %v, want Completed", job.Status)
	}
}

func TestTransition_IllegalEdgeReturnsError(t *testing.T) {
	job := &model.Job{ID: "job-2", Status: model.StatusPending}
	if err := Transition(job, model.StatusCompleted); err == nil {
		t.Fatal("Transition(Pending -> Completed) succeeded, want error")
	}
	if job.Status != model.StatusPending {
		t.Errorf("job.Status after rejected transition = %v, want unchanged Pending", job.Status)
	}
}

func TestTransition_TerminalStateIsImmutable(t *testing.T) {
	for _, terminal := range []model.Status{model.StatusCompleted, model.StatusCompletedWithErrors, model.StatusFailed} {
		job := &model.Job{ID: "job-3", Status: terminal}
		if err := Transition(job, model.StatusProcessing); err == nil {
			t.Errorf("Transition out of terminal state %v succeeded, want error", terminal)
		}
		if job.Status != terminal {
			t.Errorf("job.Status after rejected transition = %v, want unchanged %v", job.Status, terminal)
		}
	}
}
