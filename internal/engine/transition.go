// Package engine drives a job from Pending through its terminal state:
// schema detection, the streaming parse/persist pipeline, and the
// worker pool that bounds how many jobs run at once (spec §4.8/§4.9).
package engine

import (
	"fmt"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

// legalTransitions is the job state machine's edge set (spec §4.9):
// Pending -> Processing -> one of the three terminal states. There are
// no back-edges and no edges out of a terminal state.
var legalTransitions = map[model.Status][]model.Status{
	model.StatusPending: {
		model.StatusProcessing,
		model.StatusFailed, // failed before any worker started processing it
	},
	model.StatusProcessing: {
		model.StatusCompleted,
		model.StatusCompletedWithErrors,
		model.StatusFailed,
	},
}

// CanTransition reports whether moving from -> to is a legal edge.
func CanTransition(from, to model.Status) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves job.Status to to, or returns an error naming the
// illegal edge. Terminal states are immutable: once set, Transition
// always rejects any further move out of them.
func Transition(job *model.Job, to model.Status) error {
	if job.Status.IsTerminal() {
		return fmt.Errorf("engine: job %s is terminal at %s, cannot move to %s", job.ID, job.Status, to)
	}
	if !CanTransition(job.Status, to) {
		return fmt.Errorf("engine: illegal transition %s -> %s for job %s", job.Status, to, job.ID)
	}
	job.Status = to
	return nil
}
