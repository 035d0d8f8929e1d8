package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/entity"
)

// Run is the mutable per-WorkItem execution record. It is owned exclusively
// by the worker executing it; nothing mutates a Run across goroutines.
// Resumption is whole-run only: a crash mid-run loses in-flight work, and the
// ledger stays untouched until the terminal Completed transition.
type Run struct {
	ID        string
	Item      entity.WorkItem
	Stage     constants.RunStage
	Attempts  map[constants.RunStage]int
	Errors    []string
	StartedAt time.Time

	// owned by the run once the producing stage succeeds
	text   string
	record *entity.ExtractedRecord
}

func newRun(item entity.WorkItem) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Item:      item,
		Stage:     constants.StageDiscovered,
		Attempts:  make(map[constants.RunStage]int),
		StartedAt: time.Now().UTC(),
	}
}

// advance moves the run to its next stage.
func (r *Run) advance() {
	r.Stage = r.Stage.Next()
}

// recordAttempts notes how many attempts the current stage consumed.
func (r *Run) recordAttempts(n int) {
	r.Attempts[r.Stage] = n
}

// fail marks the run terminally failed at its current stage.
func (r *Run) fail(err error) entity.Outcome {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", r.Stage, err))
	failedAt := r.Stage
	r.Stage = constants.StageFailed
	return entity.Outcome{
		Key:      r.Item.Key,
		Kind:     constants.OutcomeFailed,
		Stage:    failedAt,
		Err:      err,
		TextLen:  len(r.text),
		Duration: time.Since(r.StartedAt),
	}
}

// complete marks the run terminally completed.
func (r *Run) complete() entity.Outcome {
	r.Stage = constants.StageCompleted
	kind := constants.OutcomeSucceeded
	if r.record != nil && !r.record.Complete {
		kind = constants.OutcomePartial
	}
	return entity.Outcome{
		Key:      r.Item.Key,
		Kind:     kind,
		Stage:    constants.StageCompleted,
		TextLen:  len(r.text),
		Record:   r.record,
		Duration: time.Since(r.StartedAt),
	}
}
