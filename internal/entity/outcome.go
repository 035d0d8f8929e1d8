package entity

import (
	"time"

	"github.com/zhada/appraisal-extractor/constants"
)

// Outcome is the terminal result of one pipeline run.
type Outcome struct {
	Key      string
	Kind     constants.OutcomeKind
	Stage    constants.RunStage // stage reached when the run terminated
	Err      error
	TextLen  int
	Record   *ExtractedRecord
	Duration time.Duration
}

// ProgressSnapshot aggregates run outcomes for reporting. Derived state only;
// recomputed by the tracker, never mutated independently.
type ProgressSnapshot struct {
	Discovered    int        `json:"discovered"`
	Dispatched    int        `json:"dispatched"`
	Succeeded     int        `json:"succeeded"`
	Partial       int        `json:"partial"`
	Failed        int        `json:"failed"`
	StartedAt     time.Time  `json:"started_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SuccessRate   float64    `json:"success_rate"`
	EstimatedDone *time.Time `json:"estimated_done,omitempty"`
}

// Finished returns the number of runs that reached a terminal outcome.
func (p ProgressSnapshot) Finished() int {
	return p.Succeeded + p.Partial + p.Failed
}
