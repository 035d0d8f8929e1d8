package scheduler

import (
	"sync"
	"time"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/entity"
)

// Tracker aggregates per-item outcomes into a progress snapshot. All counters
// live behind one mutex; callers only get atomic increment-and-read
// operations, never the raw counters.
type Tracker struct {
	mu         sync.Mutex
	discovered int
	dispatched int
	succeeded  int
	partial    int
	failed     int
	startedAt  time.Time
	updatedAt  time.Time
}

func NewTracker() *Tracker {
	now := time.Now().UTC()
	return &Tracker{startedAt: now, updatedAt: now}
}

// OnDiscovered records the size of the candidate list.
func (t *Tracker) OnDiscovered(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discovered += n
	t.updatedAt = time.Now().UTC()
}

// OnDispatched records one item handed to the worker pool.
func (t *Tracker) OnDispatched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatched++
	t.updatedAt = time.Now().UTC()
}

// OnOutcome records one terminal run outcome.
func (t *Tracker) OnOutcome(out entity.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch out.Kind {
	case constants.OutcomeSucceeded:
		t.succeeded++
	case constants.OutcomePartial:
		t.partial++
	default:
		t.failed++
	}
	t.updatedAt = time.Now().UTC()
}

// Current returns the progress snapshot. The completion estimate is a linear
// extrapolation: average time per finished item times the remaining count.
func (t *Tracker) Current() entity.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := entity.ProgressSnapshot{
		Discovered: t.discovered,
		Dispatched: t.dispatched,
		Succeeded:  t.succeeded,
		Partial:    t.partial,
		Failed:     t.failed,
		StartedAt:  t.startedAt,
		UpdatedAt:  t.updatedAt,
	}
	finished := snap.Finished()
	if finished > 0 {
		snap.SuccessRate = float64(t.succeeded+t.partial) / float64(finished)
	}
	if remaining := t.dispatched - finished; remaining > 0 && finished > 0 {
		perItem := time.Since(t.startedAt) / time.Duration(finished)
		eta := time.Now().UTC().Add(perItem * time.Duration(remaining))
		snap.EstimatedDone = &eta
	}
	return snap
}
