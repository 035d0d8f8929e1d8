// Package scheduler discovers candidate work, filters out completed items
// through the dedup ledger, and fans the rest out to a bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/common"
	"github.com/zhada/appraisal-extractor/internal/discovery"
	"github.com/zhada/appraisal-extractor/internal/entity"
	"github.com/zhada/appraisal-extractor/internal/ledger"
	"github.com/zhada/appraisal-extractor/internal/retry"
	"github.com/zhada/appraisal-extractor/internal/storage"
)

// Runner executes one pipeline run to completion. Satisfied by
// pipeline.Processor.
type Runner interface {
	Execute(ctx context.Context, item entity.WorkItem) entity.Outcome
}

// Config holds scheduling knobs.
type Config struct {
	Concurrency int // worker pool size, default 4
	MaxAttempts int // retry budget for the discovery listing call
	BaseBackoff time.Duration
}

// Summary is the end-of-pass report persisted alongside results.
type Summary struct {
	Progress    entity.ProgressSnapshot `json:"progress"`
	Items       []ItemResult            `json:"items"`
	CompletedAt time.Time               `json:"completed_at"`
}

// ItemResult is one line of the pass summary.
type ItemResult struct {
	Key      string                  `json:"key"`
	Outcome  constants.OutcomeKind   `json:"outcome"`
	Stage    constants.RunStage      `json:"stage"`
	Error    string                  `json:"error,omitempty"`
	Duration string                  `json:"duration"`
	Record   *entity.ExtractedRecord `json:"extracted_data,omitempty"`
}

// Scheduler owns one scheduling pass end to end.
type Scheduler struct {
	cfg     Config
	logger  *slog.Logger
	disc    discovery.Discoverer
	led     ledger.Ledger
	runner  Runner
	store   storage.Store
	tracker *Tracker

	mu      sync.Mutex
	results []ItemResult
}

func New(cfg Config, logger *slog.Logger, disc discovery.Discoverer, led ledger.Ledger, runner Runner, store storage.Store) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		logger:  logger,
		disc:    disc,
		led:     led,
		runner:  runner,
		store:   store,
		tracker: NewTracker(),
	}
}

// Tracker exposes the progress aggregate for external polling.
func (s *Scheduler) Tracker() *Tracker {
	return s.tracker
}

// Run executes one scheduling pass: load the ledger, list candidates, filter,
// dispatch to the worker pool, and report. maxItems <= 0 means no limit.
//
// Only ledger or discovery being entirely unreachable aborts the pass;
// per-item failures are counted and carried in the summary.
func (s *Scheduler) Run(ctx context.Context, maxItems int) (entity.ProgressSnapshot, error) {
	// Ledger first: dedup lookups must not cost a network call per item.
	if err := s.led.Load(ctx); err != nil {
		return s.tracker.Current(), common.Fatalf("scheduler", "load ledger: %v", err)
	}

	listPolicy := retry.Policy{MaxAttempts: s.cfg.MaxAttempts, BaseDelay: s.cfg.BaseBackoff}
	candidates, err := retry.DoValue(ctx, s.logger, "scheduler.list_candidates", listPolicy,
		func(ctx context.Context) ([]entity.WorkItem, error) {
			return s.disc.ListCandidates(ctx)
		})
	if err != nil {
		return s.tracker.Current(), common.Fatalf("scheduler", "list candidates: %v", err)
	}
	s.tracker.OnDiscovered(len(candidates))

	// Filter already-processed items, preserving discovery order.
	pending := candidates[:0:0]
	for _, item := range candidates {
		if s.led.IsProcessed(item.Key) {
			continue
		}
		pending = append(pending, item)
	}
	if maxItems > 0 && len(pending) > maxItems {
		pending = pending[:maxItems]
	}
	s.logger.Info("scheduler.pass.start",
		"discovered", len(candidates),
		"pending", len(pending),
		"concurrency", s.cfg.Concurrency,
	)

	work := make(chan entity.WorkItem)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				s.runOne(ctx, item)
			}
		}()
	}

	// Dispatch until done or the stop signal fires; in-flight runs finish
	// naturally either way.
dispatch:
	for _, item := range pending {
		select {
		case <-ctx.Done():
			s.logger.Warn("scheduler.dispatch.stopped", "reason", ctx.Err())
			break dispatch
		case work <- item:
			s.tracker.OnDispatched()
		}
	}
	close(work)
	wg.Wait()

	snap := s.tracker.Current()
	s.uploadSummary(ctx, snap)
	s.logger.Info("scheduler.pass.done",
		"dispatched", snap.Dispatched,
		"succeeded", snap.Succeeded,
		"partial", snap.Partial,
		"failed", snap.Failed,
		"success_rate", fmt.Sprintf("%.1f%%", snap.SuccessRate*100),
	)
	return snap, nil
}

// runOne executes a single run and records its terminal outcome. Failed items
// are not re-enqueued: they were never marked processed, so the next pass
// rediscovers them.
func (s *Scheduler) runOne(ctx context.Context, item entity.WorkItem) {
	out := s.runner.Execute(ctx, item)

	if out.Kind != constants.OutcomeFailed {
		if err := s.led.MarkProcessed(ctx, item.Key, time.Now().UTC()); err != nil {
			// The run completed; a ledger write miss only risks re-processing,
			// and overwrites are idempotent.
			s.logger.Warn("scheduler.ledger_mark_failed", "key", item.Key, "error", err)
		}
	}
	s.tracker.OnOutcome(out)

	res := ItemResult{
		Key:      out.Key,
		Outcome:  out.Kind,
		Stage:    out.Stage,
		Duration: out.Duration.Round(time.Millisecond).String(),
		Record:   out.Record,
	}
	if out.Err != nil {
		res.Error = out.Err.Error()
	}
	s.mu.Lock()
	s.results = append(s.results, res)
	s.mu.Unlock()
}

// Results returns the per-item outcomes recorded so far.
func (s *Scheduler) Results() []ItemResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ItemResult, len(s.results))
	copy(out, s.results)
	return out
}

// uploadSummary persists the pass summary next to the results. Best effort;
// a summary miss never fails the pass.
func (s *Scheduler) uploadSummary(ctx context.Context, snap entity.ProgressSnapshot) {
	if s.store == nil {
		return
	}
	summary := Summary{
		Progress:    snap,
		Items:       s.Results(),
		CompletedAt: time.Now().UTC(),
	}
	path := constants.SummaryFolder + "summary_" + time.Now().UTC().Format("20060102_150405") + ".json"
	if err := s.store.PutJSON(ctx, path, summary); err != nil {
		s.logger.Warn("scheduler.summary_upload_failed", "path", path, "error", err)
		return
	}
	s.logger.Info("scheduler.summary_uploaded", "path", path)
}
