// Package pipeline drives one document through the extraction state machine:
// download, text extraction, AI extraction, validation, upload. Every stage
// that talks to an external collaborator goes through the retry controller.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/common"
	"github.com/zhada/appraisal-extractor/internal/discovery"
	"github.com/zhada/appraisal-extractor/internal/entity"
	"github.com/zhada/appraisal-extractor/internal/llm"
	"github.com/zhada/appraisal-extractor/internal/parse"
	"github.com/zhada/appraisal-extractor/internal/retry"
	"github.com/zhada/appraisal-extractor/internal/storage"
	"github.com/zhada/appraisal-extractor/internal/validator"
)

// Config holds the per-stage retry and timeout knobs.
type Config struct {
	MaxAttempts    int           // retry budget per external call, default 3
	BaseBackoff    time.Duration // default 1s
	BackoffFactor  float64       // default 2
	AttemptTimeout time.Duration // per-attempt deadline, default 90s
	MinTextLength  int           // below this, extraction is degenerate, default 100
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 90 * time.Second
	}
	if c.MinTextLength <= 0 {
		c.MinTextLength = 100
	}
	return c
}

// Processor executes pipeline runs. Safe for concurrent use; all per-run
// state lives on the Run.
type Processor struct {
	cfg       Config
	logger    *slog.Logger
	disc      discovery.Discoverer
	parser    parse.TextExtractor
	extractor llm.StructuredExtractor
	valid     *validator.Validator
	store     storage.Store
	policy    retry.Policy
}

func NewProcessor(
	cfg Config,
	logger *slog.Logger,
	disc discovery.Discoverer,
	parser parse.TextExtractor,
	extractor llm.StructuredExtractor,
	valid *validator.Validator,
	store storage.Store,
) *Processor {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if valid == nil {
		valid = validator.New(logger)
	}
	return &Processor{
		cfg:       cfg,
		logger:    logger,
		disc:      disc,
		parser:    parser,
		extractor: extractor,
		valid:     valid,
		store:     store,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseBackoff,
			Multiplier:  cfg.BackoffFactor,
			Jitter:      0.5,
		},
	}
}

// Execute runs the full state machine for one work item and returns its
// terminal outcome. Stage-local failures never escalate beyond this run.
func (p *Processor) Execute(ctx context.Context, item entity.WorkItem) entity.Outcome {
	run := newRun(item)
	ctx = common.WithRunID(common.WithLoanKey(ctx, item.Key), run.ID)
	log := p.logger.With("run_id", run.ID, "key", item.Key)
	log.Info("pipeline.run.start", "filename", item.Filename)

	// Discovered -> Downloading
	run.advance()
	data, n, err := retry.DoValueN(ctx, log, "pipeline.download", p.policy, func(ctx context.Context) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		defer cancel()
		return p.disc.FetchBytes(ctx, item.SourceLocator)
	})
	run.recordAttempts(n)
	if err != nil {
		return p.failed(log, run, err)
	}

	// Downloading -> TextExtracting
	run.advance()
	text, n, err := retry.DoValueN(ctx, log, "pipeline.text_extract", p.policy, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		defer cancel()
		return p.parser.ExtractText(ctx, item.Filename, data)
	})
	run.recordAttempts(n)
	if err != nil {
		return p.failed(log, run, err)
	}
	if len(text) < p.cfg.MinTextLength {
		return p.failed(log, run, common.Permanent("pipeline.text_extract",
			fmt.Errorf("no extractable content: %d chars", len(text))))
	}
	run.text = text

	// TextExtracting -> AIExtracting
	run.advance()
	type aiResult struct {
		payload map[string]any
		raw     []byte
	}
	res, n, err := retry.DoValueN(ctx, log, "pipeline.ai_extract", p.policy, func(ctx context.Context) (aiResult, error) {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		defer cancel()
		payload, raw, err := p.extractor.ExtractStructured(ctx, llm.ExtractRequest{
			Text:         run.text,
			FilenameHint: item.Filename,
		})
		return aiResult{payload: payload, raw: raw}, err
	})
	run.recordAttempts(n)
	if err != nil {
		return p.failed(log, run, err)
	}

	// AIExtracting -> Validating. Validation always produces a record;
	// incompleteness is a flagged outcome, not an error.
	run.advance()
	rec := p.valid.Validate(res.payload, res.raw, item.Filename)
	run.record = &rec

	// Validating -> Uploading
	run.advance()
	_, n, err = retry.DoValueN(ctx, log, "pipeline.upload", p.policy, func(ctx context.Context) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		defer cancel()
		if err := p.store.PutObject(ctx, constants.DocumentPath(item.Key, item.Filename), data); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, p.store.PutJSON(ctx, constants.ResultPath(item.Key), run.record)
	})
	run.recordAttempts(n)
	if err != nil {
		return p.failed(log, run, err)
	}

	// Uploading -> Completed
	out := run.complete()
	log.Info("pipeline.run.done",
		"outcome", out.Kind,
		"complete", rec.Complete,
		"missing_fields", len(rec.MissingFields),
		"anomalies", len(rec.Anomalies),
		"text_len", out.TextLen,
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out
}

func (p *Processor) failed(log *slog.Logger, run *Run, err error) entity.Outcome {
	out := run.fail(err)
	log.Error("pipeline.run.failed",
		"stage", out.Stage,
		"class", common.ClassOf(err).String(),
		"attempts", run.Attempts[out.Stage],
		"error", err,
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out
}
