package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zhada/appraisal-extractor/internal/common"
	"github.com/zhada/appraisal-extractor/internal/discovery"
	"github.com/zhada/appraisal-extractor/internal/export"
	"github.com/zhada/appraisal-extractor/internal/ledger"
	"github.com/zhada/appraisal-extractor/internal/llm/openai"
	"github.com/zhada/appraisal-extractor/internal/parse"
	"github.com/zhada/appraisal-extractor/internal/pipeline"
	"github.com/zhada/appraisal-extractor/internal/scheduler"
	"github.com/zhada/appraisal-extractor/internal/status"
	store "github.com/zhada/appraisal-extractor/internal/storage"
	"github.com/zhada/appraisal-extractor/internal/validator"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		maxItems    = flag.Int("max-items", 0, "maximum number of documents to process (0 = all)")
		concurrency = flag.Int("concurrency", 0, "worker pool size (overrides WORKER_CONCURRENCY)")
		headless    = flag.Bool("headless", true, "run the portal session headless")
		out         = flag.String("out", "", "output XLSX file path (optional)")
		statusAddr  = flag.String("status-addr", "", "address for the progress endpoint (optional, e.g. :8090)")
	)
	flag.Parse()

	// Local .env is optional
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Stop signal: finish in-flight runs, dispatch nothing further.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	cfg.Portal.Headless = *headless
	if *concurrency > 0 {
		cfg.Scheduler.Concurrency = *concurrency
	}
	if *statusAddr != "" {
		cfg.Scheduler.StatusAddr = *statusAddr
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Blob store: Azure when configured, local directory otherwise.
	var blob store.Store
	if cfg.Storage.ConnectionString != "" {
		az, err := store.NewAzureStore(cfg.Storage.ConnectionString, cfg.Storage.Container, logger)
		if err != nil {
			logger.Error("failed to connect blob storage", "error", err)
			os.Exit(1)
		}
		blob = az
	} else {
		logger.Warn("AZURE_CONNECTION_STRING not set, persisting to local directory", "dir", cfg.Storage.LocalDir)
		fs, err := store.NewFSStore(cfg.Storage.LocalDir, logger)
		if err != nil {
			logger.Error("failed to open local store", "error", err)
			os.Exit(1)
		}
		blob = fs
	}

	// Dedup ledger backend
	var led ledger.Ledger
	switch cfg.Ledger.Backend {
	case "sqlite":
		sq, err := ledger.OpenSQLiteLedger(cfg.Ledger.SQLitePath, logger)
		if err != nil {
			logger.Error("failed to open sqlite ledger", "error", err)
			os.Exit(1)
		}
		defer sq.Close()
		led = sq
	case "postgres":
		pg, err := ledger.OpenPGLedger(ctx, cfg.Ledger.PostgresDSN, logger)
		if err != nil {
			logger.Error("failed to open postgres ledger", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		led = pg
	default:
		led = ledger.NewBlobLedger(blob, logger)
	}

	// Collaborators
	portal, err := discovery.NewPortalClient(discovery.Config{
		BaseURL:  cfg.Portal.BaseURL,
		Username: cfg.Portal.Username,
		Password: cfg.Portal.Password,
		Headless: cfg.Portal.Headless,
		Timeout:  cfg.Portal.Timeout,
	}, logger)
	if err != nil {
		logger.Error("failed to build portal client", "error", err)
		os.Exit(1)
	}
	parser := parse.NewLlamaParseClient(parse.Config{
		BaseURL:      cfg.Parse.BaseURL,
		APIKey:       cfg.Parse.APIKey,
		PollInterval: cfg.Parse.PollInterval,
		Timeout:      cfg.Parse.Timeout,
	}, logger)
	extractor := openai.NewClient(openai.Config{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	logger.Info("collaborators initialized", "model", cfg.LLM.Model, "portal", cfg.Portal.BaseURL)

	processor := pipeline.NewProcessor(pipeline.Config{
		MaxAttempts:    cfg.Scheduler.MaxAttempts,
		BaseBackoff:    cfg.Scheduler.BaseBackoff,
		BackoffFactor:  cfg.Scheduler.BackoffFactor,
		AttemptTimeout: cfg.Scheduler.AttemptTimeout,
		MinTextLength:  cfg.Scheduler.MinTextLength,
	}, logger, portal, parser, extractor, validator.New(logger), blob)

	sched := scheduler.New(scheduler.Config{
		Concurrency: cfg.Scheduler.Concurrency,
		MaxAttempts: cfg.Scheduler.MaxAttempts,
		BaseBackoff: cfg.Scheduler.BaseBackoff,
	}, logger, portal, led, processor, blob)

	// Optional progress endpoint
	if cfg.Scheduler.StatusAddr != "" {
		srv := status.NewServer(cfg.Scheduler.StatusAddr, sched.Tracker(), logger)
		srv.Start()
		defer srv.Close()
	}

	snap, err := sched.Run(ctx, *maxItems)
	if err != nil {
		logger.Error("scheduling pass failed", "error", err)
		os.Exit(1)
	}

	// Optional XLSX export of this pass's records
	if *out != "" {
		var rows []export.Row
		for _, res := range sched.Results() {
			if res.Record != nil {
				rows = append(rows, export.Row{Key: res.Key, Record: res.Record})
			}
		}
		xlsx, err := export.NewService(logger).ExportRecordsXLSX(rows)
		if err != nil {
			logger.Error("failed to export records", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
			logger.Error("failed to write output file", "error", err)
			os.Exit(1)
		}
		logger.Info("exported records", "output", *out, "rows", len(rows))
	}

	// Per-item failures do not fail the batch; only scheduler-fatal errors do.
	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents discovered: %d\n", snap.Discovered)
	fmt.Printf("- Documents dispatched: %d\n", snap.Dispatched)
	fmt.Printf("- Successful extractions: %d\n", snap.Succeeded)
	fmt.Printf("- Partial extractions: %d\n", snap.Partial)
	fmt.Printf("- Failed: %d\n", snap.Failed)
	fmt.Printf("- Success rate: %.1f%%\n", snap.SuccessRate*100)
}
