package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/sync/executor"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/sync/matcher"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/sync/resolver"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// Manager coordinates the phases of a sync run:
// 1. Matching: list the local directory and pair files with rules
// 2. Execution: resolve, plan and upload each candidate with bounded concurrency
type Manager struct {
	api     s3api.S3API
	fs      *localfs.FS
	matcher *matcher.Matcher
	cfg     Config
	logger  *slog.Logger
}

// NewManager creates a Manager uploading through api and reading from fsys.
func NewManager(api s3api.S3API, fsys *localfs.FS, cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.RunID != "" {
		logger = logger.With("run_id", cfg.RunID)
	}
	return &Manager{
		api:     api,
		fs:      fsys,
		matcher: matcher.New(fsys),
		cfg:     cfg,
		logger:  logger,
	}
}

// Sync performs one run against sc and returns its report.
//
// An invalid configuration or an unreadable directory fails the run before
// any remote request and yields a nil report. Per-candidate failures are
// recorded in the report and never returned as an error. When ctx ends the
// partial report is returned together with the context error; it holds the
// outcomes of the candidates that were started and is empty when matching
// did not finish.
func (m *Manager) Sync(ctx context.Context, sc types.SyncConfig) (*types.Report, error) {
	if err := validation.ValidateSyncConfig(sc); err != nil {
		return nil, err
	}

	report := types.NewReport(sc.Rules)
	report.RunID = m.cfg.RunID

	m.logger.Info("sync started",
		"bucket", sc.Bucket,
		"dir", sc.LocalDir,
		"rules", len(sc.Rules),
		"chunk_size", sc.ChunkSize,
		"dry_run", m.cfg.DryRun)

	candidates, err := m.matcher.Match(ctx, sc.LocalDir, sc.Rules)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Duration = time.Since(report.Started)
			return report, ctxErr
		}
		return nil, err
	}
	for _, c := range candidates {
		report.AddMatched(c.RuleIndex)
	}
	m.logger.Debug("candidates matched", "count", len(candidates))

	err = m.executor(sc).Run(ctx, candidates, report)
	report.Duration = time.Since(report.Started)

	totals := report.Totals()
	m.logger.Info("sync finished",
		"matched", totals.Matched,
		"uploaded", totals.Uploaded,
		"skipped", totals.Skipped,
		"failed", totals.Failed,
		"planned", totals.Planned,
		"bytes", report.BytesUploaded(),
		"duration", report.Duration)

	return report, err
}

// executor wires the per-bucket components of one run.
func (m *Manager) executor(sc types.SyncConfig) *executor.Executor {
	res := resolver.New(m.api, sc.Bucket, m.cfg.Policy, m.logger)
	whole := upload.New(m.api, m.fs, sc.Bucket, m.cfg.Policy, m.logger)
	chunked := multipart.New(m.api, m.fs, multipart.Config{
		Bucket:       sc.Bucket,
		Concurrency:  m.cfg.PartConcurrency,
		Policy:       m.cfg.Policy,
		Logger:       m.logger,
		OnTransition: m.cfg.OnTransition,
	})

	return executor.New(m.fs, res, whole, chunked, executor.Config{
		ChunkSize:   sc.ChunkSize,
		Concurrency: m.cfg.FileConcurrency,
		DryRun:      m.cfg.DryRun,
		Progress:    m.cfg.Progress,
		Observer:    m.cfg.Observer,
		Logger:      m.logger,
	})
}
