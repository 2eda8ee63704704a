package prefixload

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/sync/sync"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// Sync uploads the files of sc.LocalDir selected by sc.Rules to sc.Bucket.
//
// Each (file, rule) pair is processed independently: the remote object is
// looked up once, the file is skipped when its S3 ETag already matches, and
// otherwise uploaded whole or in parts of sc.ChunkSize. Failures of single
// files are recorded in the report; the returned error is only set when the
// run itself could not proceed.
//
// Returns:
//   - *types.Report: per-rule counts and every outcome
//   - error: invalid configuration, an unreadable directory or cancellation
//
// Errors:
//   - ErrInvalidInput, ErrInvalidBucketName, ErrInvalidRule: invalid sc
//   - local I/O errors when sc.LocalDir cannot be listed
//   - context.Canceled or context.DeadlineExceeded, with the partial report
//
// Example:
//
//	report, err := client.Sync(ctx, cfg, prefixload.WithDryRun(true))
//	if err != nil {
//	    return fmt.Errorf("sync failed: %w", err)
//	}
//	t := report.Totals()
//	fmt.Printf("Matched: %d, Uploaded: %d, Skipped: %d, Failed: %d\n", t.Matched, t.Uploaded, t.Skipped, t.Failed)
func (c *Client) Sync(ctx context.Context, sc types.SyncConfig, opts ...types.SyncOption) (*types.Report, error) {
	so := &types.SyncOptionConfig{}
	for _, opt := range opts {
		opt(so)
	}
	if so.RunID == "" {
		so.RunID = uuid.NewString()
	}
	if c.cfg.Filesystem == nil && sc.LocalDir != "" {
		// The OS filesystem is rooted at "/".
		abs, err := filepath.Abs(sc.LocalDir)
		if err != nil {
			return nil, errors.NewLocalError("listDirectory", sc.LocalDir, err)
		}
		sc.LocalDir = abs
	}

	cfg := sync.Config{
		FileConcurrency: c.cfg.FileConcurrency,
		PartConcurrency: c.cfg.PartConcurrency,
		Policy:          c.policy(),
		DryRun:          so.DryRun,
		Progress:        c.cfg.Progress,
		RunID:           so.RunID,
		Logger:          c.logger,
	}
	if c.metrics != nil {
		cfg.Observer = c.metrics
		cfg.OnTransition = c.metrics.ObserveTransition
	}

	report, err := sync.NewManager(c.api, c.fs, cfg).Sync(ctx, sc)
	if report != nil && c.metrics != nil {
		c.metrics.ObserveReport(report)
	}
	return report, err
}

