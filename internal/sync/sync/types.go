package sync

import (
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/sync/executor"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// Config holds the run-independent settings of a Manager.
type Config struct {
	// FileConcurrency bounds the candidates processed at once
	FileConcurrency int

	// PartConcurrency bounds the parts in flight for one multipart upload
	PartConcurrency int

	// Policy is the retry policy for every remote request
	Policy retry.Policy

	// DryRun decides without uploading
	DryRun bool

	// Progress receives candidate transitions
	Progress types.ProgressFunc

	// Observer receives every final outcome
	Observer executor.Observer

	// OnTransition receives multipart session state changes
	OnTransition func(key string, from, to multipart.State)

	// RunID tags the report and every log line of the run
	RunID string

	Logger *slog.Logger
}
