package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/sync/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/sync/planner"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// DefaultConcurrency is the number of candidates processed at once when none is configured.
const DefaultConcurrency = 2

// Resolver fetches the remote state of a key.
type Resolver interface {
	Resolve(ctx context.Context, key string) (types.RemoteState, error)
}

// WholeUploader uploads a file with a single request.
type WholeUploader interface {
	PutWhole(ctx context.Context, c types.Candidate, want types.Fingerprint) (*types.UploadResult, error)
}

// ChunkedUploader uploads a file through a multipart session.
type ChunkedUploader interface {
	PutChunked(
		ctx context.Context,
		c types.Candidate,
		plan types.ChunkPlan,
		want *types.Fingerprint,
	) (*types.UploadResult, error)
}

// Observer receives every final outcome, e.g. to update metrics.
type Observer interface {
	ObserveOutcome(o types.Outcome)
}

// Config configures an Executor.
type Config struct {
	// ChunkSize is the part size and single-shot threshold
	ChunkSize int64

	// Concurrency bounds the candidates processed at once
	Concurrency int

	// DryRun stops after planning
	DryRun bool

	// Progress receives candidate transitions
	Progress types.ProgressFunc

	// Observer receives outcomes
	Observer Observer

	Logger *slog.Logger
}

// Executor drives each candidate through resolve, plan and upload.
type Executor struct {
	fs       *localfs.FS
	resolver Resolver
	whole    WholeUploader
	chunked  ChunkedUploader
	cfg      Config
	logger   *slog.Logger
}

// New creates an Executor.
func New(fsys *localfs.FS, resolver Resolver, whole WholeUploader, chunked ChunkedUploader, cfg Config) *Executor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		fs:       fsys,
		resolver: resolver,
		whole:    whole,
		chunked:  chunked,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run processes candidates with at most Concurrency in flight and records every
// outcome in report. A failed candidate never stops the others. When ctx ends,
// candidates not yet started are not scheduled and the context error is returned.
func (e *Executor) Run(ctx context.Context, candidates []types.Candidate, report *types.Report) error {
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			report.Record(e.Process(ctx, c))
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}

// Process handles one candidate and returns its outcome.
func (e *Executor) Process(ctx context.Context, c types.Candidate) types.Outcome {
	start := time.Now()
	e.emit(types.ProgressEvent{Type: types.EventStart, Candidate: c})

	o := e.process(ctx, c)
	o.Candidate = c
	o.Duration = time.Since(start)

	e.log(o)
	if e.cfg.Observer != nil {
		e.cfg.Observer.ObserveOutcome(o)
	}
	e.emit(types.ProgressEvent{Type: types.EventComplete, Candidate: c, Outcome: &o})
	return o
}

func (e *Executor) process(ctx context.Context, c types.Candidate) types.Outcome {
	if err := validation.ValidateObjectKey(c.Key); err != nil {
		return failed(types.ActionSkip, err)
	}

	remote, err := e.resolver.Resolve(ctx, c.Key)
	if err != nil {
		return failed(types.ActionSkip, err)
	}

	decision, err := planner.Decide(c, remote, e.cfg.ChunkSize, func(plan types.ChunkPlan) (types.Fingerprint, error) {
		return fingerprint.ComputeFile(e.fs, c.Path, plan.Size, plan.ChunkSize)
	})
	if err != nil {
		return failed(types.ActionSkip, err)
	}
	e.emit(types.ProgressEvent{Type: types.EventDecision, Candidate: c, Decision: &decision})
	e.logger.Debug("decision",
		"key", c.Key,
		"action", decision.Action.String(),
		"reason", decision.Reason)

	switch {
	case decision.Action == types.ActionSkip:
		return types.Outcome{Action: types.ActionSkip, Status: types.StatusSkipped}
	case e.cfg.DryRun:
		return types.Outcome{Action: decision.Action, Status: types.StatusPlanned, Bytes: c.Size}
	}

	if err := e.checkUnchanged(c); err != nil {
		return failed(decision.Action, err)
	}

	var res *types.UploadResult
	if decision.Action == types.ActionPutChunked {
		res, err = e.chunked.PutChunked(ctx, c, decision.Plan, decision.Fingerprint)
	} else {
		res, err = e.putWhole(ctx, c, decision)
	}
	if err != nil {
		return failed(decision.Action, err)
	}

	return types.Outcome{Action: decision.Action, Status: types.StatusUploaded, Bytes: res.Size}
}

func (e *Executor) putWhole(ctx context.Context, c types.Candidate, d types.Decision) (*types.UploadResult, error) {
	want := d.Fingerprint
	if want == nil {
		fp, err := fingerprint.ComputeFile(e.fs, c.Path, c.Size, e.cfg.ChunkSize)
		if err != nil {
			return nil, err
		}
		want = &fp
	}
	return e.whole.PutWhole(ctx, c, *want)
}

// checkUnchanged fails when the file no longer has the size it was listed with.
func (e *Executor) checkUnchanged(c types.Candidate) error {
	info, err := e.fs.Stat(c.Path)
	if err != nil {
		return errors.NewLocalError("stat", c.Path, err)
	}
	if info.Size() != c.Size {
		return errors.NewLocalError("stat", c.Path,
			fmt.Errorf("file changed during sync: listed %d bytes, now %d", c.Size, info.Size()))
	}
	return nil
}

func failed(action types.Action, err error) types.Outcome {
	return types.Outcome{Action: action, Status: types.StatusFailed, Err: err}
}

func (e *Executor) emit(ev types.ProgressEvent) {
	if e.cfg.Progress != nil {
		e.cfg.Progress(ev)
	}
}

func (e *Executor) log(o types.Outcome) {
	attrs := []any{
		"key", o.Candidate.Key,
		"file", o.Candidate.FileName,
		"rule", o.Candidate.Rule.String(),
		"action", o.Action.String(),
		"bytes", o.Bytes,
		"duration", o.Duration,
	}

	switch o.Status {
	case types.StatusFailed:
		kind := errors.Classify(o.Err)
		attrs = append(attrs, "kind", kind.String(), "error", o.Err)
		if kind == errors.KindIntegrity {
			e.logger.Error("integrity check failed after upload", attrs...)
			return
		}
		e.logger.Error("candidate failed", attrs...)
	case types.StatusUploaded:
		e.logger.Info("uploaded", attrs...)
	case types.StatusPlanned:
		e.logger.Info("would upload", attrs...)
	default:
		e.logger.Info("unchanged, skipped", attrs...)
	}
}
