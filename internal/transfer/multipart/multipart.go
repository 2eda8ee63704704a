package multipart

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/sync/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// DefaultConcurrency is the number of parts in flight per upload when none is configured.
const DefaultConcurrency = 4

const abortTimeout = 30 * time.Second

// Config configures an Uploader.
type Config struct {
	// Bucket is the destination bucket
	Bucket string

	// Concurrency bounds the parts in flight for one upload
	Concurrency int

	// Policy is applied to every request of the session
	Policy retry.Policy

	// Logger receives retry and abort diagnostics
	Logger *slog.Logger

	// OnTransition, if set, is called on every session state change
	OnTransition func(key string, from, to State)
}

// Uploader runs multipart upload sessions.
type Uploader struct {
	api    s3api.S3API
	fs     *localfs.FS
	cfg    Config
	logger *slog.Logger
}

// New creates an Uploader.
func New(api s3api.S3API, fsys *localfs.FS, cfg Config) *Uploader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Uploader{
		api:    api,
		fs:     fsys,
		cfg:    cfg,
		logger: logger,
	}
}

// session is owned by the PutChunked call that created it.
type session struct {
	key   string
	id    string
	state State
	plan  types.ChunkPlan

	// slots are indexed by part number - 1 and written by exactly one worker each
	etags   []string
	digests [][]byte
}

func (u *Uploader) transition(s *session, to State) {
	from := s.state
	s.state = to
	if u.cfg.OnTransition != nil {
		u.cfg.OnTransition(s.key, from, to)
	}
	u.logger.Debug("multipart session transition",
		"key", s.key,
		"upload_id", s.id,
		"from", from.String(),
		"to", to.String())
}

// PutChunked uploads the candidate's file in the parts of plan.
//
// Once the session is created it always ends committed or aborted: every exit
// that is not a successful completion issues AbortMultipartUpload, including
// cancellation of ctx. After commit, the ETag S3 reports must equal want, or the
// composite of the locally hashed parts when want is nil; a mismatch is an
// integrity error.
func (u *Uploader) PutChunked(
	ctx context.Context,
	c types.Candidate,
	plan types.ChunkPlan,
	want *types.Fingerprint,
) (*types.UploadResult, error) {
	start := time.Now()

	if err := validation.ValidatePlan(c.Size, plan.ChunkSize); err != nil {
		return nil, err
	}
	if len(plan.Parts) == 0 || plan.Size != c.Size {
		return nil, errors.NewValidationError("putChunked",
			fmt.Sprintf("plan for %d bytes does not fit file of %d bytes", plan.Size, c.Size))
	}

	contentType, err := u.contentType(c)
	if err != nil {
		return nil, err
	}

	s := &session{
		key:     c.Key,
		plan:    plan,
		etags:   make([]string, len(plan.Parts)),
		digests: make([][]byte, len(plan.Parts)),
	}

	if err := u.create(ctx, s, contentType); err != nil {
		return nil, err
	}
	u.transition(s, StateInitiated)

	defer func() {
		if s.state == StateCommitted {
			return
		}
		u.transition(s, StateAborting)
		u.abort(ctx, s)
		u.transition(s, StateAborted)
	}()

	u.transition(s, StatePartsInFlight)
	if err := u.uploadParts(ctx, s, c.Path); err != nil {
		return nil, err
	}

	u.transition(s, StateCompleting)
	out, err := u.complete(ctx, s)
	if err != nil {
		return nil, err
	}
	u.transition(s, StateCommitted)

	expected := localComposite(s.digests)
	if want != nil {
		expected = *want
	}
	etag := types.NormalizeETag(aws.ToString(out.ETag))
	if !expected.Matches(etag) {
		return nil, errors.NewIntegrityError("completeMultipartUpload", u.cfg.Bucket, c.Key, expected.String(), etag)
	}

	return &types.UploadResult{
		Key:       c.Key,
		Size:      c.Size,
		ETag:      etag,
		Parts:     len(plan.Parts),
		VersionID: aws.ToString(out.VersionId),
		Duration:  time.Since(start),
	}, nil
}

func (u *Uploader) contentType(c types.Candidate) (string, error) {
	f, err := u.fs.Open(c.Path)
	if err != nil {
		return "", errors.NewLocalError("createMultipartUpload", c.Path, err)
	}
	defer f.Close()
	return upload.DetectContentType(f, c.Size, c.FileName), nil
}

func (u *Uploader) notify(op, key string) retry.Notify {
	return func(attempt int, err error, delay time.Duration) {
		u.logger.Warn("retrying "+op,
			"key", key,
			"attempt", attempt,
			"delay", delay,
			"error", err)
	}
}

func (u *Uploader) create(ctx context.Context, s *session, contentType string) error {
	var out *s3.CreateMultipartUploadOutput
	err := retry.Do(ctx, u.cfg.Policy, func(ctx context.Context) error {
		var err error
		out, err = u.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket:      aws.String(u.cfg.Bucket),
			Key:         aws.String(s.key),
			ContentType: aws.String(contentType),
		})
		return err
	}, u.notify("createMultipartUpload", s.key))
	if err != nil {
		return errors.NewObjectError("createMultipartUpload", u.cfg.Bucket, s.key, err)
	}
	s.id = aws.ToString(out.UploadId)
	return nil
}

// uploadParts transfers every part with at most Concurrency in flight. The
// first failure cancels the remaining parts.
func (u *Uploader) uploadParts(ctx context.Context, s *session, path string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)

	for i, p := range s.plan.Parts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			etag, digest, err := u.uploadPart(gctx, s, path, p)
			if err != nil {
				return err
			}
			s.etags[i] = etag
			s.digests[i] = digest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.NewObjectError("uploadPart", u.cfg.Bucket, s.key, err)
	}
	return nil
}

// uploadPart hashes the part, sends it with its Content-MD5 and checks the
// returned ETag. Each call reads through its own file handle.
func (u *Uploader) uploadPart(
	ctx context.Context,
	s *session,
	path string,
	p types.Part,
) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, errors.NewObjectError("uploadPart", u.cfg.Bucket, s.key, err)
	}

	f, err := u.fs.Open(path)
	if err != nil {
		return "", nil, errors.NewLocalError("uploadPart", path, err)
	}
	defer f.Close()

	digest, err := fingerprint.PartDigest(f, p.Offset, p.Length)
	if err != nil {
		return "", nil, errors.NewLocalError("uploadPart", path, fmt.Errorf("part %d: %w", p.Number, err))
	}

	var out *s3.UploadPartOutput
	err = retry.Do(ctx, u.cfg.Policy, func(ctx context.Context) error {
		var err error
		out, err = u.api.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(u.cfg.Bucket),
			Key:           aws.String(s.key),
			UploadId:      aws.String(s.id),
			PartNumber:    aws.Int32(p.Number),
			ContentLength: aws.Int64(p.Length),
			ContentMD5:    aws.String(base64.StdEncoding.EncodeToString(digest)),
			Body:          io.NewSectionReader(f, p.Offset, p.Length),
		})
		return err
	}, u.notify(fmt.Sprintf("uploadPart %d", p.Number), s.key))
	if err != nil {
		return "", nil, errors.NewObjectError("uploadPart", u.cfg.Bucket, s.key, fmt.Errorf("part %d: %w", p.Number, err))
	}

	etag := aws.ToString(out.ETag)
	if local := hex.EncodeToString(digest); types.NormalizeETag(etag) != local {
		return "", nil, errors.NewIntegrityError(
			fmt.Sprintf("uploadPart %d", p.Number), u.cfg.Bucket, s.key, local, types.NormalizeETag(etag))
	}

	return etag, digest, nil
}

func (u *Uploader) complete(ctx context.Context, s *session) (*s3.CompleteMultipartUploadOutput, error) {
	parts := make([]awstypes.CompletedPart, 0, len(s.plan.Parts))
	for i, p := range s.plan.Parts {
		if s.etags[i] == "" {
			return nil, errors.NewObjectError("completeMultipartUpload", u.cfg.Bucket, s.key,
				fmt.Errorf("%w: part %d", errors.ErrMissingPart, p.Number))
		}
		parts = append(parts, awstypes.CompletedPart{
			ETag:       aws.String(s.etags[i]),
			PartNumber: aws.Int32(p.Number),
		})
	}
	slices.SortFunc(parts, func(a, b awstypes.CompletedPart) int {
		return int(aws.ToInt32(a.PartNumber) - aws.ToInt32(b.PartNumber))
	})

	var out *s3.CompleteMultipartUploadOutput
	err := retry.Do(ctx, u.cfg.Policy, func(ctx context.Context) error {
		var err error
		out, err = u.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
			Bucket:          aws.String(u.cfg.Bucket),
			Key:             aws.String(s.key),
			UploadId:        aws.String(s.id),
			MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: parts},
		})
		return err
	}, u.notify("completeMultipartUpload", s.key))
	if err != nil {
		return nil, errors.NewObjectError("completeMultipartUpload", u.cfg.Bucket, s.key, err)
	}
	return out, nil
}

// abort releases the session on S3. It runs on a context detached from the
// caller's cancellation so an interrupted run still cleans up.
func (u *Uploader) abort(ctx context.Context, s *session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	err := retry.Do(ctx, u.cfg.Policy, func(ctx context.Context) error {
		_, err := u.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(u.cfg.Bucket),
			Key:      aws.String(s.key),
			UploadId: aws.String(s.id),
		})
		return err
	}, u.notify("abortMultipartUpload", s.key))
	if err != nil {
		u.logger.Error("failed to abort multipart upload; parts may remain until a lifecycle rule removes them",
			"key", s.key,
			"upload_id", s.id,
			"error", err)
	}
}

func localComposite(digests [][]byte) types.Fingerprint {
	h := md5.New()
	for _, d := range digests {
		h.Write(d)
	}
	return types.CompositeFingerprint(hex.EncodeToString(h.Sum(nil)), len(digests))
}
