package upload

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// Uploader performs single-shot uploads of local files.
type Uploader struct {
	api    s3api.S3API
	fs     *localfs.FS
	bucket string
	policy retry.Policy
	logger *slog.Logger
}

// New creates an Uploader writing to bucket.
func New(api s3api.S3API, fsys *localfs.FS, bucket string, policy retry.Policy, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Uploader{
		api:    api,
		fs:     fsys,
		bucket: bucket,
		policy: policy,
		logger: logger,
	}
}

// PutWhole uploads the candidate's file with one PutObject call, retrying
// transient failures. The ETag S3 returns must equal want, otherwise an
// integrity error is returned; the object has been written in that case.
func (u *Uploader) PutWhole(ctx context.Context, c types.Candidate, want types.Fingerprint) (*types.UploadResult, error) {
	start := time.Now()

	f, err := u.fs.Open(c.Path)
	if err != nil {
		return nil, errors.NewLocalError("putObject", c.Path, err)
	}
	defer f.Close()

	contentType := DetectContentType(f, c.Size, c.FileName)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(c.Key),
		ContentLength: aws.Int64(c.Size),
		ContentType:   aws.String(contentType),
	}
	if md5sum, err := hex.DecodeString(want.Digest); err == nil && !want.Composite() {
		input.ContentMD5 = aws.String(base64.StdEncoding.EncodeToString(md5sum))
	}

	var out *s3.PutObjectOutput
	err = retry.Do(ctx, u.policy, func(ctx context.Context) error {
		// a fresh reader per attempt so retries resend the whole body
		input.Body = io.NewSectionReader(f, 0, c.Size)
		var err error
		out, err = u.api.PutObject(ctx, input)
		return err
	}, func(attempt int, err error, delay time.Duration) {
		u.logger.Warn("retrying putObject",
			"key", c.Key,
			"attempt", attempt,
			"delay", delay,
			"error", err)
	})
	if err != nil {
		return nil, errors.NewObjectError("putObject", u.bucket, c.Key, err)
	}

	etag := types.NormalizeETag(aws.ToString(out.ETag))
	if !want.Matches(etag) {
		return nil, errors.NewIntegrityError("putObject", u.bucket, c.Key, want.String(), etag)
	}

	return &types.UploadResult{
		Key:       c.Key,
		Size:      c.Size,
		ETag:      etag,
		VersionID: aws.ToString(out.VersionId),
		Duration:  time.Since(start),
	}, nil
}
