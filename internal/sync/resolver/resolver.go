// Package resolver fetches the remote state of object keys.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// Resolver looks up object metadata with one HeadObject per key.
type Resolver struct {
	api    s3api.S3API
	bucket string
	policy retry.Policy
	logger *slog.Logger
}

// New creates a resolver for bucket.
func New(api s3api.S3API, bucket string, policy retry.Policy, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		api:    api,
		bucket: bucket,
		policy: policy,
		logger: logger,
	}
}

// Resolve returns the state of key. A missing object is types.Absent, not an
// error. Transient failures are retried; anything else is returned classified.
func (r *Resolver) Resolve(ctx context.Context, key string) (types.RemoteState, error) {
	var out *s3.HeadObjectOutput

	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		var err error
		out, err = r.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
		})
		if err != nil && errors.IsObjectNotFound(err) {
			return nil
		}
		return err
	}, func(attempt int, err error, delay time.Duration) {
		r.logger.Debug("retrying headObject",
			"key", key,
			"attempt", attempt,
			"delay", delay,
			"error", err)
	})
	if err != nil {
		return types.RemoteState{}, errors.NewObjectError("headObject", r.bucket, key, err)
	}

	if out == nil {
		return types.Absent(key), nil
	}

	return types.RemoteState{
		Key:    key,
		Exists: true,
		ETag:   types.NormalizeETag(aws.ToString(out.ETag)),
		Size:   aws.ToInt64(out.ContentLength),
	}, nil
}
