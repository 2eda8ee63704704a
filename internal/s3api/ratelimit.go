package s3api

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"
)

// RateLimited paces every request of the wrapped client through a shared token bucket.
// A request waits for a token before it is sent; cancellation while waiting
// returns the context error without contacting S3.
type RateLimited struct {
	api     S3API
	limiter *rate.Limiter
}

var _ S3API = (*RateLimited)(nil)

// NewRateLimited wraps api so that at most rps requests per second are issued,
// with bursts of up to burst requests.
func NewRateLimited(api S3API, rps float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// HeadBucket waits for a token and delegates.
func (r *RateLimited) HeadBucket(
	ctx context.Context,
	params *s3.HeadBucketInput,
	optFns ...func(*s3.Options),
) (*s3.HeadBucketOutput, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.api.HeadBucket(ctx, params, optFns...)
}

// HeadObject waits for a token and delegates.
func (r *RateLimited) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	optFns ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.api.HeadObject(ctx, params, optFns...)
}

// PutObject waits for a token and delegates.
func (r *RateLimited) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.api.PutObject(ctx, params, optFns...)
}

// CreateMultipartUpload waits for a token and delegates.
func (r *RateLimited) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.api.CreateMultipartUpload(ctx, params, optFns...)
}

// UploadPart waits for a token and delegates.
func (r *RateLimited) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.api.UploadPart(ctx, params, optFns...)
}

// CompleteMultipartUpload waits for a token and delegates.
func (r *RateLimited) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.api.CompleteMultipartUpload(ctx, params, optFns...)
}

// AbortMultipartUpload waits for a token and delegates.
func (r *RateLimited) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.api.AbortMultipartUpload(ctx, params, optFns...)
}
