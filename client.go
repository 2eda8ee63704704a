package prefixload

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// DefaultRegion is used when neither an option nor the environment names one.
const DefaultRegion = "us-east-1"

// Client uploads local directories to S3.
// It is safe for concurrent use; each Sync call is an independent run.
type Client struct {
	// api is the S3 client, possibly wrapped by a rate limiter
	api s3api.S3API

	// fs is the local filesystem directories are read from
	fs *localfs.FS

	cfg    types.ClientConfig
	logger *slog.Logger

	// metrics is nil unless a registerer was configured
	metrics *metrics.Recorder
}

func defaultConfig() *types.ClientConfig {
	p := retry.DefaultPolicy()
	return &types.ClientConfig{
		MaxAttempts:     p.MaxAttempts,
		BaseDelay:       p.BaseDelay,
		MaxDelay:        p.MaxDelay,
		FileConcurrency: 2,
		PartConcurrency: 4,
	}
}

// New creates a client with the provided options.
// Credentials come from the option or the default AWS credential chain.
//
// The SDK's own retries are disabled so the client's retry policy is the only
// one, and checksums are only computed when an operation requires them so
// S3-compatible endpoints without flexible checksum support accept the requests.
func New(opts ...types.Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var awsCfg aws.Config
	if cfg.CustomAWSConfig != nil {
		awsCfg = *cfg.CustomAWSConfig
	} else {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.Credentials != nil {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(cfg.Credentials))
		}
		var err error
		awsCfg, err = config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, errors.NewError("client initialization", err)
		}
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = DefaultRegion
	}
	awsCfg.RetryMaxAttempts = 1

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.ForcePathStyle
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		},
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.Timeout > 0 {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	var api s3api.S3API = s3.NewFromConfig(awsCfg, s3Opts...)
	if cfg.RequestsPerSecond > 0 {
		api = s3api.NewRateLimited(api, cfg.RequestsPerSecond, cfg.FileConcurrency*cfg.PartConcurrency)
	}

	return newClient(api, cfg), nil
}

// NewWithClient creates a client with a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(api s3api.S3API, opts ...types.Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newClient(api, cfg)
}

func newClient(api s3api.S3API, cfg *types.ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		api:    api,
		fs:     localfs.New(cfg.Filesystem),
		cfg:    *cfg,
		logger: logger,
	}
	if cfg.Registerer != nil {
		c.metrics = metrics.NewRecorder(cfg.Registerer)
	}
	return c
}

func (c *Client) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.cfg.MaxAttempts,
		BaseDelay:   c.cfg.BaseDelay,
		MaxDelay:    c.cfg.MaxDelay,
	}
}

// CheckBucketAccess reports whether the configured credentials can use bucket.
// A 403 response yields false without an error; any other failure, including
// a missing bucket, is returned.
func (c *Client) CheckBucketAccess(ctx context.Context, bucket string) (bool, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return false, err
	}

	start := time.Now()
	err := retry.Do(ctx, c.policy(), func(ctx context.Context) error {
		_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
		return err
	}, nil)

	switch {
	case err == nil:
		c.logger.Debug("bucket accessible", "bucket", bucket, "duration", time.Since(start))
		return true, nil
	case errors.IsAccessDenied(err):
		c.logger.Warn("bucket access denied", "bucket", bucket)
		return false, nil
	default:
		return false, errors.NewError("headBucket", err).WithBucket(bucket)
	}
}
