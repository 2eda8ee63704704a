package prefixload

import (
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// WithRegion sets the AWS region.
// If not specified, the region from the environment is used, falling back to us-east-1.
func WithRegion(region string) types.Option {
	return func(c *types.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) types.Option {
	return func(c *types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) types.Option {
	return func(c *types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithTimeout sets the HTTP timeout of a single request.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) types.Option {
	return func(c *types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithMaxAttempts sets the total number of attempts of a remote operation,
// including the first one. Values below 1 keep the default of 5.
func WithMaxAttempts(attempts int) types.Option {
	return func(c *types.ClientConfig) {
		if attempts > 0 {
			c.MaxAttempts = attempts
		}
	}
}

// WithBackoff sets the base and maximum delay between attempts.
func WithBackoff(base, maxDelay time.Duration) types.Option {
	return func(c *types.ClientConfig) {
		if base > 0 {
			c.BaseDelay = base
		}
		if maxDelay > 0 {
			c.MaxDelay = maxDelay
		}
	}
}

// WithFileConcurrency sets how many files are processed at once. Default is 2.
func WithFileConcurrency(n int) types.Option {
	return func(c *types.ClientConfig) {
		if n > 0 {
			c.FileConcurrency = n
		}
	}
}

// WithPartConcurrency sets how many parts of one multipart upload are in flight. Default is 4.
func WithPartConcurrency(n int) types.Option {
	return func(c *types.ClientConfig) {
		if n > 0 {
			c.PartConcurrency = n
		}
	}
}

// WithRequestsPerSecond caps the request rate to S3. Zero disables pacing.
func WithRequestsPerSecond(rps float64) types.Option {
	return func(c *types.ClientConfig) {
		c.RequestsPerSecond = rps
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) types.Option {
	return func(c *types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithCredentials sets the credentials provider used instead of the default chain.
func WithCredentials(provider aws.CredentialsProvider) types.Option {
	return func(c *types.ClientConfig) {
		c.Credentials = provider
	}
}

// WithFilesystem sets the filesystem local directories are read from.
// This allows using in-memory filesystems for testing.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) types.Option {
	return func(c *types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithLogger sets the structured logger. Default discards all records.
func WithLogger(logger *slog.Logger) types.Option {
	return func(c *types.ClientConfig) {
		c.Logger = logger
	}
}

// WithProgress sets a callback receiving per-file transitions.
func WithProgress(fn types.ProgressFunc) types.Option {
	return func(c *types.ClientConfig) {
		c.Progress = fn
	}
}

// WithMetrics registers run metrics on reg.
func WithMetrics(reg prometheus.Registerer) types.Option {
	return func(c *types.ClientConfig) {
		c.Registerer = reg
	}
}

// WithDryRun makes a sync run decide every file without uploading.
func WithDryRun(dryRun bool) types.SyncOption {
	return func(c *types.SyncOptionConfig) {
		c.DryRun = dryRun
	}
}

// WithRunID sets the identifier attached to the report and every log record of a run.
func WithRunID(id string) types.SyncOption {
	return func(c *types.SyncOptionConfig) {
		c.RunID = id
	}
}
