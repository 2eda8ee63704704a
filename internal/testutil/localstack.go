package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	localStackImage  = "localstack/localstack:3.8"
	localStackRegion = "us-east-1"
)

// LocalStack is a running LocalStack container with one bucket created for a test.
type LocalStack struct {
	container *localstack.LocalStackContainer

	// Client talks to the container with path-style addressing
	Client *s3.Client

	// Endpoint is the S3 endpoint URL
	Endpoint string

	// Region is the region the client is configured for
	Region string

	// Bucket is a freshly created, uniquely named bucket
	Bucket string
}

// StaticCredentials returns the credentials LocalStack accepts.
func StaticCredentials() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider("test", "test", "")
}

// StartLocalStack starts a LocalStack container, creates a bucket and registers
// cleanup with t. The test is skipped in short mode.
func StartLocalStack(t *testing.T) *LocalStack {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping LocalStack test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := localstack.Run(ctx,
		localStackImage,
		testcontainers.WithEnv(map[string]string{"SERVICES": "s3"}),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("start LocalStack: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate LocalStack: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("LocalStack host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		t.Fatalf("LocalStack port: %v", err)
	}

	ls := &LocalStack{
		container: container,
		Endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
		Region:    localStackRegion,
		Bucket:    "prefixload-" + uuid.NewString()[:8],
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(ls.Region),
		config.WithCredentialsProvider(StaticCredentials()),
	)
	if err != nil {
		t.Fatalf("load AWS config: %v", err)
	}
	ls.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(ls.Endpoint)
	})

	if _, err := ls.Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(ls.Bucket)}); err != nil {
		t.Fatalf("create bucket %s: %v", ls.Bucket, err)
	}

	return ls
}

// ETag returns the unquoted ETag of key, or "" when the object is missing.
func (ls *LocalStack) ETag(ctx context.Context, key string) (string, error) {
	out, err := ls.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ls.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	etag := aws.ToString(out.ETag)
	if len(etag) >= 2 && etag[0] == '"' {
		etag = etag[1 : len(etag)-1]
	}
	return etag, nil
}

// OpenUploads returns the number of multipart uploads pending in the bucket.
func (ls *LocalStack) OpenUploads(ctx context.Context) (int, error) {
	out, err := ls.Client.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{
		Bucket: aws.String(ls.Bucket),
	})
	if err != nil {
		return 0, fmt.Errorf("list multipart uploads: %w", err)
	}
	return len(out.Uploads), nil
}
