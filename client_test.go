package prefixload

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

var staticCreds = credentials.NewStaticCredentialsProvider("test", "test", "")

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		opts       []types.Option
		wantRegion string
		pathStyle  bool
		endpoint   string
	}{
		{
			name:       "region option",
			opts:       []types.Option{WithRegion("eu-central-1")},
			wantRegion: "eu-central-1",
		},
		{
			name: "custom endpoint with path style",
			opts: []types.Option{
				WithRegion("us-east-1"),
				WithEndpoint("http://localhost:4566"),
				WithForcePathStyle(true),
			},
			wantRegion: "us-east-1",
			pathStyle:  true,
			endpoint:   "http://localhost:4566",
		},
		{
			name:       "custom aws config without region",
			opts:       []types.Option{WithAWSConfig(&aws.Config{Credentials: staticCreds})},
			wantRegion: DefaultRegion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]types.Option{WithCredentials(staticCreds)}, tt.opts...)
			c, err := New(opts...)
			require.NoError(t, err)

			raw, ok := c.api.(*s3.Client)
			require.True(t, ok)
			o := raw.Options()
			assert.Equal(t, tt.wantRegion, o.Region)
			assert.Equal(t, tt.pathStyle, o.UsePathStyle)
			assert.Equal(t, tt.endpoint, aws.ToString(o.BaseEndpoint))
			assert.Equal(t, aws.RequestChecksumCalculationWhenRequired, o.RequestChecksumCalculation)
			assert.Equal(t, aws.ResponseChecksumValidationWhenRequired, o.ResponseChecksumValidation)
			assert.Equal(t, 1, o.RetryMaxAttempts)
		})
	}
}

func TestNew_RateLimited(t *testing.T) {
	c, err := New(WithCredentials(staticCreds), WithRegion("us-east-1"), WithRequestsPerSecond(50))
	require.NoError(t, err)
	_, ok := c.api.(*s3api.RateLimited)
	assert.True(t, ok)
}

func TestOptions_Defaults(t *testing.T) {
	c := NewWithClient(&testutil.MockS3Client{},
		WithMaxAttempts(0),
		WithFileConcurrency(-1),
		WithPartConcurrency(8),
		WithBackoff(time.Millisecond, 0),
	)

	assert.Equal(t, 5, c.cfg.MaxAttempts)
	assert.Equal(t, 2, c.cfg.FileConcurrency)
	assert.Equal(t, 8, c.cfg.PartConcurrency)
	assert.Equal(t, time.Millisecond, c.cfg.BaseDelay)
	assert.Equal(t, 10*time.Second, c.cfg.MaxDelay)
	assert.NotNil(t, c.logger)
	assert.Nil(t, c.metrics)
}

func TestClient_CheckBucketAccess(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		responses []error
		want      bool
		wantErr   bool
		wantCalls int32
	}{
		{name: "accessible", bucket: "backups", responses: []error{nil}, want: true, wantCalls: 1},
		{name: "forbidden", bucket: "backups", responses: []error{testutil.HTTPError(403)}, wantCalls: 1},
		{name: "access denied code", bucket: "backups", responses: []error{testutil.APIError("AccessDenied")}, wantCalls: 1},
		{
			name:      "missing bucket",
			bucket:    "backups",
			responses: []error{testutil.APIError("NoSuchBucket")},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "transient then accessible",
			bucket:    "backups",
			responses: []error{testutil.HTTPError(503), nil},
			want:      true,
			wantCalls: 2,
		},
		{name: "invalid name", bucket: "Not_A_Bucket", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			mock := &testutil.MockS3Client{
				HeadBucketFunc: func(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
					n := calls.Add(1)
					if err := tt.responses[n-1]; err != nil {
						return nil, err
					}
					return &s3.HeadBucketOutput{}, nil
				},
			}
			c := NewWithClient(mock, WithBackoff(time.Millisecond, time.Millisecond))

			ok, err := c.CheckBucketAccess(context.Background(), tt.bucket)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestClient_CheckBucketAccess_InvalidNameKind(t *testing.T) {
	_, err := NewWithClient(&testutil.MockS3Client{}).CheckBucketAccess(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err) || errors.Classify(err) == errors.KindInvalidInput)
}
