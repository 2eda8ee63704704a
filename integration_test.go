//go:build integration
// +build integration

package prefixload_test

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

const mib = 1024 * 1024

func newIntegrationClient(t *testing.T, ls *testutil.LocalStack) *prefixload.Client {
	t.Helper()
	c, err := prefixload.New(
		prefixload.WithRegion(ls.Region),
		prefixload.WithEndpoint(ls.Endpoint),
		prefixload.WithForcePathStyle(true),
		prefixload.WithCredentials(testutil.StaticCredentials()),
		prefixload.WithBackoff(50*time.Millisecond, time.Second),
	)
	require.NoError(t, err)
	return c
}

// minioETag reads the ETag of key through minio-go, a client independent of the
// SDK the engine uses.
func minioETag(t *testing.T, ls *testutil.LocalStack, key string) string {
	t.Helper()
	u, err := url.Parse(ls.Endpoint)
	require.NoError(t, err)

	mc, err := minio.New(u.Host, &minio.Options{
		Creds:        miniocreds.NewStaticV4("test", "test", ""),
		Secure:       u.Scheme == "https",
		Region:       ls.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	require.NoError(t, err)

	info, err := mc.StatObject(context.Background(), ls.Bucket, key, minio.StatObjectOptions{})
	require.NoError(t, err)
	return info.ETag
}

// TestIntegrationSync uploads a single-part and a multipart file, checks that the
// ETags LocalStack stores match the local computation and that a second run skips both.
func TestIntegrationSync(t *testing.T) {
	ls := testutil.StartLocalStack(t)
	ctx := context.Background()

	dir := t.TempDir()
	small := testutil.PatternedData(3 * mib)
	big := testutil.PatternedData(12*mib + 17)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db_backup_small.sql"), small, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db_backup_big.sql"), big, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	client := newIntegrationClient(t, ls)
	cfg := types.SyncConfig{
		Bucket:    ls.Bucket,
		LocalDir:  dir,
		ChunkSize: 5 * mib,
		Rules:     []types.Rule{{LocalNamePrefix: "db_backup_", RemotePath: "database/"}},
	}

	report, err := client.Sync(ctx, cfg)
	require.NoError(t, err)
	require.Empty(t, report.Failures())
	assert.Equal(t, 2, report.Totals().Uploaded)

	etag, err := ls.ETag(ctx, "database/db_backup_big.sql")
	require.NoError(t, err)
	assert.Equal(t, testutil.ReferenceETag(big, 5*mib), etag)
	assert.Equal(t, etag, minioETag(t, ls, "database/db_backup_big.sql"))

	etag, err = ls.ETag(ctx, "database/db_backup_small.sql")
	require.NoError(t, err)
	assert.Equal(t, testutil.ReferenceETag(small, 5*mib), etag)

	open, err := ls.OpenUploads(ctx)
	require.NoError(t, err)
	assert.Zero(t, open)

	report, err = client.Sync(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Totals().Skipped)
	assert.Zero(t, report.Totals().Uploaded)
}

func TestIntegrationCheckBucketAccess(t *testing.T) {
	ls := testutil.StartLocalStack(t)
	client := newIntegrationClient(t, ls)

	ok, err := client.CheckBucketAccess(context.Background(), ls.Bucket)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = client.CheckBucketAccess(context.Background(), "prefixload-missing-bucket")
	assert.Error(t, err)
}
