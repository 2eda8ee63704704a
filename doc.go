// Package prefixload synchronises the top-level files of a local directory to
// an S3 bucket according to prefix rules.
//
// Every file whose name starts with a rule's prefix is uploaded to the rule's
// remote path, unless the object already stored there carries the same S3
// ETag the file would produce. Files up to the chunk size are sent with a
// single PutObject; larger files go through a multipart upload whose parts
// are sent concurrently and which is always either committed or aborted.
// After every upload the ETag S3 reports is compared with the locally
// computed one.
//
// Example usage:
//
//	client, err := prefixload.New(
//	    prefixload.WithRegion("eu-central-1"),
//	    prefixload.WithEndpoint("https://s3.example.com"),
//	    prefixload.WithForcePathStyle(true),
//	)
//	if err != nil {
//	    return err
//	}
//
//	report, err := client.Sync(ctx, types.SyncConfig{
//	    Bucket:    "backups",
//	    LocalDir:  "/var/exports",
//	    ChunkSize: 15 * 1024 * 1024,
//	    Rules:     []types.Rule{{LocalNamePrefix: "db_backup_", RemotePath: "database/"}},
//	})
package prefixload
