// Package multipart runs S3 multipart upload sessions for local files.
//
// Parts are read straight from disk through section readers, hashed, and sent
// by a bounded worker pool. A session that does not commit is always aborted.
package multipart
