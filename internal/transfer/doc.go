// Package transfer manages multipart S3 transfers.
// This includes session lifecycle, part concurrency, and cleanup of
// sessions that do not commit.
package transfer
