// Package internal contains private implementation details of prefixload.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - s3api: The S3 operations the engine calls, plus request rate limiting
//   - sync: Matching, remote resolution, planning and execution of a run
//   - operations: Single-request uploads
//   - transfer: Multipart upload sessions
//   - localfs: Read access to the local directory
//   - retry: Backoff and retry classification
//   - validation: Input validation logic
//   - pool: Buffer reuse for hashing
//   - metrics: Prometheus collectors for runs
//   - credentials, editor: Support for the login and config commands
package internal
