// Package operations contains the single-request S3 operations used by a sync run.
//
// Each operation is isolated into its own subpackage for better organization
// and testability.
package operations
