// Package validation checks bucket names, object keys, prefix rules and part
// sizes before any request reaches S3.
package validation
