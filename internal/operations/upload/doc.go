// Package upload performs single-shot PutObject uploads of local files and
// checks the returned ETag against the local fingerprint.
package upload
