// Package types provides shared type definitions for the prefixload sync engine.
package types

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/prometheus/client_golang/prometheus"
)

// Rule routes local files whose name starts with LocalNamePrefix to RemotePath.
type Rule struct {
	// LocalNamePrefix is matched against the file name, never the full path
	LocalNamePrefix string `yaml:"local_name_prefix" mapstructure:"local_name_prefix"`

	// RemotePath is the destination prefix inside the bucket
	RemotePath string `yaml:"remote_path" mapstructure:"remote_path"`
}

// String returns a compact rule description for logs.
func (r Rule) String() string {
	return fmt.Sprintf("%s* -> %s", r.LocalNamePrefix, r.RemotePath)
}

// ObjectKey returns the S3 key a file named fileName is uploaded to under this rule.
func (r Rule) ObjectKey(fileName string) string {
	return strings.TrimPrefix(path.Join(r.RemotePath, fileName), "/")
}

// SyncConfig is the validated input of one sync run.
type SyncConfig struct {
	// Bucket is the destination bucket
	Bucket string

	// LocalDir is the directory whose top-level files are matched
	LocalDir string

	// ChunkSize is the part size for multipart uploads and the single-shot threshold
	ChunkSize int64

	// Rules are evaluated in order; a file matching several rules is uploaded once per rule
	Rules []Rule
}

// Candidate is one (local file, matching rule) pair selected for synchronisation.
type Candidate struct {
	// Path is the full local path
	Path string

	// FileName is the base name the rule matched
	FileName string

	// Size is the file size in bytes at listing time
	Size int64

	// Rule is the rule that selected the file
	Rule Rule

	// RuleIndex is the position of Rule in SyncConfig.Rules
	RuleIndex int

	// Key is the destination object key
	Key string
}

// RemoteState is a snapshot of an object's metadata fetched once per candidate.
type RemoteState struct {
	// Key is the S3 object key
	Key string

	// Exists is false when the object is absent
	Exists bool

	// ETag is the entity tag with surrounding quotes removed
	ETag string

	// Size is the object size in bytes
	Size int64
}

// Absent returns the state of a key with no object.
func Absent(key string) RemoteState {
	return RemoteState{Key: key}
}

// NormalizeETag strips the quotes S3 puts around entity tags.
func NormalizeETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	// Key is the S3 object key that was uploaded
	Key string

	// Size is the size of the uploaded object in bytes
	Size int64

	// ETag is the S3 entity tag reported for the committed object
	ETag string

	// Parts is the number of parts, 0 for a single-shot upload
	Parts int

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Duration is how long the upload took
	Duration time.Duration
}

// Configuration types for functional options

// ClientConfig holds configuration for the prefixload client.
type ClientConfig struct {
	Region            string
	Endpoint          string
	ForcePathStyle    bool
	Timeout           time.Duration
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	FileConcurrency   int
	PartConcurrency   int
	RequestsPerSecond float64
	CustomAWSConfig   *aws.Config
	Credentials       aws.CredentialsProvider
	Filesystem        fs.Filesystem // Local filesystem the directory is read from
	Logger            *slog.Logger
	Progress          ProgressFunc
	Registerer        prometheus.Registerer
}

// Option is a functional option for configuring the prefixload client.
type Option func(*ClientConfig)

// SyncOptionConfig holds per-run settings of Client.Sync.
type SyncOptionConfig struct {
	// DryRun decides every candidate without uploading
	DryRun bool

	// RunID tags the report and log lines; generated when empty
	RunID string
}

// SyncOption is a functional option for a single sync run.
type SyncOption func(*SyncOptionConfig)
