// Package errors provides error types and classification for prefixload sync operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a sync operation error with context about the operation that failed.
// It wraps the underlying AWS SDK or filesystem error and records how the failure
// is classified so callers can decide whether to retry, abort or report it.
type Error struct {
	// Op is the operation that failed (e.g., "putObject", "uploadPart", "fingerprint")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Path is the local file path (if applicable)
	Path string

	// Kind is the failure category. KindUnknown means the category is derived
	// from Err by Classify.
	Kind Kind

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	case e.Key != "":
		return fmt.Sprintf("%s object %s: %v", e.Op, e.Key, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s file %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the string error code for the classified failure.
func (e *Error) Code() ErrorCode {
	return codeFor(Classify(e), e.Err)
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithPath adds local file path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithKind pins the failure category, overriding classification of the wrapped error.
func (e *Error) WithKind(kind Kind) *Error {
	e.Kind = kind
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// NewLocalError creates a local I/O error for the file at path.
func NewLocalError(op, path string, err error) *Error {
	return &Error{
		Op:   op,
		Path: path,
		Kind: KindLocalIO,
		Err:  err,
	}
}

// NewIntegrityError reports that the checksum S3 returned after a committed write
// differs from the locally computed one.
func NewIntegrityError(op, bucket, key, want, got string) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Kind:   KindIntegrity,
		Err:    fmt.Errorf("%w: local %s, remote %s", ErrChecksumMismatch, want, got),
	}
}

// NewValidationError creates an invalid input error wrapping ErrInvalidInput.
func NewValidationError(op, message string) *Error {
	return &Error{
		Op:   op,
		Kind: KindInvalidInput,
		Err:  fmt.Errorf("%w: %s", ErrInvalidInput, message),
	}
}

// Sentinel errors for common sync failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("prefixload: object not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("prefixload: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("prefixload: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("prefixload: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("prefixload: invalid object key")

	// ErrInvalidRule indicates that a prefix rule is malformed
	ErrInvalidRule = errors.New("prefixload: invalid prefix rule")

	// ErrChecksumMismatch indicates that the remote ETag does not match the local fingerprint
	ErrChecksumMismatch = errors.New("prefixload: checksum mismatch")

	// ErrShortRead indicates that a file yielded fewer bytes than its recorded size
	ErrShortRead = errors.New("prefixload: short read")

	// ErrMissingPart indicates that a multipart session reached completion with an unconfirmed part
	ErrMissingPart = errors.New("prefixload: part not confirmed")

	// ErrInvalidCredentials indicates that the AWS credentials are invalid
	ErrInvalidCredentials = errors.New("prefixload: invalid credentials")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
// Both the sentinel and S3 "NotFound"/"NoSuchKey" responses are recognised.
func IsObjectNotFound(err error) bool {
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}
	switch apiCode(err) {
	case "NotFound", "NoSuchKey":
		return true
	}
	return HTTPStatus(err) == 404
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	if errors.Is(err, ErrAccessDenied) {
		return true
	}
	switch apiCode(err) {
	case "AccessDenied", "Forbidden":
		return true
	}
	return HTTPStatus(err) == 403
}

// IsIntegrity reports whether err is an integrity inconsistency.
func IsIntegrity(err error) bool {
	return Classify(err) == KindIntegrity
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
