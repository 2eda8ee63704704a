package errors

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Kind is the failure category used to decide between retry, abort and reporting.
type Kind int

const (
	// KindUnknown means the error has not been classified.
	KindUnknown Kind = iota

	// KindLocalIO covers unreadable or vanished local files. Fatal for one candidate.
	KindLocalIO

	// KindRemoteTransient covers timeouts, throttling and 5xx responses. Retried with backoff.
	KindRemoteTransient

	// KindRemotePermanent covers authorization failures and malformed requests. Never retried.
	KindRemotePermanent

	// KindIntegrity means a committed upload reported a checksum other than the local fingerprint.
	KindIntegrity

	// KindInvalidInput covers invalid configuration or arguments.
	KindInvalidInput

	// KindCanceled means the caller's context ended.
	KindCanceled
)

// String returns a short lowercase name suitable for log attributes and metric labels.
func (k Kind) String() string {
	switch k {
	case KindLocalIO:
		return "local_io"
	case KindRemoteTransient:
		return "remote_transient"
	case KindRemotePermanent:
		return "remote_permanent"
	case KindIntegrity:
		return "integrity"
	case KindInvalidInput:
		return "invalid_input"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// Retryable reports whether failures of this kind may be retried.
func (k Kind) Retryable() bool {
	return k == KindRemoteTransient
}

// Classify determines the failure category of err.
// An explicit Kind on a wrapped *Error wins; otherwise smithy API error codes,
// HTTP status codes and network errors are inspected.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Kind
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}

	switch {
	case errors.Is(err, ErrChecksumMismatch):
		return KindIntegrity
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidBucketName),
		errors.Is(err, ErrInvalidObjectKey),
		errors.Is(err, ErrInvalidRule):
		return KindInvalidInput
	case errors.Is(err, ErrShortRead):
		return KindLocalIO
	}

	if code := apiCode(err); code != "" {
		if kind, ok := classifyCode(code); ok {
			return kind
		}
	}

	if status := HTTPStatus(err); status != 0 {
		return classifyStatus(status)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindRemoteTransient
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return KindRemoteTransient
	}

	return KindRemotePermanent
}

// HTTPStatus returns the HTTP status code carried by err, or 0 when there is none.
func HTTPStatus(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

func apiCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isThrottleCode(code string) bool {
	switch code {
	case "SlowDown",
		"Throttling",
		"ThrottlingException",
		"RequestLimitExceeded",
		"TooManyRequestsException",
		"RequestThrottled":
		return true
	}
	return false
}

func classifyCode(code string) (Kind, bool) {
	if isThrottleCode(code) {
		return KindRemoteTransient, true
	}

	switch code {
	case "RequestTimeout",
		"RequestTimeoutException",
		"InternalError",
		"ServiceUnavailable",
		"OperationAborted",
		"IncompleteBody":
		return KindRemoteTransient, true
	case "AccessDenied",
		"AllAccessDisabled",
		"InvalidAccessKeyId",
		"SignatureDoesNotMatch",
		"ExpiredToken",
		"NoSuchBucket",
		"NoSuchUpload",
		"InvalidRequest",
		"InvalidArgument",
		"InvalidPart",
		"InvalidPartOrder",
		"EntityTooSmall",
		"EntityTooLarge",
		"InvalidBucketName",
		"KeyTooLongError",
		"MalformedXML",
		"MethodNotAllowed",
		"NotFound",
		"NoSuchKey":
		return KindRemotePermanent, true
	}
	return KindUnknown, false
}

func classifyStatus(status int) Kind {
	switch {
	case status == 408 || status == 429:
		return KindRemoteTransient
	case status >= 500:
		return KindRemoteTransient
	}
	return KindRemotePermanent
}
