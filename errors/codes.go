package errors

// ErrorCode represents a specific error condition surfaced to callers and logs.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Permission errors.

	// CodeUnauthorized indicates the request lacks valid authentication credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the authenticated user lacks permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Infrastructure errors.

	// CodeIO indicates a local file could not be read.
	CodeIO ErrorCode = "IO_ERROR"

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the rate limit has been exceeded.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeUnavailable indicates the service is temporarily unavailable.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Execution errors.

	// CodeIntegrity indicates the remote checksum disagrees with the local fingerprint.
	CodeIntegrity ErrorCode = "INTEGRITY_MISMATCH"

	// CodeCanceled indicates the operation was cancelled by the caller.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeExecutionFailed indicates a general execution failure.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

func codeFor(kind Kind, err error) ErrorCode {
	switch kind {
	case KindLocalIO:
		return CodeIO
	case KindIntegrity:
		return CodeIntegrity
	case KindInvalidInput:
		return CodeInvalidInput
	case KindCanceled:
		return CodeCanceled
	case KindRemoteTransient:
		switch status := HTTPStatus(err); {
		case status == 429 || isThrottleCode(apiCode(err)):
			return CodeRateLimit
		case status == 408 || apiCode(err) == "RequestTimeout":
			return CodeTimeout
		case status >= 500:
			return CodeUnavailable
		}
		return CodeNetwork
	case KindRemotePermanent:
		switch {
		case IsObjectNotFound(err):
			return CodeNotFound
		case IsAccessDenied(err):
			return CodeForbidden
		case apiCode(err) == "InvalidAccessKeyId" || apiCode(err) == "SignatureDoesNotMatch":
			return CodeUnauthorized
		}
		return CodeExecutionFailed
	}
	return CodeUnknown
}
