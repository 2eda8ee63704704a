package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// S3 multipart limits.
const (
	// MinPartSize is the smallest part S3 accepts for any part but the last.
	MinPartSize int64 = 5 * 1024 * 1024

	// MaxPartSize is the largest part S3 accepts.
	MaxPartSize int64 = 5 * 1024 * 1024 * 1024

	// MaxParts is the highest part number S3 accepts.
	MaxParts = 10000

	// MaxObjectSize is the largest object S3 stores.
	MaxObjectSize int64 = 5 * 1024 * 1024 * 1024 * 1024
)

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
// Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	if err := validateBucketNameBasics(bucket); err != nil {
		return err
	}

	if err := validateBucketNameCharacters(bucket); err != nil {
		return err
	}

	return validateBucketNameStructure(bucket)
}

// ValidateObjectKey validates a destination key built from a rule and a file name.
func ValidateObjectKey(key string) error {
	if key == "" {
		return keyError(key, "object key cannot be empty")
	}

	if hasPathTraversal(key) {
		return keyError(key, "object key cannot contain path traversal sequences")
	}

	// S3 supports up to 1024 bytes
	if len(key) > 1024 {
		return keyError(key, "object key cannot exceed 1024 characters")
	}

	if hasControlCharacters(key) {
		return keyError(key, "object key cannot contain control characters")
	}

	return nil
}

// ValidateRule checks a single prefix rule.
func ValidateRule(rule types.Rule) error {
	if rule.LocalNamePrefix == "" {
		return ruleError(rule, "local_name_prefix cannot be empty")
	}
	if strings.ContainsAny(rule.LocalNamePrefix, `/\`) {
		return ruleError(rule, "local_name_prefix must be a file name prefix, not a path")
	}
	if hasControlCharacters(rule.LocalNamePrefix) || hasControlCharacters(rule.RemotePath) {
		return ruleError(rule, "rule cannot contain control characters")
	}
	if hasPathTraversal(strings.TrimPrefix(rule.RemotePath, "/")) {
		return ruleError(rule, "remote_path cannot contain path traversal sequences")
	}
	return nil
}

// ValidateRules checks every rule and requires at least one.
func ValidateRules(rules []types.Rule) error {
	if len(rules) == 0 {
		return errors.NewError("validateRules", errors.ErrInvalidRule).
			WithMessage("at least one rule is required")
	}
	for i, r := range rules {
		if err := ValidateRule(r); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// ValidateChunkSize checks a configured part size against S3 multipart limits.
func ValidateChunkSize(size int64) error {
	if size < MinPartSize || size > MaxPartSize {
		return errors.NewValidationError("validateChunkSize",
			fmt.Sprintf("part size %d must be between %d and %d bytes", size, MinPartSize, MaxPartSize))
	}
	return nil
}

// ValidatePlan checks that a file of size bytes can be uploaded in parts of chunkSize.
func ValidatePlan(size, chunkSize int64) error {
	if size > MaxObjectSize {
		return errors.NewValidationError("validatePlan",
			fmt.Sprintf("file of %d bytes exceeds the maximum object size", size))
	}
	if n := types.PartCount(size, chunkSize); n > MaxParts {
		return errors.NewValidationError("validatePlan",
			fmt.Sprintf("file of %d bytes needs %d parts at part size %d, limit is %d", size, n, chunkSize, MaxParts))
	}
	return nil
}

// ValidateSyncConfig checks the input of a sync run. Chunk size limits are left
// to the configuration layer so callers may run with small parts against test
// endpoints.
func ValidateSyncConfig(cfg types.SyncConfig) error {
	if err := ValidateBucketName(cfg.Bucket); err != nil {
		return err
	}
	if cfg.LocalDir == "" {
		return errors.NewValidationError("validateSyncConfig", "local directory cannot be empty")
	}
	if cfg.ChunkSize <= 0 {
		return errors.NewValidationError("validateSyncConfig",
			fmt.Sprintf("chunk size must be positive, got %d", cfg.ChunkSize))
	}
	return ValidateRules(cfg.Rules)
}

func keyError(key, msg string) error {
	return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
		WithKey(key).
		WithMessage(msg)
}

func ruleError(rule types.Rule, msg string) error {
	return errors.NewError("validateRule", errors.ErrInvalidRule).
		WithMessage(fmt.Sprintf("%s (%s)", msg, rule))
}

// validateBucketNameBasics validates basic bucket name requirements
func validateBucketNameBasics(bucket string) error {
	if bucket == "" {
		return bucketError(bucket, "bucket name cannot be empty")
	}

	if len(bucket) < 3 || len(bucket) > 63 {
		return bucketError(bucket, "bucket name must be between 3 and 63 characters long")
	}

	return nil
}

// validateBucketNameCharacters validates allowed characters in bucket names
func validateBucketNameCharacters(bucket string) error {
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return bucketError(bucket, "bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	return nil
}

// validateBucketNameStructure validates bucket name structural requirements
func validateBucketNameStructure(bucket string) error {
	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return bucketError(bucket, "bucket name cannot start or end with a hyphen or dot")
	}

	if isIPAddress(bucket) {
		return bucketError(bucket, "bucket name cannot be formatted as an IP address")
	}

	if strings.Contains(bucket, "..") {
		return bucketError(bucket, "bucket name cannot contain two adjacent periods")
	}

	if strings.HasPrefix(bucket, "xn--") || strings.HasSuffix(bucket, "-s3alias") {
		return bucketError(bucket, "bucket name uses a reserved prefix or suffix")
	}

	return nil
}

func bucketError(bucket, msg string) error {
	return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
		WithBucket(bucket).
		WithMessage(msg)
}

func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as a dotted quad
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

// hasPathTraversal reports "." or ".." segments and absolute paths.
func hasPathTraversal(key string) bool {
	for _, seg := range strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." || seg == "." {
			return true
		}
	}

	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, `\`) {
		return true
	}

	// Windows drive letters
	cleaned := strings.ReplaceAll(key, `\`, "/")
	if len(cleaned) >= 3 && cleaned[1] == ':' && cleaned[2] == '/' {
		return true
	}

	return false
}

func hasControlCharacters(s string) bool {
	for _, char := range s {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
