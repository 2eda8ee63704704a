package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// PatternedData returns size deterministic bytes.
func PatternedData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// ReferenceETag computes, on an in-memory slice, the unquoted ETag S3 assigns to
// data uploaded in parts of chunk bytes.
func ReferenceETag(data []byte, chunk int64) string {
	if int64(len(data)) <= chunk {
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:])
	}

	var concat []byte
	parts := 0
	for off := int64(0); off < int64(len(data)); off += chunk {
		end := off + chunk
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		sum := md5.Sum(data[off:end])
		concat = append(concat, sum[:]...)
		parts++
	}
	sum := md5.Sum(concat)
	return fmt.Sprintf("%s-%d", hex.EncodeToString(sum[:]), parts)
}

// Quote wraps an ETag in double quotes as S3 does.
func Quote(etag string) string {
	return `"` + etag + `"`
}

// APIError returns an S3 style API error with the given code.
func APIError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

// HTTPError returns a transport error carrying an HTTP status code.
func HTTPError(status int) error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
		Err:      fmt.Errorf("http status %d", status),
	}
}
