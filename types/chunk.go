package types

import (
	"fmt"
	"strconv"
)

// Part is one contiguous byte range of a file in a multipart layout.
type Part struct {
	// Number is the 1-based S3 part number
	Number int32

	// Offset is the position of the first byte of the part
	Offset int64

	// Length is the number of bytes in the part
	Length int64
}

// ChunkPlan is the deterministic part layout of a file of Size bytes cut at ChunkSize.
type ChunkPlan struct {
	Size      int64
	ChunkSize int64
	Parts     []Part
}

// NewChunkPlan lays out size bytes in parts of chunkSize bytes.
// Every part but the last is exactly chunkSize long, the last holds 1..chunkSize bytes.
// A file no larger than chunkSize, including an empty one, has a single part.
func NewChunkPlan(size, chunkSize int64) (ChunkPlan, error) {
	if chunkSize <= 0 {
		return ChunkPlan{}, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if size < 0 {
		return ChunkPlan{}, fmt.Errorf("size must not be negative, got %d", size)
	}

	n := PartCount(size, chunkSize)
	parts := make([]Part, n)
	for i := range parts {
		offset := int64(i) * chunkSize
		length := chunkSize
		if offset+length > size {
			length = size - offset
		}
		parts[i] = Part{
			Number: int32(i + 1),
			Offset: offset,
			Length: length,
		}
	}

	return ChunkPlan{
		Size:      size,
		ChunkSize: chunkSize,
		Parts:     parts,
	}, nil
}

// PartCount returns ceil(size/chunkSize), and 1 for an empty file.
func PartCount(size, chunkSize int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// Chunked reports whether the plan needs a multipart upload.
func (p ChunkPlan) Chunked() bool {
	return len(p.Parts) > 1
}

// Fingerprint is the ETag S3 is expected to assign to a file uploaded with a given chunk plan.
type Fingerprint struct {
	// Digest is the hex MD5 of the content (simple) or of the concatenated part digests (composite)
	Digest string

	// Parts is the part count of a composite fingerprint, 0 for a simple one
	Parts int
}

// SimpleFingerprint builds a whole-object fingerprint.
func SimpleFingerprint(digest string) Fingerprint {
	return Fingerprint{Digest: digest}
}

// CompositeFingerprint builds a multipart fingerprint over parts parts.
func CompositeFingerprint(digest string, parts int) Fingerprint {
	return Fingerprint{Digest: digest, Parts: parts}
}

// Composite reports whether the fingerprint describes a multipart object.
func (f Fingerprint) Composite() bool {
	return f.Parts > 0
}

// String renders the fingerprint the way S3 renders the ETag.
func (f Fingerprint) String() string {
	if f.Composite() {
		return f.Digest + "-" + strconv.Itoa(f.Parts)
	}
	return f.Digest
}

// Matches reports whether etag, quoted or not, is exactly this fingerprint.
func (f Fingerprint) Matches(etag string) bool {
	return f.String() == NormalizeETag(etag)
}
