package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// Compute returns the expected ETag of the first size bytes of r uploaded in
// parts of chunkSize bytes.
func Compute(r io.ReaderAt, size, chunkSize int64) (types.Fingerprint, error) {
	plan, err := types.NewChunkPlan(size, chunkSize)
	if err != nil {
		return types.Fingerprint{}, errors.NewError("fingerprint", err).WithKind(errors.KindInvalidInput)
	}
	return ComputePlan(r, plan)
}

// ComputePlan returns the expected ETag of r uploaded with the part layout of plan.
func ComputePlan(r io.ReaderAt, plan types.ChunkPlan) (types.Fingerprint, error) {
	if !plan.Chunked() {
		sum, err := PartDigest(r, 0, plan.Size)
		if err != nil {
			return types.Fingerprint{}, err
		}
		return types.SimpleFingerprint(hex.EncodeToString(sum)), nil
	}

	concat := make([]byte, 0, len(plan.Parts)*md5.Size)
	for _, p := range plan.Parts {
		sum, err := PartDigest(r, p.Offset, p.Length)
		if err != nil {
			return types.Fingerprint{}, fmt.Errorf("part %d: %w", p.Number, err)
		}
		concat = append(concat, sum...)
	}

	total := md5.Sum(concat)
	return types.CompositeFingerprint(hex.EncodeToString(total[:]), len(plan.Parts)), nil
}

// ComputeFile opens path on fsys and fingerprints its first size bytes.
// Failures are local I/O errors of the candidate.
func ComputeFile(fsys *localfs.FS, path string, size, chunkSize int64) (types.Fingerprint, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return types.Fingerprint{}, errors.NewLocalError("fingerprint", path, err)
	}
	defer f.Close()

	fp, err := Compute(f, size, chunkSize)
	if err != nil {
		if errors.Classify(err) == errors.KindInvalidInput {
			return types.Fingerprint{}, err
		}
		return types.Fingerprint{}, errors.NewLocalError("fingerprint", path, err)
	}
	return fp, nil
}

// PartDigest returns the binary MD5 of length bytes of r starting at offset.
// Reading fewer than length bytes is an error wrapping errors.ErrShortRead.
func PartDigest(r io.ReaderAt, offset, length int64) ([]byte, error) {
	h := md5.New()

	buf := pool.GetHashBuffer()
	defer pool.PutHashBuffer(buf)

	n, err := io.CopyBuffer(h, io.NewSectionReader(r, offset, length), *buf)
	if err != nil {
		return nil, fmt.Errorf("read at offset %d: %w", offset+n, err)
	}
	if n != length {
		return nil, fmt.Errorf("%w: got %d of %d bytes at offset %d", errors.ErrShortRead, n, length, offset)
	}

	return h.Sum(nil), nil
}
