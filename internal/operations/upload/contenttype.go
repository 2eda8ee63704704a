package upload

import (
	"io"
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

// DefaultContentType is used when neither content nor extension identify the file.
const DefaultContentType = "application/octet-stream"

// DetectContentType sniffs the first bytes of r and falls back to the
// extension of name.
func DetectContentType(r io.ReaderAt, size int64, name string) string {
	n := min(size, sniffLen)
	if n > 0 {
		buf := make([]byte, n)
		if read, _ := r.ReadAt(buf, 0); read > 0 {
			if mt := mimetype.Detect(buf[:read]); mt != nil && mt.String() != DefaultContentType {
				return mt.String()
			}
		}
	}

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return DefaultContentType
}
