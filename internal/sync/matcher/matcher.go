// Package matcher selects the files of a local directory that match prefix rules.
//
// Listing is flat: only regular files directly inside the directory are
// considered. Subdirectories, symlinks and special files are ignored.
package matcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/localfs"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// Matcher pairs local files with the rules whose prefix their name starts with.
type Matcher struct {
	fs *localfs.FS
}

// New creates a matcher reading from fsys.
func New(fsys *localfs.FS) *Matcher {
	return &Matcher{fs: fsys}
}

// Match lists dir and returns one candidate per (file, rule) match.
// Candidates are ordered by rule, then by file name. A file matching no rule is
// left out. Listing errors are local I/O errors.
func (m *Matcher) Match(ctx context.Context, dir string, rules []types.Rule) ([]types.Candidate, error) {
	entries, err := m.fs.List(dir)
	if err != nil {
		return nil, errors.NewLocalError("listDirectory", dir, err)
	}

	files := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.Mode().IsRegular() {
			files = append(files, e)
		}
	}

	var candidates []types.Candidate
	for i, rule := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, f := range files {
			if !strings.HasPrefix(f.Name(), rule.LocalNamePrefix) {
				continue
			}
			candidates = append(candidates, types.Candidate{
				Path:      filepath.Join(dir, f.Name()),
				FileName:  f.Name(),
				Size:      f.Size(),
				Rule:      rule,
				RuleIndex: i,
				Key:       rule.ObjectKey(f.Name()),
			})
		}
	}

	return candidates, nil
}
