package localfs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(list []os.FileInfo) []string {
	out := make([]string, len(list))
	for i, fi := range list {
		out[i] = fi.Name()
	}
	return out
}

func TestFS_List_Sorted(t *testing.T) {
	fs := NewInMemoryFS()
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		require.NoError(t, fs.WriteFile("/data/"+name, []byte(name), 0o644))
	}

	list, err := fs.List("/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, names(list))
}

func TestFS_List_Missing(t *testing.T) {
	fs := NewInMemoryFS()

	_, err := fs.List("/nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localfs: list")
}

func TestFS_OpenReadAt(t *testing.T) {
	fs := NewInMemoryFS()
	require.NoError(t, fs.WriteFile("/data/file.bin", []byte("0123456789"), 0o644))

	f, err := fs.Open("/data/file.bin")
	require.NoError(t, err)
	defer f.Close()

	section := io.NewSectionReader(f, 3, 4)
	b, err := io.ReadAll(section)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(b))
}

func TestNewOSFS_Symlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0o644))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "link.txt")))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	fs := NewOSFS()
	list, err := fs.List(dir)
	require.NoError(t, err)
	require.Len(t, list, 3)

	modes := map[string]os.FileMode{}
	for _, fi := range list {
		modes[fi.Name()] = fi.Mode()
	}
	assert.True(t, modes["real.txt"].IsRegular())
	assert.True(t, modes["link.txt"]&os.ModeSymlink != 0)
	assert.True(t, modes["sub"].IsDir())
}

func TestNew(t *testing.T) {
	t.Run("nil selects os", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("x"), 0o644))

		info, err := New(nil).Stat(filepath.Join(dir, "a"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), info.Size())
	})

	t.Run("wraps given filesystem", func(t *testing.T) {
		mem := billy.NewInMemoryFS()
		require.NoError(t, mem.WriteFile("/x/a", []byte("abc"), 0o644))

		fs := New(mem)
		assert.Same(t, mem, fs.Filesystem())
		info, err := fs.Stat("/x/a")
		require.NoError(t, err)
		assert.Equal(t, int64(3), info.Size())
	})
}
