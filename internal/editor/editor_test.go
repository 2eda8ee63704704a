package editor_test

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/editor"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "visual wins", env: map[string]string{"VISUAL": "vim", "EDITOR": "nano"}, want: "vim"},
		{name: "editor with args", env: map[string]string{"EDITOR": "code --wait"}, want: "code"},
		{name: "blank falls back", env: map[string]string{"EDITOR": "  "}, want: editor.DefaultProgram()},
		{name: "unset", env: map[string]string{}, want: editor.DefaultProgram()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := editor.FromEnv(func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.want, l.Program())
		})
	}
}

func TestOpen_PassesPath(t *testing.T) {
	skipOnWindows(t)
	path := filepath.Join(t.TempDir(), "config.yml")

	res, err := editor.New("touch").Open(context.Background(), path, editor.WithStreams(nil, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.FileExists(t, path)
}

func TestOpen_ArgsPrecedePath(t *testing.T) {
	skipOnWindows(t)
	var out bytes.Buffer

	_, err := editor.New("echo", "-n", "editing").Open(context.Background(), "file.yml",
		editor.WithStreams(nil, &out, nil))
	require.NoError(t, err)
	assert.Equal(t, "editing file.yml", out.String())
}

func TestOpen_Env(t *testing.T) {
	skipOnWindows(t)
	var out bytes.Buffer

	_, err := editor.New("sh", "-c", `printf "%s" "$PREFIXLOAD_EDIT"`).Open(context.Background(), "ignored",
		editor.WithStreams(nil, &out, nil), editor.WithEnvVar("PREFIXLOAD_EDIT", "1"))
	require.NoError(t, err)
	assert.Equal(t, "1", out.String())
}

func TestOpen_Failures(t *testing.T) {
	skipOnWindows(t)

	res, err := editor.New("false").Open(context.Background(), "x", editor.WithStreams(nil, nil, nil))
	require.Error(t, err)
	assert.Equal(t, 1, res.ExitCode)

	res, err = editor.New("prefixload-no-such-editor").Open(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = editor.New("sleep", "5").Open(ctx, "1", editor.WithStreams(nil, nil, nil))
	require.Error(t, err)
}
