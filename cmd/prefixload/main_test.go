package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/config"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

type harness struct {
	app        *app
	fake       *testutil.FakeS3
	configPath string
	exportDir  string
	env        map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		fake:       testutil.NewFakeS3("backups"),
		configPath: filepath.Join(dir, "config.yml"),
		exportDir:  filepath.Join(dir, "exports"),
		env:        map[string]string{},
	}
	require.NoError(t, os.MkdirAll(h.exportDir, 0o755))

	cfg := "endpoint: http://localhost:4566\n" +
		"bucket: backups\n" +
		"region: us-east-1\n" +
		"force_path_style: true\n" +
		"part_size: 1KiB\n" +
		"local_directory_path: " + h.exportDir + "\n" +
		"directory_struct:\n" +
		"  - local_name_prefix: db_backup_\n" +
		"    remote_path: database/\n"
	require.NoError(t, os.WriteFile(h.configPath, []byte(cfg), 0o644))

	h.app = &app{
		configPath: h.configPath,
		newClient: func(_ *config.Config, opts ...types.Option) (*prefixload.Client, error) {
			opts = append(opts, prefixload.WithBackoff(time.Millisecond, time.Millisecond))
			return prefixload.NewWithClient(h.fake, opts...), nil
		},
		lookupEnv: func(k string) string { return h.env[k] },
		hideInput: disableEcho,
	}
	return h
}

func (h *harness) execute(stdin string, args ...string) (string, error) {
	return h.executeContext(context.Background(), stdin, args...)
}

func (h *harness) executeContext(ctx context.Context, stdin string, args ...string) (string, error) {
	root := newRootCmd(h.app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (h *harness) writeExport(t *testing.T, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.exportDir, name), testutil.PatternedData(size), 0o644))
}

func (h *harness) loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(h.configPath)
	require.NoError(t, err)
	return cfg
}

func TestRun_UploadsThenSkips(t *testing.T) {
	h := newHarness(t)
	h.writeExport(t, "db_backup_small.sql", 100)
	h.writeExport(t, "db_backup_big.sql", 3*1024)
	h.writeExport(t, "notes.txt", 10)

	out, err := h.execute("", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Matched: 2, Uploaded: 2, Skipped: 0, Failed: 0.")
	assert.Contains(t, out, "Transferred 3.1 KiB.")
	assert.Contains(t, out, "run_id=")

	obj, ok := h.fake.Object("backups", "database/db_backup_big.sql")
	require.True(t, ok)
	assert.Equal(t, testutil.ReferenceETag(testutil.PatternedData(3*1024), 1024), obj.ETag)

	out, err = h.execute("", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Matched: 2, Uploaded: 0, Skipped: 2, Failed: 0.")
	assert.Equal(t, 1, h.fake.Calls("PutObject"))
}

func TestRun_DryRun(t *testing.T) {
	h := newHarness(t)
	h.writeExport(t, "db_backup_a.sql", 100)

	out, err := h.execute("", "run", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: 1 file(s) would be uploaded.")
	assert.Equal(t, 0, h.fake.Calls("PutObject"))
}

func TestRun_FailedFilesExitNonZero(t *testing.T) {
	h := newHarness(t)
	h.fake = testutil.NewFakeS3() // bucket missing
	h.writeExport(t, "db_backup_a.sql", 100)

	out, err := h.execute("", "run")
	require.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, out, "Failed: 1.")
	assert.Contains(t, out, "failed db_backup_a.sql")
}

func TestRun_CanceledPrintsPartialSummary(t *testing.T) {
	h := newHarness(t)
	h.writeExport(t, "db_backup_a.sql", 100)
	h.writeExport(t, "db_backup_b.sql", 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.fake.HeadObjectHook = func(context.Context, string) error {
		cancel()
		return nil
	}

	out, err := h.executeContext(ctx, "", "run")
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out, "Matched: 2, Uploaded: 0")
}

func TestRun_MetricsFile(t *testing.T) {
	h := newHarness(t)
	h.writeExport(t, "db_backup_a.sql", 100)
	path := filepath.Join(t.TempDir(), "prefixload.prom")

	_, err := h.execute("", "run", "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "prefixload_bytes_uploaded_total 100")
	assert.Contains(t, string(data), "prefixload_last_run_timestamp_seconds")
}

func TestRun_InvalidConfig(t *testing.T) {
	h := newHarness(t)
	cfg := h.loadConfig(t)
	cfg.Bucket = ""
	require.NoError(t, cfg.Save(h.configPath))

	_, err := h.execute("", "run")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errRunFailed)
	assert.Equal(t, 0, h.fake.Calls("HeadObject"))
}

func TestConfig_PathAndShow(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, h.configPath+"\n", out)

	out, err = h.execute("", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "bucket: backups")
}

func TestConfigFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want func(h *harness, other string) string
	}{
		{
			name: "preset path kept without flag",
			args: []string{"config", "path"},
			want: func(h *harness, _ string) string { return h.configPath },
		},
		{
			name: "flag overrides preset path",
			args: []string{"--config", "OTHER", "config", "path"},
			want: func(_ *harness, other string) string { return other },
		},
		{
			name: "flag after subcommand",
			args: []string{"config", "path", "--config", "OTHER"},
			want: func(_ *harness, other string) string { return other },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			other := filepath.Join(t.TempDir(), "other.yml")

			args := make([]string, len(tt.args))
			for i, a := range tt.args {
				if a == "OTHER" {
					a = other
				}
				args[i] = a
			}

			out, err := h.execute("", args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want(h, other)+"\n", out)
		})
	}
}

func TestConfigFlag_SetWritesPresetPath(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("", "config", "set", "--bucket", "other")
	require.NoError(t, err)
	assert.NotContains(t, out, "Default config.yml written to")
	assert.Equal(t, "other", h.loadConfig(t).Bucket)
}

func TestConfig_CreatesMissingFile(t *testing.T) {
	h := newHarness(t)
	h.app.configPath = filepath.Join(t.TempDir(), "nested", "config.yml")

	out, err := h.execute("", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Default config.yml written to")
	assert.Contains(t, out, "bucket: my-bucket")
}

func TestConfig_Set(t *testing.T) {
	h := newHarness(t)

	_, err := h.execute("", "config", "set",
		"--bucket", "archive",
		"--part-size", "16MiB",
		"--force-path-style=false",
	)
	require.NoError(t, err)

	cfg := h.loadConfig(t)
	assert.Equal(t, "archive", cfg.Bucket)
	assert.Equal(t, config.ByteSize(16*1024*1024), cfg.PartSize)
	assert.False(t, cfg.ForcePathStyle)
	assert.Equal(t, "http://localhost:4566", cfg.Endpoint, "untouched values are kept")

	_, err = os.Stat(h.configPath + ".bak")
	assert.NoError(t, err)

	_, err = h.execute("", "config", "set")
	assert.Error(t, err)

	_, err = h.execute("", "config", "set", "--part-size", "lots")
	assert.Error(t, err)
}

func TestConfig_DirAddAndRemove(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("", "config", "dir-add", "--prefix", "logs_", "--remote-path", "logs/")
	require.NoError(t, err)
	assert.Contains(t, out, "Added logs_* -> logs/")
	assert.Equal(t, []types.Rule{
		{LocalNamePrefix: "db_backup_", RemotePath: "database/"},
		{LocalNamePrefix: "logs_", RemotePath: "logs/"},
	}, h.loadConfig(t).DirectoryStruct)

	out, err = h.execute("", "config", "dir-add", "--prefix", "logs_", "--remote-path", "other/")
	require.NoError(t, err)
	assert.Contains(t, out, `Prefix "logs_" is already configured.`)

	out, err = h.execute("", "config", "dir-rm", "--prefix", "db_backup_")
	require.NoError(t, err)
	assert.Contains(t, out, `Removed prefix "db_backup_"`)
	assert.Equal(t, []types.Rule{{LocalNamePrefix: "logs_", RemotePath: "logs/"}}, h.loadConfig(t).DirectoryStruct)

	out, err = h.execute("", "config", "dir-rm", "--prefix", "db_backup_")
	require.NoError(t, err)
	assert.Contains(t, out, `Prefix "db_backup_" is not configured.`)

	_, err = h.execute("", "config", "dir-add", "--prefix", "x_")
	assert.Error(t, err, "remote path is required")
}

func TestConfig_Edit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}
	h := newHarness(t)

	h.env["EDITOR"] = "true"
	_, err := h.execute("", "config", "edit")
	require.NoError(t, err)
	_, err = os.Stat(h.configPath + ".bak")
	assert.NoError(t, err)

	h.env["EDITOR"] = "false"
	_, err = h.execute("", "config", "edit")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		deny    bool
		wantErr string
	}{
		{name: "flags", args: []string{"--access-key", "AKID", "--secret-key", "SECRET"}},
		{name: "prompted", stdin: "AKID\nSECRET\n"},
		{name: "denied", args: []string{"--access-key", "AKID", "--secret-key", "SECRET"}, deny: true, wantErr: "no access"},
		{name: "missing secret", stdin: "AKID\n", wantErr: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.fake.DenyAccess = tt.deny
			credFile := filepath.Join(t.TempDir(), "credentials")

			args := append([]string{"login", "--credentials-file", credFile}, tt.args...)
			out, err := h.execute(tt.stdin, args...)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.NoFileExists(t, credFile)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, "saved to "+credFile)

			doc, err := ini.Load(credFile)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{
				"aws_access_key_id":     "AKID",
				"aws_secret_access_key": "SECRET",
			}, doc.Section("default").KeysHash())
		})
	}
}

func TestLogin_SecretPromptHidesInput(t *testing.T) {
	tests := []struct {
		name       string
		stdin      string
		args       []string
		wantHidden int
		wantOut    string
	}{
		{
			name:       "both prompted",
			stdin:      "AKID\nSECRET\n",
			wantHidden: 1,
			wantOut:    "Access key: Secret key: \n",
		},
		{
			name:       "secret from flag",
			stdin:      "AKID\n",
			args:       []string{"--secret-key", "SECRET"},
			wantHidden: 0,
			wantOut:    "Access key: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			hidden, restored := 0, 0
			h.app.hideInput = func(io.Reader) (func(), error) {
				hidden++
				return func() { restored++ }, nil
			}
			credFile := filepath.Join(t.TempDir(), "credentials")

			args := append([]string{"login", "--credentials-file", credFile}, tt.args...)
			out, err := h.execute(tt.stdin, args...)
			require.NoError(t, err)

			assert.Equal(t, tt.wantHidden, hidden)
			assert.Equal(t, hidden, restored, "terminal state restored after every hidden prompt")
			assert.True(t, strings.HasPrefix(out, tt.wantOut), "output %q", out)
		})
	}
}

func TestLogin_HideInputError(t *testing.T) {
	h := newHarness(t)
	h.app.hideInput = func(io.Reader) (func(), error) {
		return nil, errors.New("no tty")
	}

	_, err := h.execute("AKID\n", "login", "--credentials-file", filepath.Join(t.TempDir(), "credentials"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tty")
}

func TestDisableEcho_NotATerminal(t *testing.T) {
	restore, err := disableEcho(strings.NewReader("secret"))
	require.NoError(t, err)
	assert.Nil(t, restore)
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out, err := h.execute("", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "prefixload dev")
	assert.Contains(t, out, runtime.Version())
}
