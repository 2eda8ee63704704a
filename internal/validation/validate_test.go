package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		wantError bool
		errMsg    string
	}{
		{"valid_simple", "my-bucket", false, ""},
		{"valid_with_numbers", "my-bucket123", false, ""},
		{"valid_with_dots", "my.bucket", false, ""},
		{"valid_starts_with_number", "1bucket", false, ""},
		{"valid_min_length", "abc", false, ""},
		{"valid_max_length", strings.Repeat("a", 63), false, ""},

		{"empty", "", true, "bucket name cannot be empty"},
		{"too_short", "ab", true, "bucket name must be between 3 and 63 characters long"},
		{"too_long", strings.Repeat("a", 64), true, "bucket name must be between 3 and 63 characters long"},
		{"starts_with_hyphen", "-bucket", true, "cannot start or end with a hyphen or dot"},
		{"ends_with_dot", "bucket.", true, "cannot start or end with a hyphen or dot"},
		{"contains_uppercase", "MyBucket", true, "can only contain lowercase letters"},
		{"contains_underscore", "my_bucket", true, "can only contain lowercase letters"},
		{"ip_address", "192.168.1.1", true, "cannot be formatted as an IP address"},
		{"double_dots", "my..bucket", true, "cannot contain two adjacent periods"},
		{"reserved_prefix", "xn--bucket", true, "reserved prefix or suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.ErrorIs(t, err, errors.ErrInvalidBucketName)
			assert.Equal(t, errors.KindInvalidInput, errors.Classify(err))
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantError bool
		errMsg    string
	}{
		{"simple", "db.sql", false, ""},
		{"nested", "database/daily/db.sql", false, ""},
		{"double_dot_in_name", "database/db..sql", false, ""},
		{"unicode", "база/файл.txt", false, ""},

		{"empty", "", true, "cannot be empty"},
		{"too_long", strings.Repeat("a", 1025), true, "cannot exceed 1024 characters"},
		{"parent_segment", "database/../secret", true, "path traversal"},
		{"dot_segment", "./db.sql", true, "path traversal"},
		{"absolute", "/etc/passwd", true, "path traversal"},
		{"windows_drive", `C:\Windows\System32`, true, "path traversal"},
		{"backslash_parent", `..\secret`, true, "path traversal"},
		{"control_char", "db\x00.sql", true, "control characters"},
		{"del_char", "db\x7f.sql", true, "control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.ErrorIs(t, err, errors.ErrInvalidObjectKey)
		})
	}
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []types.Rule
		wantErr string
	}{
		{
			name:  "valid",
			rules: []types.Rule{{LocalNamePrefix: "db_backup_", RemotePath: "database/"}, {LocalNamePrefix: "log", RemotePath: ""}},
		},
		{name: "none", rules: nil, wantErr: "at least one rule"},
		{name: "empty prefix", rules: []types.Rule{{RemotePath: "database/"}}, wantErr: "local_name_prefix cannot be empty"},
		{name: "path prefix", rules: []types.Rule{{LocalNamePrefix: "sub/db", RemotePath: "x"}}, wantErr: "not a path"},
		{name: "traversal", rules: []types.Rule{{LocalNamePrefix: "db", RemotePath: "../x"}}, wantErr: "path traversal"},
		{
			name:    "second rule reported",
			rules:   []types.Rule{{LocalNamePrefix: "db", RemotePath: "x"}, {LocalNamePrefix: ""}},
			wantErr: "rule 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRules(tt.rules)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, errors.ErrInvalidRule)
		})
	}
}

func TestValidateChunkSize(t *testing.T) {
	assert.NoError(t, ValidateChunkSize(MinPartSize))
	assert.NoError(t, ValidateChunkSize(15*1024*1024))
	assert.NoError(t, ValidateChunkSize(MaxPartSize))

	err := ValidateChunkSize(MinPartSize - 1)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
	assert.Error(t, ValidateChunkSize(MaxPartSize+1))
}

func TestValidatePlan(t *testing.T) {
	assert.NoError(t, ValidatePlan(40*1024*1024, 15*1024*1024))
	assert.NoError(t, ValidatePlan(int64(MaxParts)*MinPartSize, MinPartSize))
	assert.Error(t, ValidatePlan(int64(MaxParts)*MinPartSize+1, MinPartSize))
	assert.Error(t, ValidatePlan(MaxObjectSize+1, MaxPartSize))
}

func TestValidateSyncConfig(t *testing.T) {
	valid := types.SyncConfig{
		Bucket:    "backups",
		LocalDir:  "/srv/backups",
		ChunkSize: 15 * 1024 * 1024,
		Rules:     []types.Rule{{LocalNamePrefix: "db_", RemotePath: "database/"}},
	}
	require.NoError(t, ValidateSyncConfig(valid))

	tests := []struct {
		name   string
		mutate func(*types.SyncConfig)
	}{
		{"bucket", func(c *types.SyncConfig) { c.Bucket = "" }},
		{"dir", func(c *types.SyncConfig) { c.LocalDir = "" }},
		{"chunk", func(c *types.SyncConfig) { c.ChunkSize = 0 }},
		{"rules", func(c *types.SyncConfig) { c.Rules = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := ValidateSyncConfig(cfg)
			require.Error(t, err)
			assert.Equal(t, errors.KindInvalidInput, errors.Classify(err))
		})
	}
}

func BenchmarkValidateObjectKey(b *testing.B) {
	key := "database/daily/db_backup_2025-09-21.sql"
	for i := 0; i < b.N; i++ {
		_ = ValidateObjectKey(key)
	}
}
