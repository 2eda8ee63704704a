package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

const (
	appName  = "prefixload"
	fileName = "config.yml"

	// EnvPrefix prefixes environment variables overriding file values
	EnvPrefix = "PREFIXLOAD"

	// DefaultPartSize is used when the file sets no part size
	DefaultPartSize ByteSize = 8 * 1024 * 1024
)

//go:embed default.yml
var defaultTemplate []byte

// Config is the on-disk configuration.
type Config struct {
	Endpoint           string       `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket             string       `yaml:"bucket" mapstructure:"bucket"`
	Region             string       `yaml:"region" mapstructure:"region"`
	ForcePathStyle     bool         `yaml:"force_path_style" mapstructure:"force_path_style"`
	PartSize           ByteSize     `yaml:"part_size" mapstructure:"part_size"`
	LocalDirectoryPath string       `yaml:"local_directory_path" mapstructure:"local_directory_path"`
	DirectoryStruct    []types.Rule `yaml:"directory_struct" mapstructure:"directory_struct"`

	FileConcurrency   int     `yaml:"file_concurrency,omitempty" mapstructure:"file_concurrency"`
	PartConcurrency   int     `yaml:"part_concurrency,omitempty" mapstructure:"part_concurrency"`
	MaxAttempts       int     `yaml:"max_attempts,omitempty" mapstructure:"max_attempts"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" mapstructure:"requests_per_second"`
	MetricsFile       string  `yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
}

// DefaultPath returns $XDG_CONFIG_HOME/prefixload/config.yml, creating the
// directory when needed.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join(appName, fileName))
	if err != nil {
		return "", errors.NewLocalError("configPath", appName, err)
	}
	return path, nil
}

// DataFile returns the path of name under $XDG_DATA_HOME/prefixload, creating
// the directory when needed.
func DataFile(name string) (string, error) {
	path, err := xdg.DataFile(filepath.Join(appName, name))
	if err != nil {
		return "", errors.NewLocalError("dataPath", name, err)
	}
	return path, nil
}

// EnsureExists writes the default template to path when no file exists there.
// It reports whether a file was created.
func EnsureExists(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.NewLocalError("statConfig", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.NewLocalError("createConfigDir", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, defaultTemplate, 0o644); err != nil {
		return false, errors.NewLocalError("writeConfig", path, err)
	}
	return true, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("endpoint", "")
	v.SetDefault("bucket", "")
	v.SetDefault("region", "us-east-1")
	v.SetDefault("force_path_style", false)
	v.SetDefault("part_size", int64(DefaultPartSize))
	v.SetDefault("local_directory_path", "")
	v.SetDefault("file_concurrency", 0)
	v.SetDefault("part_concurrency", 0)
	v.SetDefault("max_attempts", 0)
	v.SetDefault("requests_per_second", 0.0)
	v.SetDefault("metrics_file", "")
	return v
}

// Load reads the configuration at path, creating it from the default template
// when missing, and applies environment overrides.
func Load(path string) (*Config, error) {
	if _, err := EnsureExists(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewLocalError("readConfig", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML data and applies environment overrides.
func Parse(data []byte) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.NewValidationError("parseConfig", err.Error())
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		byteSizeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, errors.NewValidationError("decodeConfig", err.Error())
	}
	return &cfg, nil
}

// Backup copies path to path.bak. A missing file is not an error.
func Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.NewLocalError("backupConfig", path, err)
	}

	bak := path + ".bak"
	if err := os.WriteFile(bak, data, 0o644); err != nil {
		return "", errors.NewLocalError("backupConfig", bak, err)
	}
	return bak, nil
}

// Save backs up the current file and writes c to path.
func (c *Config) Save(path string) error {
	if _, err := Backup(path); err != nil {
		return err
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewLocalError("writeConfig", path, err)
	}
	return nil
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, errors.NewError("encodeConfig", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.NewError("encodeConfig", err)
	}
	return buf.Bytes(), nil
}

// ErrDuplicatePrefix is returned by AddRule when the prefix is already mapped.
var ErrDuplicatePrefix = fmt.Errorf("%w: prefix already configured", errors.ErrInvalidRule)

// ErrPrefixNotFound is returned by RemoveRule when no rule has the prefix.
var ErrPrefixNotFound = fmt.Errorf("%w: prefix not configured", errors.ErrInvalidRule)

// AddRule appends rule unless its prefix is already configured.
func (c *Config) AddRule(rule types.Rule) error {
	if err := validation.ValidateRule(rule); err != nil {
		return err
	}
	if c.hasPrefix(rule.LocalNamePrefix) {
		return fmt.Errorf("%w: %q", ErrDuplicatePrefix, rule.LocalNamePrefix)
	}
	c.DirectoryStruct = append(c.DirectoryStruct, rule)
	return nil
}

// RemoveRule deletes the rule with the given prefix.
func (c *Config) RemoveRule(prefix string) error {
	i := slices.IndexFunc(c.DirectoryStruct, func(r types.Rule) bool {
		return r.LocalNamePrefix == prefix
	})
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrPrefixNotFound, prefix)
	}
	c.DirectoryStruct = slices.Delete(c.DirectoryStruct, i, i+1)
	return nil
}

func (c *Config) hasPrefix(prefix string) bool {
	return slices.ContainsFunc(c.DirectoryStruct, func(r types.Rule) bool {
		return r.LocalNamePrefix == prefix
	})
}

// Validate checks c before a run. The part size must lie within the AWS S3
// limits unless a custom endpoint is configured, in which case any positive
// size is accepted.
func (c *Config) Validate() error {
	if err := validation.ValidateBucketName(c.Bucket); err != nil {
		return err
	}

	if c.Endpoint == "" {
		if err := validation.ValidateChunkSize(int64(c.PartSize)); err != nil {
			return err
		}
	} else if c.PartSize <= 0 {
		return errors.NewValidationError("validateConfig", "part_size must be positive")
	}

	if err := validation.ValidateRules(c.DirectoryStruct); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.DirectoryStruct))
	for _, r := range c.DirectoryStruct {
		if seen[r.LocalNamePrefix] {
			return fmt.Errorf("%w: %q", ErrDuplicatePrefix, r.LocalNamePrefix)
		}
		seen[r.LocalNamePrefix] = true
	}

	if c.LocalDirectoryPath == "" {
		return errors.NewValidationError("validateConfig", "local_directory_path is required")
	}
	info, err := os.Stat(c.LocalDirectoryPath)
	if err != nil {
		return errors.NewLocalError("validateConfig", c.LocalDirectoryPath, err)
	}
	if !info.IsDir() {
		return errors.NewValidationError("validateConfig",
			fmt.Sprintf("local_directory_path %s is not a directory", c.LocalDirectoryPath))
	}
	return nil
}

// ToSyncConfig converts c to the input of a sync run.
func (c *Config) ToSyncConfig() types.SyncConfig {
	return types.SyncConfig{
		Bucket:    c.Bucket,
		LocalDir:  c.LocalDirectoryPath,
		ChunkSize: int64(c.PartSize),
		Rules:     slices.Clone(c.DirectoryStruct),
	}
}
