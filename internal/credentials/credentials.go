// Package credentials stores access keys in the shared AWS credentials file
// read by the default credential chain.
package credentials

import (
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
)

const (
	// DefaultProfile is the profile the default credential chain reads
	DefaultProfile = "default"

	accessKeyField = "aws_access_key_id"
	secretKeyField = "aws_secret_access_key"
)

// loadOptions keep '#' and ';' inside values, which the AWS parser allows.
var loadOptions = ini.LoadOptions{
	Loose:               true,
	IgnoreInlineComment: true,
}

// DefaultPath returns $AWS_SHARED_CREDENTIALS_FILE or ~/.aws/credentials.
func DefaultPath() (string, error) {
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewLocalError("credentialsPath", "~", err)
	}
	return filepath.Join(home, ".aws", "credentials"), nil
}

// Store writes the key pair into profile of the credentials file at path.
// Other profiles and other keys of the same profile are kept. The file is
// left readable by its owner only.
func Store(path, profile, accessKey, secretKey string) error {
	if accessKey == "" || secretKey == "" {
		return errors.NewValidationError("storeCredentials", "access key and secret key are required")
	}
	if profile == "" {
		profile = DefaultProfile
	}

	// A missing file loads as an empty document.
	doc, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return errors.NewLocalError("storeCredentials", path, err)
	}

	section := doc.Section(profile)
	section.Key(accessKeyField).SetValue(accessKey)
	section.Key(secretKeyField).SetValue(secretKey)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.NewLocalError("storeCredentials", filepath.Dir(path), err)
	}
	return write(path, doc)
}

func write(path string, doc *ini.File) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.NewLocalError("storeCredentials", path, err)
	}
	if _, err := doc.WriteTo(f); err != nil {
		_ = f.Close()
		return errors.NewLocalError("storeCredentials", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewLocalError("storeCredentials", path, err)
	}
	// OpenFile keeps the mode of an existing file
	if err := os.Chmod(path, 0o600); err != nil {
		return errors.NewLocalError("storeCredentials", path, err)
	}
	return nil
}
