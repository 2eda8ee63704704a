package config

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/docker/go-units"
	"github.com/go-viper/mapstructure/v2"
)

// ByteSize is a size in bytes written either as an integer or as a
// human-readable binary size such as "15MiB".
type ByteSize int64

// ParseByteSize parses "15728640", "15MiB", "15MB" or "15m". Units are binary.
func ParseByteSize(s string) (ByteSize, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ByteSize(n), nil
	}
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// String formats whole mebibytes as "NMiB" and everything else as plain bytes.
func (b ByteSize) String() string {
	if b > 0 && b%units.MiB == 0 {
		return fmt.Sprintf("%dMiB", int64(b)/units.MiB)
	}
	return strconv.FormatInt(int64(b), 10)
}

// HumanSize returns an approximate human-readable form for display.
func (b ByteSize) HumanSize() string {
	return units.BytesSize(float64(b))
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (any, error) {
	if b > 0 && b%units.MiB == 0 {
		return b.String(), nil
	}
	return int64(b), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used for flags and yaml.v3.
func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = n
	return nil
}

// byteSizeHook decodes strings and integers into ByteSize.
func byteSizeHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(ByteSize(0))
	return func(from, to reflect.Type, data any) (any, error) {
		if to != target {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return ParseByteSize(v)
		case int:
			return ByteSize(v), nil
		case int64:
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil
		case float64:
			return ByteSize(v), nil
		}
		return data, nil
	}
}
