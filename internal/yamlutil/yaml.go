// Package yamlutil decodes YAML documents for configuration and glossary files,
// keeping the YAML library behind one small API.
package yamlutil

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// DefaultMaxSize limits YAML input to prevent memory exhaustion (1MB).
const DefaultMaxSize = 1 << 20

var (
	ErrEmptyInput     = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

// decodeOptions controls a single Decode call.
type decodeOptions struct {
	maxSize int
	strict  bool
}

// DecodeOption adjusts how input is decoded.
type DecodeOption func(*decodeOptions)

// Strict rejects fields that do not exist in the destination.
func Strict() DecodeOption {
	return func(o *decodeOptions) { o.strict = true }
}

// MaxSize overrides DefaultMaxSize. Non-positive values are ignored.
func MaxSize(n int) DecodeOption {
	return func(o *decodeOptions) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

func resolve(opts []DecodeOption) decodeOptions {
	o := decodeOptions{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Decode parses data into v.
func Decode(data []byte, v any, opts ...DecodeOption) error {
	o := resolve(opts)
	if len(data) == 0 {
		return ErrEmptyInput
	}
	if len(data) > o.maxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), o.maxSize)
	}
	if v == nil {
		return ErrNilDestination
	}

	var yopts []yaml.DecodeOption
	if o.strict {
		yopts = append(yopts, yaml.Strict())
	}
	if err := yaml.UnmarshalWithOptions(data, v, yopts...); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// DecodeFile reads at most the size limit from path and decodes it into v.
// A file larger than the limit fails with ErrInputTooLarge without being read whole.
func DecodeFile(path string, v any, opts ...DecodeOption) error {
	o := resolve(opts)

	f, err := os.Open(path) // #nosec G304 -- path is user-provided
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, int64(o.maxSize)+1))
	if err != nil {
		return fmt.Errorf("yamlutil: reading %s: %w", path, err)
	}
	if len(data) > o.maxSize {
		return fmt.Errorf("%w: %s (max %d bytes)", ErrInputTooLarge, path, o.maxSize)
	}
	return Decode(data, v, opts...)
}
