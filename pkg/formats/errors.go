package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/roseimport/pkg/binreader"
)

// Error kinds shared by every ROSE parser. Format-specific sentinels wrap
// ErrFormat, so callers can match either.
var (
	// ErrIO reports that the file could not be read.
	ErrIO = errors.New("io error")
	// ErrOutOfBounds reports a read past the end of the buffer.
	ErrOutOfBounds = binreader.ErrOutOfBounds
	// ErrFormat reports a structural violation: bad tag, count or index.
	ErrFormat = errors.New("format error")
)

// formatErrorf returns an error wrapping ErrFormat.
func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// readFile reads a whole file into memory before any decoding starts.
func readFile(kind, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s file: %w", ErrIO, kind, err)
	}
	return data, nil
}

// parseFile reads path and decodes it with parse.
func parseFile[T any](kind, path string, parse func([]byte) (*T, error)) (*T, error) {
	data, err := readFile(kind, path)
	if err != nil {
		return nil, err
	}
	v, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
