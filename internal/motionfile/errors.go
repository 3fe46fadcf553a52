package motionfile

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed             = errors.New("motionfile: malformed file")
	ErrUnsupportedWavelet    = errors.New("motionfile: unsupported wavelet")
	ErrUnsupportedCompressor = errors.New("motionfile: unsupported compressor")
)

// ValidationError reports a field whose value is structurally invalid.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ErrMalformed.Error()
	}
	return fmt.Sprintf("motionfile: invalid %s: %s", e.Field, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return ErrMalformed
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Detail: fmt.Sprintf(format, args...)}
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
