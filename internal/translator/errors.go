package translator

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedConfiguration indicates an engine configuration whose
	// type has no mapping strategy.
	ErrUnsupportedConfiguration = errors.New("translator: unsupported configuration")

	// ErrInvalidParameters indicates wizard parameters from which no engine
	// configuration can be built.
	ErrInvalidParameters = errors.New("translator: invalid parameters")
)

// UnsupportedConfigError reports the tag that could not be mapped.
type UnsupportedConfigError struct {
	Tag    string
	Reason string
}

// Error returns the error message.
func (e *UnsupportedConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("translator: unsupported configuration %q: %s", e.Tag, e.Reason)
	}
	return fmt.Sprintf("translator: unsupported configuration %q", e.Tag)
}

// Unwrap returns ErrUnsupportedConfiguration for errors.Is support.
func (e *UnsupportedConfigError) Unwrap() error {
	return ErrUnsupportedConfiguration
}

// IsUnsupported checks if the error is an unsupported configuration error.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedConfiguration)
}

func invalidParameters(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
}
