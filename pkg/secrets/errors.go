package secrets

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches any *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("secrets: invalid configuration")
	// ErrTampered matches any *TamperError via errors.Is.
	ErrTampered = errors.New("secrets: authentication failed")
)

// ConfigurationError reports a missing or malformed encryption key.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("secrets: invalid encryption key: %s", e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// TamperError reports that a stored secret failed authentication and must be
// treated as unusable.
type TamperError struct {
	Field string
	Err   error
}

func (e *TamperError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("secrets: authentication failed: malformed %s", e.Field)
	}
	return "secrets: authentication failed"
}

// Is reports whether target is ErrTampered.
func (e *TamperError) Is(target error) bool {
	return target == ErrTampered
}

func (e *TamperError) Unwrap() error {
	return e.Err
}

// IsTamper reports whether err is a decryption or authentication failure.
func IsTamper(err error) bool {
	return errors.Is(err, ErrTampered)
}
