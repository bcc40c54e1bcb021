package errdefs

import (
	"errors"
	"fmt"
)

// ConfigurationError reports invalid or missing required widget
// configuration. It is fatal to initialization.
type ConfigurationError struct {
	Fields []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Fields)
}

// AuthError reports an invalid or expired token. Callers invalidate the
// cached token and re-authenticate on the next call.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("auth failed (status %d)", e.Status)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a transient transport failure, retried per the
// backoff policy.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError reports a request the backend or the widget itself
// rejects outright (empty message, oversized file, no active
// conversation, a non-auth 4xx response). Surfaced immediately, never
// retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ProtocolError reports an unexpected or unknown socket payload. Logged
// and ignored; must not crash the socket state machine.
type ProtocolError struct {
	Type string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unknown socket message type %q", e.Type)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsProtocol reports whether err is a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
