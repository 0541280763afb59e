package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyPrompt is returned when Generate is called without a prompt.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrInvalidConfig wraps configuration validation failures from New.
	ErrInvalidConfig = errors.New("invalid ai config")

	ErrUnsupportedProvider = errors.New("unsupported ai provider")
	ErrMissingCredential   = errors.New("missing ai credential")
	ErrBackend             = errors.New("ai backend error")
	ErrTimeout             = errors.New("ai request timed out")
	ErrDecode              = errors.New("unexpected ai response")
)

// UnsupportedProviderError reports a configured provider with no registered adapter.
type UnsupportedProviderError struct {
	Provider Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported ai provider: %q", string(e.Provider))
}

func (e *UnsupportedProviderError) Is(target error) bool { return target == ErrUnsupportedProvider }

// MissingCredentialError is returned before any I/O when a credentialed
// provider has no API key configured.
type MissingCredentialError struct {
	Provider Provider
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s api key is not configured", e.Provider)
}

func (e *MissingCredentialError) Is(target error) bool { return target == ErrMissingCredential }

// BackendError carries a non-success response from a provider. Message is the
// provider's own error message when the body had one, else the HTTP status.
type BackendError struct {
	Provider   Provider
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// TimeoutError is returned when the outbound call exceeds Params.Timeout.
// The underlying request has been cancelled by the time it is returned.
type TimeoutError struct {
	Provider Provider
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out after %s", e.Provider, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// DecodeError means the provider answered with success but the body did not
// have the expected shape.
type DecodeError struct {
	Provider Provider
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s decode: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s decode: %s", e.Provider, e.Reason)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }
