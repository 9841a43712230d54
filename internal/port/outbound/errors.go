package outbound

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrAccessDenied is returned when the caller lacks permission.
	ErrAccessDenied = errors.New("access denied")

	// ErrThrottled is returned when the provider keeps throttling after retries.
	ErrThrottled = errors.New("throttled")
)

// Provider error codes that mean access was denied.
const (
	codeAuthorizationRequestDenied = "Authorization_RequestDenied"
	codeForbidden                  = "Forbidden"
)

// ProviderError is a structured error returned by the identity provider.
type ProviderError struct {
	// StatusCode is the HTTP status.
	StatusCode int
	// Code is the provider's machine-readable error code.
	Code string
	// Message is the provider's raw message.
	Message string
	// RequestID correlates the failure with provider logs.
	RequestID string
}

// Error returns the error message.
func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrNotFound), ErrAccessDenied and ErrThrottled.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrAccessDenied:
		return e.StatusCode == http.StatusForbidden ||
			e.Code == codeAuthorizationRequestDenied || e.Code == codeForbidden
	case ErrThrottled:
		return e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// ProviderCode returns the provider's error code.
func (e *ProviderError) ProviderCode() string {
	return e.Code
}

// ProviderMessage returns the provider's raw message.
func (e *ProviderError) ProviderMessage() string {
	return e.Message
}

// IsEmptyResult reports whether err means "nothing there for this principal"
// rather than a failure.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied)
}
