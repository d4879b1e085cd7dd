package gateway

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend calls.
var (
	// ErrTransport indicates no authoritative answer was received
	// (connection refused, timeout, truncated body).
	ErrTransport = errors.New("gateway: transport error")

	// ErrBackend indicates the backend answered with a non-2xx status.
	// The concrete error is a *BackendError.
	ErrBackend = errors.New("gateway: backend error")

	// ErrParse indicates a 2xx response whose body could not be decoded.
	ErrParse = errors.New("gateway: parse error")
)

// ErrorType sub-classifies a BackendError by HTTP status family.
type ErrorType string

// Backend error types.
const (
	ErrorTypeUnknown       ErrorType = "unknown"
	ErrorTypeRedirect      ErrorType = "redirect"
	ErrorTypeUnimplemented ErrorType = "unimplemented"
	ErrorTypeServer        ErrorType = "server"
)

// classifyStatus maps a non-2xx status code to its error type.
func classifyStatus(status int) ErrorType {
	switch status / 100 {
	case 3:
		return ErrorTypeRedirect
	case 4:
		return ErrorTypeUnimplemented
	case 5:
		return ErrorTypeServer
	default:
		return ErrorTypeUnknown
	}
}

// BackendError is an explicit non-success answer from the backend.
type BackendError struct {
	Method string
	Path   string
	Status int
	Type   ErrorType
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("gateway: %s %s: HTTP %d (%s)", e.Method, e.Path, e.Status, e.Type)
}

// Unwrap lets errors.Is(err, ErrBackend) match.
func (e *BackendError) Unwrap() error {
	return ErrBackend
}

// IsBackend reports whether err is an explicit backend rejection.
func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}
