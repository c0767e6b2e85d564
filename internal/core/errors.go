// Package core provides the error taxonomy and shared types for the translator client.
package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeValidation indicates caller input was rejected before any network call
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypeTransport indicates the request never produced an HTTP response
	ErrorTypeTransport ErrorType = "transport_error"
	// ErrorTypeAuthentication indicates the token exchange was refused (401)
	ErrorTypeAuthentication ErrorType = "authentication_error"
	// ErrorTypeService indicates the remote API returned an error document
	ErrorTypeService ErrorType = "service_error"
	// ErrorTypeStorage indicates the local result cache could not be read or written
	ErrorTypeStorage ErrorType = "storage_error"
	// ErrorTypeCommunication indicates an empty or unparseable response body
	ErrorTypeCommunication ErrorType = "communication_error"
)

// Error is the single error type produced by every package of the client.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeService, ErrorTypeTransport, ErrorTypeCommunication:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *Error) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string) *Error {
	return &Error{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewTransportError creates a new transport error carrying the underlying diagnostic
func NewTransportError(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeTransport,
		Message: message,
		Err:     err,
	}
}

// NewAuthenticationError creates a new authentication error (401)
func NewAuthenticationError(message string) *Error {
	return &Error{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewServiceError creates a new service error from the remote API's message
func NewServiceError(message string) *Error {
	return &Error{
		Type:    ErrorTypeService,
		Message: message,
	}
}

// NewStorageError creates a new cache storage error
func NewStorageError(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeStorage,
		Message: message,
		Err:     err,
	}
}

// NewCommunicationError creates a new communication error
func NewCommunicationError(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeCommunication,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is or wraps an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// AsError returns err as an *Error, or nil when err is not one.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
