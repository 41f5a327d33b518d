package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Kind classifies an error by failure domain rather than HTTP status.
type Kind string

const (
	KindAuth           Kind = "auth"
	KindNetwork        Kind = "network"
	KindValidation     Kind = "validation"
	KindReconciliation Kind = "reconciliation"
	KindInternal       Kind = "internal"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Kind       Kind   `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Stack      string `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Kind:       KindInternal,
		Code:       code,
		Message:    message,
		Stack:      string(debug.Stack()),
	}
}

// NewKindError creates an application error classified under the given kind
func NewKindError(statusCode int, kind Kind, code string, message string) *AppError {
	err := NewError(statusCode, code, message)
	err.Kind = kind
	return err
}

// NewAuthError reports a missing, expired or rejected credential
func NewAuthError(message string) *AppError {
	return NewKindError(http.StatusUnauthorized, KindAuth, "AUTH_ERROR", message)
}

// NewNetworkError reports a transport failure or a non-2xx backend response
func NewNetworkError(message string) *AppError {
	return NewKindError(http.StatusBadGateway, KindNetwork, "NETWORK_ERROR", message)
}

// NewValidationError reports locally rejected input
func NewValidationError(message string) *AppError {
	return NewKindError(http.StatusBadRequest, KindValidation, "VALIDATION_ERROR", message)
}

// NewReconciliationError reports state that cannot be merged with the server view
func NewReconciliationError(message string) *AppError {
	return NewKindError(http.StatusConflict, KindReconciliation, "RECONCILIATION_ERROR", message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(code string, message string) *AppError {
	return NewKindError(http.StatusBadRequest, KindValidation, code, message)
}

// NewUnauthorizedError creates a 401 Unauthorized error
func NewUnauthorizedError(code string, message string) *AppError {
	return NewKindError(http.StatusUnauthorized, KindAuth, code, message)
}

// NewForbiddenError creates a 403 Forbidden error
func NewForbiddenError(code string, message string) *AppError {
	return NewKindError(http.StatusForbidden, KindAuth, code, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(code string, message string) *AppError {
	return NewError(http.StatusNotFound, code, message)
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(code string, message string) *AppError {
	return NewError(http.StatusConflict, code, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(code string, message string) *AppError {
	return NewError(http.StatusInternalServerError, code, message)
}

// Is checks if the target error is of type AppError
func Is(err error, target *AppError) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Code == target.Code
}

// KindOf returns the kind of an error, KindInternal for non-AppErrors
func KindOf(err error) Kind {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Kind
	}
	return KindInternal
}

// IsAuth reports whether an error is an authentication failure
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsNetwork reports whether an error is a transport failure
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsValidation reports whether an error is a local input rejection
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsReconciliation reports whether an error is a merge conflict
func IsReconciliation(err error) bool { return KindOf(err) == KindReconciliation }
