// Package domain defines the error taxonomy shared across the bridge.
package domain

import "fmt"

// Diagnostics carries the backend details attached to a failed statement.
type Diagnostics struct {
	ErrNo    int    `json:"errno,omitempty"`
	Query    string `json:"query,omitempty"`
	SQLState string `json:"sqlstate,omitempty"`
	QueryID  string `json:"sfqid,omitempty"`
}

// BadRequestError indicates invalid input: a malformed path, a missing
// required property, inconsistent names, or an unsupported verb or action.
type BadRequestError struct {
	Message string
	Diag    *Diagnostics
}

func (e *BadRequestError) Error() string { return e.Message }

// UnauthorizedError indicates a backend authentication failure.
type UnauthorizedError struct {
	Message string
	Diag    *Diagnostics
}

func (e *UnauthorizedError) Error() string { return e.Message }

// ForbiddenError indicates the backend denied authorization.
type ForbiddenError struct {
	Message string
	Diag    *Diagnostics
}

func (e *ForbiddenError) Error() string { return e.Message }

// NotFoundError indicates the object does not exist.
type NotFoundError struct {
	Message string
	Diag    *Diagnostics
}

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError indicates the object already exists where creation demanded
// uniqueness.
type ConflictError struct {
	Message string
	Diag    *Diagnostics
}

func (e *ConflictError) Error() string { return e.Message }

// InternalError is the default for unclassified backend failures.
type InternalError struct {
	Message string
	Diag    *Diagnostics
}

func (e *InternalError) Error() string { return e.Message }

// BadGatewayError indicates an upstream or storage connectivity failure.
type BadGatewayError struct {
	Message string
	Diag    *Diagnostics
}

func (e *BadGatewayError) Error() string { return e.Message }

// UnavailableError indicates a backend capacity or availability failure.
type UnavailableError struct {
	Message string
	Diag    *Diagnostics
}

func (e *UnavailableError) Error() string { return e.Message }

// GatewayTimeoutError indicates the backend timed out.
type GatewayTimeoutError struct {
	Message string
	Diag    *Diagnostics
}

func (e *GatewayTimeoutError) Error() string { return e.Message }

// ErrBadRequest creates a BadRequestError with a formatted message.
func ErrBadRequest(format string, args ...any) *BadRequestError {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthorized creates an UnauthorizedError with a formatted message.
func ErrUnauthorized(format string, args ...any) *UnauthorizedError {
	return &UnauthorizedError{Message: fmt.Sprintf(format, args...)}
}

// ErrForbidden creates a ForbiddenError with a formatted message.
func ErrForbidden(format string, args ...any) *ForbiddenError {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrInternal creates an InternalError with a formatted message.
func ErrInternal(format string, args ...any) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}
