// Package errors provides the structured error type shared by services and
// handlers.
//
// Every error that crosses the service boundary carries a Code; handlers map
// codes to HTTP statuses with HTTPStatus and render the code itself as the
// machine-readable "error" field of the JSON body.
//
//	err := errors.New(errors.CodeInvalidInput, "task_id must be positive, got %d", id)
//	if errors.Is(err, errors.CodeInvalidInput) {
//	    // reject with 400
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidInput    Code = "invalid_params"
	CodeSelfLink        Code = "self_link"
	CodeTypeNotAllowed  Code = "type_not_allowed"
	CodeProjectMismatch Code = "project_mismatch"
	CodeNotFound        Code = "not_found"
	CodeTaskNotFound    Code = "task_not_found"
	CodeLinkNotFound    Code = "link_not_found"
	CodeUnauthorized    Code = "unauthorized"
	CodeForbidden       Code = "forbidden"
	CodeInternal        Code = "internal_error"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the code from err; CodeInternal for foreign errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// UserMessage returns the message without the code prefix. Foreign errors
// are not exposed to clients.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps an error to the HTTP status a handler should answer with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeInvalidInput, CodeSelfLink, CodeTypeNotAllowed, CodeProjectMismatch:
		return http.StatusBadRequest
	case CodeNotFound, CodeTaskNotFound, CodeLinkNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
