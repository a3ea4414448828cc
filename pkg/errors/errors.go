package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches on Code and Reason so wrapped copies of a sentinel still compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// Retryable reports whether the caller may safely repeat the request.
func (e *AppError) Retryable() bool {
	return e.Code == CodeConflict
}

// Constructors
func New(code Code, reason Reason, message string) error {
	return &AppError{Code: code, Reason: reason, Message: message}
}

func Wrap(code Code, reason Reason, message string, cause error) error {
	return &AppError{Code: code, Reason: reason, Message: message, Cause: cause}
}

func InvalidArg(reason Reason, msg string) error {
	return New(CodeInvalidArgument, reason, msg)
}

func NotFound(reason Reason, msg string) error {
	return New(CodeNotFound, reason, msg)
}

func Forbidden(reason Reason, msg string) error {
	return New(CodePermissionDenied, reason, msg)
}

func InvalidState(reason Reason, msg string) error {
	return New(CodeInvalidState, reason, msg)
}

func Internal(msg string, cause error) error {
	return Wrap(CodeInternal, "", msg, cause)
}

// As extracts the *AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}
