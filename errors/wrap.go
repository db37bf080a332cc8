package errors

import (
	stderrors "errors"
)

// Wrap annotates err with a code and message. A nil err returns nil so call
// sites can wrap unconditionally.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// CodeOf extracts the Code from an error chain. Errors that do not carry a
// code report CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Code == code
}

// IsRetryable reports whether the error chain indicates a transient failure.
// Unclassified errors are treated as non-retryable so bugs are not retried
// into the ground.
func IsRetryable(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Retryable()
	}
	return false
}
