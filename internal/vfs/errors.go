package vfs

import (
	"errors"
	"fmt"
)

// Code is a POSIX-style error code carried by every filesystem error.
type Code string

const (
	ENOENT    Code = "ENOENT"    // no such file or directory
	EISDIR    Code = "EISDIR"    // is a directory
	ENOTDIR   Code = "ENOTDIR"   // not a directory
	EEXIST    Code = "EEXIST"    // file exists
	ENOTEMPTY Code = "ENOTEMPTY" // directory not empty
	EPERM     Code = "EPERM"     // operation not permitted
	EINVAL    Code = "EINVAL"    // invalid argument
	EIO       Code = "EIO"       // input/output error
)

// Error is a filesystem failure: a code, the offending path, a message and
// a retryable flag. Only EIO is retryable by default.
type Error struct {
	Code      Code   `json:"code"`
	Path      string `json:"path"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code Code, path, message string) *Error {
	return &Error{Code: code, Path: path, Message: message}
}

func notFound(path string) *Error {
	return newError(ENOENT, path, "no such file or directory")
}

func isDirectory(path string) *Error {
	return newError(EISDIR, path, "is a directory")
}

func notDirectory(path string) *Error {
	return newError(ENOTDIR, path, "not a directory")
}

func alreadyExists(path string) *Error {
	return newError(EEXIST, path, "file exists")
}

func notEmpty(path string) *Error {
	return newError(ENOTEMPTY, path, "directory not empty")
}

func notPermitted(path, message string) *Error {
	return newError(EPERM, path, message)
}

func invalidArgument(path, message string) *Error {
	return newError(EINVAL, path, message)
}

// ioError wraps a backing-store failure as a retryable EIO.
func ioError(path string, cause error) *Error {
	return &Error{
		Code:      EIO,
		Path:      path,
		Message:   fmt.Sprintf("store operation failed: %v", cause),
		Retryable: true,
		cause:     cause,
	}
}

// CodeOf extracts the filesystem error code, "" for foreign errors.
func CodeOf(err error) Code {
	var fsErr *Error
	if errors.As(err, &fsErr) {
		return fsErr.Code
	}
	return ""
}

// IsRetryable reports whether the error is flagged retryable.
func IsRetryable(err error) bool {
	var fsErr *Error
	return errors.As(err, &fsErr) && fsErr.Retryable
}
