package policy

import (
	"errors"
	"fmt"

	"github.com/agentfs/agentfs/internal/audit"
	"github.com/agentfs/agentfs/internal/kv"
	"github.com/agentfs/agentfs/internal/search"
	"github.com/agentfs/agentfs/internal/store"
	"github.com/agentfs/agentfs/internal/vfs"
)

// Error codes crossing the tool boundary. Filesystem errors keep their
// POSIX-style codes (ENOENT, EISDIR, ...).
const (
	CodeInvalidParams = "INVALID_PARAMS"
	CodeTimeout       = "TIMEOUT"
	CodeToolNotFound  = "TOOL_NOT_FOUND"
	CodeNotFound      = "NOT_FOUND"
	CodeKeyNotFound   = "KEY_NOT_FOUND"
	CodePattern       = "PATTERN_ERROR"
	CodeImmutable     = "IMMUTABLE_ENTRY"
	CodeInternal      = "INTERNAL"
)

// Error is the structured payload every fault becomes before it crosses the
// tool boundary. A raw fault never escapes the policy layer.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InvalidParams builds a terminal invalid-params error.
func InvalidParams(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// Classify lowers any domain error to its boundary payload.
func Classify(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	var ferr *vfs.Error
	if errors.As(err, &ferr) {
		return &Error{Code: string(ferr.Code), Message: ferr.Error(), Retryable: ferr.Retryable}
	}

	var paterr *search.PatternError
	if errors.As(err, &paterr) {
		return &Error{Code: CodePattern, Message: paterr.Error()}
	}

	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
		return &Error{Code: CodeKeyNotFound, Message: err.Error()}
	case errors.Is(err, audit.ErrImmutable):
		return &Error{Code: CodeImmutable, Message: err.Error()}
	case errors.Is(err, audit.ErrNotFound), errors.Is(err, store.ErrNoDocuments):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	}

	return &Error{Code: CodeInternal, Message: err.Error()}
}

// Retryable reports whether the policy may retry after this error.
func Retryable(err error) bool {
	return Classify(err).Retryable
}
