package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/tblimport/internal/codepage"
	"github.com/JonMunkholm/tblimport/internal/document"
	"github.com/JonMunkholm/tblimport/internal/store"
)

// Kind classifies a failed import run.
type Kind int

const (
	KindUsage Kind = iota + 1
	KindConfig
	KindIO
	KindParse
	KindLookup
	KindMismatch
	KindStore
	KindTranscode
	// KindSyntax covers malformed parameters and arguments other than a
	// missing input path.
	KindSyntax
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindConfig:
		return "config"
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindLookup:
		return "lookup"
	case KindMismatch:
		return "mismatch"
	case KindStore:
		return "store"
	case KindTranscode:
		return "transcode"
	case KindSyntax:
		return "syntax"
	default:
		return "unknown"
	}
}

// Exit statuses reported to scripted callers.
const (
	ExitOK        = 0
	ExitUsage     = 1
	ExitSyntax    = 2
	ExitConfig    = 4
	ExitIO        = 8
	ExitParse     = 12
	ExitLookup    = 16
	ExitMismatch  = 20
	ExitStore     = 24
	ExitTranscode = 28
	ExitInternal  = 99
)

// ExitCode returns the process exit status for k.
func (k Kind) ExitCode() int {
	switch k {
	case KindUsage:
		return ExitUsage
	case KindConfig:
		return ExitConfig
	case KindIO:
		return ExitIO
	case KindParse:
		return ExitParse
	case KindLookup:
		return ExitLookup
	case KindMismatch:
		return ExitMismatch
	case KindStore:
		return ExitStore
	case KindTranscode:
		return ExitTranscode
	case KindSyntax:
		return ExitSyntax
	default:
		return ExitInternal
	}
}

// Error is a fatal import failure. RC and Reason form the diagnostic code
// pair printed to the operator.
type Error struct {
	Kind   Kind
	Op     string
	RC     int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: rc=%d reason=%s", e.Op, e.RC, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode maps err to a process exit status. Errors that are not *Error
// map to ExitInternal.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.ExitCode()
	}
	return ExitInternal
}

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op, reason string, err error) *Error {
	rc, r := diagnose(err)
	if reason == "" {
		reason = r
	}
	return &Error{Kind: kind, Op: op, RC: rc, Reason: reason, Err: err}
}

// diagnose derives the return-code/reason pair from a collaborator error.
// Store codes follow the usual table service convention: 8 for conditions
// the caller can act on, 12 for calling-sequence errors, 20 for severe ones.
func diagnose(err error) (int, string) {
	var de *document.Error
	var ce *codepage.ConversionError
	switch {
	case err == nil:
		return 0, "NONE"
	case errors.As(err, &de):
		return int(de.Code), de.Code.String()
	case errors.Is(err, document.ErrNotFound):
		return 8, "NOT_FOUND"
	case errors.Is(err, store.ErrNotExist):
		return 8, "NOT_EXIST"
	case errors.Is(err, store.ErrExists):
		return 8, "EXISTS"
	case errors.Is(err, store.ErrDuplicateKey):
		return 8, "DUPLICATE_KEY"
	case errors.Is(err, store.ErrNotOpen), errors.Is(err, store.ErrAlreadyOpen):
		return 12, "NOT_OPEN"
	case errors.Is(err, store.ErrReleased):
		return 12, "RELEASED"
	case errors.As(err, &ce):
		return 20, "CONVERSION"
	default:
		return 20, "SEVERE"
	}
}
