package document

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by FindByName when the object has no member with the
// requested name. It is not a failure of the document itself.
var ErrNotFound = errors.New("member not found")

// Code is a diagnostic code attached to document errors.
type Code int

const (
	CodeSyntax Code = iota + 1
	CodeEncoding
	CodeTooLarge
	CodeTypeMismatch
	CodeBadHandle
	CodeIndexRange
	CodeReleased
)

func (c Code) String() string {
	switch c {
	case CodeSyntax:
		return "SYNTAX"
	case CodeEncoding:
		return "ENCODING"
	case CodeTooLarge:
		return "TOO_LARGE"
	case CodeTypeMismatch:
		return "TYPE_MISMATCH"
	case CodeBadHandle:
		return "BAD_HANDLE"
	case CodeIndexRange:
		return "INDEX_RANGE"
	case CodeReleased:
		return "RELEASED"
	default:
		return fmt.Sprintf("CODE_%d", int(c))
	}
}

// Error is a failed document operation.
type Error struct {
	Op     string
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (code %d): %s", e.Op, e.Code, int(e.Code), e.Detail)
}

// IsTypeMismatch reports whether err is a type-mismatch error.
func IsTypeMismatch(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == CodeTypeMismatch
}
