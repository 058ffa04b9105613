// Package store defines the tabular store the importer writes to.
//
// A Library is a named collection of tables (the store location). Each table
// has an ordered list of key fields, which together form the record key, and
// an ordered list of value fields. The calling sequence mirrors a classic
// table service:
//
//	Create/Open(write) -> Append... -> Close    (commit)
//	Create/Open(write) -> Append... -> End      (discard)
//	Open(read) -> Query -> Close
//
// Field names are passed in the working encoding and table names and values
// in the store encoding; implementations decide how they persist them.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotExist means the table is not in the library.
	ErrNotExist = errors.New("table does not exist")
	// ErrExists means a new-only create found the table already present.
	ErrExists = errors.New("table already exists")
	// ErrDuplicateKey means an append collided with an existing key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotOpen means the table has not been opened in the required mode.
	ErrNotOpen = errors.New("table not open")
	// ErrAlreadyOpen means the table is already open in this library.
	ErrAlreadyOpen = errors.New("table already open")
	// ErrReleased means the library bindings have been released.
	ErrReleased = errors.New("library released")
)

// CreateMode controls what Create does when the table already exists.
type CreateMode int

const (
	CreateNew CreateMode = iota
	CreateReplace
)

func (m CreateMode) String() string {
	if m == CreateReplace {
		return "replace"
	}
	return "new"
}

// OpenMode is how a table is opened.
type OpenMode int

const (
	OpenRead OpenMode = iota
	OpenWrite
)

func (m OpenMode) String() string {
	if m == OpenWrite {
		return "write"
	}
	return "read"
}

// Shape is what Query reports about a table. Both lists are
// parenthesis-wrapped, space-separated field names, e.g. "(ID NAME)".
// A key-less table reports an empty Keys string.
type Shape struct {
	Keys  string
	Names string
	Rows  int
}

// Library is one store location's table library.
type Library interface {
	// Create defines a table and leaves it open for write.
	Create(ctx context.Context, table string, keys, names []string, mode CreateMode) error
	Open(ctx context.Context, table string, mode OpenMode) error
	Query(ctx context.Context, table string) (Shape, error)
	// Append adds one record. Fields missing from values are stored empty.
	Append(ctx context.Context, table string, values map[string]string) error
	// Close saves a table opened for write and closes it.
	Close(ctx context.Context, table string) error
	// End closes a table without saving changes made since it was opened.
	End(ctx context.Context, table string) error
	// Release frees the library bindings. Open tables are ended first.
	Release() error
}

// WrapList renders field names the way Query reports them.
func WrapList(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return "(" + strings.Join(fields, " ") + ")"
}

// UnwrapList splits a Query list back into field names, dropping the
// enclosing parentheses.
func UnwrapList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	return strings.Fields(s)
}
