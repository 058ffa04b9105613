package core

import (
	"context"

	"github.com/JonMunkholm/tblimport/internal/codepage"
	"github.com/JonMunkholm/tblimport/internal/store"
)

// TableInfo describes an existing table for display. Names are UTF-8.
type TableInfo struct {
	Library string   `json:"library"`
	Table   string   `json:"table"`
	Keys    []string `json:"keys"`
	Values  []string `json:"names"`
	Rows    int      `json:"rows"`
}

// Describe opens a table read-only and reports its shape. library, table
// and encoding are UTF-8 as given by the caller; encoding names the store
// encoding the table was written with.
func (im *Importer) Describe(ctx context.Context, library, table, encoding string) (TableInfo, error) {
	if library == "" || table == "" {
		return TableInfo{}, &Error{Kind: KindSyntax, Op: "describe", RC: 8, Reason: "MISSING", Err: errNoIdentity}
	}
	codes, err := codepage.New(codepage.Unicode, encoding)
	if err != nil {
		return TableInfo{}, newError(KindConfig, "encoding", "UNKNOWN", err)
	}
	stored, err := codes.FromParam(table)
	if err != nil {
		return TableInfo{}, newError(KindTranscode, "describe", "", err)
	}

	lib, err := im.bind(ctx, library, codes.Store())
	if err != nil {
		return TableInfo{}, newError(KindStore, "bind "+library, "", err)
	}
	defer lib.Release()

	if err := lib.Open(ctx, stored, store.OpenRead); err != nil {
		return TableInfo{}, newError(KindStore, "open", "", err)
	}
	shape, err := lib.Query(ctx, stored)
	if closeErr := lib.Close(ctx, stored); err == nil {
		err = closeErr
	}
	if err != nil {
		return TableInfo{}, newError(KindStore, "query", "", err)
	}

	toFields := func(list string) []Field {
		names := store.UnwrapList(list)
		fields := make([]Field, len(names))
		for i, n := range names {
			fields[i] = Field{Name: n}
		}
		return fields
	}
	return TableInfo{
		Library: library,
		Table:   table,
		Keys:    displayNames(toFields(shape.Keys)),
		Values:  displayNames(toFields(shape.Names)),
		Rows:    shape.Rows,
	}, nil
}
