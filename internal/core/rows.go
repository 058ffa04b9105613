package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/tblimport/internal/document"
)

var errRowField = errors.New("row field not found")

// ImportRows appends one record per entry of the document's data array to
// the table open for write. A row missing any schema field aborts the run.
func ImportRows(ctx context.Context, rc *RunContext) (int, error) {
	arr, found, err := rc.findRoot(FieldData, document.TypeArray)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, newError(KindLookup, "extract "+FieldData, "NOT_FOUND",
			fmt.Errorf("%w: %q", errMissingRoot, FieldData))
	}
	n, err := rc.Doc.ArrayLength(arr.Handle)
	if err != nil {
		return 0, newError(KindLookup, "extract "+FieldData, "", err)
	}

	fields := make([]Field, 0, len(rc.Schema.Keys)+len(rc.Schema.Values))
	fields = append(fields, rc.Schema.Keys...)
	fields = append(fields, rc.Schema.Values...)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return i, newError(KindStore, "append", "CANCELLED", err)
		}
		rec, err := rc.buildRecord(arr.Handle, i, fields)
		if err != nil {
			return i, err
		}
		if err := rc.lib.Append(ctx, rc.StoreTable, rec); err != nil {
			return i, newError(KindStore, fmt.Sprintf("append row %d", i), "", err)
		}
	}
	return n, nil
}

func (rc *RunContext) buildRecord(data document.Handle, i int, fields []Field) (Record, error) {
	op := fmt.Sprintf("row %d", i)
	row, err := rc.Doc.ArrayEntry(data, i)
	if err != nil {
		return nil, newError(KindLookup, op, "", err)
	}

	rec := make(Record, len(fields))
	for _, f := range fields {
		v, err := rc.Doc.FindByName(row, f.Source, document.TypeString)
		if errors.Is(err, document.ErrNotFound) {
			name, _ := rc.Codes.ToUnicode(f.Source)
			return nil, newError(KindLookup, op, "NOT_FOUND", fmt.Errorf("%w: %s", errRowField, name))
		}
		if document.IsTypeMismatch(err) {
			name, _ := rc.Codes.ToUnicode(f.Source)
			return nil, newError(KindLookup, op+" field "+name, "TYPE", err)
		}
		if err != nil {
			return nil, newError(KindLookup, op, "", err)
		}
		val, err := rc.Codes.Convert(v.Text)
		if err != nil {
			return nil, newError(KindTranscode, op, "", err)
		}
		rec[f.Name] = val
	}
	return rec, nil
}
