package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tblimport/internal/document"
)

var (
	errNoIdentity  = errors.New("identity not resolved")
	errNoValues    = errors.New("no value fields")
	errMissingRoot = errors.New("required root field not found")
	errBadField    = errors.New("invalid field name")
)

// ExtractMetadata fills rc.Schema and rc.StoreTable from the parameters and
// the document root.
func ExtractMetadata(rc *RunContext) error {
	library, _, err := rc.resolveIdentity(rc.Params.Library, FieldLibrary, "library")
	if err != nil {
		return err
	}
	table, storeTable, err := rc.resolveIdentity(rc.Params.Table, FieldTable, "table")
	if err != nil {
		return err
	}
	rc.Schema.Identity = Identity{Library: library, Table: table}
	rc.StoreTable = storeTable

	rc.Schema.RowCountHint = rc.rowCountHint()

	keys, err := rc.fieldList(FieldKeys)
	if err != nil {
		return err
	}
	values, err := rc.fieldList(FieldNames)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return newError(KindLookup, "extract "+FieldNames, "EMPTY",
			fmt.Errorf("%w: the %q array is empty", errNoValues, FieldNames))
	}

	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k.Name] = true
	}
	for _, v := range values {
		if seen[v.Name] {
			return newError(KindLookup, "extract "+FieldNames, "DUPLICATE_FIELD",
				fmt.Errorf("%w: %s is both a key and a value field", errBadField, v.Source))
		}
		seen[v.Name] = true
	}

	rc.Schema.Keys = keys
	rc.Schema.Values = values
	rc.Logger().Debug("metadata extracted",
		"library", library, "table", table,
		"keys", len(keys), "names", len(values), "hint", rc.Schema.RowCountHint)
	return nil
}

// resolveIdentity returns one part of the table identity as UTF-8 and in the
// store encoding. The parameter wins over the document member.
func (rc *RunContext) resolveIdentity(param, field, what string) (display, stored string, err error) {
	op := "resolve " + what
	if param != "" {
		stored, err = rc.Codes.FromParam(param)
		if err != nil {
			return "", "", newError(KindTranscode, op, "", err)
		}
		return param, stored, nil
	}

	v, found, err := rc.findRoot(field, document.TypeString)
	if err != nil {
		return "", "", err
	}
	if !found || strings.TrimSpace(v.Text) == "" {
		return "", "", newError(KindConfig, op, "MISSING",
			fmt.Errorf("%w: no %s parameter and no %q document field", errNoIdentity, what, field))
	}
	display, err = rc.Codes.ToUnicode(v.Text)
	if err != nil {
		return "", "", newError(KindTranscode, op, "", err)
	}
	stored, err = rc.Codes.Convert(v.Text)
	if err != nil {
		return "", "", newError(KindTranscode, op, "", err)
	}
	return display, stored, nil
}

// rowCountHint reads the optional row count. Absent or unusable values are
// reported as 0.
func (rc *RunContext) rowCountHint() int {
	v, found, err := rc.findRoot(FieldNumRows, document.TypeNumber)
	if err != nil {
		rc.Logger().Warn("ignoring row count hint", "error", err)
		return 0
	}
	if !found || v.Text == document.NullText {
		return 0
	}
	text, err := rc.Codes.ToUnicode(v.Text)
	if err != nil {
		rc.Logger().Warn("ignoring row count hint", "error", err)
		return 0
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		rc.Logger().Warn("ignoring row count hint", "value", text)
		return 0
	}
	return n
}

// fieldList reads a root array of field names. The array must exist; it may
// be empty.
func (rc *RunContext) fieldList(field string) ([]Field, error) {
	op := "extract " + field
	arr, found, err := rc.findRoot(field, document.TypeArray)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newError(KindLookup, op, "NOT_FOUND",
			fmt.Errorf("%w: %q", errMissingRoot, field))
	}

	n, err := rc.Doc.ArrayLength(arr.Handle)
	if err != nil {
		return nil, newError(KindLookup, op, "", err)
	}
	fields := make([]Field, 0, n)
	for i := 0; i < n; i++ {
		h, err := rc.Doc.ArrayEntry(arr.Handle, i)
		if err != nil {
			return nil, newError(KindLookup, op, "", err)
		}
		src, err := rc.Doc.ValueOf(h, document.TypeString)
		if err != nil {
			return nil, newError(KindLookup, op, "", err)
		}
		if src == "" {
			return nil, newError(KindLookup, op, "EMPTY_NAME",
				fmt.Errorf("%w: entry %d of %q is empty", errBadField, i, field))
		}
		name, err := rc.Codes.ToWorking(src)
		if err != nil {
			return nil, newError(KindTranscode, op, "", err)
		}
		fields = append(fields, Field{Name: name, Source: src})
	}
	return fields, nil
}
