package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tblimport/internal/codepage"
	"github.com/JonMunkholm/tblimport/internal/store"
	"github.com/JonMunkholm/tblimport/internal/store/memstore"
	"github.com/JonMunkholm/tblimport/internal/store/sqlstore"
)

const scenarioDoc = `{"table":"T1","dsn":"","keys":["ID"],"names":["VAL"],` +
	`"data":[{"ID":"1","VAL":"x"}],"num_rows":1}`

const lib = "LIB.PDS"

func enc(t *testing.T, s string, c codepage.Codec) string {
	t.Helper()
	out, err := codepage.Encode(s, c)
	require.NoError(t, err)
	return out
}

func e1047(t *testing.T, s string) string { return enc(t, s, codepage.IBM1047) }

func ibm037(t *testing.T) codepage.Codec {
	t.Helper()
	c, _, err := codepage.Lookup("IBM-037")
	require.NoError(t, err)
	return c
}

type countingBinder struct {
	s     *memstore.Store
	calls int
}

func (b *countingBinder) bind(_ context.Context, library string, _ codepage.Codec) (store.Library, error) {
	b.calls++
	return b.s.Library(library), nil
}

func newMemImporter() (*Importer, *countingBinder) {
	b := &countingBinder{s: memstore.New()}
	return NewImporter(b.bind, 0), b
}

func TestRun_NewTableScenario(t *testing.T) {
	im, b := newMemImporter()

	sum, err := im.Run(context.Background(), Params{Library: lib}, []byte(scenarioDoc))
	require.NoError(t, err)
	require.Equal(t, NewTable.String(), sum.Outcome)
	require.Equal(t, 1, sum.Rows)
	require.Equal(t, []string{"ID"}, sum.Keys)
	require.Equal(t, []string{"VAL"}, sum.Values)
	require.Contains(t, sum.Report(), "1 row has been processed")
	require.Contains(t, sum.Report(), "Table T1 in library LIB.PDS")

	rows, ok := b.s.Rows(lib, e1047(t, "T1"))
	require.True(t, ok)
	require.Len(t, rows, 1)
	require.Equal(t, e1047(t, "1"), rows[0][e1047(t, "ID")])
	require.Equal(t, e1047(t, "x"), rows[0][e1047(t, "VAL")])
}

func TestRun_ReplaySameShape(t *testing.T) {
	im, b := newMemImporter()
	ctx := context.Background()

	_, err := im.Run(ctx, Params{Library: lib}, []byte(scenarioDoc))
	require.NoError(t, err)

	sum, err := im.Run(ctx, Params{Library: lib, Replace: true}, []byte(scenarioDoc))
	require.NoError(t, err)
	require.Equal(t, ReplaceSameShape.String(), sum.Outcome)

	rows, _ := b.s.Rows(lib, e1047(t, "T1"))
	require.Len(t, rows, 1)
}

func TestRun_ReplaceWithoutExistingTable(t *testing.T) {
	im, _ := newMemImporter()
	sum, err := im.Run(context.Background(), Params{Library: lib, Replace: true}, []byte(scenarioDoc))
	require.NoError(t, err)
	require.Equal(t, NewTable.String(), sum.Outcome)
}

func TestRun_ExistingTableWithoutReplace(t *testing.T) {
	im, _ := newMemImporter()
	ctx := context.Background()

	_, err := im.Run(ctx, Params{Library: lib}, []byte(scenarioDoc))
	require.NoError(t, err)

	_, err = im.Run(ctx, Params{Library: lib}, []byte(scenarioDoc))
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrExists)
	require.Equal(t, ExitStore, ExitCode(err))
	require.Equal(t, "TBL002", MapError(err).Code)
}

func TestRun_EmptyNamesIsFatalBeforeStore(t *testing.T) {
	im, b := newMemImporter()
	doc := `{"table":"T1","keys":["ID"],"names":[],"data":[]}`

	_, err := im.Run(context.Background(), Params{Library: lib}, []byte(doc))
	require.Error(t, err)
	require.Equal(t, KindLookup, KindOf(err))
	require.Equal(t, "LKP002", MapError(err).Code)
	require.Zero(t, b.calls)
	require.Empty(t, b.s.Ops())
}

func TestRun_MismatchLeavesTableUnchanged(t *testing.T) {
	im, b := newMemImporter()
	existing := map[string]string{e1047(t, "ID"): e1047(t, "9"), e1047(t, "NAME"): e1047(t, "n"), e1047(t, "VAL"): e1047(t, "old")}
	b.s.Put(lib, e1047(t, "T1"),
		[]string{e1047(t, "ID"), e1047(t, "NAME")}, []string{e1047(t, "VAL")}, existing)

	sum, err := im.Run(context.Background(), Params{Library: lib, Replace: true}, []byte(scenarioDoc))
	require.Error(t, err)
	require.Equal(t, Summary{}, sum)
	require.Equal(t, KindMismatch, KindOf(err))
	require.NotZero(t, ExitCode(err))
	require.Contains(t, err.Error(), "rerun with FORCE")
	require.Equal(t, "SCH001", MapError(err).Code)

	require.Empty(t, b.s.Ops())
	rows, _ := b.s.Rows(lib, e1047(t, "T1"))
	require.Equal(t, []map[string]string{existing}, rows)
}

func TestRun_ForceReplacesMismatch(t *testing.T) {
	im, b := newMemImporter()
	b.s.Put(lib, e1047(t, "T1"),
		[]string{e1047(t, "ID"), e1047(t, "NAME")}, []string{e1047(t, "VAL")})

	// FORCE alone implies REPL.
	sum, err := im.Run(context.Background(), Params{Library: lib, Force: true}, []byte(scenarioDoc))
	require.NoError(t, err)
	require.Equal(t, ReplaceForced.String(), sum.Outcome)
	require.Contains(t, b.s.Ops(), "create "+lib+"/"+e1047(t, "T1"))

	lb := b.s.Library(lib)
	require.NoError(t, lb.Open(context.Background(), e1047(t, "T1"), store.OpenRead))
	shape, err := lb.Query(context.Background(), e1047(t, "T1"))
	require.NoError(t, err)
	require.Equal(t, store.WrapList([]string{e1047(t, "ID")}), shape.Keys)
	require.Equal(t, 1, shape.Rows)
}

func TestRun_MissingRowFieldAborts(t *testing.T) {
	im, b := newMemImporter()
	doc := `{"table":"T1","keys":["ID"],"names":["VAL"],"data":[{"ID":"1","VAL":"x"},{"ID":"2"}]}`

	_, err := im.Run(context.Background(), Params{Library: lib}, []byte(doc))
	require.Error(t, err)
	require.Equal(t, KindLookup, KindOf(err))
	require.Equal(t, "LKP003", MapError(err).Code)
	require.Contains(t, err.Error(), "VAL")

	_, saved := b.s.Rows(lib, e1047(t, "T1"))
	require.False(t, saved, "table must not be saved after a failed row")
}

func TestRun_RowFieldWrongTypeAborts(t *testing.T) {
	im, b := newMemImporter()
	doc := `{"table":"T1","keys":["ID"],"names":["VAL"],"data":[{"ID":"1","VAL":{"a":"b"}}]}`

	_, err := im.Run(context.Background(), Params{Library: lib}, []byte(doc))
	require.Error(t, err)
	require.Equal(t, KindLookup, KindOf(err))
	require.Contains(t, err.Error(), "field VAL")
	require.Contains(t, err.Error(), "reason=TYPE")

	_, saved := b.s.Rows(lib, e1047(t, "T1"))
	require.False(t, saved)
}

func TestRun_DuplicateKeyAborts(t *testing.T) {
	im, b := newMemImporter()
	doc := `{"table":"T1","keys":["ID"],"names":["VAL"],"data":[{"ID":"1","VAL":"x"},{"ID":"1","VAL":"y"}]}`

	_, err := im.Run(context.Background(), Params{Library: lib}, []byte(doc))
	require.ErrorIs(t, err, store.ErrDuplicateKey)
	require.Equal(t, ExitStore, ExitCode(err))
	_, saved := b.s.Rows(lib, e1047(t, "T1"))
	require.False(t, saved)
}

func TestRun_IdentityResolution(t *testing.T) {
	tests := []struct {
		name        string
		params      Params
		doc         string
		wantLibrary string
		wantTable   string
		wantKind    Kind
	}{
		{
			name:        "document supplies both",
			doc:         `{"table":"T2","dsn":"A.B","keys":[],"names":["V"],"data":[]}`,
			wantLibrary: "A.B",
			wantTable:   "T2",
		},
		{
			name:        "parameters win",
			params:      Params{Library: "P.Q", Table: "TP"},
			doc:         `{"table":"T2","dsn":"A.B","keys":[],"names":["V"],"data":[]}`,
			wantLibrary: "P.Q",
			wantTable:   "TP",
		},
		{
			name:     "no library anywhere",
			doc:      `{"table":"T2","dsn":"","keys":[],"names":["V"],"data":[]}`,
			wantKind: KindConfig,
		},
		{
			name:     "no table anywhere",
			params:   Params{Library: "P.Q"},
			doc:      `{"keys":[],"names":["V"],"data":[]}`,
			wantKind: KindConfig,
		},
		{
			name:     "keys array missing",
			params:   Params{Library: "P.Q"},
			doc:      `{"table":"T","names":["V"],"data":[]}`,
			wantKind: KindLookup,
		},
		{
			name:     "data array missing",
			params:   Params{Library: "P.Q"},
			doc:      `{"table":"T","keys":[],"names":["V"]}`,
			wantKind: KindLookup,
		},
		{
			name:     "field both key and value",
			params:   Params{Library: "P.Q"},
			doc:      `{"table":"T","keys":["A"],"names":["A"],"data":[]}`,
			wantKind: KindLookup,
		},
		{
			name:     "malformed document",
			params:   Params{Library: "P.Q"},
			doc:      `{"table":"T",`,
			wantKind: KindParse,
		},
		{
			name:     "unknown encoding",
			params:   Params{Library: "P.Q", Encoding: "NO-SUCH-CODEPAGE"},
			doc:      `{"table":"T","keys":[],"names":["V"],"data":[]}`,
			wantKind: KindConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im, _ := newMemImporter()
			sum, err := im.Run(context.Background(), tt.params, []byte(tt.doc))
			if tt.wantKind != 0 {
				require.Error(t, err)
				require.Equal(t, tt.wantKind, KindOf(err), "error: %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantLibrary, sum.Library)
			require.Equal(t, tt.wantTable, sum.Table)
			require.Zero(t, sum.Rows)
			require.Contains(t, sum.Report(), "0 rows have been processed")
		})
	}
}

func TestRun_RowCountHint(t *testing.T) {
	im, _ := newMemImporter()
	doc := `{"table":"T1","keys":[],"names":["V"],"data":[{"V":"a"},{"V":"b"}],"num_rows":0}`

	sum, err := im.Run(context.Background(), Params{Library: lib}, []byte(doc))
	require.NoError(t, err)
	require.Equal(t, 2, sum.Reported())
	require.Contains(t, sum.Report(), "2 rows have been processed")

	doc = `{"table":"T2","keys":[],"names":["V"],"data":[{"V":"a"}],"num_rows":"many"}`
	sum, err = im.Run(context.Background(), Params{Library: lib}, []byte(doc))
	require.NoError(t, err)
	require.Equal(t, 1, sum.Reported())
}

func TestRun_ValuesAndNulls(t *testing.T) {
	im, b := newMemImporter()
	doc := `{"table":"T1","keys":["ID"],"names":["V"],"data":[{"ID":7,"V":null}]}`

	_, err := im.Run(context.Background(), Params{Library: lib}, []byte(doc))
	require.NoError(t, err)
	rows, _ := b.s.Rows(lib, e1047(t, "T1"))
	require.Equal(t, e1047(t, "7"), rows[0][e1047(t, "ID")])
	require.Equal(t, "", rows[0][e1047(t, "V")])
}

func TestRun_LegacyDocument(t *testing.T) {
	im, b := newMemImporter()
	data := e1047(t, scenarioDoc)

	sum, err := im.Run(context.Background(), Params{Library: lib}, []byte(data))
	require.NoError(t, err)
	require.Equal(t, "T1", sum.Table)
	require.Equal(t, []string{"VAL"}, sum.Values)

	rows, _ := b.s.Rows(lib, e1047(t, "T1"))
	require.Equal(t, e1047(t, "x"), rows[0][e1047(t, "VAL")])
}

func TestRun_ExplicitStoreEncoding(t *testing.T) {
	im, b := newMemImporter()
	doc := `{"table":"T1","keys":[],"names":["V"],"data":[{"V":"[a]"}]}`

	_, err := im.Run(context.Background(), Params{Library: lib, Encoding: "IBM-037"}, []byte(doc))
	require.NoError(t, err)

	rows, ok := b.s.Rows(lib, enc(t, "T1", ibm037(t)))
	require.True(t, ok)
	// Field names stay in the working encoding, values use the store encoding.
	require.Equal(t, enc(t, "[a]", ibm037(t)), rows[0][e1047(t, "V")])
}

func TestRun_DryRunSavesNothing(t *testing.T) {
	im, b := newMemImporter()

	sum, err := im.Run(context.Background(), Params{Library: lib, DryRun: true}, []byte(scenarioDoc))
	require.NoError(t, err)
	require.True(t, sum.DryRun)
	require.Equal(t, 1, sum.Rows)
	require.Contains(t, sum.Report(), "Dry run")
	require.Empty(t, b.s.Ops())
}

func TestRun_DocumentTooLarge(t *testing.T) {
	b := &countingBinder{s: memstore.New()}
	im := NewImporter(b.bind, 16)

	_, err := im.Run(context.Background(), Params{Library: lib}, []byte(scenarioDoc))
	require.Equal(t, KindIO, KindOf(err))
	require.Equal(t, "DOC001", MapError(err).Code)
}

func TestImportFile(t *testing.T) {
	im, _ := newMemImporter()
	ctx := context.Background()

	_, err := im.ImportFile(ctx, Params{})
	require.Equal(t, ExitUsage, ExitCode(err))
	require.Equal(t, "CFG001", MapError(err).Code)

	_, err = im.ImportFile(ctx, Params{Input: filepath.Join(t.TempDir(), "missing.json")})
	require.Equal(t, KindIO, KindOf(err))

	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(scenarioDoc), 0o600))
	sum, err := im.ImportFile(ctx, Params{Input: path, Library: lib})
	require.NoError(t, err)
	require.Equal(t, 1, sum.Rows)
}

func openSQLite(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), sqlstore.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "store.db"),
		WAL:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sqlImporter(db *sqlstore.DB) *Importer {
	return NewImporter(func(_ context.Context, library string, tables codepage.Codec) (store.Library, error) {
		return db.Library(library, sqlstore.Encodings{Tables: tables, Fields: codepage.Default}), nil
	}, 0)
}

func TestSQLite_IdempotentReplace(t *testing.T) {
	db := openSQLite(t)
	im := sqlImporter(db)
	ctx := context.Background()
	doc := `{"table":"T1","dsn":"LIB.PDS","keys":["ID"],"names":["VAL","NOTE"],` +
		`"data":[{"ID":"1","VAL":"x","NOTE":"a"},{"ID":"2","VAL":"y","NOTE":"b"}]}`

	first, err := im.Run(ctx, Params{Replace: true}, []byte(doc))
	require.NoError(t, err)
	require.Equal(t, NewTable.String(), first.Outcome)

	second, err := im.Run(ctx, Params{Replace: true}, []byte(doc))
	require.NoError(t, err)
	require.Equal(t, ReplaceSameShape.String(), second.Outcome)

	require.Equal(t, first.Rows, second.Rows)
	require.Equal(t, first.Keys, second.Keys)
	require.Equal(t, first.Values, second.Values)

	l := db.Library("LIB.PDS", sqlstore.DefaultEncodings)
	defer l.Release()
	require.NoError(t, l.Open(ctx, e1047(t, "T1"), store.OpenRead))
	shape, err := l.Query(ctx, e1047(t, "T1"))
	require.NoError(t, err)
	require.Equal(t, 2, shape.Rows)
}

func TestSQLite_MismatchAndForce(t *testing.T) {
	db := openSQLite(t)
	im := sqlImporter(db)
	ctx := context.Background()
	wide := `{"table":"T1","keys":["ID","NAME"],"names":["VAL"],"data":[{"ID":"1","NAME":"n","VAL":"x"}]}`

	_, err := im.Run(ctx, Params{Library: lib}, []byte(wide))
	require.NoError(t, err)

	_, err = im.Run(ctx, Params{Library: lib, Replace: true}, []byte(scenarioDoc))
	require.Equal(t, ExitMismatch, ExitCode(err))

	sum, err := im.Run(ctx, Params{Library: lib, Replace: true, Force: true}, []byte(scenarioDoc))
	require.NoError(t, err)
	require.Equal(t, ReplaceForced.String(), sum.Outcome)
}

func TestSQLite_FailedRowDiscardsTable(t *testing.T) {
	db := openSQLite(t)
	im := sqlImporter(db)
	ctx := context.Background()
	doc := `{"table":"T1","keys":["ID"],"names":["VAL"],"data":[{"ID":"1","VAL":"x"},{"VAL":"y"}]}`

	_, err := im.Run(ctx, Params{Library: lib}, []byte(doc))
	require.Equal(t, KindLookup, KindOf(err))

	l := db.Library(lib, sqlstore.DefaultEncodings)
	defer l.Release()
	require.ErrorIs(t, l.Open(ctx, e1047(t, "T1"), store.OpenRead), store.ErrNotExist)
}

func TestErrorFormat(t *testing.T) {
	err := &Error{Kind: KindStore, Op: "append row 3", RC: 8, Reason: "DUPLICATE_KEY", Err: store.ErrDuplicateKey}
	require.Equal(t, "append row 3: rc=8 reason=DUPLICATE_KEY: duplicate key", err.Error())
	require.True(t, strings.HasPrefix((&Error{Op: "x", Reason: "Y"}).Error(), "x: rc=0"))
}
