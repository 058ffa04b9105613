// Package sqlstore implements store.Library on top of database/sql. One SQL
// database can hold many libraries; a catalog table records which physical
// table backs each library table and what its key and value fields are.
//
// Supported drivers: sqlite (modernc.org/sqlite), postgres (pgx stdlib) and
// mysql (go-sql-driver). Everything written between Create/Open(write) and
// Close happens in one transaction, so a table is only replaced when it is
// closed.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/JonMunkholm/tblimport/internal/codepage"
	"github.com/JonMunkholm/tblimport/internal/store"
)

const catalogTable = "tblimport_catalog"

// Options configures a SQL-backed store.
type Options struct {
	Driver      string
	DSN         string
	BusyTimeout time.Duration
	WAL         bool
}

// DB is an open SQL database that hosts table libraries.
type DB struct {
	db *sql.DB
	d  dialect
}

// Open connects to the database and makes sure the catalog exists.
func Open(ctx context.Context, opts Options) (*DB, error) {
	d, err := lookupDialect(opts.Driver)
	if err != nil {
		return nil, err
	}
	dsn := opts.DSN
	if d.name == "sqlite" {
		dsn = sqliteDSN(dsn, opts.WAL, opts.BusyTimeout)
	}

	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(10 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	if _, err := conn.ExecContext(ctx, d.catalogDDL()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create catalog: %w", err)
	}
	return &DB{db: conn, d: d}, nil
}

// Close closes the database handle.
func (db *DB) Close() error { return db.db.Close() }

// Encodings says which code page incoming strings use. Tables and values
// arrive in the store encoding, field names in the working encoding.
type Encodings struct {
	Tables codepage.Codec
	Fields codepage.Codec
}

// DefaultEncodings is used when no explicit store encoding was requested.
var DefaultEncodings = Encodings{Tables: codepage.Default, Fields: codepage.Default}

// Library returns the named library. The caller keeps ownership of db.
func (db *DB) Library(name string, enc Encodings) *Library {
	return &Library{db: db, name: name, enc: enc, open: make(map[string]*openTable)}
}

// OpenLibrary opens a database for a single library. Releasing the library
// closes the database.
func OpenLibrary(ctx context.Context, opts Options, name string, enc Encodings) (*Library, error) {
	db, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	lib := db.Library(name, enc)
	lib.owns = true
	return lib, nil
}

type openTable struct {
	mode     store.OpenMode
	tx       *sql.Tx
	physical string
	keys     []string // UTF-8
	names    []string // UTF-8
	rows     int

	// Set for staged creates: physical is the staging table, final the name
	// it takes on Close and replaced the table it supersedes, if any.
	table    string
	final    string
	replaced string
}

// Library implements store.Library for one library inside a DB.
type Library struct {
	db   *DB
	name string
	enc  Encodings
	owns bool

	mu       sync.Mutex
	open     map[string]*openTable
	released bool
}

var _ store.Library = (*Library)(nil)

var fieldNameRE = regexp.MustCompile(`^[^\s()]+$`)

func (l *Library) decodeFields(fields []string) ([]string, error) {
	out := make([]string, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		s, err := codepage.Decode(f, l.enc.Fields)
		if err != nil {
			return nil, fmt.Errorf("field name: %w", err)
		}
		if !fieldNameRE.MatchString(s) {
			return nil, fmt.Errorf("invalid field name %q", s)
		}
		if seen[strings.ToUpper(s)] {
			return nil, fmt.Errorf("field %q defined twice", s)
		}
		seen[strings.ToUpper(s)] = true
		out[i] = s
	}
	return out, nil
}

func (l *Library) encodeFields(fields []string) ([]string, error) {
	out := make([]string, len(fields))
	for i, f := range fields {
		s, err := codepage.Encode(f, l.enc.Fields)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (l *Library) tableName(raw string) (string, error) {
	name, err := codepage.Decode(raw, l.enc.Tables)
	if err != nil {
		return "", fmt.Errorf("table name: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		return "", errors.New("table name is empty")
	}
	return name, nil
}

var unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9]+`)

// physicalName derives a portable SQL table name for library/table.
func physicalName(library, table string) string {
	base := unsafeIdent.ReplaceAllString(library+"_"+table, "_")
	if len(base) > 40 {
		base = base[:40]
	}
	return fmt.Sprintf("tbl_%s_%016x", strings.ToLower(base), xxhash.Sum64String(library+"\x00"+table))
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// lookup reads the catalog row for table, if any.
func (l *Library) lookup(ctx context.Context, q queryer, table string) (physical string, keys, names []string, err error) {
	d := l.db.d
	var keysList, namesList string
	row := q.QueryRowContext(ctx,
		`SELECT physical, keys_list, names_list FROM `+catalogTable+
			` WHERE library = `+d.placeholder(1)+` AND name = `+d.placeholder(2),
		l.name, table)
	if err := row.Scan(&physical, &keysList, &namesList); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, nil, store.ErrNotExist
		}
		return "", nil, nil, err
	}
	return physical, strings.Fields(keysList), strings.Fields(namesList), nil
}

func (l *Library) Create(ctx context.Context, raw string, keys, names []string, mode store.CreateMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return store.ErrReleased
	}
	if _, ok := l.open[raw]; ok {
		return fmt.Errorf("create: %w", store.ErrAlreadyOpen)
	}

	table, err := l.tableName(raw)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("create %s: at least one value field is required", table)
	}
	fkeys, err := l.decodeFields(keys)
	if err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	fnames, err := l.decodeFields(append(append([]string(nil), keys...), names...))
	if err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	fnames = fnames[len(keys):]

	d := l.db.d
	if d.stageDDL {
		return l.createStaged(ctx, raw, table, fkeys, fnames, mode)
	}
	tx, err := l.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create %s: begin: %w", table, err)
	}

	physical, _, _, err := l.lookup(ctx, tx, table)
	switch {
	case err == nil && mode == store.CreateNew:
		_ = tx.Rollback()
		return fmt.Errorf("create %s: %w", table, store.ErrExists)
	case err == nil:
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+d.quote(physical)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create %s: drop: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+catalogTable+` WHERE library = `+d.placeholder(1)+` AND name = `+d.placeholder(2),
			l.name, table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create %s: uncatalog: %w", table, err)
		}
	case !errors.Is(err, store.ErrNotExist):
		_ = tx.Rollback()
		return fmt.Errorf("create %s: catalog: %w", table, err)
	}

	physical = physicalName(l.name, table)
	if _, err := tx.ExecContext(ctx, d.createTableDDL(physical, fkeys, fnames)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+catalogTable+` (library, name, physical, keys_list, names_list) VALUES (`+d.placeholders(1, 5)+`)`,
		l.name, table, physical, strings.Join(fkeys, " "), strings.Join(fnames, " ")); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create %s: catalog: %w", table, err)
	}

	slog.Debug("table created", "library", l.name, "table", table, "physical", physical, "mode", mode.String())
	l.open[raw] = &openTable{mode: store.OpenWrite, tx: tx, physical: physical, keys: fkeys, names: fnames}
	return nil
}

// createStaged creates the table under a staging name outside any
// transaction; the catalog and any existing table are left alone until Close.
func (l *Library) createStaged(ctx context.Context, raw, table string, keys, names []string, mode store.CreateMode) error {
	d := l.db.d
	replaced, _, _, err := l.lookup(ctx, l.db.db, table)
	switch {
	case err == nil && mode == store.CreateNew:
		return fmt.Errorf("create %s: %w", table, store.ErrExists)
	case errors.Is(err, store.ErrNotExist):
		replaced = ""
	case err != nil:
		return fmt.Errorf("create %s: catalog: %w", table, err)
	}

	final := physicalName(l.name, table)
	staging := final + "_s"
	if _, err := l.db.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+d.quote(staging)); err != nil {
		return fmt.Errorf("create %s: drop staging: %w", table, err)
	}
	if _, err := l.db.db.ExecContext(ctx, d.createTableDDL(staging, keys, names)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	tx, err := l.db.db.BeginTx(ctx, nil)
	if err != nil {
		l.dropStaging(staging)
		return fmt.Errorf("create %s: begin: %w", table, err)
	}

	slog.Debug("table staged", "library", l.name, "table", table, "staging", staging, "mode", mode.String())
	l.open[raw] = &openTable{
		mode: store.OpenWrite, tx: tx, physical: staging, keys: keys, names: names,
		table: table, final: final, replaced: replaced,
	}
	return nil
}

// publish swaps a committed staging table in under its final name and
// records it in the catalog.
func (l *Library) publish(ctx context.Context, t *openTable) error {
	d := l.db.d
	db := l.db.db
	old := ""
	if t.replaced != "" {
		old = t.final + "_o"
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+d.quote(old)); err != nil {
			return fmt.Errorf("close %s: %w", t.table, err)
		}
		if _, err := db.ExecContext(ctx, d.renameDDL(t.replaced, old)); err != nil {
			return fmt.Errorf("close %s: set aside: %w", t.table, err)
		}
	}
	if _, err := db.ExecContext(ctx, d.renameDDL(t.physical, t.final)); err != nil {
		return fmt.Errorf("close %s: rename: %w", t.table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("close %s: begin: %w", t.table, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM `+catalogTable+` WHERE library = `+d.placeholder(1)+` AND name = `+d.placeholder(2),
		l.name, t.table); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close %s: uncatalog: %w", t.table, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+catalogTable+` (library, name, physical, keys_list, names_list) VALUES (`+d.placeholders(1, 5)+`)`,
		l.name, t.table, t.final, strings.Join(t.keys, " "), strings.Join(t.names, " ")); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close %s: catalog: %w", t.table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("close %s: catalog: %w", t.table, err)
	}

	if old != "" {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+d.quote(old)); err != nil {
			slog.Warn("drop replaced table failed", "library", l.name, "table", t.table, "physical", old, "error", err)
		}
	}
	return nil
}

// dropStaging removes a staging table. It runs on discard paths, so it does
// not depend on the caller's context.
func (l *Library) dropStaging(staging string) {
	if _, err := l.db.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+l.db.d.quote(staging)); err != nil {
		slog.Warn("drop staging table failed", "library", l.name, "physical", staging, "error", err)
	}
}

func (l *Library) Open(ctx context.Context, raw string, mode store.OpenMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return store.ErrReleased
	}
	if _, ok := l.open[raw]; ok {
		return fmt.Errorf("open: %w", store.ErrAlreadyOpen)
	}
	table, err := l.tableName(raw)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	physical, keys, names, err := l.lookup(ctx, l.db.db, table)
	if err != nil {
		return fmt.Errorf("open %s: %w", table, err)
	}
	t := &openTable{mode: mode, physical: physical, keys: keys, names: names}

	var q queryer = l.db.db
	if mode == store.OpenWrite {
		tx, err := l.db.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("open %s: begin: %w", table, err)
		}
		t.tx = tx
		q = tx
	}
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+l.db.d.quote(physical)).Scan(&t.rows); err != nil {
		if t.tx != nil {
			_ = t.tx.Rollback()
		}
		return fmt.Errorf("open %s: count: %w", table, err)
	}
	l.open[raw] = t
	return nil
}

func (l *Library) Query(_ context.Context, raw string) (store.Shape, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.open[raw]
	if !ok {
		return store.Shape{}, fmt.Errorf("query: %w", store.ErrNotOpen)
	}
	keys, err := l.encodeFields(t.keys)
	if err != nil {
		return store.Shape{}, fmt.Errorf("query: %w", err)
	}
	names, err := l.encodeFields(t.names)
	if err != nil {
		return store.Shape{}, fmt.Errorf("query: %w", err)
	}
	return store.Shape{Keys: store.WrapList(keys), Names: store.WrapList(names), Rows: t.rows}, nil
}

func (l *Library) Append(ctx context.Context, raw string, values map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.open[raw]
	if !ok || t.mode != store.OpenWrite {
		return fmt.Errorf("append: %w", store.ErrNotOpen)
	}

	// values are keyed by field names in the working encoding.
	fields := append(append([]string(nil), t.keys...), t.names...)
	cols := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = l.db.d.quote(f)
		key, err := codepage.Encode(f, l.enc.Fields)
		if err != nil {
			return fmt.Errorf("append: %w", err)
		}
		v, err := codepage.Decode(values[key], l.enc.Tables)
		if err != nil {
			return fmt.Errorf("append: field %s: %w", f, err)
		}
		args[i] = v
	}

	stmt := "INSERT INTO " + l.db.d.quote(t.physical) + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		l.db.d.placeholders(1, len(fields)) + ")"
	if _, err := t.tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("append: %w", classify(err))
	}
	t.rows++
	return nil
}

func (l *Library) Close(ctx context.Context, raw string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.open[raw]
	if !ok {
		return fmt.Errorf("close: %w", store.ErrNotOpen)
	}
	delete(l.open, raw)
	if t.tx == nil {
		return nil
	}
	if err := t.tx.Commit(); err != nil {
		if t.final != "" {
			l.dropStaging(t.physical)
		}
		return fmt.Errorf("close: commit: %w", err)
	}
	if t.final != "" {
		return l.publish(ctx, t)
	}
	return nil
}

func (l *Library) End(_ context.Context, raw string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.open[raw]
	if !ok {
		return fmt.Errorf("end: %w", store.ErrNotOpen)
	}
	delete(l.open, raw)
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	if t.final != "" {
		l.dropStaging(t.physical)
	}
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("end: rollback: %w", err)
	}
	return nil
}

// Release ends any open tables and, when the library owns its database,
// closes it.
func (l *Library) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return nil
	}
	l.released = true
	for name, t := range l.open {
		if t.tx != nil {
			_ = t.tx.Rollback()
		}
		if t.final != "" {
			l.dropStaging(t.physical)
		}
		delete(l.open, name)
	}
	if l.owns {
		return l.db.Close()
	}
	return nil
}
