package sqlstore

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	name     string
	driver   string
	keyType  string
	textType string
	quoteCh  string
	dollar   bool
	// stageDDL is set for databases whose DDL commits implicitly. Created
	// tables are then filled under a staging name and swapped in on Close.
	stageDDL bool
}

var dialects = map[string]dialect{
	"sqlite":   {name: "sqlite", driver: "sqlite", keyType: "TEXT", textType: "TEXT", quoteCh: `"`},
	"postgres": {name: "postgres", driver: "pgx", keyType: "TEXT", textType: "TEXT", quoteCh: `"`, dollar: true},
	"mysql":    {name: "mysql", driver: "mysql", keyType: "VARCHAR(255)", textType: "TEXT", quoteCh: "`", stageDDL: true},
}

func lookupDialect(name string) (dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return dialects["sqlite"], nil
	case "postgres", "postgresql", "pgx":
		return dialects["postgres"], nil
	case "mysql":
		return dialects["mysql"], nil
	}
	return dialect{}, fmt.Errorf("unsupported store driver %q", name)
}

func (d dialect) quote(ident string) string {
	return d.quoteCh + strings.ReplaceAll(ident, d.quoteCh, d.quoteCh+d.quoteCh) + d.quoteCh
}

// placeholder returns the bind marker for the 1-based argument i.
func (d dialect) placeholder(i int) string {
	if d.dollar {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (d dialect) placeholders(from, n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = d.placeholder(from + i)
	}
	return strings.Join(marks, ", ")
}

func (d dialect) renameDDL(from, to string) string {
	return "ALTER TABLE " + d.quote(from) + " RENAME TO " + d.quote(to)
}

func (d dialect) catalogDDL() string {
	return `CREATE TABLE IF NOT EXISTS ` + catalogTable + ` (
		library VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		physical VARCHAR(255) NOT NULL,
		keys_list ` + d.textType + ` NOT NULL,
		names_list ` + d.textType + ` NOT NULL,
		PRIMARY KEY (library, name)
	)`
}

func (d dialect) createTableDDL(physical string, keys, names []string) string {
	cols := make([]string, 0, len(keys)+len(names)+1)
	for _, k := range keys {
		cols = append(cols, d.quote(k)+" "+d.keyType+" NOT NULL")
	}
	for _, n := range names {
		cols = append(cols, d.quote(n)+" "+d.textType)
	}
	if len(keys) > 0 {
		quoted := make([]string, len(keys))
		for i, k := range keys {
			quoted[i] = d.quote(k)
		}
		cols = append(cols, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	return "CREATE TABLE " + d.quote(physical) + " (" + strings.Join(cols, ", ") + ")"
}

// sqliteDSN appends the busy timeout and WAL pragmas understood by
// modernc.org/sqlite. In-memory databases are left alone.
func sqliteDSN(dsn string, wal bool, busy time.Duration) string {
	lower := strings.ToLower(dsn)
	if dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:") {
		return dsn
	}
	if wal && !strings.Contains(lower, "_pragma=journal_mode") {
		dsn = addPragma(dsn, "journal_mode(WAL)")
	}
	if ms := busy.Milliseconds(); ms > 0 && !strings.Contains(lower, "_pragma=busy_timeout") {
		dsn = addPragma(dsn, fmt.Sprintf("busy_timeout(%d)", ms))
	}
	return dsn
}

func addPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}
