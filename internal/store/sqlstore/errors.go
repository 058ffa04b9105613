package sqlstore

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/tblimport/internal/store"
)

// pgUniqueViolation is SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

// mysqlDupEntry is ER_DUP_ENTRY.
const mysqlDupEntry = 1062

// isDuplicateKey reports whether a driver error is a primary key collision.
func isDuplicateKey(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDupEntry
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// classify maps driver errors onto store sentinels where one applies.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return errors.Join(store.ErrDuplicateKey, err)
	}
	return err
}
