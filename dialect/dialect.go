// Package dialect defines the connection capability rekord consumes from its
// backing-store adapters. The model layer talks only to Driver and Conn;
// wire-level execution and result decoding live in the adapter packages.
package dialect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect names for the supported backing stores.
const (
	MySQL  = "mysql"
	SQLite = "sqlite"
)

// ErrBusy is the transient-contention signal surfaced by a backing store.
// The SQLite adapter retries on it up to a fixed ceiling before giving up.
var ErrBusy = errors.New("dialect: backing store busy")

// Row is a single decoded result row, keyed by column name.
type Row map[string]any

// Result carries the outcome of Exec: decoded rows for a SELECT, or the
// generated id and affected-row count for a mutating statement.
type Result struct {
	Rows         []Row
	InsertID     int64
	RowsAffected int64
}

// Driver hands out connections, one per top-level model operation.
type Driver interface {
	// Conn acquires a connection. The caller must Close it on every exit
	// path; for some adapters Close is a no-op.
	Conn(ctx context.Context) (Conn, error)
	Dialect() string
	Close() error
}

// Conn is a single acquired connection. Prepare stores a statement built
// from a positional-placeholder template; Exec runs the last prepared
// statement. The two calls are paired within one operation chain.
type Conn interface {
	Dialect() string
	Escape(v any) string
	EscapeID(ident string, ignoreDots bool) string
	Prepare(template string, args ...any)
	Exec(ctx context.Context) (*Result, error)
	GetColumns(ctx context.Context, table string) ([]string, error)
	DeleteOne(ctx context.Context, table, keyColumn string, keyValue any, opts DeleteOptions) error
	Close() error
}

// DeleteOptions configures DeleteOne.
type DeleteOptions struct {
	// Optimize triggers a table-maintenance statement after the delete.
	Optimize bool
}

// Expand substitutes positional placeholders of the form {1}, {2}, ... with
// the string form of the given arguments. Substitution is verbatim; callers
// escape values themselves where needed.
func Expand(template string, args ...any) string {
	for i, arg := range args {
		template = strings.ReplaceAll(template, "{"+strconv.Itoa(i+1)+"}", fmt.Sprint(arg))
	}
	return template
}

// EscapeValue renders a Go value as a SQL literal. Strings are quoted with
// single quotes and backslash/quote escaped, nil becomes NULL, booleans
// become 1/0, times use the conventional datetime layout.
func EscapeValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case string:
		return "'" + escapeString(v) + "'"
	case []byte:
		return "'" + escapeString(string(v)) + "'"
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v)
	default:
		return "'" + escapeString(fmt.Sprint(v)) + "'"
	}
}

// EscapeIdent quotes an identifier with backticks. Unless ignoreDots is set,
// the identifier is split on "." and each segment is quoted separately, so
// "db.table" becomes `db`.`table`.
func EscapeIdent(ident string, ignoreDots bool) string {
	if ignoreDots {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

// escapeString escapes single quotes and backslashes inside a string
// literal. Both are handled for MySQL compatibility; doubling quotes alone
// is enough for SQLite.
func escapeString(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}
