// Package sqlite implements the rekord connection capability on top of
// modernc.org/sqlite. The default configuration shares a single handle, so
// Conn acquisition and release are no-ops; DeleteOne retries on the busy
// signal up to a fixed ceiling before surfacing the error.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rekord-dev/rekord/dialect"
)

// maxBusyRetries bounds the retry loop for busy-database errors during a
// delete. Attempts beyond the ceiling surface dialect.ErrBusy.
const maxBusyRetries = 5

// busyBackoff is the pause between busy retries.
const busyBackoff = 50 * time.Millisecond

// Driver is a dialect.Driver backed by a SQLite database file.
type Driver struct {
	db *sql.DB
}

// Open opens a SQLite-backed driver for the given database file.
func Open(path string) (*Driver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	return &Driver{db: db}, nil
}

// OpenDB wraps an existing *sql.DB with a Driver.
func OpenDB(db *sql.DB) *Driver {
	return &Driver{db: db}
}

// OpenFromEnv opens the database file named by REKORD_SQLITE_PATH,
// defaulting to rekord.db in the working directory.
func OpenFromEnv() (*Driver, error) {
	path := os.Getenv("REKORD_SQLITE_PATH")
	if path == "" {
		path = "rekord.db"
	}
	return Open(path)
}

// DB returns the underlying *sql.DB.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect implements dialect.Driver.
func (d *Driver) Dialect() string { return dialect.SQLite }

// Conn hands out a connection sharing the single underlying handle. Its
// Close is a no-op in the default configuration.
func (d *Driver) Conn(_ context.Context) (dialect.Conn, error) {
	return &conn{
		SQLConn: dialect.SQLConn{EQ: d.db, Name: dialect.SQLite},
		db:      d.db,
	}, nil
}

// Close closes the underlying handle.
func (d *Driver) Close() error { return d.db.Close() }

var _ dialect.Driver = (*Driver)(nil)

type conn struct {
	dialect.SQLConn
	db *sql.DB
}

// GetColumns introspects a table via PRAGMA table_info and returns its
// column names in definition order.
func (c *conn) GetColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA table_info("+c.EscapeID(table, false)+")")
	if err != nil {
		return nil, fmt.Errorf("sqlite: table_info %s: %w", table, err)
	}
	decoded, err := dialect.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: table_info %s: %w", table, err)
	}
	cols := make([]string, 0, len(decoded))
	for _, row := range decoded {
		name, ok := row["name"].(string)
		if !ok {
			return nil, fmt.Errorf("sqlite: table_info %s: unexpected name value %v", table, row["name"])
		}
		cols = append(cols, name)
	}
	return cols, nil
}

// DeleteOne deletes at most one row keyed by keyColumn, retrying on the
// busy signal, optionally followed by VACUUM.
func (c *conn) DeleteOne(ctx context.Context, table, keyColumn string, keyValue any, opts dialect.DeleteOptions) error {
	stmt := "DELETE FROM " + c.EscapeID(table, false) +
		" WHERE " + c.EscapeID(keyColumn, false) + " = " + c.Escape(keyValue)
	for attempt := 0; ; attempt++ {
		_, err := c.db.ExecContext(ctx, stmt)
		if err == nil {
			break
		}
		if !isBusy(err) {
			return fmt.Errorf("sqlite: delete from %s: %w", table, err)
		}
		if attempt >= maxBusyRetries {
			log.Warn().
				Str("table", table).
				Int("attempts", attempt+1).
				Msg("sqlite: database busy, giving up on delete")
			return fmt.Errorf("sqlite: delete from %s after %d attempts: %w", table, attempt+1, dialect.ErrBusy)
		}
		log.Debug().Str("table", table).Int("attempt", attempt+1).Msg("sqlite: database busy, retrying delete")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(busyBackoff):
		}
	}
	if opts.Optimize {
		if _, err := c.db.ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("sqlite: vacuum after delete from %s: %w", table, err)
		}
	}
	return nil
}

// Close is a no-op; the handle is shared for the driver's lifetime.
func (c *conn) Close() error { return nil }

var _ dialect.Conn = (*conn)(nil)

// isBusy reports whether err is the transient busy/locked condition. Other
// backing-store errors must not be retried.
func isBusy(err error) bool {
	if errors.Is(err, dialect.ErrBusy) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}
