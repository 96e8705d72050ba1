// Package mysql implements the rekord connection capability on top of
// go-sql-driver/mysql. Connections are acquired per operation from the
// underlying pool and released by Close.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	drv "github.com/go-sql-driver/mysql"

	"github.com/rekord-dev/rekord/dialect"
)

// Driver is a dialect.Driver backed by a MySQL database.
type Driver struct {
	db *sql.DB
}

// Open opens a MySQL-backed driver for the given DSN.
func Open(dsn string) (*Driver, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	return &Driver{db: db}, nil
}

// OpenDB wraps an existing *sql.DB with a Driver.
func OpenDB(db *sql.DB) *Driver {
	return &Driver{db: db}
}

// OpenFromEnv builds the DSN from REKORD_MYSQL_HOST, REKORD_MYSQL_USER,
// REKORD_MYSQL_PASSWORD and REKORD_MYSQL_DATABASE.
func OpenFromEnv() (*Driver, error) {
	cfg := drv.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = envOr("REKORD_MYSQL_HOST", "127.0.0.1:3306")
	cfg.User = envOr("REKORD_MYSQL_USER", "root")
	cfg.Passwd = os.Getenv("REKORD_MYSQL_PASSWORD")
	cfg.DBName = os.Getenv("REKORD_MYSQL_DATABASE")
	return Open(cfg.FormatDSN())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// DB returns the underlying *sql.DB.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect implements dialect.Driver.
func (d *Driver) Dialect() string { return dialect.MySQL }

// Conn acquires a dedicated connection from the pool. The returned Conn's
// Close releases it back.
func (d *Driver) Conn(ctx context.Context) (dialect.Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("mysql: acquire conn: %w", err)
	}
	return &conn{
		SQLConn: dialect.SQLConn{EQ: c, Name: dialect.MySQL},
		conn:    c,
	}, nil
}

// Close closes the underlying pool.
func (d *Driver) Close() error { return d.db.Close() }

var _ dialect.Driver = (*Driver)(nil)

type conn struct {
	dialect.SQLConn
	conn *sql.Conn
}

// GetColumns introspects a table via DESCRIBE and returns its column names
// in definition order.
func (c *conn) GetColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := c.conn.QueryContext(ctx, "DESCRIBE "+c.EscapeID(table, false))
	if err != nil {
		return nil, fmt.Errorf("mysql: describe %s: %w", table, err)
	}
	decoded, err := dialect.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("mysql: describe %s: %w", table, err)
	}
	cols := make([]string, 0, len(decoded))
	for _, row := range decoded {
		name, ok := row["Field"].(string)
		if !ok {
			return nil, fmt.Errorf("mysql: describe %s: unexpected field value %v", table, row["Field"])
		}
		cols = append(cols, name)
	}
	return cols, nil
}

// DeleteOne deletes at most one row keyed by keyColumn, optionally followed
// by OPTIMIZE TABLE.
func (c *conn) DeleteOne(ctx context.Context, table, keyColumn string, keyValue any, opts dialect.DeleteOptions) error {
	stmt := "DELETE FROM " + c.EscapeID(table, false) +
		" WHERE " + c.EscapeID(keyColumn, false) + " = " + c.Escape(keyValue) + " LIMIT 1"
	if _, err := c.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mysql: delete from %s: %w", table, err)
	}
	if opts.Optimize {
		if _, err := c.conn.ExecContext(ctx, "OPTIMIZE TABLE "+c.EscapeID(table, false)); err != nil {
			return fmt.Errorf("mysql: optimize %s: %w", table, err)
		}
	}
	return nil
}

// Close releases the connection back to the pool.
func (c *conn) Close() error { return c.conn.Close() }

var _ dialect.Conn = (*conn)(nil)
