package rekord_test

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rekord-dev/rekord/dialect"
)

// fakeDriver is an in-memory dialect.Driver for tests that exercise the
// catalog and model layers without SQL round trips.
type fakeDriver struct {
	cols map[string][]string // table -> column names
	rows []dialect.Row       // returned by every SELECT

	colErr      error
	getColCalls atomic.Int32
	delay       time.Duration

	deleted []string // tables DeleteOne was called for
}

func newFakeDriver(cols map[string][]string) *fakeDriver {
	return &fakeDriver{cols: cols}
}

func (d *fakeDriver) Conn(context.Context) (dialect.Conn, error) {
	return &fakeConn{d: d}, nil
}

func (d *fakeDriver) Dialect() string { return "fake" }
func (d *fakeDriver) Close() error    { return nil }

type fakeConn struct {
	d    *fakeDriver
	stmt string
}

func (c *fakeConn) Dialect() string { return "fake" }

func (c *fakeConn) Escape(v any) string { return dialect.EscapeValue(v) }

func (c *fakeConn) EscapeID(ident string, ignoreDots bool) string {
	return dialect.EscapeIdent(ident, ignoreDots)
}

func (c *fakeConn) Prepare(template string, args ...any) {
	c.stmt = dialect.Expand(template, args...)
}

func (c *fakeConn) Exec(context.Context) (*dialect.Result, error) {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(c.stmt)), "SELECT") {
		return &dialect.Result{Rows: c.d.rows}, nil
	}
	return &dialect.Result{}, nil
}

func (c *fakeConn) GetColumns(_ context.Context, table string) ([]string, error) {
	c.d.getColCalls.Add(1)
	if c.d.delay > 0 {
		time.Sleep(c.d.delay)
	}
	if c.d.colErr != nil {
		return nil, c.d.colErr
	}
	return c.d.cols[table], nil
}

func (c *fakeConn) DeleteOne(_ context.Context, table, _ string, _ any, _ dialect.DeleteOptions) error {
	c.d.deleted = append(c.d.deleted, table)
	return nil
}

func (c *fakeConn) Close() error { return nil }
