package rekord

import (
	"context"
	"strings"

	"github.com/rekord-dev/rekord/dialect"
)

type saveConfig struct {
	force  bool
	ignore bool
}

// SaveOption configures Save.
type SaveOption func(*saveConfig)

// ForceInsert makes Save emit an INSERT even when the primary key is
// already set on the instance.
func ForceInsert() SaveOption {
	return func(c *saveConfig) { c.force = true }
}

// InsertIgnore makes the emitted INSERT tolerate conflicts
// (INSERT IGNORE / INSERT OR IGNORE depending on the backing store).
func InsertIgnore() SaveOption {
	return func(c *saveConfig) { c.ignore = true }
}

// Save persists the instance: an UPDATE keyed by primary key when the key
// is set (unless ForceInsert), otherwise an INSERT. Only columns with a
// defined value are written; unset columns are omitted rather than written
// as NULL. After an INSERT the store-generated id is adopted as the
// instance's primary-key value. Returns the instance for chaining.
func (m *Model) Save(ctx context.Context, opts ...SaveOption) (*Model, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	var cfg saveConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	conn, err := m.class.catalog.driver.Conn(ctx)
	if err != nil {
		return nil, NewMutationError(m.class.name, "save", err)
	}
	defer conn.Close()

	if _, ok := m.id(); ok && !cfg.force {
		return m.update(ctx, conn)
	}
	return m.insert(ctx, conn, cfg.ignore)
}

func (m *Model) update(ctx context.Context, conn dialect.Conn) (*Model, error) {
	cl := m.class
	var assigns []string
	for _, col := range cl.Columns() {
		if col == cl.primaryKey {
			continue
		}
		v, ok := m.values[col]
		if !ok {
			continue
		}
		assigns = append(assigns, conn.EscapeID(col, false)+" = "+conn.Escape(v))
	}
	if len(assigns) == 0 {
		return m, nil
	}
	id, _ := m.id()
	conn.Prepare(
		"UPDATE "+conn.EscapeID(cl.tableName, false)+
			" SET "+strings.Join(assigns, ", ")+
			" WHERE "+conn.EscapeID(cl.primaryKey, false)+" = {1}",
		conn.Escape(id),
	)
	if _, err := conn.Exec(ctx); err != nil {
		return nil, NewMutationError(cl.name, "save", err)
	}
	return m, nil
}

func (m *Model) insert(ctx context.Context, conn dialect.Conn, ignore bool) (*Model, error) {
	cl := m.class
	var cols, vals []string
	for _, col := range cl.Columns() {
		v, ok := m.values[col]
		if !ok {
			continue
		}
		cols = append(cols, conn.EscapeID(col, false))
		vals = append(vals, conn.Escape(v))
	}
	verb := "INSERT INTO "
	if ignore {
		if conn.Dialect() == dialect.SQLite {
			verb = "INSERT OR IGNORE INTO "
		} else {
			verb = "INSERT IGNORE INTO "
		}
	}
	conn.Prepare(verb + conn.EscapeID(cl.tableName, false) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")")
	res, err := conn.Exec(ctx)
	if err != nil {
		return nil, NewMutationError(cl.name, "save", err)
	}
	if res.InsertID != 0 {
		m.values[cl.primaryKey] = res.InsertID
	}
	return m, nil
}

// Delete removes the backing row keyed by primary key, optionally followed
// by a table-optimize maintenance statement. Deleting an instance that was
// never saved is not an error; it resolves with false.
func (m *Model) Delete(ctx context.Context, optimize bool) (bool, error) {
	if err := m.ensure(ctx); err != nil {
		return false, err
	}
	id, ok := m.id()
	if !ok {
		return false, nil
	}
	conn, err := m.class.catalog.driver.Conn(ctx)
	if err != nil {
		return false, NewMutationError(m.class.name, "delete", err)
	}
	defer conn.Close()
	err = conn.DeleteOne(ctx, m.class.tableName, m.class.primaryKey, id, dialect.DeleteOptions{Optimize: optimize})
	if err != nil {
		return false, NewMutationError(m.class.name, "delete", err)
	}
	return true, nil
}
