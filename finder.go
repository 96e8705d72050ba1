package rekord

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rekord-dev/rekord/dialect"
)

// FindAllParams configures FindAll and CountAll. Zero values take the
// documented defaults.
type FindAllParams struct {
	// Where is a raw SQL condition, default "1". It is always wrapped as
	// (1 AND (<Where>)) in the generated statement.
	Where string
	// OrderBy defaults to "<primaryKey> ASC".
	OrderBy string
	// Limit defaults to 999.
	Limit int
	// Start is the row offset, default 0.
	Start int
}

// FindByID fetches the row with the given primary key into this instance.
// Zero rows fail with NotFound; on success the instance is registered into
// the object pool.
func (m *Model) FindByID(ctx context.Context, id any) (*Model, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	conn, err := m.class.catalog.driver.Conn(ctx)
	if err != nil {
		return nil, NewQueryError(m.class.name, "find", err)
	}
	defer conn.Close()
	return m.findByID(ctx, conn, id)
}

// findByID runs the fetch over an already acquired connection, so operation
// chains like FindAll reuse their connection for the per-row re-fetch.
func (m *Model) findByID(ctx context.Context, conn dialect.Conn, id any) (*Model, error) {
	cl := m.class
	conn.Prepare(
		"SELECT * FROM "+conn.EscapeID(cl.tableName, false)+
			" WHERE "+conn.EscapeID(cl.primaryKey, false)+" = {1} LIMIT 1",
		conn.Escape(id),
	)
	res, err := conn.Exec(ctx)
	if err != nil {
		return nil, NewQueryError(cl.name, "find", err)
	}
	if len(res.Rows) == 0 {
		return nil, NewNotFoundErrorWithID(cl.name, id)
	}
	row := res.Rows[0]
	for _, col := range cl.Columns() {
		if v, ok := row[col]; ok {
			m.values[col] = v
		}
	}
	cl.catalog.poolPut(cl, row[cl.primaryKey], m)
	return m, nil
}

// FindAll fetches every row matching params. Zero rows resolve with nil,
// not an error. Each matched row is rematerialized through FindByID on its
// primary key, so all returned instances take the same population and
// pool-registration path as a direct fetch.
func (m *Model) FindAll(ctx context.Context, params FindAllParams) ([]*Model, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	conn, err := m.class.catalog.driver.Conn(ctx)
	if err != nil {
		return nil, NewQueryError(m.class.name, "findAll", err)
	}
	defer conn.Close()
	return m.findAll(ctx, conn, params)
}

func (m *Model) findAll(ctx context.Context, conn dialect.Conn, params FindAllParams) ([]*Model, error) {
	cl := m.class
	where := params.Where
	if where == "" {
		where = "1"
	}
	orderBy := params.OrderBy
	if orderBy == "" {
		orderBy = conn.EscapeID(cl.primaryKey, false) + " ASC"
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 999
	}
	conn.Prepare(
		"SELECT * FROM "+conn.EscapeID(cl.tableName, false)+
			" WHERE (1 AND ({1})) ORDER BY {2} LIMIT {3},{4}",
		where, orderBy, params.Start, limit,
	)
	res, err := conn.Exec(ctx)
	if err != nil {
		return nil, NewQueryError(cl.name, "findAll", err)
	}
	return m.materialize(ctx, conn, res.Rows)
}

// FindByQuery executes a caller-supplied SELECT verbatim. The caller is
// responsible for escaping. Zero rows resolve with nil; matched rows are
// rematerialized the same way FindAll does.
func (m *Model) FindByQuery(ctx context.Context, query string) ([]*Model, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	conn, err := m.class.catalog.driver.Conn(ctx)
	if err != nil {
		return nil, NewQueryError(m.class.name, "findByQuery", err)
	}
	defer conn.Close()
	conn.Prepare(query)
	res, err := conn.Exec(ctx)
	if err != nil {
		return nil, NewQueryError(m.class.name, "findByQuery", err)
	}
	return m.materialize(ctx, conn, res.Rows)
}

// materialize re-fetches each row by primary key into a fresh instance.
func (m *Model) materialize(ctx context.Context, conn dialect.Conn, rows []dialect.Row) ([]*Model, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cl := m.class
	out := make([]*Model, 0, len(rows))
	for _, row := range rows {
		inst := cl.New(nil)
		if err := inst.ensure(ctx); err != nil {
			return nil, err
		}
		if _, err := inst.findByID(ctx, conn, row[cl.primaryKey]); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// CountAll counts the rows matching params.Where (default "1").
func (m *Model) CountAll(ctx context.Context, params FindAllParams) (int64, error) {
	if err := m.ensure(ctx); err != nil {
		return 0, err
	}
	conn, err := m.class.catalog.driver.Conn(ctx)
	if err != nil {
		return 0, NewQueryError(m.class.name, "count", err)
	}
	defer conn.Close()
	where := params.Where
	if where == "" {
		where = "1"
	}
	conn.Prepare(
		"SELECT COUNT(*) AS count FROM "+conn.EscapeID(m.class.tableName, false)+
			" WHERE (1 AND ({1}))",
		where,
	)
	res, err := conn.Exec(ctx)
	if err != nil {
		return 0, NewQueryError(m.class.name, "count", err)
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return toInt64(res.Rows[0]["count"])
}

// toInt64 normalizes the numeric representations drivers hand back.
func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("rekord: cannot interpret %T as count", v)
	}
}
