package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ExecQuerier wraps the standard Exec and Query methods shared by *sql.DB,
// *sql.Conn and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLConn is the database/sql-backed half of a Conn implementation. Adapter
// packages embed it and add introspection, delete and close semantics.
type SQLConn struct {
	EQ   ExecQuerier
	Name string

	stmt string
}

// Dialect reports the backing-store dialect name.
func (c *SQLConn) Dialect() string { return c.Name }

// Escape renders a value as a SQL literal.
func (c *SQLConn) Escape(v any) string { return EscapeValue(v) }

// EscapeID quotes an identifier, splitting on dots unless ignoreDots is set.
func (c *SQLConn) EscapeID(ident string, ignoreDots bool) string {
	return EscapeIdent(ident, ignoreDots)
}

// Prepare expands the positional-placeholder template and stores the
// resulting statement for the next Exec call.
func (c *SQLConn) Prepare(template string, args ...any) {
	c.stmt = Expand(template, args...)
}

// Exec runs the last prepared statement. SELECT statements resolve with
// decoded rows; anything else resolves with the generated id and the
// affected-row count.
func (c *SQLConn) Exec(ctx context.Context) (*Result, error) {
	stmt := c.stmt
	if stmt == "" {
		return nil, fmt.Errorf("dialect: exec called with no prepared statement")
	}
	if isSelect(stmt) {
		rows, err := c.EQ.QueryContext(ctx, stmt)
		if err != nil {
			return nil, fmt.Errorf("dialect: query: %w", err)
		}
		decoded, err := ScanRows(rows)
		if err != nil {
			return nil, fmt.Errorf("dialect: scan: %w", err)
		}
		return &Result{Rows: decoded}, nil
	}
	res, err := c.EQ.ExecContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("dialect: exec: %w", err)
	}
	out := &Result{}
	// Not every driver reports these; treat failures as zero values.
	if id, err := res.LastInsertId(); err == nil {
		out.InsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}

// ScanRows decodes all rows into Row maps and closes the row set. []byte
// column values are normalized to string so callers see one text type
// regardless of the driver's wire protocol.
func ScanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func isSelect(stmt string) bool {
	s := strings.ToUpper(strings.TrimSpace(stmt))
	return strings.HasPrefix(s, "SELECT") || strings.HasPrefix(s, "PRAGMA") || strings.HasPrefix(s, "DESCRIBE")
}
