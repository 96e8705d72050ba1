package rekord

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Class describes one logical model: its naming-derived identifiers and the
// lazily discovered column schema. All instances of a logical model share
// one Class.
type Class struct {
	catalog    *Catalog
	name       string // canonical singular lowercase identifier
	className  string // PascalCase singular
	tableName  string // snake_case plural, overridable
	primaryKey string
	foreignKey string

	colMu   sync.RWMutex
	columns []string
	colset  map[string]struct{}
}

// Name returns the canonical logical model name.
func (cl *Class) Name() string { return cl.name }

// ClassName returns the derived PascalCase class name.
func (cl *Class) ClassName() string { return cl.className }

// TableName returns the backing table name.
func (cl *Class) TableName() string { return cl.tableName }

// PrimaryKey returns the primary-key column, "id" by default.
func (cl *Class) PrimaryKey() string { return cl.primaryKey }

// ForeignKey returns the conventional foreign-key column other tables use
// to reference this class.
func (cl *Class) ForeignKey() string { return cl.foreignKey }

// SetTableName overrides the convention-derived table name. It must be
// called before the class is first used; the column schema is discovered
// against the table name in effect at that point.
func (cl *Class) SetTableName(table string) *Class {
	cl.tableName = table
	return cl
}

// SetPrimaryKey overrides the primary-key column.
func (cl *Class) SetPrimaryKey(column string) *Class {
	cl.primaryKey = column
	return cl
}

// SetForeignKey overrides the foreign-key column peers use for this class.
func (cl *Class) SetForeignKey(column string) *Class {
	cl.foreignKey = column
	return cl
}

// New constructs an instance of this class. Seed values are filtered into
// column values and the extension slot on the instance's first operation,
// once the column schema is known.
func (cl *Class) New(values map[string]any) *Model {
	m := &Model{class: cl, values: make(map[string]any)}
	if len(values) > 0 {
		m.seed = make(map[string]any, len(values))
		for k, v := range values {
			m.seed[k] = v
		}
	}
	return m
}

// Find fetches the row with the given primary key as a fresh instance.
func (cl *Class) Find(ctx context.Context, id any) (*Model, error) {
	return cl.New(nil).FindByID(ctx, id)
}

// Columns returns the memoized column list, or nil if the class has never
// been initialized.
func (cl *Class) Columns() []string {
	cl.colMu.RLock()
	defer cl.colMu.RUnlock()
	if cl.columns == nil {
		return nil
	}
	out := make([]string, len(cl.columns))
	copy(out, cl.columns)
	return out
}

// HasColumn reports whether key names a known column. It returns false for
// a class that was never initialized; callers route through initialize
// first.
func (cl *Class) HasColumn(key string) bool {
	cl.colMu.RLock()
	defer cl.colMu.RUnlock()
	_, ok := cl.colset[key]
	return ok
}

// initialize discovers the column schema on first use. Concurrent callers
// share a single in-flight introspection round trip; on failure the class
// is left uninitialized and the next call retries from scratch. Once
// populated, the schema is immutable for the catalog lifetime.
func (cl *Class) initialize(ctx context.Context) error {
	if cl.initialized() {
		return nil
	}
	_, err, _ := cl.catalog.flight.Do(cl.name, func() (any, error) {
		if cl.initialized() {
			return nil, nil
		}
		conn, err := cl.catalog.driver.Conn(ctx)
		if err != nil {
			return nil, NewQueryError(cl.name, "initialize", err)
		}
		defer conn.Close()
		cols, err := conn.GetColumns(ctx, cl.tableName)
		if err != nil {
			return nil, NewQueryError(cl.name, "initialize", err)
		}
		cl.setColumns(cols)
		log.Debug().
			Str("class", cl.name).
			Str("table", cl.tableName).
			Strs("columns", cols).
			Msg("rekord: discovered column schema")
		return nil, nil
	})
	return err
}

func (cl *Class) initialized() bool {
	cl.colMu.RLock()
	defer cl.colMu.RUnlock()
	return cl.columns != nil
}

func (cl *Class) setColumns(cols []string) {
	cl.colMu.Lock()
	defer cl.colMu.Unlock()
	cl.columns = make([]string, len(cols))
	copy(cl.columns, cols)
	cl.colset = make(map[string]struct{}, len(cols))
	for _, c := range cols {
		cl.colset[c] = struct{}{}
	}
}
