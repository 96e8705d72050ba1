// Package rekord is an ActiveRecord-style object-relational mapper. Table
// rows map to dynamically registered model classes; relationships are
// derived from naming conventions rather than declared schema. Column
// discovery is deferred until a class is first used and memoized for the
// process lifetime.
package rekord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rekord-dev/rekord/dialect"
	"github.com/rekord-dev/rekord/naming"
)

// Catalog owns the model registry, the per-class schema cache and the
// object pool for one backing store. Callers construct it explicitly so
// tests and independent sessions get isolated state.
type Catalog struct {
	driver dialect.Driver

	mu      sync.Mutex
	classes map[string]*Class

	flight singleflight.Group

	poolMu sync.RWMutex
	pool   map[poolKey]*Model
}

type poolKey struct {
	class string
	id    string
}

// New returns a Catalog over the given driver.
func New(driver dialect.Driver) *Catalog {
	return &Catalog{
		driver:  driver,
		classes: make(map[string]*Class),
		pool:    make(map[poolKey]*Model),
	}
}

// Driver returns the backing-store driver.
func (c *Catalog) Driver() dialect.Driver { return c.driver }

// Close releases the backing store.
func (c *Catalog) Close() error { return c.driver.Close() }

// Create resolves the class for a logical model name, registering it on
// first use. The name is normalized to lowercase and defaults to "model".
// Two calls with the same normalized name return the identical *Class, so
// classes synthesized on the fly by relationship traversal interoperate
// with explicitly created ones.
func (c *Catalog) Create(name string) *Class {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "model"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.classes[name]; ok {
		return cl
	}
	className := naming.TableNameToClassName(naming.Pluralize(name))
	tableName := naming.ClassNameToTableName(className)
	cl := &Class{
		catalog:    c,
		name:       name,
		className:  className,
		tableName:  tableName,
		primaryKey: "id",
		foreignKey: naming.TableNameToForeignKey(tableName),
	}
	c.classes[name] = cl
	return cl
}

// Find resolves (or creates) the class for name and fetches the row with
// the given primary key.
func (c *Catalog) Find(ctx context.Context, id any, name string) (*Model, error) {
	return c.Create(name).Find(ctx, id)
}

// Pooled returns the previously materialized instance for (name, id), if
// any. The pool is populated by FindByID; finders never consult it, this
// accessor exists for diagnostics and tests.
func (c *Catalog) Pooled(name string, id any) (*Model, bool) {
	c.poolMu.RLock()
	defer c.poolMu.RUnlock()
	m, ok := c.pool[poolKey{class: strings.ToLower(name), id: fmt.Sprint(id)}]
	return m, ok
}

// poolPut registers a materialized instance. Entries live for the catalog
// lifetime; there is no eviction.
func (c *Catalog) poolPut(cl *Class, id any, m *Model) {
	c.poolMu.Lock()
	defer c.poolMu.Unlock()
	c.pool[poolKey{class: cl.name, id: fmt.Sprint(id)}] = m
}
