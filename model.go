package rekord

import (
	"context"
)

// Model is one row-backed instance of a logical model. Keys that name known
// columns live in the value map; any other key lands in the single
// extension slot, where the last write wins. Resolved relationships are
// attached into the value map under their logical names.
//
// A Model is not safe for concurrent use; the catalog-level schema cache
// and object pool are.
type Model struct {
	class  *Class
	values map[string]any

	// Single extension slot for non-column properties. Only one is
	// retained at a time; see the catalog documentation for the rationale.
	extKey string
	extVal any
	hasExt bool

	// Constructor seed, applied once the column schema is known.
	seed map[string]any
}

// Class returns the class this instance belongs to.
func (m *Model) Class() *Class { return m.class }

// ensure guards every operation: the instance must have been created
// through a class, the class schema must be initialized, and any
// constructor seed is filtered into place.
func (m *Model) ensure(ctx context.Context) error {
	if m.class == nil {
		return ErrInvalidInstantiation
	}
	if err := m.class.initialize(ctx); err != nil {
		return err
	}
	if m.seed != nil {
		for k, v := range m.seed {
			m.put(k, v)
		}
		m.seed = nil
	}
	return nil
}

// put routes a key to the value map or the extension slot.
func (m *Model) put(key string, value any) {
	if m.class.HasColumn(key) {
		m.values[key] = value
		return
	}
	m.extKey, m.extVal, m.hasExt = key, value, true
}

// Get returns the value for key: a column value if set, the extension slot
// if it matches, nil otherwise.
func (m *Model) Get(ctx context.Context, key string) (any, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	if m.hasExt && m.extKey == key {
		return m.extVal, nil
	}
	return nil, nil
}

// Set stores value under key. Known columns go to the value map; any other
// key overwrites the extension slot.
func (m *Model) Set(ctx context.Context, key string, value any) error {
	if err := m.ensure(ctx); err != nil {
		return err
	}
	m.put(key, value)
	return nil
}

// Has reports whether key is set, in either storage location.
func (m *Model) Has(ctx context.Context, key string) (bool, error) {
	if err := m.ensure(ctx); err != nil {
		return false, err
	}
	if _, ok := m.values[key]; ok {
		return true, nil
	}
	return m.hasExt && m.extKey == key, nil
}

// Unset removes key from whichever storage location holds it.
func (m *Model) Unset(ctx context.Context, key string) error {
	if err := m.ensure(ctx); err != nil {
		return err
	}
	if _, ok := m.values[key]; ok {
		delete(m.values, key)
		return nil
	}
	if m.hasExt && m.extKey == key {
		m.extKey, m.extVal, m.hasExt = "", nil, false
	}
	return nil
}

// Values returns a snapshot of the value map, relationship attachments
// included.
func (m *Model) Values() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// id returns the primary-key value, if set.
func (m *Model) id() (any, bool) {
	v, ok := m.values[m.class.primaryKey]
	return v, ok
}
