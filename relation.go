package rekord

import (
	"context"
	"sort"
	"strings"

	"github.com/rekord-dev/rekord/dialect"
	"github.com/rekord-dev/rekord/naming"
)

// BelongsTo resolves the owner this instance references through a foreign
// key on its own table. The foreign-key column is derived from the peer
// name by convention, falling back to the peer class's configured foreign
// key when this table has no such column. The owner is attached under the
// peer name on this instance, and this instance is back-attached on the
// owner; neither link is persisted. An owner whose key does not resolve
// propagates NotFound.
func (m *Model) BelongsTo(ctx context.Context, kind string) (*Model, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	peer := m.class.catalog.Create(kind)
	fkColumn := naming.TableNameToForeignKey(naming.Pluralize(kind))
	if !m.class.HasColumn(fkColumn) {
		fkColumn = peer.ForeignKey()
	}
	owner, err := peer.New(nil).FindByID(ctx, m.values[fkColumn])
	if err != nil {
		return nil, err
	}
	m.values[peer.Name()] = owner
	owner.values[naming.Singularize(m.class.tableName)] = m
	return owner, nil
}

// HasMany resolves the one-to-many children referencing this instance
// through this class's foreign key on their table. Results are attached
// under the plural name on this instance, and this instance is
// back-attached on each child. Zero matches resolve with nil, not an
// error. Optional params narrow or reorder the fetch.
func (m *Model) HasMany(ctx context.Context, kinds string, params ...FindAllParams) ([]*Model, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	child := m.class.catalog.Create(naming.Singularize(kinds))
	p := m.childParams(params)
	if p == nil {
		return nil, nil
	}
	children, err := child.New(nil).FindAll(ctx, *p)
	if err != nil {
		return nil, err
	}
	if children == nil {
		return nil, nil
	}
	m.values[kinds] = children
	for _, ch := range children {
		ch.values[m.class.name] = m
	}
	return children, nil
}

// HasOne resolves a one-to-one child the same way HasMany does, with an
// implicit limit of one. A zero match resolves with nil.
func (m *Model) HasOne(ctx context.Context, kind string, params ...FindAllParams) (*Model, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	child := m.class.catalog.Create(kind)
	p := m.childParams(params)
	if p == nil {
		return nil, nil
	}
	p.Limit = 1
	children, err := child.New(nil).FindAll(ctx, *p)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}
	ch := children[0]
	m.values[kind] = ch
	ch.values[m.class.name] = m
	return ch, nil
}

// childParams builds the FindAll filter for HasMany/HasOne: this class's
// foreign key equals this instance's primary-key value, ANDed with any
// caller-supplied condition. A nil return means the instance has no
// primary-key value, so there is nothing to match.
func (m *Model) childParams(params []FindAllParams) *FindAllParams {
	id, ok := m.id()
	if !ok {
		return nil
	}
	where := dialect.EscapeIdent(m.class.foreignKey, false) + " = " + dialect.EscapeValue(id)
	p := FindAllParams{}
	if len(params) > 0 {
		p = params[0]
	}
	if p.Where != "" {
		where += " AND (" + p.Where + ")"
	}
	p.Where = where
	return &p
}

// HasAndBelongsToMany resolves the many-to-many peers linked through the
// conventional join table (the two table names, lexically sorted,
// underscore-joined). Each peer is fetched by the foreign-key value on its
// join row, attached as a list under the plural name on this instance, and
// this instance is back-attached as a singleton list on each peer. Zero
// join rows resolve with nil.
func (m *Model) HasAndBelongsToMany(ctx context.Context, kinds string) ([]*Model, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}
	id, ok := m.id()
	if !ok {
		return nil, nil
	}
	peer := m.class.catalog.Create(naming.Singularize(kinds))
	join := joinTableName(m.class.tableName, peer.TableName())

	conn, err := m.class.catalog.driver.Conn(ctx)
	if err != nil {
		return nil, NewQueryError(m.class.name, "hasAndBelongsToMany", err)
	}
	defer conn.Close()
	conn.Prepare(
		"SELECT * FROM "+conn.EscapeID(join, false)+
			" WHERE "+conn.EscapeID(m.class.foreignKey, false)+" = {1}",
		conn.Escape(id),
	)
	res, err := conn.Exec(ctx)
	if err != nil {
		return nil, NewQueryError(m.class.name, "hasAndBelongsToMany", err)
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	peers := make([]*Model, 0, len(res.Rows))
	for _, row := range res.Rows {
		inst := peer.New(nil)
		if err := inst.ensure(ctx); err != nil {
			return nil, err
		}
		if _, err := inst.findByID(ctx, conn, row[peer.ForeignKey()]); err != nil {
			return nil, err
		}
		inst.values[m.class.tableName] = []*Model{m}
		peers = append(peers, inst)
	}
	m.values[kinds] = peers
	return peers, nil
}

// joinTableName derives the conventional many-to-many join table name.
func joinTableName(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return strings.Join(names, "_")
}
