package rekord_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rekord-dev/rekord"
	"github.com/rekord-dev/rekord/dialect"
)

func TestCreateIdempotent(t *testing.T) {
	t.Parallel()

	c := rekord.New(newFakeDriver(nil))
	cat := c.Create("cat")
	assert.Same(t, cat, c.Create("cat"))
	assert.Same(t, cat, c.Create("Cat"), "name is normalized to lowercase")
	assert.Same(t, cat, c.Create("  cat  "))
	assert.NotSame(t, cat, c.Create("dog"))
}

func TestCreateDefaults(t *testing.T) {
	t.Parallel()

	c := rekord.New(newFakeDriver(nil))
	cl := c.Create("")
	assert.Equal(t, "model", cl.Name())
	assert.Equal(t, "Model", cl.ClassName())
	assert.Equal(t, "models", cl.TableName())
	assert.Equal(t, "id", cl.PrimaryKey())
	assert.Equal(t, "model_id", cl.ForeignKey())
}

func TestCreateDerivedNames(t *testing.T) {
	t.Parallel()

	c := rekord.New(newFakeDriver(nil))

	person := c.Create("person")
	assert.Equal(t, "Person", person.ClassName())
	assert.Equal(t, "people", person.TableName())
	assert.Equal(t, "person_id", person.ForeignKey())

	box := c.Create("box")
	assert.Equal(t, "Box", box.ClassName())
	assert.Equal(t, "boxes", box.TableName())
	assert.Equal(t, "box_id", box.ForeignKey())
}

func TestClassOverrides(t *testing.T) {
	t.Parallel()

	c := rekord.New(newFakeDriver(nil))
	cl := c.Create("legacy").SetTableName("tbl_legacy").SetPrimaryKey("legacy_no").SetForeignKey("legacy_ref")
	assert.Equal(t, "tbl_legacy", cl.TableName())
	assert.Equal(t, "legacy_no", cl.PrimaryKey())
	assert.Equal(t, "legacy_ref", cl.ForeignKey())
}

// TestFindSynthesizesClass checks that Catalog.Find on a name that was
// never explicitly created still resolves.
func TestFindSynthesizesClass(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver(map[string][]string{"birds": {"id", "name"}})
	drv.rows = []dialect.Row{{"id": int64(1), "name": "Tweety"}}
	c := rekord.New(drv)

	m, err := c.Find(context.Background(), 1, "bird")
	require.NoError(t, err)
	name, err := m.Get(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, "Tweety", name)
}

// TestSchemaSingleFlight checks that concurrent first use of a class
// triggers exactly one introspection round trip.
func TestSchemaSingleFlight(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver(map[string][]string{"cats": {"id", "name"}})
	drv.delay = 20 * time.Millisecond
	c := rekord.New(drv)
	cl := c.Create("cat")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cl.New(nil).Get(context.Background(), "name")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), drv.getColCalls.Load())
	assert.Equal(t, []string{"id", "name"}, cl.Columns())
}

// TestSchemaRetryAfterFailure checks that a failed introspection leaves the
// class uninitialized and the next attempt retries from scratch.
func TestSchemaRetryAfterFailure(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver(map[string][]string{"cats": {"id", "name"}})
	drv.colErr = errors.New("connection refused")
	c := rekord.New(drv)
	cl := c.Create("cat")

	_, err := cl.New(nil).Get(context.Background(), "name")
	require.Error(t, err)
	assert.True(t, rekord.IsQueryError(err))
	assert.Nil(t, cl.Columns())

	drv.colErr = nil
	_, err = cl.New(nil).Get(context.Background(), "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cl.Columns())
	assert.Equal(t, int32(2), drv.getColCalls.Load())
}

func TestPool(t *testing.T) {
	t.Parallel()

	drv := newFakeDriver(map[string][]string{"cats": {"id", "name"}})
	drv.rows = []dialect.Row{{"id": int64(3), "name": "Mio"}}
	c := rekord.New(drv)

	_, ok := c.Pooled("cat", 3)
	assert.False(t, ok, "pool is empty before any fetch")

	m, err := c.Find(context.Background(), 3, "cat")
	require.NoError(t, err)

	pooled, ok := c.Pooled("cat", 3)
	require.True(t, ok)
	assert.Same(t, m, pooled)
}
