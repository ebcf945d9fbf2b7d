package rowdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/aisdb/internal/catalog"
)

func TestCacheRebuildAndGet(t *testing.T) {
	b := catalog.NewBuilder()
	b.Schema("sales").Tables["orders"] = &catalog.Table{
		Schema: "sales", Name: "orders", ID: 1,
		Columns: []catalog.Column{{Name: "id", Type: "int"}},
	}
	snap, err := b.Freeze(3)
	require.NoError(t, err)

	c := NewCache()
	c.Rebuild(snap, 3)

	rd, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "sales", rd.Schema)
	assert.Equal(t, "orders", rd.Table)
	assert.Equal(t, 3, rd.Version)
	assert.Len(t, rd.Columns, 1)

	_, ok = c.Get(99)
	assert.False(t, ok)
}

func TestCacheEvict(t *testing.T) {
	b := catalog.NewBuilder()
	b.Schema("sales").Tables["orders"] = &catalog.Table{Schema: "sales", Name: "orders", ID: 1}
	snap, err := b.Freeze(1)
	require.NoError(t, err)

	c := NewCache()
	c.Rebuild(snap, 1)
	c.Evict(1)

	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestCacheRebuildPreservesUntouchedTables(t *testing.T) {
	b1 := catalog.NewBuilder()
	b1.Schema("sales").Tables["orders"] = &catalog.Table{Schema: "sales", Name: "orders", ID: 1}
	snap1, err := b1.Freeze(1)
	require.NoError(t, err)

	b2 := catalog.NewBuilder()
	b2.Schema("hr").Tables["employees"] = &catalog.Table{Schema: "hr", Name: "employees", ID: 2}
	snap2, err := b2.Freeze(2)
	require.NoError(t, err)

	c := NewCache()
	c.Rebuild(snap1, 1)
	c.Rebuild(snap2, 2)

	_, ok := c.Get(1)
	assert.True(t, ok, "table from an earlier snapshot should remain cached")
	_, ok = c.Get(2)
	assert.True(t, ok)
}
