package aiscodec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/aisdb/internal/catalog"
)

func sampleSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	b := catalog.NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &catalog.Table{
		Schema: "sales",
		Name:   "orders",
		ID:     1,
		Columns: []catalog.Column{
			{Name: "id", Type: "int", Position: 0},
			{Name: "total", Type: "decimal", Position: 1},
		},
		PrimaryKey: &catalog.Index{
			Name: "pk_orders", IsPrimary: true, IsUnique: true,
			Columns: []catalog.IndexColumn{{Column: "id"}},
		},
	}
	sc.Sequences["order_id_seq"] = &catalog.Sequence{Schema: "sales", Name: "order_id_seq", StartWith: 1, Increment: 1}
	sc.Routines["recalc"] = &catalog.Routine{Schema: "sales", Name: "recalc", CallingConvention: "java"}
	sc.Jars["sales-jar"] = &catalog.Jar{Schema: "sales", Name: "sales-jar", URL: "file:///sales.jar"}

	snap, err := b.Freeze(7)
	require.NoError(t, err)
	return snap
}

func TestSaveLoadRoundTrip(t *testing.T) {
	snap := sampleSnapshot(t)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, snap, AllSchemas{}))

	acc := NewAccumulator()
	require.NoError(t, Load(&buf, acc))
	got, err := acc.Finalize(7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), got.Generation())
	assert.Equal(t, []string{"sales"}, got.SchemaNames())

	table, ok := got.UserTable("sales", "orders")
	require.True(t, ok)
	assert.Equal(t, int32(1), table.ID)
	assert.Len(t, table.Columns, 2)
	require.NotNil(t, table.PrimaryKey)
	assert.Equal(t, "pk_orders", table.PrimaryKey.Name)

	sc, ok := got.Schema("sales")
	require.True(t, ok)
	assert.Contains(t, sc.Sequences, "order_id_seq")
	assert.Contains(t, sc.Routines, "recalc")
	assert.Contains(t, sc.Jars, "sales-jar")
}

func TestSaveRespectsSingleSchemaSelector(t *testing.T) {
	b := catalog.NewBuilder()
	b.Schema("sales").Tables["orders"] = &catalog.Table{Schema: "sales", Name: "orders", ID: 1}
	b.Schema("hr").Tables["employees"] = &catalog.Table{Schema: "hr", Name: "employees", ID: 2}
	snap, err := b.Freeze(1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, snap, SingleSchema{Name: "sales"}))

	acc := NewAccumulator()
	require.NoError(t, Load(&buf, acc))
	got, err := acc.Finalize(1)
	require.NoError(t, err)

	assert.Equal(t, []string{"sales"}, got.SchemaNames())
	_, ok := got.Schema("hr")
	assert.False(t, ok)
}

func TestSaveExcludesMemoryTables(t *testing.T) {
	b := catalog.NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &catalog.Table{Schema: "sales", Name: "orders", ID: 1}
	sc.Tables["tmp"] = &catalog.Table{Schema: "sales", Name: "tmp", ID: 2, MemoryResident: true}
	snap, err := b.Freeze(1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, snap, SingleSchemaNoMemoryTables{Name: "sales"}))

	acc := NewAccumulator()
	require.NoError(t, Load(&buf, acc))
	got, err := acc.Finalize(1)
	require.NoError(t, err)

	_, ok := got.UserTable("sales", "orders")
	assert.True(t, ok)
	_, ok = got.UserTable("sales", "tmp")
	assert.False(t, ok)
}

func TestSaveExcludesRoutinesAndJars(t *testing.T) {
	b := catalog.NewBuilder()
	sc := b.Schema("sqlj")
	sc.Tables["t"] = &catalog.Table{Schema: "sqlj", Name: "t", ID: 1}
	sc.Routines["r"] = &catalog.Routine{Schema: "sqlj", Name: "r"}
	sc.Jars["j"] = &catalog.Jar{Schema: "sqlj", Name: "j"}
	snap, err := b.Freeze(1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, snap, SingleSchemaNoRoutines{Name: "sqlj"}))

	acc := NewAccumulator()
	require.NoError(t, Load(&buf, acc))
	got, err := acc.Finalize(1)
	require.NoError(t, err)

	sqlj, ok := got.Schema("sqlj")
	require.True(t, ok)
	assert.Empty(t, sqlj.Routines)
	assert.Empty(t, sqlj.Jars)
	assert.Contains(t, sqlj.Tables, "t")
}

func TestGrowBufOverflow(t *testing.T) {
	g := NewGrowBuf(8)
	_, err := g.Write([]byte("0123"))
	require.NoError(t, err)
	_, err = g.Write([]byte("45678"))
	require.Error(t, err)
	var tooLarge *ErrCatalogTooLarge
	assert.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 8, tooLarge.Cap)
}

func TestGrowBufDoublesUnbounded(t *testing.T) {
	g := NewGrowBuf(0)
	for i := 0; i < 10000; i++ {
		_, err := g.Write([]byte("x"))
		require.NoError(t, err)
	}
	assert.Len(t, g.Bytes(), 10000)
}
