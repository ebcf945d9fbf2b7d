package nameseq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/aisdb/internal/catalog"
)

func TestNextTableIDNeverCollides(t *testing.T) {
	g := NewNameGenerator()
	seen := make(map[int32]bool)
	for i := 0; i < 100; i++ {
		id := g.NextTableID()
		require.False(t, seen[id], "table ID %d reused", id)
		seen[id] = true
	}
}

func TestNextTreeNameDedupesWithUUID(t *testing.T) {
	g := NewNameGenerator()
	first := g.NextTreeName("sales", "orders", "pk")
	second := g.NextTreeName("sales", "orders", "pk")
	assert.NotEqual(t, first, second)
	assert.Contains(t, second, first)
}

func TestMergeAISMarksIdentifiersUsed(t *testing.T) {
	b := catalog.NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &catalog.Table{
		Schema: "sales", Name: "orders", ID: 5,
		PrimaryKey: &catalog.Index{Name: "pk", TreeName: "sales.orders.pk", IsPrimary: true},
	}
	sc.Sequences["sales.$$seq"] = &catalog.Sequence{Schema: "sales", Name: "sales.$$seq"}
	snap, err := b.Freeze(1)
	require.NoError(t, err)

	g := NewNameGenerator()
	g.MergeAIS(snap)

	// The next allocated table ID must not collide with the merged ID.
	id := g.NextTableID()
	assert.NotEqual(t, int32(5), id)

	// Reallocating the same tree/sequence name must fall back to a
	// uuid-suffixed variant since MergeAIS already marked the base used.
	treeName := g.NextTreeName("sales", "orders", "pk")
	assert.NotEqual(t, "sales.orders.pk", treeName)

	seqName := g.NextSequenceName("sales")
	assert.NotEqual(t, "sales.$$seq", seqName)
}

func TestNameGeneratorConcurrentAllocationNoCollision(t *testing.T) {
	g := NewNameGenerator()
	const n = 200
	ids := make([]int32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = g.NextTableID()
		}(i)
	}
	wg.Wait()

	seen := make(map[int32]bool, n)
	for _, id := range ids {
		require.False(t, seen[id], "table ID %d reused", id)
		seen[id] = true
	}
}
