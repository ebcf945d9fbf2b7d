// Package rowdef is a minimal version-stamped cache of per-table row
// definitions, rebuilt by the schema manager on every applied catalog
// change and stamped with the catalog generation it was built from. It is
// named but left unspecified by the distilled spec ("rebuild the
// row-definition cache"); this is the minimal cache that satisfies that
// reference.
package rowdef

import (
	"sync"

	"github.com/dreamware/aisdb/internal/catalog"
)

// RowDef is the subset of a table's shape that downstream row/index
// storage needs on the hot path: column order and types, without the rest
// of catalog.Table's DDL-time-only fields (constraints, jar references).
type RowDef struct {
	TableID int32
	Schema  string
	Table   string
	Columns []catalog.Column
	Version int
}

// Cache holds the most recently built RowDef for every table ID seen so
// far, each stamped with the version it was built at.
type Cache struct {
	mu   sync.RWMutex
	byID map[int32]*RowDef
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{byID: make(map[int32]*RowDef)}
}

// Rebuild replaces the cached entry for every user table in snap, stamping
// each with version. Tables absent from snap are left untouched — a
// schema drop does not implicitly evict row defs for tables that might
// still be referenced by an in-flight read of an older snapshot.
func (c *Cache) Rebuild(snap *catalog.Snapshot, version int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap.Node(func(n catalog.Node) bool {
		t, ok := n.(*catalog.Table)
		if !ok {
			return true
		}
		c.byID[t.ID] = &RowDef{
			TableID: t.ID,
			Schema:  t.Schema,
			Table:   t.Name,
			Columns: append([]catalog.Column(nil), t.Columns...),
			Version: version,
		}
		return true
	})
}

// Get returns the cached RowDef for tableID, and whether it was present.
func (c *Cache) Get(tableID int32) (*RowDef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rd, ok := c.byID[tableID]
	return rd, ok
}

// Evict removes tableID's cached RowDef, used by
// schemamgr.Manager.DeleteTableStatuses after a table has been dropped.
func (c *Cache) Evict(tableID int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, tableID)
}
