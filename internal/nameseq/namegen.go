package nameseq

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dreamware/aisdb/internal/catalog"
)

// NameGenerator produces collision-free identifiers for catalog objects.
// Implementations must be safe for concurrent use.
type NameGenerator interface {
	// NextTableID returns a table ID not currently marked as used.
	NextTableID() int32
	// NextTreeName returns a tree name for the given index on the given
	// table, falling back to a uuid-suffixed variant if the human-readable
	// base name collides with one already in use.
	NextTreeName(schema, table, index string) string
	// NextConstraintName returns a constraint name for the given table,
	// falling back to a uuid-suffixed variant on collision.
	NextConstraintName(schema, table string) string
	// NextSequenceName returns an internal sequence name for the given
	// schema, falling back to a uuid-suffixed variant on collision.
	NextSequenceName(schema string) string
	// MergeAIS marks every identifier present in snap as used, so future
	// allocations never reissue one already present in a live snapshot.
	MergeAIS(snap *catalog.Snapshot)
}

// nameGeneratorFacade wraps defaultNameGenerator with a single coarse
// sync.Mutex. The lock is held only around in-memory map mutation;
// NameGenerator methods never perform KV I/O, so holding the lock across a
// call never blocks on the network.
type nameGeneratorFacade struct {
	mu   sync.Mutex
	impl *defaultNameGenerator
}

// NewNameGenerator returns an empty, thread-safe NameGenerator.
func NewNameGenerator() NameGenerator {
	return &nameGeneratorFacade{impl: newDefaultNameGenerator()}
}

func (f *nameGeneratorFacade) NextTableID() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.impl.nextTableID()
}

func (f *nameGeneratorFacade) NextTreeName(schema, table, index string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.impl.nextTreeName(schema, table, index)
}

func (f *nameGeneratorFacade) NextConstraintName(schema, table string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.impl.nextConstraintName(schema, table)
}

func (f *nameGeneratorFacade) NextSequenceName(schema string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.impl.nextSequenceName(schema)
}

func (f *nameGeneratorFacade) MergeAIS(snap *catalog.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.impl.mergeAIS(snap)
}

// defaultNameGenerator is not safe for concurrent use on its own;
// nameGeneratorFacade is the only intended caller.
type defaultNameGenerator struct {
	usedTableIDs    map[int32]bool
	usedTreeNames   map[string]bool
	usedConstraints map[string]bool
	usedSequences   map[string]bool
	nextID          int32
}

func newDefaultNameGenerator() *defaultNameGenerator {
	return &defaultNameGenerator{
		usedTableIDs:    make(map[int32]bool),
		usedTreeNames:   make(map[string]bool),
		usedConstraints: make(map[string]bool),
		usedSequences:   make(map[string]bool),
		nextID:          1,
	}
}

func (g *defaultNameGenerator) nextTableID() int32 {
	for g.usedTableIDs[g.nextID] {
		g.nextID++
	}
	id := g.nextID
	g.usedTableIDs[id] = true
	g.nextID++
	return id
}

func (g *defaultNameGenerator) nextTreeName(schema, table, index string) string {
	base := fmt.Sprintf("%s.%s.%s", schema, table, index)
	return dedupe(base, g.usedTreeNames)
}

func (g *defaultNameGenerator) nextConstraintName(schema, table string) string {
	base := fmt.Sprintf("%s.%s.constraint", schema, table)
	return dedupe(base, g.usedConstraints)
}

func (g *defaultNameGenerator) nextSequenceName(schema string) string {
	base := fmt.Sprintf("%s.$$seq", schema)
	return dedupe(base, g.usedSequences)
}

// dedupe returns base if it is not already in used, marking it used;
// otherwise it appends a uuid suffix until it finds a name that is free.
func dedupe(base string, used map[string]bool) string {
	if !used[base] {
		used[base] = true
		return base
	}
	for {
		candidate := base + "-" + uuid.NewString()
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

func (g *defaultNameGenerator) mergeAIS(snap *catalog.Snapshot) {
	snap.Node(func(n catalog.Node) bool {
		switch v := n.(type) {
		case *catalog.Table:
			g.usedTableIDs[v.ID] = true
			if g.nextID <= v.ID {
				g.nextID = v.ID + 1
			}
			if v.PrimaryKey != nil {
				g.usedTreeNames[v.PrimaryKey.TreeName] = true
			}
			for _, idx := range v.Indexes {
				g.usedTreeNames[idx.TreeName] = true
			}
			for _, c := range v.Constraints {
				g.usedConstraints[c.Name] = true
			}
		case *catalog.Sequence:
			g.usedSequences[v.Name] = true
		}
		return true
	})
}
