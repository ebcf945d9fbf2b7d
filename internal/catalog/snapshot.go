package catalog

import (
	"fmt"
	"sort"
)

// Snapshot is an immutable, frozen AIS graph stamped with a generation.
//
// Thread-safety: once returned by Builder.Freeze, a *Snapshot is never
// mutated again. All accessor methods return either copies or references
// into the frozen graph that callers must not mutate; internal/schemamgr
// relies on this to hand the same *Snapshot to arbitrarily many concurrent
// readers without locking.
type Snapshot struct {
	generation int64
	schemas    map[string]*Schema
}

// Generation returns the 64-bit counter identifying this snapshot's version.
// Generation 0 is the valid, empty starting state (see spec scenario S1).
func (s *Snapshot) Generation() int64 {
	if s == nil {
		return 0
	}
	return s.generation
}

// Schema returns the named schema, or false if it does not exist in this
// snapshot.
func (s *Snapshot) Schema(name string) (*Schema, bool) {
	if s == nil {
		return nil, false
	}
	sc, ok := s.schemas[name]
	return sc, ok
}

// SchemaNames returns every schema name present in this snapshot, sorted
// for deterministic iteration (used by internal/aiscodec to emit blobs in a
// stable order, and by internal/schemamgr to decide which blob keys to
// touch on a DDL).
func (s *Snapshot) SchemaNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UserTable returns the named table in the named schema, or false if either
// the schema or the table does not exist.
func (s *Snapshot) UserTable(schema, table string) (*Table, bool) {
	sc, ok := s.Schema(schema)
	if !ok {
		return nil, false
	}
	t, ok := sc.Tables[table]
	return t, ok
}

// Node walks every catalog.Node (table, routine, sequence, jar) in this
// snapshot, in deterministic schema-then-name order, calling fn for each.
// Iteration stops early if fn returns false.
func (s *Snapshot) Node(fn func(Node) bool) {
	if s == nil {
		return
	}
	for _, schemaName := range s.SchemaNames() {
		sc := s.schemas[schemaName]
		for _, name := range sortedKeys(sc.Tables) {
			if !fn(sc.Tables[name]) {
				return
			}
		}
		for _, name := range sortedKeys(sc.Sequences) {
			if !fn(sc.Sequences[name]) {
				return
			}
		}
		for _, name := range sortedKeys(sc.Routines) {
			if !fn(sc.Routines[name]) {
				return
			}
		}
		for _, name := range sortedKeys(sc.Jars) {
			if !fn(sc.Jars[name]) {
				return
			}
		}
	}
}

// sortedKeys returns the keys of m in ascending order. Used throughout this
// package to make iteration over the catalog graph deterministic, which in
// turn makes serialized blob bytes deterministic (see the round-trip
// testable property in SPEC_FULL.md §8).
func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Builder accumulates schemas, tables, and their children before they are
// validated and frozen into a Snapshot. It is the catalog graph's only
// mutable representation: every DDL builds one, mutates it in place, and
// converts it to an immutable Snapshot exactly once, via Freeze.
//
// Behavior:
//   - Schema creates schemas on first reference; there is no separate
//     "declare a schema" step, mirroring how DDL statements in this
//     repository's domain implicitly create their containing schema.
//   - Mutations are visible only through the Builder's own accessors
//     until Freeze succeeds; a failed Freeze leaves the Builder's
//     contents exactly as they were, so the caller may inspect the
//     validation error, repair the offending entry, and retry Freeze
//     without starting over.
//   - PutSchema/DropSchema/Schema take ownership references rather than
//     copies; callers that need to keep mutating a *Schema obtained
//     before a concurrent retry must not do so after that retry rebuilds
//     a fresh Builder from NewBuilderFrom.
//
// Thread-safety: a Builder is not safe for concurrent use. Every exported
// method must be called from a single goroutine.
// internal/schemamgr.Manager.buildCandidate builds exactly one Builder per
// CommitOrRetry iteration, on the goroutine driving that iteration, and
// discards it (successfully or not) before the next iteration begins.
//
// Performance: every accessor here is O(1) or O(s log s) for SchemaNames,
// where s is the schema count; Freeze's cost is dominated by
// LiveAISValidations walking the full graph once, O(n) in the total
// number of tables/columns/routines/sequences/jars across all schemas.
type Builder struct {
	schemas map[string]*Schema
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{schemas: make(map[string]*Schema)}
}

// NewBuilderFrom returns a Builder seeded with a deep copy of every schema
// in snap, so that mutating the returned Builder never affects snap itself.
// internal/schemamgr uses this to start every DDL's candidate graph from
// the current frozen snapshot.
//
// Behavior: snap == nil returns an empty Builder, the same as NewBuilder —
// this lets the very first DDL against an uninitialized catalog use the
// identical code path as every later one.
//
// Performance: O(n) in the total number of tables/columns/routines/
// sequences/jars across snap's schemas; every nested slice and pointer
// field is copied so the new Builder shares no mutable state with snap.
func NewBuilderFrom(snap *Snapshot) *Builder {
	b := NewBuilder()
	if snap == nil {
		return b
	}
	for name, sc := range snap.schemas {
		b.schemas[name] = cloneSchema(sc)
	}
	return b
}

func cloneSchema(sc *Schema) *Schema {
	out := &Schema{
		Name:      sc.Name,
		Tables:    make(map[string]*Table, len(sc.Tables)),
		Sequences: make(map[string]*Sequence, len(sc.Sequences)),
		Routines:  make(map[string]*Routine, len(sc.Routines)),
		Jars:      make(map[string]*Jar, len(sc.Jars)),
	}
	for k, t := range sc.Tables {
		clone := *t
		clone.Columns = append([]Column(nil), t.Columns...)
		clone.Indexes = append([]Index(nil), t.Indexes...)
		clone.Constraints = append([]Constraint(nil), t.Constraints...)
		if t.PrimaryKey != nil {
			pk := *t.PrimaryKey
			pk.Columns = append([]IndexColumn(nil), t.PrimaryKey.Columns...)
			clone.PrimaryKey = &pk
		}
		out.Tables[k] = &clone
	}
	for k, seq := range sc.Sequences {
		clone := *seq
		out.Sequences[k] = &clone
	}
	for k, r := range sc.Routines {
		clone := *r
		out.Routines[k] = &clone
	}
	for k, j := range sc.Jars {
		clone := *j
		out.Jars[k] = &clone
	}
	return out
}

// PutSchema installs or replaces a schema in the builder.
func (b *Builder) PutSchema(sc *Schema) {
	b.schemas[sc.Name] = sc
}

// DropSchema removes a schema from the builder. No-op if absent.
func (b *Builder) DropSchema(name string) {
	delete(b.schemas, name)
}

// Schema returns the named schema from the builder, creating an empty one
// if it does not yet exist.
func (b *Builder) Schema(name string) *Schema {
	sc, ok := b.schemas[name]
	if !ok {
		sc = &Schema{
			Name:      name,
			Tables:    make(map[string]*Table),
			Sequences: make(map[string]*Sequence),
			Routines:  make(map[string]*Routine),
			Jars:      make(map[string]*Jar),
		}
		b.schemas[name] = sc
	}
	return sc
}

// HasSchema reports whether name is present in the builder.
func (b *Builder) HasSchema(name string) bool {
	_, ok := b.schemas[name]
	return ok
}

// SchemaNames returns every schema name currently in the builder, sorted.
func (b *Builder) SchemaNames() []string {
	names := make([]string, 0, len(b.schemas))
	for name := range b.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Freeze validates the builder's contents against LiveAISValidations and,
// on success, returns an immutable Snapshot stamped with generation. The
// builder must not be used again after a successful Freeze; a rejected
// builder (non-nil error) may be repaired and retried.
func (b *Builder) Freeze(generation int64) (*Snapshot, error) {
	if err := LiveAISValidations(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailure, err)
	}
	snap := &Snapshot{generation: generation, schemas: b.schemas}
	return snap, nil
}
