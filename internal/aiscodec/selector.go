package aiscodec

import "github.com/dreamware/aisdb/internal/catalog"

// TableDecision is PickTable's verdict for one candidate table.
type TableDecision int

const (
	// TableIncluded means the table is emitted in full.
	TableIncluded TableDecision = iota
	// TableExcluded means the table is skipped entirely.
	TableExcluded
	// TableRewritten means the table is emitted, but selector-specific
	// rewriting (e.g. stripping constraints) applies before encoding.
	TableRewritten
)

// Selector restricts which schema/table/routine/sequence/jar entries a Save
// call emits. It is a single polymorphic interface rather than a visitor
// class hierarchy: Save asks the Selector for a verdict on each schema and
// each element it encounters.
//
// Behavior:
//   - Save calls PickSchema once per schema in the snapshot, in sorted
//     name order; a schema that returns false is skipped entirely — none
//     of its tables, routines, sequences, or jars are visited, regardless
//     of what the other Pick methods would have returned for them.
//   - Within a visited schema, PickTable/PickRoutine/PickSequence/PickJar
//     are each called once per entry, in sorted name order.
//   - A Selector has no mutable state of its own in this package's
//     implementations; every verdict is a pure function of the node
//     passed in, so the same Selector value can be reused by concurrent
//     Save calls.
//
// Thread-safety: implementations in this package hold no state and are
// safe for concurrent use by any number of goroutines. A custom Selector
// that does carry state must provide its own synchronization if it will
// be shared across concurrent Save calls.
//
// Performance: every method here is called exactly once per node Save
// visits, so a Selector's per-call cost directly multiplies the cost of
// encoding a schema; all five implementations below are O(1) per call.
type Selector interface {
	// PickSchema reports whether schema name should be visited at all.
	//
	// Returns: false to skip the schema and everything it contains;
	// Save never calls the other Pick methods for an excluded schema.
	PickSchema(name string) bool

	// PickTable reports how table t should be handled.
	//
	// Returns: TableIncluded to emit t unchanged, TableExcluded to omit
	// it from the encoded output, or TableRewritten to emit it after
	// selector-specific rewriting (e.g. constraint stripping) is applied.
	PickTable(t *catalog.Table) TableDecision

	// PickRoutine reports whether routine r should be emitted.
	PickRoutine(r *catalog.Routine) bool

	// PickSequence reports whether sequence s should be emitted.
	PickSequence(s *catalog.Sequence) bool

	// PickJar reports whether jar j should be emitted.
	PickJar(j *catalog.Jar) bool
}

// SingleSchema selects everything in one named schema.
type SingleSchema struct {
	Name string
}

func (s SingleSchema) PickSchema(name string) bool           { return name == s.Name }
func (s SingleSchema) PickTable(*catalog.Table) TableDecision { return TableIncluded }
func (s SingleSchema) PickRoutine(*catalog.Routine) bool     { return true }
func (s SingleSchema) PickSequence(*catalog.Sequence) bool   { return true }
func (s SingleSchema) PickJar(*catalog.Jar) bool             { return true }

// SingleSchemaNoMemoryTables selects one schema's tables, excluding any
// marked memory-resident. Used for system/security schemas when
// persisting, since memory tables are rebuilt on every startup rather than
// reloaded from the KV store.
type SingleSchemaNoMemoryTables struct {
	Name string
}

func (s SingleSchemaNoMemoryTables) PickSchema(name string) bool { return name == s.Name }
func (s SingleSchemaNoMemoryTables) PickTable(t *catalog.Table) TableDecision {
	if t.MemoryResident {
		return TableExcluded
	}
	return TableIncluded
}
func (s SingleSchemaNoMemoryTables) PickRoutine(*catalog.Routine) bool   { return true }
func (s SingleSchemaNoMemoryTables) PickSequence(*catalog.Sequence) bool { return true }
func (s SingleSchemaNoMemoryTables) PickJar(*catalog.Jar) bool           { return true }

// SingleSchemaNoRoutines selects one schema's tables and sequences but
// never its routines or jars. Used for sys/sqlj schemas when persisting,
// since their routines are reinstalled from the server's own bootstrap
// code rather than round-tripped through the KV store.
type SingleSchemaNoRoutines struct {
	Name string
}

func (s SingleSchemaNoRoutines) PickSchema(name string) bool            { return name == s.Name }
func (s SingleSchemaNoRoutines) PickTable(*catalog.Table) TableDecision { return TableIncluded }
func (s SingleSchemaNoRoutines) PickRoutine(*catalog.Routine) bool      { return false }
func (s SingleSchemaNoRoutines) PickSequence(*catalog.Sequence) bool    { return true }
func (s SingleSchemaNoRoutines) PickJar(*catalog.Jar) bool              { return false }

// MemoryTablesOnly selects every memory-resident table across every
// schema, plus the routines and jars of the sys, sqlj, and security
// schemas (identified by exact schema name).
type MemoryTablesOnly struct{}

func (MemoryTablesOnly) PickSchema(string) bool { return true }
func (MemoryTablesOnly) PickTable(t *catalog.Table) TableDecision {
	if t.MemoryResident {
		return TableIncluded
	}
	return TableExcluded
}
func (MemoryTablesOnly) PickRoutine(r *catalog.Routine) bool {
	return isSystemSchema(r.Schema)
}
func (MemoryTablesOnly) PickSequence(*catalog.Sequence) bool { return false }
func (MemoryTablesOnly) PickJar(j *catalog.Jar) bool         { return isSystemSchema(j.Schema) }

func isSystemSchema(name string) bool {
	switch name {
	case "sys", "sqlj", "security":
		return true
	default:
		return false
	}
}

// AllSchemas selects the entire catalog, unfiltered.
type AllSchemas struct{}

func (AllSchemas) PickSchema(string) bool                 { return true }
func (AllSchemas) PickTable(*catalog.Table) TableDecision { return TableIncluded }
func (AllSchemas) PickRoutine(*catalog.Routine) bool      { return true }
func (AllSchemas) PickSequence(*catalog.Sequence) bool    { return true }
func (AllSchemas) PickJar(*catalog.Jar) bool              { return true }
