// Package catalog defines the Akiban Information Schema (AIS) data model:
// the immutable, frozen graph of schemas, tables, columns, indexes,
// constraints, sequences, and routines that makes up a database's logical
// schema, plus the validation ruleset applied to a candidate graph before it
// is ever written to the KV store.
//
// # Overview
//
// Everything in this package is built once, validated, frozen, and then
// replaced wholesale — never mutated in place. The rest of the repository
// (internal/aiscodec, internal/nameseq, internal/schemamgr) treats a
// *Snapshot as a read-only value once Freeze has been called on it.
//
// # Architecture
//
//	┌──────────────────────────────────────────┐
//	│                 Snapshot                  │
//	│  generation int64                         │
//	│  schemas map[string]*Schema                │
//	└───────────────────┬────────────────────────┘
//	                     │
//	      ┌──────────────┼──────────────┬─────────────┐
//	      ▼              ▼              ▼             ▼
//	┌──────────┐   ┌───────────┐  ┌───────────┐  ┌───────────┐
//	│  Table   │   │  Routine  │  │ Sequence  │  │    Jar    │
//	│ Columns  │   │           │  │           │  │           │
//	│ Indexes  │   └───────────┘  └───────────┘  └───────────┘
//	│Constraints│
//	└──────────┘
//
// # Builders vs. frozen snapshots
//
// A *Snapshot starts life as a *Builder: schemas, tables, and their children
// can be added or replaced freely. Calling Builder.Freeze validates the
// result against LiveAISValidations, stamps the generation, and returns an
// immutable *Snapshot. There is no supported way to mutate a *Snapshot after
// Freeze; every write path in this repository builds a fresh Builder seeded
// from the prior Snapshot (see schemamgr.Manager.buildCandidate) rather than
// mutating the frozen graph.
//
// # Concurrency and synchronization
//
//   - *Snapshot is immutable and requires no locking: any number of
//     goroutines may call its accessor methods concurrently against the
//     same value forever.
//   - *Builder is not safe for concurrent use; it is a single-goroutine,
//     single-attempt scratch space discarded after Freeze succeeds or
//     fails.
//
// # Failure scenarios
//
// LiveAISValidations rejects a Builder whose contents would make an
// inconsistent Snapshot: duplicate table IDs, a table whose Schema/Name
// fields disagree with the map key it's stored under, duplicate or empty
// column names, an index referencing an unknown column or declaring no
// columns, a foreign key to an unknown schema or table, or an empty
// sequence/routine/jar name. Freeze returns ErrValidationFailure wrapping
// the specific rule that failed; the Builder is left untouched so the
// caller can repair the offending entry and retry.
//
// # Performance characteristics
//
//   - LiveAISValidations is O(n) in the total number of tables, columns,
//     indexes, constraints, sequences, routines, and jars across every
//     schema in the Builder.
//   - Snapshot.Node is O(n) to fully traverse, O(k) to stop after k nodes
//     given the early-exit callback contract.
//
// # Usage example
//
//	b := catalog.NewBuilder()
//	sc := b.Schema("sales")
//	sc.Tables["orders"] = &catalog.Table{Schema: "sales", Name: "orders", ID: 1}
//	snap, err := b.Freeze(1)
//	if err != nil {
//		// repair sc and retry Freeze, or bubble up ErrValidationFailure
//	}
//
// # Limitations
//
//   - No schema versioning/migration support beyond the generation
//     counter itself; a caller that needs to know what changed between
//     two generations must diff two Snapshots structurally.
//
// # See also
//
// Related packages:
//   - internal/schemamgr: the sole orchestrator of Builder/Snapshot
//     lifecycles.
//   - internal/aiscodec: serializes a Snapshot's schemas to bytes.
package catalog
