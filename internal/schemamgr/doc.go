// Package schemamgr implements the transactional schema manager for the
// database's logical catalog (the AIS — Akiban Information Schema): the
// orchestration layer that owns the live in-memory catalog snapshot, the
// generation counter persisted in the KV store, per-session snapshot
// caching, and the optimistic-concurrency protocol that lets many sessions
// read and mutate the catalog concurrently without torn reads.
//
// # Overview
//
// Every other piece of the repository — internal/kv, internal/aiscodec,
// internal/nameseq, internal/rowdef — exists to serve this package. It is
// the single source of truth for "what does the schema look like right
// now", and it is the only package that decides when that answer changes.
// A caller never sees a catalog graph that is half old and half new: every
// DDL either commits in its entirety (a strictly greater generation, every
// affected schema blob rewritten) or doesn't happen at all. It is the top
// 65% of the core by weight.
//
// # Architecture
//
//	┌────────────────────────────────────────────────┐
//	│                     Manager                      │
//	├────────────────────────────────────────────────┤
//	│  curAIS       atomic.Pointer[catalog.Snapshot]   │
//	│  aisLock      sync.Mutex   (cache installation)  │
//	│  nameGen      nameseq.NameGenerator               │
//	│  tableVers    *nameseq.TableVersionMap            │
//	│  rowDefs      *rowdef.Cache                       │
//	│  sessions     sessionAttachments (SessionID->Snap)│
//	│  pendingTrees sync.Map (tree name -> removed-at)  │
//	├─────────────────────┬────────────────┬────────────┤
//	│ GetAIS(session)      │ buildCandidate │ cleanup    │
//	│ SaveAISChangeWithRowDefs / ApplyUnsavedChange       │
//	│ DeleteTableStatuses / TreeRemovalIsDelayed /        │
//	│ TreeWasRemoved                                      │
//	└─────────────────────┬────────────────┬────────────┘
//	                      │                │
//	             internal/kv       internal/nameseq
//	             internal/aiscodec internal/rowdef
//
// # Read path
//
// GetAIS returns the session's already-attached snapshot if one exists for
// the current transaction; otherwise it delegates to resolveCurrent, which
// compares the transactional generation key against the in-memory curAIS,
// reloading from storage under aisLock when they differ, and attaches the
// result to the session with an end-of-transaction callback that clears the
// attachment.
//
// # Write path
//
// SaveAISChangeWithRowDefs wraps a caller-supplied mutation in the KV
// gateway's CommitOrRetry loop: resolve the current snapshot the same way
// GetAIS does (never a raw curAIS read — two writers racing through a
// retry must each see the other's already-committed change, not a stale
// in-memory cache), build a candidate, validate, bump the generation,
// serialize affected schemas, write or clear their blobs, rebuild the
// row-definition cache, and attach the candidate to the session — all
// rerun from scratch on every retry, so no candidate or buffer state
// leaks across iterations. Identifiers the Change allocated from the name
// generator in an abandoned iteration stay marked used and are never
// reissued. Once CommitOrRetry reports a successful commit,
// installCandidate makes the candidate the new curAIS under aisLock — the
// success path and the read/reload path share one lock discipline so
// neither can regress curAIS out from under the other.
//
// # Concurrency and synchronization
//
// Lock granularity:
//   - aisLock guards only curAIS/nameGen/tableVers installation, never KV
//     I/O — a goroutine holding it only ever does in-memory work.
//   - nameseq.NameGenerator has its own internal lock, acquired only for
//     in-memory allocation, never across a KV call.
//   - nameseq.TableVersionMap uses an exclusive-claim protocol bracketing
//     batched version stamps.
//
// Consistency guarantees:
//   - Within one transaction, GetAIS is idempotent: repeated calls return
//     the identical *catalog.Snapshot until the end-of-transaction callback
//     fires.
//   - Across transactions, two committed DDLs are totally ordered by their
//     generation values — no two commits share a generation, enforced by a
//     transactional read-modify-write of the generation key.
//   - curAIS never regresses: both resolveCurrent's reload branch and the
//     post-commit install in SaveAISChangeWithRowDefs/ApplyUnsavedChange
//     guard on generation before storing, so a goroutine delayed past a
//     newer install is a no-op rather than a regression.
//
// # Failure scenarios
//
// Validation failure: a candidate snapshot that fails LiveAISValidations
// never reaches the KV store — the DDL aborts and curAIS is untouched.
//
// Oversized catalog: a schema that serializes past maxCatalogBytes
// surfaces ErrCatalogTooLarge and aborts the DDL; a transaction that never
// commits leaves every earlier write in that attempt unobserved by anyone.
//
// Context cancellation: a canceled context surfaces as ErrQueryCanceled;
// the transaction aborts and curAIS is untouched.
//
// Concurrent conflicting DDL: CommitOrRetry reports a conflict as
// (retry=true, err=nil); the entire candidate-build sequence reruns against
// the now-current snapshot, including re-running the caller's Change and
// re-allocating any names it requested.
//
// # Performance characteristics
//
// Operation complexities:
//   - GetAIS (cache hit): O(1), no KV I/O.
//   - GetAIS (cache miss): O(s) where s is the number of persisted schema
//     blobs, decoded in parallel via errgroup.
//   - SaveAISChangeWithRowDefs: O(s) to rebuild and reserialize every
//     affected schema, dominated by the codec's per-element encoding cost.
//   - Conflict retry: unbounded; kv.MemoryGateway places no limit on how
//     many times CommitOrRetry may report a conflict.
//
// # Configuration
//
//	maxCatalogBytes: 0    // per-schema serialized blob cap (0 = unlimited)
//
// # Usage example
//
//	gw := kv.NewMemoryGateway()
//	mgr := schemamgr.NewManager(gw, 0)
//	if err := mgr.Start(ctx, "bootstrap"); err != nil {
//		log.Fatal(err)
//	}
//
//	txn, _ := gw.Begin(ctx, "session-1")
//	snap, err := mgr.SaveAISChangeWithRowDefs(ctx, txn, "session-1", func(b *catalog.Builder) ([]string, error) {
//		sc := b.Schema("sales")
//		sc.Tables["orders"] = &catalog.Table{Schema: "sales", Name: "orders", ID: 1}
//		return []string{"sales"}, nil
//	})
//	txn.Release()
//
// # Limitations
//
//   - No on-disk versioning tag in the serialized blob format; an
//     incompatible codec change would silently misread older blobs.
//   - curAIS can serve a caller an older generation than the in-memory
//     cache's current one when that caller's own transaction started
//     before the cache advanced (deliberate, not a bug — see the §9 Open
//     Question decisions in DESIGN.md).
//
// # See also
//
// Related packages:
//   - internal/kv: the transactional KV gateway this package is built on.
//   - internal/aiscodec: the per-schema catalog codec.
//   - internal/nameseq: identifier allocation and table-version tracking.
//   - internal/rowdef: the row-definition cache rebuilt on every change.
//   - cmd/aisdbctl: a CLI driving this package end to end.
package schemamgr
