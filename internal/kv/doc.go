// Package kv is the thin gateway over the ordered key-value store that
// backs the schema manager's catalog storage. It is deliberately narrow:
// begin/get/set/clear/range-scan/commit-or-retry/end-of-transaction-callback
// — nothing else in this repository talks to the KV store except through
// this interface.
//
// # Overview
//
// Production deployments of this repository point Gateway at a real
// distributed, ordered KV store (the spec's external collaborator). This
// package also ships MemoryGateway, an in-memory implementation with real
// optimistic multi-version concurrency control, used by every test in
// internal/schemamgr and by cmd/aisdbctl's default configuration.
//
// # Architecture
//
//	┌───────────────────────────────────────────┐
//	│                  Gateway                   │
//	│  Begin / Get / Set / Clear                 │
//	│  RangeStartsWith / CommitOrRetry           │
//	│  AddEndOfTxnCallback                       │
//	└──────────────────────┬──────────────────────┘
//	                       │
//	         ┌─────────────┴─────────────┐
//	         ▼                           ▼
//	┌─────────────────┐        ┌──────────────────────┐
//	│  MemoryGateway    │        │ (production driver,  │
//	│  google/btree     │        │  out of scope here)   │
//	│  snapshot + MVCC   │        └──────────────────────┘
//	└─────────────────┘
//
// # Transaction protocol
//
// Every caller follows the same shape, whether the transaction only reads
// or also writes:
//
//	txn, err := gw.Begin(ctx, session)
//	if err != nil { ... }
//	defer txn.Release() // commit-or-abort on every exit path
//	for {
//	    retry, err := gw.CommitOrRetry(ctx, txn)
//	    if err != nil { return err }
//	    if !retry {
//	        break
//	    }
//	    // txn has been reset to a fresh read snapshot; rerun the body
//	    // from scratch before looping back to CommitOrRetry.
//	}
//
// CommitOrRetry returning (true, nil) means a conflicting transaction
// committed first; the caller's entire transaction body — including any
// buffered Set/Clear calls — must be rerun from scratch against the fresh
// snapshot Begin-equivalent state CommitOrRetry has already installed on
// txn.
//
// # Key encoding
//
// Keys are packed with the order-preserving tuple encoding in tuple.go, so
// that RangeStartsWith's prefix scans return keys in the same order the
// spec's persistent key layout requires (see SPEC_FULL.md §6).
//
// # Concurrency model (MemoryGateway)
//
// MemoryGateway keeps one committed btree.BTreeG; Begin gives each Txn an
// O(1) copy-on-write clone of it as the Txn's read snapshot. CommitOrRetry
// compares the keys that Txn read or range-scanned against everything
// written by transactions that committed after it began. A conflict resets
// the Txn to the latest committed snapshot and asks the caller to retry;
// no conflict applies the Txn's buffered writes to the committed tree,
// bumping the store's version once per written key.
//
// Lock granularity:
//   - One mutex serializes commit attempts; it is held only long enough
//     to compare read/write sets and swap in a new snapshot, never across
//     caller-side processing.
//   - Reads against an already-captured snapshot take no lock at all.
//
// # Failure scenarios
//
// Conflicting transactions: surfaced through CommitOrRetry returning
// (true, nil), never as an error — the caller's retry loop is the
// recovery path, not error handling.
//
// Context cancellation: a canceled context surfaces as ErrQueryCanceled
// from any blocking call.
//
// Store unavailability (production driver only): surfaced as
// ErrStoreUnavailable; MemoryGateway never returns it since it has no
// external dependency to fail.
//
// # Performance characteristics
//
// Operation complexities (MemoryGateway, n = keys in the current
// generation, k = keys returned by a range scan):
//   - Get/Set/Clear: O(log n).
//   - RangeStartsWith: O(log n + k).
//   - CommitOrRetry: O(r) to check the read/range-read set against the
//     write sets of transactions committed since the caller began, where
//     r is the size of the caller's own read set.
//
// # Configuration
//
// MemoryGateway has no configuration. It places no bound on how many times
// CommitOrRetry may ask a caller to retry.
//
// # Usage example
//
//	gw := kv.NewMemoryGateway()
//	txn, err := gw.Begin(ctx, "session-1")
//	if err != nil {
//		return err
//	}
//	defer txn.Release()
//	for {
//		if err := gw.Set(ctx, txn, kv.Pack("k"), []byte("v")); err != nil {
//			return err
//		}
//		retry, err := gw.CommitOrRetry(ctx, txn)
//		if err != nil {
//			return err
//		}
//		if !retry {
//			break
//		}
//	}
//
// # Limitations
//
//   - MemoryGateway holds every generation's snapshot only as long as a
//     live Txn references it; there is no separate garbage-collection
//     policy for abandoned generations beyond normal Go GC once nothing
//     references them.
//   - No cross-process distribution: MemoryGateway is a single-process
//     stand-in for the spec's external, distributed KV store.
//
// # See also
//
// Related packages:
//   - internal/schemamgr: the sole consumer of this package's Gateway.
//   - internal/aiscodec: produces the byte values this package stores.
package kv
