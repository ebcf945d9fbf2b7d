package kv

import (
	"context"
	"iter"
	"time"
)

// SessionID identifies the caller a transaction is being run on behalf of.
// Session lifecycle itself is an external collaborator (spec §1); this
// package only needs a comparable identifier to record on each Txn it
// begins.
type SessionID string

// KV is one key/value pair as returned by RangeStartsWith, in key order.
type KV struct {
	Key   []byte
	Value []byte
}

// Gateway is the narrow interface the schema manager uses to talk to the
// ordered key-value store. See the package doc comment for the transaction
// protocol every caller follows.
//
// All implementations must guarantee:
//   - Serializable optimistic transactions: a transaction's reads are
//     consistent with the snapshot it started from, and CommitOrRetry
//     reports a conflict when a key or prefix range the transaction read
//     was written by anything committed since.
//   - Read-your-writes within one transaction, before commit.
//   - Key-ordered iteration from RangeStartsWith.
//
// Implementations should not hold locks across the caller's own
// processing between two Gateway calls — only around the store's own
// bookkeeping.
type Gateway interface {
	// Begin starts a new transaction on behalf of session.
	//
	// Behavior:
	//   - Captures the store's current committed state as txn's read
	//     snapshot.
	//   - The returned Txn must eventually have Release called on it
	//     (typically via defer) to guarantee commit-or-abort on every exit
	//     path, including early returns and panics recovered higher up the
	//     call stack.
	//
	// Thread-safety: safe for concurrent calls from any number of
	// sessions; each call returns an independent Txn.
	//
	// Returns: a new Txn, or an error if the store is unavailable.
	Begin(ctx context.Context, session SessionID) (*Txn, error)

	// Get returns the value stored at key within txn's view, and whether
	// it was present.
	//
	// Behavior:
	//   - A key written earlier in the same transaction (via Set or
	//     Clear) is visible to subsequent Get calls on that transaction
	//     before it has committed.
	//   - Absence is reported with ok=false, never with a sentinel byte
	//     slice.
	//   - Registers key in txn's read set for conflict detection at
	//     commit time.
	//
	// Thread-safety: safe for concurrent calls across different Txns;
	// calls sharing one Txn must be externally serialized (a Txn is not
	// itself safe for concurrent use).
	Get(ctx context.Context, txn *Txn, key []byte) (value []byte, ok bool, err error)

	// Set stores value at key, buffered in txn until a successful
	// CommitOrRetry. Not visible to any other transaction until commit.
	Set(ctx context.Context, txn *Txn, key, value []byte) error

	// Clear removes key, buffered in txn until a successful
	// CommitOrRetry. Clearing an absent key is not an error.
	Clear(ctx context.Context, txn *Txn, key []byte) error

	// RangeStartsWith returns a lazy, finite sequence of every key/value
	// pair whose key begins with prefix, in key order, as of txn's view
	// (including txn's own buffered writes).
	//
	// Performance: O(log n + k) to begin iterating k results out of n
	// total keys, for a tree-backed implementation.
	RangeStartsWith(ctx context.Context, txn *Txn, prefix []byte) (iter.Seq2[KV, error], error)

	// CommitOrRetry attempts to commit txn.
	//
	// Behavior:
	//   - Returns (true, nil) if a conflicting transaction committed
	//     first: txn has been reset to a fresh read snapshot and the
	//     caller must rerun its entire transaction body (including
	//     re-issuing every Get/Set/Clear/Range call) before calling
	//     CommitOrRetry again.
	//   - Returns (false, nil) once txn has committed; the caller's loop
	//     should stop.
	//   - A non-nil error means the transaction failed non-transiently and
	//     has been aborted; callers must not call CommitOrRetry again on
	//     the same Txn.
	//
	// Thread-safety: safe for concurrent calls from different goroutines
	// committing different Txns against the same Gateway.
	CommitOrRetry(ctx context.Context, txn *Txn) (retry bool, err error)

	// AddEndOfTxnCallback registers fn to run exactly once, after txn
	// has committed or aborted, with whether it committed and the final
	// timestamp. Registering more than once on the same Txn appends
	// additional callbacks; all run, in registration order.
	AddEndOfTxnCallback(txn *Txn, fn func(committed bool, at time.Time))
}
