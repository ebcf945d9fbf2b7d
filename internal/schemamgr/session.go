package schemamgr

import (
	"sync"
	"time"

	"github.com/dreamware/aisdb/internal/catalog"
	"github.com/dreamware/aisdb/internal/kv"
)

// SessionID identifies the caller GetAIS and the DDL entry points act on
// behalf of. Session lifecycle itself is an external collaborator (it is
// also the identifier the KV gateway's transactions are begun against);
// this package only needs it as a comparable map key.
type SessionID = kv.SessionID

// sessionAttachments is the per-session cached-snapshot side-table: a
// mapping session -> snapshot installed on first GetAIS (or first DDL)
// within a transaction and cleared by an end-of-transaction callback. It
// is a keyed side-table rather than a property bag on a generic session
// object, since the session type itself is an external collaborator in
// this package.
//
// registeredTxns tracks which *kv.Txn values already have the clearing
// callback registered, so a transaction that calls GetAIS more than once
// (or calls GetAIS and then a DDL entry point) registers the callback
// exactly once.
type sessionAttachments struct {
	snapshots      sync.Map // SessionID -> *catalog.Snapshot
	registeredTxns sync.Map // *kv.Txn -> struct{}
}

// attach installs snap as session's attached snapshot for the transaction
// txn belongs to, registering the end-of-transaction clearing callback on
// first attach within that transaction.
func (a *sessionAttachments) attach(gw kv.Gateway, txn *kv.Txn, session SessionID, snap *catalog.Snapshot) {
	a.snapshots.Store(session, snap)
	if _, already := a.registeredTxns.LoadOrStore(txn, struct{}{}); !already {
		gw.AddEndOfTxnCallback(txn, func(committed bool, at time.Time) {
			a.snapshots.Delete(session)
			a.registeredTxns.Delete(txn)
		})
	}
}

// attached returns the snapshot already attached to session within the
// current transaction, if any.
func (a *sessionAttachments) attached(session SessionID) (*catalog.Snapshot, bool) {
	v, ok := a.snapshots.Load(session)
	if !ok {
		return nil, false
	}
	return v.(*catalog.Snapshot), true
}
