package kv

import (
	"bytes"
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/btree"
)

// Txn is an in-flight transaction against a Gateway; callers treat it as
// an opaque handle. CommitOrRetry and Release touch its fields under the
// owning MemoryGateway's mutex; Get, Set, Clear, and RangeStartsWith touch
// them without it, so one Txn must not be used from several goroutines at
// once.
type Txn struct {
	session SessionID

	gw *MemoryGateway

	// readVersion is the global version this txn's reads are consistent
	// with. Reset to the current version on every Begin and every retry.
	readVersion int64

	// snapshot is a cheap structural clone (btree.Clone is O(1), copy-on-
	// write) of the committed tree as of readVersion.
	snapshot *btree.BTreeG[kvItem]

	// writes buffers this txn's uncommitted Set/Clear calls. Clear stores
	// a nil value here, as does a Set of an empty value.
	writes map[string][]byte
	// cleared tracks which keys in writes are tombstones, since a Clear
	// and "Set to empty []byte" must be distinguishable.
	cleared map[string]bool

	// reads is this txn's read-set: every key fetched via Get, plus every
	// key observed by a RangeStartsWith scan. Used for conflict detection
	// at CommitOrRetry time.
	reads map[string]struct{}
	// rangeReads is this txn's range read-set: every prefix scanned via
	// RangeStartsWith. A conflict is also raised if a concurrent commit
	// wrote a key falling in one of these prefixes, even one the scan
	// itself did not return (phantom protection).
	rangeReads [][]byte

	callbacks []func(bool, time.Time)
	done      bool
}

// Release guarantees commit-or-abort on every exit path (SPEC_FULL.md §4.1).
// Calling Release on a Txn that already committed or aborted is a no-op.
func (t *Txn) Release() {
	t.gw.abortIfLive(t)
}

type kvItem struct {
	key   []byte
	value []byte
}

func kvItemLess(a, b kvItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemoryGateway is an in-memory Gateway with real optimistic multi-version
// concurrency control: every Txn reads from a point-in-time snapshot taken
// at Begin (or at the most recent retry), and CommitOrRetry detects
// conflicts by checking whether any key or range the txn read has been
// touched by a commit since. It is used by every test in
// internal/schemamgr and by cmd/aisdbctl's default, non-clustered
// configuration.
type MemoryGateway struct {
	mu sync.Mutex

	version   int64
	committed *btree.BTreeG[kvItem]

	// keyVersion records the version at which each key was last written,
	// so conflict detection does not need to diff whole snapshots.
	keyVersion map[string]int64
}

var _ Gateway = (*MemoryGateway)(nil)

// NewMemoryGateway returns an empty MemoryGateway ready for use.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		committed:  btree.NewG(32, kvItemLess),
		keyVersion: make(map[string]int64),
	}
}

func (g *MemoryGateway) Begin(ctx context.Context, session SessionID) (*Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrQueryCanceled
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.beginLocked(session), nil
}

func (g *MemoryGateway) beginLocked(session SessionID) *Txn {
	return &Txn{
		session:     session,
		gw:          g,
		readVersion: g.version,
		snapshot:    g.committed.Clone(),
		writes:      make(map[string][]byte),
		cleared:     make(map[string]bool),
		reads:       make(map[string]struct{}),
	}
}

func (g *MemoryGateway) Get(ctx context.Context, txn *Txn, key []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, ErrQueryCanceled
	}
	k := string(key)
	txn.reads[k] = struct{}{}

	if txn.cleared[k] {
		return nil, false, nil
	}
	if v, ok := txn.writes[k]; ok {
		return v, true, nil
	}

	var found []byte
	var ok bool
	txn.snapshot.AscendGreaterOrEqual(kvItem{key: key}, func(item kvItem) bool {
		if bytes.Equal(item.key, key) {
			found, ok = item.value, true
		}
		return false
	})
	return found, ok, nil
}

func (g *MemoryGateway) Set(ctx context.Context, txn *Txn, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return ErrQueryCanceled
	}
	k := string(key)
	txn.writes[k] = append([]byte(nil), value...)
	delete(txn.cleared, k)
	return nil
}

func (g *MemoryGateway) Clear(ctx context.Context, txn *Txn, key []byte) error {
	if err := ctx.Err(); err != nil {
		return ErrQueryCanceled
	}
	k := string(key)
	txn.writes[k] = nil
	txn.cleared[k] = true
	return nil
}

func (g *MemoryGateway) RangeStartsWith(ctx context.Context, txn *Txn, prefix []byte) (iter.Seq2[KV, error], error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrQueryCanceled
	}
	txn.rangeReads = append(txn.rangeReads, append([]byte(nil), prefix...))

	// Merge the snapshot with this txn's own buffered writes, since a
	// transaction must see its own uncommitted changes (doc.go's
	// protocol assumes this).
	merged := make(map[string][]byte)
	upper := prefixUpperBound(prefix)
	txn.snapshot.AscendRange(kvItem{key: prefix}, kvItem{key: upperOrMax(upper)}, func(item kvItem) bool {
		merged[string(item.key)] = item.value
		return true
	})
	for k, v := range txn.writes {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			if txn.cleared[k] {
				delete(merged, k)
			} else {
				merged[k] = v
			}
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seq := func(yield func(KV, error) bool) {
		for _, k := range keys {
			if !yield(KV{Key: []byte(k), Value: merged[k]}, nil) {
				return
			}
		}
	}
	return seq, nil
}

// upperOrMax substitutes a sentinel maximal key when prefixUpperBound
// reports no upper bound exists (an all-0xFF prefix), so AscendRange's
// exclusive upper bound still covers every matching key.
func upperOrMax(upper []byte) []byte {
	if upper == nil {
		return bytes.Repeat([]byte{0xff}, 64)
	}
	return upper
}

func (g *MemoryGateway) CommitOrRetry(ctx context.Context, txn *Txn) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, ErrQueryCanceled
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if txn.done {
		return false, nil
	}

	if g.conflicts(txn) {
		// Reset txn to a fresh snapshot and ask the caller to rerun its
		// transaction body from scratch.
		// End-of-transaction callbacks belong to the transaction, not to
		// one attempt, so they survive the reset.
		fresh := g.beginLocked(txn.session)
		fresh.callbacks = txn.callbacks
		*txn = *fresh
		return true, nil
	}

	now := timeNow()
	for k, v := range txn.writes {
		key := []byte(k)
		if txn.cleared[k] {
			g.committed.Delete(kvItem{key: key})
		} else {
			g.committed.ReplaceOrInsert(kvItem{key: key, value: v})
		}
		g.version++
		g.keyVersion[k] = g.version
	}
	txn.done = true
	g.fireCallbacks(txn, true, now)
	return false, nil
}

// conflicts reports whether any key or range txn read has been written by
// another transaction that committed after txn's readVersion.
func (g *MemoryGateway) conflicts(txn *Txn) bool {
	for k := range txn.reads {
		if g.keyVersion[k] > txn.readVersion {
			return true
		}
	}
	for _, prefix := range txn.rangeReads {
		for k, v := range g.keyVersion {
			if v <= txn.readVersion {
				continue
			}
			if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
				return true
			}
		}
	}
	return false
}

func (g *MemoryGateway) AddEndOfTxnCallback(txn *Txn, fn func(committed bool, at time.Time)) {
	txn.callbacks = append(txn.callbacks, fn)
}

func (g *MemoryGateway) abortIfLive(txn *Txn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if txn.done {
		return
	}
	txn.done = true
	g.fireCallbacks(txn, false, timeNow())
}

func (g *MemoryGateway) fireCallbacks(txn *Txn, committed bool, at time.Time) {
	for _, fn := range txn.callbacks {
		fn(committed, at)
	}
}

// timeNow is the one place this package calls into wall-clock time, kept
// separate so tests can observe callback ordering without depending on
// real elapsed time.
func timeNow() time.Time {
	return time.Now()
}
