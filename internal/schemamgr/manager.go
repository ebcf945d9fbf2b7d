package schemamgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/aisdb/internal/aiscodec"
	"github.com/dreamware/aisdb/internal/catalog"
	"github.com/dreamware/aisdb/internal/kv"
	"github.com/dreamware/aisdb/internal/nameseq"
	"github.com/dreamware/aisdb/internal/obs"
	"github.com/dreamware/aisdb/internal/rowdef"
)

// Change mutates a candidate catalog.Builder seeded from the current
// snapshot and reports which schema names were touched, so the caller's
// DDL entry point knows which blob keys to write or clear. A Change must
// be safe to call more than once: SaveAISChangeWithRowDefs reruns it from
// scratch on every CommitOrRetry retry.
type Change func(b *catalog.Builder) (affectedSchemas []string, err error)

// Manager is the transactional schema manager: it owns the current
// in-memory catalog snapshot, drives the generation-counter protocol
// against the KV store, and serves per-session cached reads.
//
// Manager coordinates four responsibilities that each have their own
// concurrency discipline:
//   - curAIS: the frozen, currently-installed catalog snapshot, read
//     lock-free via atomic.Pointer and written only under aisLock.
//   - nameGen / tableVers: collision-free identifier allocation and
//     per-table version tracking, each with its own internal lock.
//   - rowDefs: a cache rebuilt on every committed or unsaved change.
//   - sessions: a per-transaction snapshot attachment table, so repeated
//     GetAIS calls within one transaction are idempotent.
//
// Thread-safety: every exported method is safe for concurrent use by many
// goroutines representing many sessions. No method blocks on another
// session's transaction; conflicts are resolved by CommitOrRetry asking
// the loser to rerun its Change, not by Manager-level locking across KV
// calls.
//
// Zero value: not usable. Construct with NewManager and call Start before
// any other method; calling GetAIS or a DDL entry point before Start sees
// an empty, generation-0 catalog.
type Manager struct {
	gw              kv.Gateway
	maxCatalogBytes int

	curAIS  atomic.Pointer[catalog.Snapshot]
	aisLock sync.Mutex

	nameGen      nameseq.NameGenerator
	tableVers    *nameseq.TableVersionMap
	rowDefs      *rowdef.Cache
	sessions     sessionAttachments
	pendingTrees sync.Map // tree name -> time.Time (marked for delayed removal)
}

// NewManager returns a Manager over gw, not yet started.
//
// Parameters:
//   - gw: the KV gateway backing every read and write this Manager issues.
//   - maxCatalogBytes: caps every serialized schema blob (0 means
//     unlimited); forwarded verbatim to every aiscodec.GrowBuf this
//     Manager creates.
//
// Returns an unstarted Manager; call Start before issuing any other
// method call.
func NewManager(gw kv.Gateway, maxCatalogBytes int) *Manager {
	return &Manager{
		gw:              gw,
		maxCatalogBytes: maxCatalogBytes,
		nameGen:         nameseq.NewNameGenerator(),
		tableVers:       nameseq.NewTableVersionMap(),
		rowDefs:         rowdef.NewCache(),
	}
}

// Start loads every schema blob under the catalog prefix inside a single
// transaction against session, finalizes and validates the draft
// snapshot, stamps it with the transaction's generation, installs it as
// the current snapshot, and merges it into a fresh name generator. Called
// once at process startup (SPEC_FULL.md §4.4's unloaded -> loaded(gen=g)
// transition).
func (m *Manager) Start(ctx context.Context, session SessionID) error {
	txn, err := m.gw.Begin(ctx, session)
	if err != nil {
		return m.wrapErr(err, session)
	}
	defer txn.Release()

	var snap *catalog.Snapshot
	for {
		var loadErr error
		snap, loadErr = m.loadSnapshot(ctx, txn, session)
		if loadErr != nil {
			return loadErr
		}
		retry, err := m.gw.CommitOrRetry(ctx, txn)
		if err != nil {
			return m.wrapErr(err, session)
		}
		if !retry {
			break
		}
	}

	m.curAIS.Store(snap)
	m.nameGen.MergeAIS(snap)
	m.rowDefs.Rebuild(snap, int(snap.Generation()))
	m.updateTableVersions(snap, snap.Generation())
	if err := m.serializeMemoryTablesNoop(snap); err != nil {
		return fmt.Errorf("schemamgr: bootstrap memory-table pass: %w", err)
	}
	obs.L().Info("schema manager started", zap.Int64("generation", snap.Generation()))
	return nil
}

// Stop returns the manager to the unloaded state. Subsequent GetAIS calls
// will treat the in-memory catalog as empty (generation 0) until Start
// runs again.
func (m *Manager) Stop() {
	m.curAIS.Store(nil)
}

// loadSnapshot reads the generation key and every per-schema blob inside
// txn, decoding blobs concurrently (one goroutine per blob, via
// errgroup.Group) since each blob is an independently decodable
// self-contained stream, then merges the decoded schemas into a single
// builder for one whole-graph validation pass — cross-schema foreign keys
// need every schema present to validate.
func (m *Manager) loadSnapshot(ctx context.Context, txn *kv.Txn, session SessionID) (*catalog.Snapshot, error) {
	genBytes, ok, err := m.gw.Get(ctx, txn, generationKey())
	if err != nil {
		return nil, m.wrapErr(err, session)
	}
	var gen int64
	if ok {
		gen, err = kv.UnpackInt64(genBytes)
		if err != nil {
			return nil, fmt.Errorf("schemamgr: decode generation key: %w", err)
		}
	}

	seq, err := m.gw.RangeStartsWith(ctx, txn, schemaBlobPrefix())
	if err != nil {
		return nil, m.wrapErr(err, session)
	}
	var blobs [][]byte
	for item, err := range seq {
		if err != nil {
			return nil, m.wrapErr(err, session)
		}
		blobs = append(blobs, item.Value)
	}

	accs := make([]*aiscodec.Accumulator, len(blobs))
	g, _ := errgroup.WithContext(ctx)
	for i, blob := range blobs {
		i, blob := i, blob
		g.Go(func() error {
			acc := aiscodec.NewAccumulator()
			if err := aiscodec.Load(bytes.NewReader(blob), acc); err != nil {
				return err
			}
			accs[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("schemamgr: decode bootstrap blob: %w", err)
	}

	merged := catalog.NewBuilder()
	for _, acc := range accs {
		for _, sc := range acc.Schemas() {
			merged.PutSchema(sc)
		}
	}
	snap, err := merged.Freeze(gen)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// GetAIS returns the catalog snapshot visible to session within txn. See
// the package doc comment for the full read-path algorithm.
//
// Behavior:
//   - Returns the session's already-attached snapshot if this is not the
//     first call within the current transaction.
//   - Otherwise resolves the snapshot consistent with txn's own view of
//     the generation key (resolveCurrent), attaches it, and registers an
//     end-of-transaction callback that clears the attachment.
//   - Before Start has installed a snapshot, while the stored generation is
//     still 0, returns a nil *catalog.Snapshot with a nil error; its
//     accessors report generation 0 and no schemas.
//
// Thread-safety: safe for concurrent calls from any number of sessions.
// May briefly block on aisLock if a reload from storage is in progress.
//
// Performance: O(1) on a session's second and later call within one
// transaction; O(s) on the first call when the in-memory cache is stale,
// where s is the number of persisted schema blobs.
//
// Parameters:
//   - ctx: governs the KV read; a canceled context surfaces as
//     ErrQueryCanceled.
//   - txn: the caller's transaction handle.
//   - session: the session requesting the snapshot.
//
// Returns:
//   - The snapshot visible to session within txn.
//   - An error if the transactional generation read fails or a reload's
//     decode/validation fails.
func (m *Manager) GetAIS(ctx context.Context, txn *kv.Txn, session SessionID) (*catalog.Snapshot, error) {
	if snap, ok := m.sessions.attached(session); ok {
		return snap, nil
	}
	snap, err := m.resolveCurrent(ctx, txn, session)
	if err != nil {
		return nil, err
	}
	m.sessions.attach(m.gw, txn, session, snap)
	return snap, nil
}

// resolveCurrent returns the snapshot consistent with txn's own view of the
// generation key: curAIS directly if it already matches, or a fresh reload
// merged from every persisted schema blob otherwise. buildCandidate and
// GetAIS share this so neither ever seeds work from an in-memory curAIS
// that a concurrent, already-committed writer has since superseded — two
// transactions that raced through CommitOrRetry's retry loop would
// otherwise risk building their candidates from the same stale base and
// each silently losing the other's change from the in-memory cache (the
// persisted KV blobs stay correct regardless).
func (m *Manager) resolveCurrent(ctx context.Context, txn *kv.Txn, session SessionID) (*catalog.Snapshot, error) {
	genBytes, ok, err := m.gw.Get(ctx, txn, generationKey())
	if err != nil {
		return nil, m.wrapErr(err, session)
	}
	var txnGen int64
	if ok {
		txnGen, err = kv.UnpackInt64(genBytes)
		if err != nil {
			return nil, fmt.Errorf("schemamgr: decode generation key: %w", err)
		}
	}

	cur := m.curAIS.Load()
	if txnGen == cur.Generation() {
		return cur, nil
	}

	m.aisLock.Lock()
	defer m.aisLock.Unlock()

	cur = m.curAIS.Load()
	if txnGen == cur.Generation() {
		return cur, nil
	}

	reloaded, err := m.loadSnapshot(ctx, txn, session)
	if err != nil {
		return nil, err
	}
	if reloaded.Generation() > cur.Generation() {
		m.curAIS.Store(reloaded)
		m.nameGen.MergeAIS(reloaded)
		m.rowDefs.Rebuild(reloaded, int(reloaded.Generation()))
		m.updateTableVersions(reloaded, reloaded.Generation())
	}
	// If reloaded.Generation() < cur.Generation(), the caller's own
	// transaction observed an older generation than curAIS: use the
	// reloaded snapshot locally without regressing curAIS (SPEC_FULL.md
	// §9 Open Questions — preserved deliberately, not a bug).
	return reloaded, nil
}

// installCandidate makes candidate the current snapshot after a successful
// commit, under AISLock. SPEC_FULL.md §5 ("curAIS pointer is protected by
// AISLock for writes") applies here just as much as to resolveCurrent's
// reload branch: CommitOrRetry releases its own lock before returning, so
// two successful commits racing to install their candidates could otherwise
// reorder their Store calls and regress curAIS below an already-committed
// generation. The generation guard makes that reordering harmless even if
// it occurs.
func (m *Manager) installCandidate(candidate *catalog.Snapshot) {
	m.aisLock.Lock()
	defer m.aisLock.Unlock()

	if candidate.Generation() > m.curAIS.Load().Generation() {
		m.curAIS.Store(candidate)
		m.nameGen.MergeAIS(candidate)
		m.updateTableVersions(candidate, candidate.Generation())
	}
}

// installUnsavedCandidate is installCandidate's counterpart for
// ApplyUnsavedChange: candidate keeps resolveCurrent's generation rather
// than bumping it, so the guard is >= instead of > — otherwise a
// same-generation in-memory-only change (e.g. a memory table rebuilt at
// bootstrap) would never install. It still refuses to regress curAIS below
// a generation some other, already-committed DDL has since advanced past.
func (m *Manager) installUnsavedCandidate(candidate *catalog.Snapshot) {
	m.aisLock.Lock()
	defer m.aisLock.Unlock()

	if candidate.Generation() >= m.curAIS.Load().Generation() {
		m.curAIS.Store(candidate)
		m.nameGen.MergeAIS(candidate)
		m.updateTableVersions(candidate, candidate.Generation())
	}
}

// SaveAISChangeWithRowDefs applies change inside gw's CommitOrRetry loop:
// build a candidate from the snapshot resolveCurrent returns for txn,
// validate, bump the generation, persist
// affected schema blobs, rebuild the row-definition cache, and attach the
// candidate to session. See the package doc comment for the full
// algorithm.
//
// Behavior:
//   - Runs change against a fresh catalog.Builder every CommitOrRetry
//     iteration; change must be idempotent-safe to call more than once.
//   - On validation failure, returns ErrValidationFailure without writing
//     anything to the KV store and without touching curAIS.
//   - On successful commit, installs the candidate as the new curAIS
//     (guarded by generation, under aisLock) before returning it.
//
// Thread-safety: safe for concurrent calls from any number of sessions;
// conflicting concurrent DDLs are serialized by the generation key, not by
// a Manager-level lock — the loser's transaction reruns from scratch.
//
// Performance: O(s) per attempt, where s is the number of schemas change
// reports as affected; an unbounded number of attempts under contention.
//
// Parameters:
//   - ctx: governs every KV call this method makes.
//   - txn: the caller's transaction handle; reset to a fresh read snapshot
//     by CommitOrRetry on every retry.
//   - session: the session performing the DDL.
//   - change: the mutation to apply.
//
// Returns:
//   - The committed candidate snapshot on success.
//   - ErrValidationFailure, ErrCatalogTooLarge, ErrQueryCanceled, or a
//     wrapped KV error on failure.
func (m *Manager) SaveAISChangeWithRowDefs(ctx context.Context, txn *kv.Txn, session SessionID, change Change) (*catalog.Snapshot, error) {
	for {
		candidate, affected, err := m.buildCandidate(ctx, txn, session, change, true)
		if err != nil {
			return nil, err
		}

		for _, schemaName := range affected {
			if err := m.persistSchema(ctx, txn, session, candidate, schemaName); err != nil {
				return nil, err
			}
		}

		m.rowDefs.Rebuild(candidate, int(candidate.Generation()))
		m.sessions.attach(m.gw, txn, session, candidate)

		retry, err := m.gw.CommitOrRetry(ctx, txn)
		if err != nil {
			return nil, m.wrapErr(err, session)
		}
		if !retry {
			m.installCandidate(candidate)
			return candidate, nil
		}
		// txn has been reset to a fresh read snapshot: the entire
		// sequence above reruns, including change(), so no candidate
		// or buffer state leaks across iterations. Identifiers change()
		// allocated from the name generator stay marked used.
	}
}

// ApplyUnsavedChange validates and installs a candidate snapshot without
// touching the KV store or bumping the generation: used for in-memory-only
// catalog changes (memory tables, transient system tables) during
// bootstrap.
func (m *Manager) ApplyUnsavedChange(ctx context.Context, txn *kv.Txn, session SessionID, change Change) (*catalog.Snapshot, error) {
	candidate, _, err := m.buildCandidate(ctx, txn, session, change, false)
	if err != nil {
		return nil, err
	}
	m.rowDefs.Rebuild(candidate, int(candidate.Generation()))
	m.sessions.attach(m.gw, txn, session, candidate)
	m.installUnsavedCandidate(candidate)
	return candidate, nil
}

// buildCandidate runs change against a builder seeded from the snapshot
// resolveCurrent reports consistent with txn's own transactional view (not
// a raw curAIS read — see resolveCurrent's doc comment). When
// bumpGeneration is true, it writes back the generation key inside txn
// before freezing the candidate; otherwise the candidate keeps the
// resolved snapshot's existing generation. resolveCurrent's own Get of the
// generation key already registers it in txn's read set, so the bump
// below only needs to Set it.
func (m *Manager) buildCandidate(ctx context.Context, txn *kv.Txn, session SessionID, change Change, bumpGeneration bool) (*catalog.Snapshot, []string, error) {
	cur, err := m.resolveCurrent(ctx, txn, session)
	if err != nil {
		return nil, nil, err
	}
	before := treeNamesByTable(cur)

	b := catalog.NewBuilderFrom(cur)
	affected, err := change(b)
	if err != nil {
		return nil, nil, err
	}

	newGen := cur.Generation()
	if bumpGeneration {
		newGen = cur.Generation() + 1
		if err := m.gw.Set(ctx, txn, generationKey(), kv.Pack(newGen)); err != nil {
			return nil, nil, m.wrapErr(err, session)
		}
	}

	candidate, err := b.Freeze(newGen)
	if err != nil {
		return nil, nil, err
	}

	after := treeNamesByTable(candidate)
	for tree := range before {
		if !after[tree] {
			m.pendingTrees.Store(tree, timeNow())
		}
	}

	return candidate, affected, nil
}

// persistSchema serializes schemaName from candidate with the selector
// appropriate to that schema's category and writes its blob, or clears
// the blob if the schema no longer exists in candidate.
func (m *Manager) persistSchema(ctx context.Context, txn *kv.Txn, session SessionID, candidate *catalog.Snapshot, schemaName string) error {
	if _, ok := candidate.Schema(schemaName); !ok {
		if err := m.gw.Clear(ctx, txn, schemaBlobKey(schemaName)); err != nil {
			return m.wrapErr(err, session)
		}
		return nil
	}

	gb := aiscodec.NewGrowBuf(m.maxCatalogBytes)
	if err := aiscodec.Save(gb, candidate, selectorForSchema(schemaName)); err != nil {
		var tooLarge *aiscodec.ErrCatalogTooLarge
		if errors.As(err, &tooLarge) {
			return tooLarge
		}
		return fmt.Errorf("schemamgr: serialize schema %q: %w", schemaName, err)
	}
	if err := m.gw.Set(ctx, txn, schemaBlobKey(schemaName), gb.Bytes()); err != nil {
		return m.wrapErr(err, session)
	}
	return nil
}

// selectorForSchema picks the persistence selector for a schema by its
// category, matching the distilled spec's table of selectors (SPEC_FULL.md
// §4.2): sys/sqlj schemas never persist their routines or jars; security
// never persists memory-resident tables; every other schema persists in
// full.
func selectorForSchema(name string) aiscodec.Selector {
	switch name {
	case "sys", "sqlj":
		return aiscodec.SingleSchemaNoRoutines{Name: name}
	case "security":
		return aiscodec.SingleSchemaNoMemoryTables{Name: name}
	default:
		return aiscodec.SingleSchema{Name: name}
	}
}

// updateTableVersions stamps every table in snap with generation in the
// table-version map, under one exclusive claim for the whole batch. Put's
// monotonic rule means retried or stale calls (an older generation
// reapplied to a table already stamped with a newer one) are silently
// ignored, matching SaveAISChangeWithRowDefs's retry semantics.
func (m *Manager) updateTableVersions(snap *catalog.Snapshot, generation int64) {
	m.tableVers.ClaimExclusive()
	defer m.tableVers.ReleaseExclusive()
	snap.Node(func(n catalog.Node) bool {
		if t, ok := n.(*catalog.Table); ok {
			m.tableVers.Put(t.ID, int(generation))
		}
		return true
	})
}

// treeNamesByTable returns the set of every index tree name live in snap,
// used by buildCandidate to detect which trees a change removed.
func treeNamesByTable(snap *catalog.Snapshot) map[string]bool {
	out := make(map[string]bool)
	snap.Node(func(n catalog.Node) bool {
		t, ok := n.(*catalog.Table)
		if !ok {
			return true
		}
		if t.PrimaryKey != nil {
			out[t.PrimaryKey.TreeName] = true
		}
		for _, idx := range t.Indexes {
			out[idx.TreeName] = true
		}
		return true
	})
	return out
}

// OldestActiveAISGeneration returns curAIS's generation. Consumers use it
// to decide when old cached state tied to earlier generations can be
// discarded.
func (m *Manager) OldestActiveAISGeneration() int64 {
	return m.curAIS.Load().Generation()
}

// DeleteTableStatuses evicts cached row definitions for the given table
// IDs, called after a DDL has dropped those tables.
func (m *Manager) DeleteTableStatuses(tableIDs ...int32) {
	for _, id := range tableIDs {
		m.rowDefs.Evict(id)
	}
}

// TableVersion returns the generation that last touched tableID, for
// callers (e.g. a row-cache invalidation hook) that want to detect a
// table-level change without re-diffing the whole snapshot.
func (m *Manager) TableVersion(tableID int32) (int, bool) {
	return m.tableVers.Get(tableID)
}

// TreeRemovalIsDelayed reports whether treeName was dropped by a committed
// DDL but not yet physically reclaimed by the row/index storage engine.
func (m *Manager) TreeRemovalIsDelayed(treeName string) bool {
	_, pending := m.pendingTrees.Load(treeName)
	return pending
}

// TreeWasRemoved marks treeName as physically reclaimed, called by the
// row/index storage engine once it has finished deleting it.
func (m *Manager) TreeWasRemoved(treeName string) {
	m.pendingTrees.Delete(treeName)
}

// serializeMemoryTablesNoop builds the memory-tables-only serialized form
// of snap and discards it. SPEC_FULL.md §9 preserves this as a literal
// no-op: the source's equivalent method persists a buffer but discards
// it, and the intent is unclear, so this exercises the same codec path
// for parity without guessing what the discarded bytes were meant for.
func (m *Manager) serializeMemoryTablesNoop(snap *catalog.Snapshot) error {
	gb := aiscodec.NewGrowBuf(m.maxCatalogBytes)
	return aiscodec.Save(gb, snap, aiscodec.MemoryTablesOnly{})
}

func (m *Manager) wrapErr(err error, session SessionID) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kv.ErrQueryCanceled) {
		return &ErrQueryCanceled{Session: session}
	}
	return err
}

func timeNow() time.Time {
	return time.Now()
}
