package schemamgr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/aisdb/internal/aiscodec"
	"github.com/dreamware/aisdb/internal/catalog"
	"github.com/dreamware/aisdb/internal/kv"
)

func newStartedManager(t *testing.T, gw kv.Gateway, maxCatalogBytes int) *Manager {
	t.Helper()
	mgr := NewManager(gw, maxCatalogBytes)
	require.NoError(t, mgr.Start(context.Background(), "bootstrap"))
	return mgr
}

func addTableChange(schemaName, tableName string) Change {
	return func(b *catalog.Builder) ([]string, error) {
		// Table IDs must be unique across every schema, so take the next
		// ID after the largest one already in the builder.
		var maxID int32
		for _, n := range b.SchemaNames() {
			for _, t := range b.Schema(n).Tables {
				if t.ID > maxID {
					maxID = t.ID
				}
			}
		}
		sc := b.Schema(schemaName)
		sc.Tables[tableName] = &catalog.Table{
			Schema: schemaName,
			Name:   tableName,
			ID:     maxID + 1,
			Columns: []catalog.Column{
				{Name: "id", Type: "int", Position: 0},
			},
		}
		return []string{schemaName}, nil
	}
}

func dropSchemaChange(schemaName string) Change {
	return func(b *catalog.Builder) ([]string, error) {
		b.DropSchema(schemaName)
		return []string{schemaName}, nil
	}
}

// S1 — bootstrapping against an empty store yields generation 0 and no
// schemas.
func TestScenarioBootstrapEmptyStore(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)

	ctx := context.Background()
	txn, err := gw.Begin(ctx, "s1")
	require.NoError(t, err)
	defer txn.Release()

	snap, err := mgr.GetAIS(ctx, txn, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Generation())
	assert.Empty(t, snap.SchemaNames())
}

// S2 — a schema created by one transaction is visible to a GetAIS call in a
// later transaction.
func TestScenarioCreateThenRead(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	txn1, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	_, err = mgr.SaveAISChangeWithRowDefs(ctx, txn1, "writer", addTableChange("sales", "orders"))
	require.NoError(t, err)
	txn1.Release()

	txn2, err := gw.Begin(ctx, "reader")
	require.NoError(t, err)
	defer txn2.Release()
	snap, err := mgr.GetAIS(ctx, txn2, "reader")
	require.NoError(t, err)

	_, ok := snap.UserTable("sales", "orders")
	assert.True(t, ok)
	assert.Equal(t, int64(1), snap.Generation())
}

// S3 — dropping a schema clears its blob from the store.
func TestScenarioDropSchemaClearsBlob(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	txn1, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	_, err = mgr.SaveAISChangeWithRowDefs(ctx, txn1, "writer", addTableChange("sales", "orders"))
	require.NoError(t, err)
	txn1.Release()

	txn2, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	_, ok, err := gw.Get(ctx, txn2, schemaBlobKey("sales"))
	require.NoError(t, err)
	assert.True(t, ok, "blob should exist after create")
	txn2.Release()

	txn3, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	_, err = mgr.SaveAISChangeWithRowDefs(ctx, txn3, "writer", dropSchemaChange("sales"))
	require.NoError(t, err)
	txn3.Release()

	txn4, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	defer txn4.Release()
	_, ok, err = gw.Get(ctx, txn4, schemaBlobKey("sales"))
	require.NoError(t, err)
	assert.False(t, ok, "blob should be cleared after drop")
}

// S4 — two concurrent, conflicting DDLs both eventually succeed: one of
// them observes a retry from CommitOrRetry and reruns its Change from
// scratch, per SPEC_FULL.md's retry loop.
func TestScenarioConcurrentConflictingDDLRetries(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	txnA, err := gw.Begin(ctx, "a")
	require.NoError(t, err)
	defer txnA.Release()
	txnB, err := gw.Begin(ctx, "b")
	require.NoError(t, err)
	defer txnB.Release()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = mgr.SaveAISChangeWithRowDefs(ctx, txnA, "a", addTableChange("sales", "orders"))
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = mgr.SaveAISChangeWithRowDefs(ctx, txnB, "b", addTableChange("hr", "employees"))
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	txn, err := gw.Begin(ctx, "verify")
	require.NoError(t, err)
	defer txn.Release()
	snap, err := mgr.GetAIS(ctx, txn, "verify")
	require.NoError(t, err)

	_, ok := snap.UserTable("sales", "orders")
	assert.True(t, ok)
	_, ok = snap.UserTable("hr", "employees")
	assert.True(t, ok)
	assert.Equal(t, int64(2), snap.Generation())
}

// S5 — a schema blob too large for the configured cap is rejected rather
// than silently truncated or partially written.
func TestScenarioOversizeCatalogRejected(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 32)
	ctx := context.Background()

	txn, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	defer txn.Release()

	bigChange := func(b *catalog.Builder) ([]string, error) {
		sc := b.Schema("sales")
		sc.Tables["orders"] = &catalog.Table{
			Schema: "sales",
			Name:   "orders",
			ID:     1,
			Columns: []catalog.Column{
				{Name: strings.Repeat("x", 4096), Type: "int", Position: 0},
			},
		}
		return []string{"sales"}, nil
	}

	_, err = mgr.SaveAISChangeWithRowDefs(ctx, txn, "writer", bigChange)
	require.Error(t, err)
	var tooLarge *aiscodec.ErrCatalogTooLarge
	assert.ErrorAs(t, err, &tooLarge)
}

// S6 — a read interrupted by a canceled context surfaces as
// ErrQueryCanceled carrying the interrupted session, not a generic error.
func TestScenarioInterruptedRead(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)

	ctx, cancel := context.WithCancel(context.Background())
	txn, err := gw.Begin(context.Background(), "victim")
	require.NoError(t, err)
	defer txn.Release()
	cancel()

	_, err = mgr.GetAIS(ctx, txn, "victim")
	require.Error(t, err)
	var canceled *ErrQueryCanceled
	require.ErrorAs(t, err, &canceled)
	assert.Equal(t, SessionID("victim"), canceled.Session)
	assert.True(t, errors.Is(err, kv.ErrQueryCanceled))
}

// Testable property 1: the generation counter is strictly monotonically
// increasing across successive committed DDLs, never reused or regressed.
func TestPropertyGenerationMonotonicity(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		txn, err := gw.Begin(ctx, "writer")
		require.NoError(t, err)
		snap, err := mgr.SaveAISChangeWithRowDefs(ctx, txn, "writer", addTableChange("sales", "t"+string(rune('a'+i))))
		require.NoError(t, err)
		txn.Release()
		assert.Greater(t, snap.Generation(), last)
		last = snap.Generation()
	}
}

// Testable property 2: a *catalog.Snapshot handed to a caller is never
// mutated in place by a later DDL — later generations produce distinct
// Snapshot values.
func TestPropertySnapshotImmutability(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	txn1, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	first, err := mgr.SaveAISChangeWithRowDefs(ctx, txn1, "writer", addTableChange("sales", "orders"))
	require.NoError(t, err)
	txn1.Release()

	firstGen := first.Generation()
	_, firstHadOrders := first.UserTable("sales", "orders")
	require.True(t, firstHadOrders)

	txn2, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	_, err = mgr.SaveAISChangeWithRowDefs(ctx, txn2, "writer", addTableChange("sales", "invoices"))
	require.NoError(t, err)
	txn2.Release()

	// first must still report its own generation and must not have gained
	// the table added by the second change.
	assert.Equal(t, firstGen, first.Generation())
	_, hasInvoices := first.UserTable("sales", "invoices")
	assert.False(t, hasInvoices)
}

// Testable property 3: within one transaction, repeated GetAIS calls return
// the exact same attached snapshot, regardless of concurrent DDL activity
// elsewhere.
func TestPropertySessionStability(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	txn, err := gw.Begin(ctx, "reader")
	require.NoError(t, err)
	defer txn.Release()

	first, err := mgr.GetAIS(ctx, txn, "reader")
	require.NoError(t, err)

	other, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	_, err = mgr.SaveAISChangeWithRowDefs(ctx, other, "writer", addTableChange("sales", "orders"))
	require.NoError(t, err)
	other.Release()

	second, err := mgr.GetAIS(ctx, txn, "reader")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

// Testable property 4: Save followed by Load/Finalize round-trips a
// snapshot exactly as far as the selector in play preserves, matching the
// selector tests in internal/aiscodec; here exercised through the manager's
// own persist/bootstrap path.
func TestPropertyPersistRoundTrip(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	txn, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	_, err = mgr.SaveAISChangeWithRowDefs(ctx, txn, "writer", addTableChange("sales", "orders"))
	require.NoError(t, err)
	txn.Release()

	reloaded := NewManager(gw, 0)
	require.NoError(t, reloaded.Start(ctx, "restart"))

	verifyTxn, err := gw.Begin(ctx, "verify")
	require.NoError(t, err)
	defer verifyTxn.Release()
	snap, err := reloaded.GetAIS(ctx, verifyTxn, "verify")
	require.NoError(t, err)

	_, ok := snap.UserTable("sales", "orders")
	assert.True(t, ok)
	assert.Equal(t, int64(1), snap.Generation())
}

// Testable property 5: concurrent DDLs allocating identifiers through the
// shared name generator never collide, even when run from goroutines that
// raced through CommitOrRetry's retry loop.
func TestPropertyConcurrentDDLUniqueness(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	ids := make([]int32, n)
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			session := SessionID("writer-" + string(rune('0'+i)))
			txn, err := gw.Begin(ctx, session)
			if err != nil {
				errs[i] = err
				return
			}
			defer txn.Release()
			snap, err := mgr.SaveAISChangeWithRowDefs(ctx, txn, session, func(b *catalog.Builder) ([]string, error) {
				sc := b.Schema("sales")
				id := mgr.nameGen.NextTableID()
				name := "t" + string(rune('a'+i))
				sc.Tables[name] = &catalog.Table{Schema: "sales", Name: name, ID: id}
				return []string{"sales"}, nil
			})
			errs[i] = err
			if err == nil {
				ids[i] = idOf(snap, name(i))
			}
		}()
	}
	wg.Wait()

	seen := make(map[int32]bool)
	for i, err := range errs {
		require.NoError(t, err)
		assert.False(t, seen[ids[i]], "duplicate table ID %d", ids[i])
		seen[ids[i]] = true
	}
}

func name(i int) string {
	return "t" + string(rune('a'+i))
}

func idOf(snap *catalog.Snapshot, tableName string) int32 {
	t, ok := snap.UserTable("sales", tableName)
	if !ok {
		return -1
	}
	return t.ID
}

// Testable property 6: once SaveAISChangeWithRowDefs has committed a
// change on a transaction handle, a subsequent GetAIS call on that same
// handle sees the change.
func TestPropertyReadYourWrites(t *testing.T) {
	gw := kv.NewMemoryGateway()
	mgr := newStartedManager(t, gw, 0)
	ctx := context.Background()

	txn, err := gw.Begin(ctx, "writer")
	require.NoError(t, err)
	defer txn.Release()

	_, err = mgr.SaveAISChangeWithRowDefs(ctx, txn, "writer", addTableChange("sales", "orders"))
	require.NoError(t, err)

	snap, err := mgr.GetAIS(ctx, txn, "writer")
	require.NoError(t, err)
	_, ok := snap.UserTable("sales", "orders")
	assert.True(t, ok)
}
