package nameseq

import "sync"

// TableVersionMap tracks a monotonically-non-decreasing version number per
// table ID, used by downstream caches (internal/rowdef) to detect
// per-table invalidation without rereading the whole catalog.
//
// Mirrors the exclusive-lock-around-batched-mutation discipline of a
// shard-assignment registry, generalized from a map of shard assignments
// to a map of table versions: ClaimExclusive/ReleaseExclusive bracket a
// batch of Put calls, and Get may be called at any time without holding
// the claim.
type TableVersionMap struct {
	mu       sync.Mutex
	versions map[int32]int
}

// NewTableVersionMap returns an empty TableVersionMap.
func NewTableVersionMap() *TableVersionMap {
	return &TableVersionMap{versions: make(map[int32]int)}
}

// ClaimExclusive acquires the map's lock for a batch of Put calls. Every
// ClaimExclusive must be paired with a ReleaseExclusive, typically via
// defer.
func (m *TableVersionMap) ClaimExclusive() {
	m.mu.Lock()
}

// ReleaseExclusive releases the lock acquired by ClaimExclusive.
func (m *TableVersionMap) ReleaseExclusive() {
	m.mu.Unlock()
}

// Put records v as id's version, but only if v is strictly greater than
// the version currently on record; otherwise it is silently ignored. This
// is intentional idempotency: a retried DDL that reruns Put with the same
// or an older version must not regress or spuriously re-bump the table's
// version. Must be called while holding the claim.
func (m *TableVersionMap) Put(id int32, v int) {
	if cur, ok := m.versions[id]; ok && v <= cur {
		return
	}
	m.versions[id] = v
}

// Get returns id's current version and whether it has ever been set. Safe
// to call without holding the claim; it takes the lock itself.
func (m *TableVersionMap) Get(id int32) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	return v, ok
}
