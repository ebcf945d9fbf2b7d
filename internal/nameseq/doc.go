// Package nameseq generates collision-free identifiers for catalog objects
// (table IDs, index tree names, constraint names, sequence names) and
// tracks a monotonically-non-decreasing version number per table.
//
// NameGenerator is a thread-safe facade over a non-thread-safe
// implementation: the facade holds one coarse mutex around in-memory map
// mutation and never calls into the KV store while holding it. Tree names
// and constraint names fall back to a github.com/google/uuid suffix when
// their human-readable base name is already taken, the same
// collision-avoidance idea a distributed allocator uses when handing out
// master/slave keys, adapted here to purely in-process name allocation.
//
// TableVersionMap tracks tableID -> version under an exclusive-claim
// protocol: callers bracket a batch of updates with ClaimExclusive and
// ReleaseExclusive, and Put only takes effect when the new version is
// strictly greater than the current one.
//
// # Concurrency and synchronization
//
//   - NameGenerator's coarse mutex is held only around its own in-memory
//     map mutation; it is never held across a KV call or any other
//     blocking operation, so a long-running caller cannot stall name
//     allocation for every other session.
//   - TableVersionMap's exclusive-claim protocol lets one goroutine at a
//     time apply a batch of version bumps as a unit. ClaimExclusive
//     blocks until any previous claimant has called ReleaseExclusive.
//
// # Failure scenarios
//
// There are no error returns in this package's allocation path: a
// requested base name that collides always succeeds by falling back to a
// uuid-suffixed name rather than failing the caller's DDL. A Put call
// with a version not strictly greater than the current one is silently a
// no-op, not an error — see SPEC_FULL.md's monotonic table-version
// invariant.
//
// # Performance characteristics
//
//   - Name allocation is O(1) amortized; a collision adds one uuid
//     generation plus a single map lookup.
//   - TableVersionMap.Put is O(1); ClaimExclusive/ReleaseExclusive add no
//     asymptotic cost, only the blocking wait for the previous claimant.
//
// # Usage example
//
//	gen := nameseq.NewNameGenerator()
//	treeName := gen.NextTreeName("sales", "orders", "idx_customer")
//	tv := nameseq.NewTableVersionMap()
//	tv.ClaimExclusive()
//	tv.Put(tableID, newVersion)
//	tv.ReleaseExclusive()
//
// # Limitations
//
//   - Collision-suffixed names are not deterministic across retries of
//     the same logical DDL; a CommitOrRetry retry that re-requests a
//     colliding name may receive a different uuid suffix than its
//     previous attempt, though this is invisible to callers since the
//     old attempt's name was never committed.
//
// # See also
//
// Related packages:
//   - internal/schemamgr: the sole caller of NameGenerator and
//     TableVersionMap.
package nameseq
