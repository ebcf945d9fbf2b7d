package kv

import "errors"

// ErrStoreUnavailable is returned when the KV store fails non-transiently
// (as opposed to a transient conflict, which CommitOrRetry reports by
// returning true rather than an error). Per spec §7, this aborts the
// caller's transaction and is surfaced rather than retried.
var ErrStoreUnavailable = errors.New("kv: store unavailable")

// ErrQueryCanceled is returned when a context passed to Begin, Get, Set,
// Clear, RangeStartsWith, or CommitOrRetry is canceled or deadline-exceeded
// mid-operation. Per spec §7 this maps 1:1 from the KV store's own
// interruption signal; internal/schemamgr re-wraps it with the session
// that was interrupted.
var ErrQueryCanceled = errors.New("kv: query canceled")
