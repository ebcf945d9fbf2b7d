package schemamgr

import (
	"errors"
	"fmt"

	"github.com/dreamware/aisdb/internal/aiscodec"
	"github.com/dreamware/aisdb/internal/catalog"
	"github.com/dreamware/aisdb/internal/kv"
)

// ErrCatalogTooLarge is re-exported from internal/aiscodec so callers of
// this package never need to import aiscodec directly just to check an
// error kind.
type ErrCatalogTooLarge = aiscodec.ErrCatalogTooLarge

// ErrStoreUnavailable is returned when the KV gateway fails non-transiently.
var ErrStoreUnavailable = kv.ErrStoreUnavailable

// ErrQueryCanceled wraps kv.ErrQueryCanceled with the session that was
// interrupted, so callers can log or route by session without a type
// assertion.
type ErrQueryCanceled struct {
	Session SessionID
}

func (e *ErrQueryCanceled) Error() string {
	return fmt.Sprintf("schemamgr: query canceled for session %q", e.Session)
}

func (e *ErrQueryCanceled) Unwrap() error {
	return kv.ErrQueryCanceled
}

// ErrValidationFailure is re-exported from internal/catalog.
var ErrValidationFailure = catalog.ErrValidationFailure

// ErrWrongTransactionService names a kv.Gateway incompatible with the one
// the session service expects. Nothing in this package returns it:
// NewManager accepts any kv.Gateway and performs no compatibility check.
var ErrWrongTransactionService = errors.New("schemamgr: wrong transaction service")

// ErrInternalInvariant names a state the manager's own invariants say is
// impossible. Nothing in this package returns it.
var ErrInternalInvariant = errors.New("schemamgr: internal invariant violated")
