// Package obs provides the structured logger used across the schema
// manager. It wraps zap.L(), the global package-level logger, the way
// the pack's wal.Consumer derives a request-scoped logger with
// zap.L().With(...): call With once per logical unit of work (a session,
// a transaction, a DDL) and log through the returned *zap.Logger for the
// rest of that unit's lifetime.
package obs

import "go.uber.org/zap"

// L returns the process-wide logger. Set it once at process startup with
// zap.ReplaceGlobals; everything in this repository logs through zap.L()
// rather than threading a logger through every call.
func L() *zap.Logger {
	return zap.L()
}

// Session returns a logger scoped to one session ID, the way
// wal.Consumer scopes a logger to one change's schema/table/kind before
// logging a sequence of related events.
func Session(sessionID string) *zap.Logger {
	return zap.L().With(zap.String("session", sessionID))
}

// Generation returns a logger scoped to one session and catalog
// generation, so every line logged through it carries both fields without
// re-specifying them.
func Generation(sessionID string, generation int64) *zap.Logger {
	return zap.L().With(
		zap.String("session", sessionID),
		zap.Int64("generation", generation),
	)
}
