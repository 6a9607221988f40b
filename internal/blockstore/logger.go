package blockstore

import (
	"log/slog"
)

// Logger is the subset of *slog.Logger the engine relies on, so callers
// can supply any compatible structured logger. A nil [Options.Logger]
// falls back to [slog.Default].
//
// Logging happens only around format/version-rollback/snapshot-rollback
// boundaries, never on the per-block write path - the same "stay quiet in
// tight loops" discipline the teacher repo's own stdout/stderr writers
// followed.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

func resolveLogger(l Logger) Logger {
	if l != nil {
		return l
	}

	return slog.Default()
}

var _ Logger = (*slog.Logger)(nil)
