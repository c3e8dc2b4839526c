package quadbatch

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip building attributes entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while a flush is logging on another goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for quadbatch and its sub-packages.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels used by quadbatch:
//   - [slog.LevelDebug]: merge decisions, per-flush statistics, program cache misses
//   - [slog.LevelInfo]: backend lifecycle (device attached, destroyed)
//   - [slog.LevelWarn]: skipped batches (texture instantiation, vertex or index allocation failures)
//
// Example:
//
//	quadbatch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Sub-packages (oplist, backend/wgpu)
// call this to share one configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
