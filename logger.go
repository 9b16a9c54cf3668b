package globe

import (
	"log/slog"

	"github.com/gogpu/globe/internal/logging"
)

// SetLogger configures the logger for globe and all its sub-packages.
// By default, globe produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by globe:
//   - [slog.LevelDebug]: per-tile diagnostics (level zero tiles created, tile not found)
//   - [slog.LevelInfo]: lifecycle events (terrain provider replaced, layer attached)
//   - [slog.LevelWarn]: non-fatal issues (terrain or imagery request failed)
//
// Example:
//
//	// Enable info-level logging to stderr:
//	globe.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	globe.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by globe.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.L()
}
