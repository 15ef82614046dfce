// Package medlog is a thin wrapper around log/slog for the handful of
// places a MED read path needs to surface something to the caller without
// failing outright: CRC-mismatch warnings (spec.md §7) and password-hint
// diagnostics. It replaces the original implementation's colored,
// suppressible stderr messages with structured slog records; suppression
// is just the caller installing a no-op handler or a higher level.
package medlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	current = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// SetDefault replaces the logger medlog's package-level functions write to.
// Tests and callers that want MED's warnings suppressed or redirected
// install a logger here (e.g. one backed by slog.DiscardHandler or a
// buffered handler for assertions).
func SetDefault(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// WarnCRCMismatch logs a non-fatal CRC mismatch (spec.md §4.1/§7: "warn,
// continue" unless the caller's CRC mode mandates otherwise). component
// and path identify what failed validation, got/want are the computed and
// stored checksums.
func WarnCRCMismatch(component, path string, got, want uint32) {
	logger().LogAttrs(context.Background(), slog.LevelWarn, "crc mismatch",
		slog.String("component", component),
		slog.String("path", path),
		slog.String("got", fmt.Sprintf("%#08x", got)),
		slog.String("want", fmt.Sprintf("%#08x", want)),
	)
}

// WarnPasswordHint logs a non-fatal password-validation anomaly, e.g. a
// level-1/level-2 hint mismatch encountered while deriving keys.
func WarnPasswordHint(path, detail string) {
	logger().LogAttrs(context.Background(), slog.LevelWarn, "password hint mismatch",
		slog.String("path", path),
		slog.String("detail", detail),
	)
}
