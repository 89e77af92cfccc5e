package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetLevelFiltersRecords(t *testing.T) {
	h := NewHandler("test")
	ctx := context.Background()

	if !h.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("fresh handler should pass debug records")
	}

	h.SetLevel(slog.LevelWarn)
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info passed after raising the level to warn")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("error filtered after raising the level to warn")
	}
}

// Derived handlers share the options, so a level change at startup
// reaches loggers built before the config was parsed.
func TestSetLevelReachesDerivedHandlers(t *testing.T) {
	h := NewHandler("test")
	derived := h.WithAttrs([]slog.Attr{slog.String("component", "db")})

	h.SetLevel(slog.LevelError)
	if derived.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("derived handler kept the old level")
	}
}
