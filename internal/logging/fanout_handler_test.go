package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestFanoutHandlerHonoursPerHandlerLevel(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	debugLevel := new(slog.LevelVar)
	debugLevel.Set(slog.LevelDebug)
	warnLevel := new(slog.LevelVar)
	warnLevel.Set(slog.LevelWarn)

	logger := slog.New(newFanoutHandler(
		newPrettyHandler(&debugBuf, debugLevel, false, false),
		newPrettyHandler(&warnBuf, warnLevel, false, false),
	))
	logger.Info("info line")
	logger.Warn("warn line")

	if !strings.Contains(debugBuf.String(), "info line") || !strings.Contains(debugBuf.String(), "warn line") {
		t.Fatalf("debug handler missing lines: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "info line") || !strings.Contains(warnBuf.String(), "warn line") {
		t.Fatalf("warn handler output unexpected: %q", warnBuf.String())
	}
}

func TestFanoutHandlerCollapsesSingleHandler(t *testing.T) {
	lvl := new(slog.LevelVar)
	h := newPrettyHandler(&bytes.Buffer{}, lvl, false, false)
	if got := newFanoutHandler(nil, h); got != h {
		t.Fatal("expected single handler to be returned directly")
	}
	if _, ok := newFanoutHandler().(NoopHandler); !ok {
		t.Fatal("expected noop handler when none supplied")
	}
}
