package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(Handler(false, &buf))
	l.Debug("hidden")
	l.Info("shown", slog.String("k", "v"))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "k=v") {
		t.Fatalf("info line missing: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colour codes on a non-terminal writer: %q", out)
	}

	buf.Reset()
	slog.New(Handler(true, &buf)).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug handler dropped line: %q", buf.String())
	}
}
