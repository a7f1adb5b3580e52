package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelInfo)

	Debug("hidden")
	Info("shown", "k", 1)
	Error("failed", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at INFO level: %q", out)
	}
	if !strings.Contains(out, "[INFO] shown k=1") {
		t.Fatalf("missing info line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed err=boom") {
		t.Fatalf("missing error line: %q", out)
	}
}

func TestWithPrefixesPairs(t *testing.T) {
	buf := capture(t)

	l := With("band", "power").With("layer", 0)
	l.Info("repaint", "coords", 3)

	if !strings.Contains(buf.String(), "repaint band=power layer=0 coords=3") {
		t.Fatalf("unexpected line: %q", buf.String())
	}
}

func TestFormatKVsQuotesAndDropsOdd(t *testing.T) {
	got := formatKVs([]any{"label", "two words", 5, "x", "dangling"})
	if got != ` label="two words"` {
		t.Fatalf("formatKVs = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": LevelDebug,
		"ERROR": LevelError,
		"":      LevelInfo,
		"warn":  LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
