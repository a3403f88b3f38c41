package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestNewWithWriterFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "chatty")

	logger.Debug().Msg("debug")
	logger.Info().Msg("info")

	out := buf.String()
	if strings.Contains(out, `"message":"debug"`) {
		t.Fatalf("debug line should be filtered at info: %s", out)
	}
	if !strings.Contains(out, `"message":"info"`) {
		t.Fatalf("info line missing: %s", out)
	}
}
