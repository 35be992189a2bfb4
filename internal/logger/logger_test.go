package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "anchor", "info", "auto")
	l.Info().Str("patient_id", "p1").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "anchor" {
		t.Errorf("expected service=anchor, got %v", entry["service"])
	}
	if entry["patient_id"] != "p1" {
		t.Errorf("expected patient_id=p1, got %v", entry["patient_id"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp")
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "anchor", "warn", "json")
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestNew_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "anchor", "loud", "json")
	l.Debug().Msg("debug")
	l.Info().Msg("info")

	out := buf.String()
	if strings.Contains(out, `"debug"`) {
		t.Errorf("debug should be filtered: %q", out)
	}
	if !strings.Contains(out, `"info"`) {
		t.Errorf("info missing: %q", out)
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "anchor", "info", "console")
	l.Info().Msg("hello")

	if json.Valid(buf.Bytes()) {
		t.Errorf("expected console output, got JSON %q", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("message missing: %q", buf.String())
	}
}
