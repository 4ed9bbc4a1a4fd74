package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"metobs/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, config.LogConfig{Level: "warn", Env: "prod"}, "collect")

	logger.Info("dropped")
	logger.Warn("kept", "station", "18700")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "kept" || entry["app"] != "collect" || entry["env"] != "prod" || entry["station"] != "18700" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLogger_Dev(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, config.LogConfig{Level: "debug"}, "metobs")

	logger.Debug("fetched chunk", "rows", 4)

	out := buf.String()
	if !strings.Contains(out, "fetched chunk") || !strings.Contains(out, "rows") {
		t.Errorf("dev output = %q", out)
	}
	if json.Valid([]byte(strings.TrimSpace(out))) {
		t.Error("dev logger should not write JSON")
	}
}
