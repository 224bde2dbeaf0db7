package observability

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("dept_id", 42).Info("scope resolved")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}

	if entry["msg"] != "scope resolved" {
		t.Errorf("expected msg %q, got %v", "scope resolved", entry["msg"])
	}
	if entry["dept_id"] != float64(42) {
		t.Errorf("expected dept_id 42, got %v", entry["dept_id"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Debug("suppressed")
	logger.Info("suppressed too")
	if buf.Len() != 0 {
		t.Errorf("expected debug/info to be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Error("expected warn message to be logged")
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(nil).Info("no error attached")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := entry["error"]; ok {
		t.Error("nil error should not add an error field")
	}
}
