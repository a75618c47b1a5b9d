package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/config"
)

func TestWithComponentAndError(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf).WithComponent("scheduler").WithField("sensor", "air")

	l.ErrorWithError(errors.New("no response"), "Read failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}

	want := map[string]string{
		"level":     "error",
		"component": "scheduler",
		"sensor":    "air",
		"error":     "no response",
		"message":   "Read failed",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("Expected %s=%q, got %v", k, v, entry[k])
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	l := NewLogger(&config.LoggingConfig{Level: "warn", Format: "json"})
	if l.GetLevel().String() != "warn" {
		t.Errorf("Expected warn level, got %s", l.GetLevel())
	}

	l = NewLogger(&config.LoggingConfig{Level: "bogus"})
	if l.GetLevel().String() != "info" {
		t.Errorf("Expected fallback to info, got %s", l.GetLevel())
	}
}
