package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteProducesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	ctx := WithRequestID(context.Background(), "req-1")
	Info("bulk_save_committed", Fields(ctx, map[string]any{"items": 3}))

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q (%v)", line, err)
	}
	if entry["msg"] != "bulk_save_committed" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("request id missing: %v", entry)
	}
	if entry["items"] != float64(3) {
		t.Fatalf("items field missing: %v", entry)
	}
	if _, ok := entry["ts"].(string); !ok {
		t.Fatalf("ts missing: %v", entry)
	}
}

func TestDebugHonorsSetDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	SetDebug(false)
	Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug line written while debug disabled: %q", buf.String())
	}

	SetDebug(true)
	defer SetDebug(false)
	Debug("shown", nil)
	if !strings.Contains(buf.String(), `"shown"`) {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}
