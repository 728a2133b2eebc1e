package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := Setup(Options{Level: "info", File: path}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	Warn("structuring.skipped", map[string]any{"document_id": "doc-1"})
	Info("request.complete", nil)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines = append(lines, entry)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	first := lines[0]
	if first["msg"] != "structuring.skipped" || first["level"] != "warn" || first["document_id"] != "doc-1" {
		t.Fatalf("unexpected entry: %v", first)
	}
	if _, err := time.Parse(time.RFC3339, first["ts"].(string)); err != nil {
		t.Fatalf("ts not RFC3339: %v", first["ts"])
	}
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := Setup(Options{Level: "error", File: path}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	Info("dropped", nil)
	Warn("dropped", nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected no output, got %s", data)
	}
}

func TestDetachKeepsRequestID(t *testing.T) {
	ctx, cancel := context.WithCancel(WithRequestID(context.Background(), "req-1"))
	cancel()

	detached := Detach(ctx)
	if detached.Err() != nil {
		t.Fatalf("expected detached context to be live")
	}
	if got := RequestIDFromContext(detached); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
}
