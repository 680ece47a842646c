package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWithoutDebugIsNoop(t *testing.T) {
	tel, err := New(t.TempDir(), false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tel.Shutdown(context.Background())

	tel.Logger.Infow("this should not reach any file")
	if _, err := os.Stat(filepath.Join(t.TempDir(), "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("expected no debug.log without DEBUG, stat err=%v", err)
	}
}

func TestNewWithDebugWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	tel, err := New(dir, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tel.Shutdown(context.Background())

	tel.Logger.Infow("hello from debug mode")
	if err := tel.Logger.Sync(); err != nil {
		// Syncing stderr can fail harmlessly on some platforms/CI.
		t.Logf("sync: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	if err != nil {
		t.Fatalf("expected debug.log to exist: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected debug.log to contain at least one line")
	}
}

func TestMetricsRecordToolCall(t *testing.T) {
	m := NewMetrics()
	m.RecordToolCall("write_file", true, 10*time.Millisecond)
	m.RecordToolCall("write_file", false, 5*time.Millisecond)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "bailu_tool_calls_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations recorded, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Fatal("expected bailu_tool_calls_total metric family to be registered")
	}
}

func TestNewMetricsUsesIsolatedRegistry(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	if a.Registry == b.Registry {
		t.Fatal("expected each NewMetrics call to use its own registry")
	}
}
