package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_ConsoleDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	log, sync, err := New(Options{Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("quiet")
	log.Warn("loud", zap.String("k", "v"))
	sync()

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info should not reach the console: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn missing from console: %q", out)
	}
}

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	log, sync, err := New(Options{Console: &buf, JSON: true, ConsoleLevel: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("hello")
	sync()
	if !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Errorf("console output = %q, want JSON", buf.String())
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, _, err := New(Options{ConsoleLevel: "loud"}); err == nil {
		t.Error("expected error for unknown console level")
	}
}

func TestFileAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ptp.log")
	var console bytes.Buffer
	log, sync, err := New(Options{Level: "debug", File: path, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("first")
	log.Info("second", zap.Int("id", 7))
	log.Warn("third")
	sync()

	entries, err := Tail(path, "", 0)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Message != "third" || entries[2].Message != "first" {
		t.Errorf("entries not newest first: %+v", entries)
	}
	if entries[1].Fields["id"] != float64(7) {
		t.Errorf("fields = %v, want id=7", entries[1].Fields)
	}

	warns, err := Tail(path, "WARN", 0)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(warns) != 1 || warns[0].Message != "third" {
		t.Errorf("WARN filter = %+v", warns)
	}

	limited, _ := Tail(path, "", 2)
	if len(limited) != 2 || limited[0].Message != "third" {
		t.Errorf("limit = %+v", limited)
	}
}

func TestTail_MissingFile(t *testing.T) {
	entries, err := Tail(filepath.Join(t.TempDir(), "none.log"), "", 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}
