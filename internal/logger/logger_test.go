package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gmao.log")
	l, err := Init(Options{Level: "debug", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	l.WithField("path", "/tasks/").Debug("request")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "path=/tasks/") {
		t.Fatalf("expected field in log, got %q", string(b))
	}
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := Init(Options{Level: "loud"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if l.GetLevel().String() != "info" {
		t.Fatalf("level: got %s", l.GetLevel())
	}
	if L() != l {
		t.Fatalf("L should return the initialized logger")
	}
}
