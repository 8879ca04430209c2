package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GMAO_API_URL", "GMAO_TIMEOUT", "GMAO_FORMAT", "GMAO_LOG_LEVEL", "GMAO_LOG_FILE", "GMAO_CONFIG_DIR"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("api url: got %q", cfg.APIURL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Fatalf("timeout: got %v", cfg.Timeout)
	}
	if cfg.Log.File != filepath.Join(dir, "gmao.log") {
		t.Fatalf("log file: got %q", cfg.Log.File)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yml := "api_url: http://files.example/api/\ntimeout: 5s\nlog:\n  level: warn\n  file: custom.log\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	clearEnv(t)
	t.Setenv("GMAO_API_URL", "http://env.example/api")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://env.example/api" {
		t.Fatalf("env should win: got %q", cfg.APIURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout from file: got %v", cfg.Timeout)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("level from file: got %q", cfg.Log.Level)
	}
	if cfg.Log.File != filepath.Join(dir, "custom.log") {
		t.Fatalf("relative log file should resolve under dir: got %q", cfg.Log.File)
	}
}

func TestFileSetAndWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := &File{}
	if err := f.Set("api_url", "http://x/api"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Set("timeout", "nope"); err == nil {
		t.Fatalf("expected invalid timeout error")
	}
	if err := f.Set("colour", "red"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if err := WriteFile(dir, f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(dir)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.APIURL != "http://x/api" {
		t.Fatalf("got %+v", got)
	}
}
