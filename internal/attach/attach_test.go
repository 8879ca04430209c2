package attach

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestStageAddAndUpload(t *testing.T) {
	dir := t.TempDir()
	s := NewStage(0)
	t.Cleanup(func() { _ = s.Close() })

	f, err := s.Add(writeFile(t, dir, "pump.png", "png-bytes"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if f.Name != "pump.png" || f.MimeType != "image/png" || f.Size != int64(len("png-bytes")) {
		t.Fatalf("file = %#v", f)
	}

	for round := 0; round < 2; round++ {
		ups, err := s.Uploads()
		if err != nil {
			t.Fatalf("Uploads: %v", err)
		}
		b, _ := io.ReadAll(ups[0].Body)
		if string(b) != "png-bytes" {
			t.Fatalf("round %d body = %q", round, b)
		}
	}
}

func TestStageRejects(t *testing.T) {
	dir := t.TempDir()
	s := NewStage(4)
	t.Cleanup(func() { _ = s.Close() })

	tests := []struct {
		path string
		want string
	}{
		{writeFile(t, dir, "notes.txt", "x"), "not an image"},
		{writeFile(t, dir, "big.jpg", "too many bytes"), "too large"},
		{dir, "directory"},
		{filepath.Join(dir, "missing.png"), "no such file"},
	}
	for _, tt := range tests {
		if _, err := s.Add(tt.path); err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("Add(%s) err = %v; want %q", filepath.Base(tt.path), err, tt.want)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("rejected files were staged")
	}
}

func TestStageReleasesHandles(t *testing.T) {
	dir := t.TempDir()
	s := NewStage(0)
	if _, err := s.Add(writeFile(t, dir, "a.png", "a")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(writeFile(t, dir, "b.png", "b")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	first := s.files[0].f

	if _, err := s.Replace(0, writeFile(t, dir, "c.png", "c")); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if _, err := first.Read(make([]byte, 1)); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("superseded handle still open: %v", err)
	}

	second := s.files[1].f
	if err := s.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := second.Read(make([]byte, 1)); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("removed handle still open: %v", err)
	}

	last := s.files[0].f
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := last.Read(make([]byte, 1)); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("handle open after Close: %v", err)
	}
	if _, err := s.Add(writeFile(t, dir, "d.png", "d")); !errors.Is(err, ErrClosed) {
		t.Fatalf("Add after Close err = %v", err)
	}
}
