// Package attach stages image files for a progress note. Every staged file holds an open
// handle until it is replaced, removed or the stage is closed.
package attach

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gmao-cli/internal/gateway"
)

const DefaultMaxBytes int64 = 10 * 1024 * 1024

var ErrClosed = errors.New("attach: stage closed")

// File describes one staged image.
type File struct {
	Path     string
	Name     string
	MimeType string
	Size     int64
}

type staged struct {
	File
	f *os.File
}

type Stage struct {
	mu       sync.Mutex
	maxBytes int64
	files    []*staged
	closed   bool
}

func NewStage(maxBytes int64) *Stage {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Stage{maxBytes: maxBytes}
}

func guessMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}

func (s *Stage) open(path string) (*staged, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if path == "" || path == "." {
		return nil, errors.New("attach: missing path")
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("attach: %s is a directory", path)
	}
	if st.Size() > s.maxBytes {
		return nil, fmt.Errorf("attach: %s too large (%d bytes > %d bytes)", filepath.Base(path), st.Size(), s.maxBytes)
	}
	mt := guessMimeType(path)
	if !strings.HasPrefix(mt, "image/") {
		return nil, fmt.Errorf("attach: %s is not an image", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &staged{
		File: File{Path: path, Name: filepath.Base(path), MimeType: mt, Size: st.Size()},
		f:    f,
	}, nil
}

// Add opens path and appends it.
func (s *Stage) Add(path string) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return File{}, ErrClosed
	}
	sf, err := s.open(path)
	if err != nil {
		return File{}, err
	}
	s.files = append(s.files, sf)
	return sf.File, nil
}

// Replace swaps file i for path, releasing the superseded handle.
func (s *Stage) Replace(i int, path string) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return File{}, ErrClosed
	}
	if i < 0 || i >= len(s.files) {
		return File{}, fmt.Errorf("attach: no staged file %d", i)
	}
	sf, err := s.open(path)
	if err != nil {
		return File{}, err
	}
	old := s.files[i]
	s.files[i] = sf
	return sf.File, old.f.Close()
}

func (s *Stage) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.files) {
		return fmt.Errorf("attach: no staged file %d", i)
	}
	old := s.files[i]
	s.files = append(s.files[:i], s.files[i+1:]...)
	return old.f.Close()
}

func (s *Stage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Uploads rewinds every handle and returns them as note uploads. The handles stay
// owned by the stage.
func (s *Stage) Uploads() ([]gateway.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]gateway.Upload, 0, len(s.files))
	for _, sf := range s.files {
		if _, err := sf.f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("attach: rewind %s: %w", sf.Name, err)
		}
		out = append(out, gateway.Upload{Name: sf.Name, Body: sf.f})
	}
	return out, nil
}

// Close releases every handle. Later calls are no-ops.
func (s *Stage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, sf := range s.files {
		errs = append(errs, sf.f.Close())
	}
	s.files = nil
	return errors.Join(errs...)
}
