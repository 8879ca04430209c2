// Package publish writes work orders as a small tree of markdown files that can be
// shared or committed elsewhere.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gmao-cli/internal/model"
)

type WriteOptions struct {
	// Title heads the index page.
	Title     string
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteTasks writes <toDir>/index.md and one <toDir>/tasks/<label>.md per work order.
// It stops on the first error; files already written stay.
func WriteTasks(ws []model.WorkOrder, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	title := strings.TrimSpace(opt.Title)
	if title == "" {
		title = "Work orders"
	}

	tasksDir := filepath.Join(toDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderIndexMarkdown(title, ws)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	written := []string{indexPath}
	for _, w := range ws {
		p := filepath.Join(tasksDir, w.Label()+".md")
		if err := writeFile(p, []byte(RenderTaskMarkdown(w)), opt.Overwrite); err != nil {
			return WriteResult{Written: written}, err
		}
		written = append(written, p)
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
