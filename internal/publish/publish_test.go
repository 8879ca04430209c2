package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gmao-cli/internal/model"
)

func sampleTasks() []model.WorkOrder {
	start := model.Date("2026-03-02")
	est := model.Hours(4)
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return []model.WorkOrder{
		{
			ID:             7,
			Ordre:          &model.CostAllocationOrder{ID: "oi-1", Value: "OI-100"},
			Type:           model.TypeCorrective,
			Status:         model.StatusInProgress,
			AssignedToName: "Bruno Chef",
			Description:    "Replace the pump seal",
			StartDate:      &start,
			EstimatedHours: &est,
			PermitRequired: true,
			Notes: []model.AdvancementNote{
				{ID: 2, Date: "2026-03-03", Text: "seal fitted", AuthorUsername: "chef"},
				{ID: 1, Date: "2026-03-02", Text: "parts ordered", Images: []model.NoteImage{{URL: "http://x/img.png"}}},
			},
			UpdatedAt: t0,
		},
		{ID: 9, DisplayID: "ORDT-9", Status: model.StatusClosed, Description: "Oil | filter", UpdatedAt: t0.Add(time.Hour)},
	}
}

func TestRenderTaskMarkdown(t *testing.T) {
	ws := sampleTasks()
	md := RenderTaskMarkdown(ws[0])

	for _, want := range []string{"# ORDT-7", "- OI: OI-100", "- Status: in progress", "- Work permit: required", "## Description", "![](http://x/img.png)"} {
		if !strings.Contains(md, want) {
			t.Fatalf("missing %q in:\n%s", want, md)
		}
	}
	if strings.Index(md, "parts ordered") > strings.Index(md, "seal fitted") {
		t.Fatalf("notes should be in date order:\n%s", md)
	}
	if ws[0].Notes[0].TaskDisplayID != "" || ws[0].Notes[0].ID != 2 {
		t.Fatalf("render must not touch the caller's notes: %#v", ws[0].Notes)
	}
}

func TestRenderIndexMarkdown(t *testing.T) {
	md := RenderIndexMarkdown("Closed work", sampleTasks())
	if !strings.HasPrefix(md, "# Closed work\n") {
		t.Fatalf("title:\n%s", md)
	}
	if strings.Index(md, "ORDT-9") > strings.Index(md, "ORDT-7") {
		t.Fatalf("most recently updated first:\n%s", md)
	}
	if !strings.Contains(md, "[ORDT-7](tasks/ORDT-7.md)") {
		t.Fatalf("missing link:\n%s", md)
	}
	if got := RenderIndexMarkdown("Empty", nil); !strings.Contains(got, "No work orders.") {
		t.Fatalf("empty index:\n%s", got)
	}
}

func TestWriteTasks(t *testing.T) {
	dir := t.TempDir()
	res, err := WriteTasks(sampleTasks(), dir, WriteOptions{})
	if err != nil {
		t.Fatalf("WriteTasks: %v", err)
	}
	want := []string{
		filepath.Join(dir, "index.md"),
		filepath.Join(dir, "tasks", "ORDT-7.md"),
		filepath.Join(dir, "tasks", "ORDT-9.md"),
	}
	if strings.Join(res.Written, ",") != strings.Join(want, ",") {
		t.Fatalf("written = %v, want %v", res.Written, want)
	}
	for _, p := range want {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
	}

	if _, err := WriteTasks(sampleTasks(), dir, WriteOptions{}); err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("second write without overwrite: %v", err)
	}
	if _, err := WriteTasks(sampleTasks(), dir, WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := WriteTasks(nil, " ", WriteOptions{}); err == nil {
		t.Fatalf("empty dir accepted")
	}
}
