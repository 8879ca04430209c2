package publish

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"gmao-cli/internal/model"
)

// RenderTaskMarkdown renders one work order, its notes included, as a standalone page.
func RenderTaskMarkdown(w model.WorkOrder) string {
	w.Notes = append([]model.AdvancementNote(nil), w.Notes...)
	w.Normalize()

	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}
	meta := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			writeLn("- " + label + ": " + v)
		}
	}

	writeLn("# " + w.Label())
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	meta("OI", w.OrdreValue())
	meta("Type", string(w.Type))
	meta("Status", string(w.Status))
	meta("Assigned", w.AssignedToName)
	meta("Technicians", strings.Join(w.TechnicianNames, ", "))
	meta("Start", strings.TrimSpace(model.DatePtrString(w.StartDate)+" "+model.ShortTime(w.StartTime)))
	meta("End", model.DatePtrString(w.EndDate))
	meta("Estimated hours", model.HoursPtrString(w.EstimatedHours))
	meta("Operating hours", model.HoursPtrString(w.ReportedOperating))
	meta("EPI", w.RequiredPPE)
	meta("PDR", w.RequiredParts)
	if w.PermitRequired {
		writeLn("- Work permit: required")
	}
	meta("Closed", w.ClosedAt)
	if !w.CreatedAt.IsZero() {
		writeLn("- Created: " + w.CreatedAt.UTC().Format(time.RFC3339))
	}
	if !w.UpdatedAt.IsZero() {
		writeLn("- Updated: " + w.UpdatedAt.UTC().Format(time.RFC3339))
	}

	if desc := strings.TrimSpace(w.Description); desc != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(desc)
	}

	notes := w.Notes
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Date != notes[j].Date {
			return notes[i].Date < notes[j].Date
		}
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
	if len(notes) > 0 {
		writeLn("")
		writeLn("## Notes")
		for _, n := range notes {
			writeLn("")
			head := "### " + string(n.Date)
			if a := strings.TrimSpace(n.AuthorUsername); a != "" {
				head += " (" + a + ")"
			}
			writeLn(head)
			writeLn("")
			if txt := strings.TrimSpace(n.Text); txt != "" {
				writeLn(txt)
			}
			for _, img := range n.Images {
				if u := strings.TrimSpace(img.URL); u != "" {
					writeLn("")
					writeLn("![](" + u + ")")
				}
			}
		}
	}

	return buf.String()
}

// RenderIndexMarkdown renders a table of the exported work orders, most recently
// updated first, linking each page under tasks/.
func RenderIndexMarkdown(title string, ws []model.WorkOrder) string {
	ws = append([]model.WorkOrder(nil), ws...)
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].UpdatedAt.After(ws[j].UpdatedAt) })

	var buf bytes.Buffer
	buf.WriteString("# " + title + "\n\n")
	if len(ws) == 0 {
		buf.WriteString("No work orders.\n")
		return buf.String()
	}
	buf.WriteString("| ID | OI | Type | Status | Assigned | Start |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, w := range ws {
		cells := []string{
			"[" + w.Label() + "](tasks/" + w.Label() + ".md)",
			w.OrdreValue(),
			string(w.Type),
			string(w.Status),
			w.AssignedToName,
			model.DatePtrString(w.StartDate),
		}
		for i := range cells {
			cells[i] = strings.ReplaceAll(cells[i], "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return buf.String()
}
