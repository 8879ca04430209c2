package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gmao-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type rowItem interface {
	list.Item
	row(width int) string
}

// rowDelegate renders one dense line per item, with a selection bar instead of the
// default two-line delegate.
type rowDelegate struct{}

func (rowDelegate) Height() int                             { return 1 }
func (rowDelegate) Spacing() int                            { return 0 }
func (rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(rowItem)
	if !ok {
		return
	}
	width := m.Width()
	if width <= 0 {
		width = 80
	}
	line := fitLine("  "+it.row(width-2), width)
	if index == m.Index() {
		line = lipgloss.NewStyle().
			Background(colorSelectedBg).
			Foreground(colorSelectedFg).
			Render(fitLine(pick("▌ ", "> ")+it.row(width-2), width))
	}
	_, _ = fmt.Fprint(w, line)
}

func newRowList() list.Model {
	l := list.New(nil, rowDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("item", "items")
	return l
}

type taskItem struct{ wo model.WorkOrder }

func (i taskItem) FilterValue() string { return i.wo.Label() + " " + i.wo.Description }

func (i taskItem) row(width int) string {
	wo := i.wo
	assignee := wo.AssignedToName
	if assignee == "" {
		assignee = "-"
	}
	status := styleStatus(wo.Status).Render(pad(string(wo.Status), 12))
	updated := ""
	if !wo.UpdatedAt.IsZero() {
		updated = humanize.Time(wo.UpdatedAt)
	}
	head := pad(wo.Label(), 10) + " " + pad(orDash(wo.OrdreValue()), 10) + " " + status + " " + pad(truncate(assignee, 16), 16) + " "
	tail := " " + styleMuted().Render(updated)
	room := width - lipgloss.Width(head) - lipgloss.Width(tail)
	if room < 8 {
		room = 8
	}
	return head + pad(truncate(wo.Description, room), room) + tail
}

type notifItem struct{ n model.Notification }

func (i notifItem) FilterValue() string { return i.n.Message }

func (i notifItem) row(width int) string {
	n := i.n
	mark := " "
	if !n.Read {
		mark = lipgloss.NewStyle().Foreground(colorWarn).Render(glyphUnread())
	}
	when := ""
	if !n.Timestamp.IsZero() {
		when = humanize.Time(n.Timestamp)
	}
	head := mark + " " + pad(categoryLabel(n.Category), 10) + " " + pad(orDash(n.RelatedDisplay()), 10) + " "
	tail := " " + styleMuted().Render(when)
	room := width - lipgloss.Width(head) - lipgloss.Width(tail)
	if room < 8 {
		room = 8
	}
	msg := firstLine(n.Message)
	if n.Read {
		return head + styleMuted().Render(pad(truncate(msg, room), room)) + tail
	}
	return head + pad(truncate(msg, room), room) + tail
}

func categoryLabel(c model.Category) string {
	switch c {
	case model.CategoryCycleVisit:
		return "visit"
	case model.CategoryChecklist:
		return "checklist"
	case model.CategoryTask:
		return "task"
	}
	return "info"
}

func pad(s string, w int) string {
	if d := w - lipgloss.Width(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func itoa(i int) string { return strconv.Itoa(i) }
