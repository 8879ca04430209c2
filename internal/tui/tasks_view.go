package tui

import (
	"sort"
	"strings"

	"gmao-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var statusTabs = []struct {
	label  string
	status model.Status
}{
	{"All", ""},
	{"Assigned", model.StatusAssigned},
	{"In progress", model.StatusInProgress},
	{"Closed", model.StatusClosed},
}

func tabIndex(st model.Status) int {
	for i, t := range statusTabs {
		if t.status == st {
			return i
		}
	}
	return 0
}

// visibleTasks applies the status filter. The "All" tab hides closed work orders unless
// they were asked for.
func (m appModel) visibleTasks() []model.WorkOrder {
	filter := m.state.StatusFilter()
	out := []model.WorkOrder{}
	for _, wo := range m.state.Tasks.Items() {
		switch {
		case filter != "" && wo.Status != filter:
			continue
		case filter == "" && !m.showClosed && wo.Status == model.StatusClosed:
			continue
		}
		out = append(out, wo)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *appModel) rebuildTasks() {
	sel := 0
	if it, ok := m.tasksList.SelectedItem().(taskItem); ok {
		sel = it.wo.ID
	}
	tasks := m.visibleTasks()
	items := make([]list.Item, 0, len(tasks))
	idx := 0
	for i, wo := range tasks {
		if wo.ID == sel {
			idx = i
		}
		items = append(items, taskItem{wo: wo})
	}
	m.tasksList.SetItems(items)
	m.tasksList.Select(idx)
}

func (m appModel) onSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	m.state.ApplySnapshot(msg.tickets, msg.snap)
	m.rebuildTasks()
	m.rebuildNotifications()

	var cmds []tea.Cmd
	if err := msg.snap.Err(); err != nil {
		m.log.WithError(err).Warn("refresh incomplete")
		cmds = append(cmds, m.fail(err))
	}
	if id := m.restoreTaskID; id > 0 && m.client != nil {
		m.restoreTaskID = 0
		if wo, ok := m.state.Tasks.Find(func(w model.WorkOrder) bool { return w.ID == id }); ok {
			cmds = append(cmds, m.openDetail(wo))
		}
	}
	return m, tea.Batch(cmds...)
}

func (m appModel) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "enter":
		if it, ok := m.tasksList.SelectedItem().(taskItem); ok {
			return m, m.openDetail(it.wo)
		}
		return m, nil
	case "tab", "shift+tab":
		i := tabIndex(m.state.StatusFilter())
		if msg.String() == "tab" {
			i = (i + 1) % len(statusTabs)
		} else {
			i = (i + len(statusTabs) - 1) % len(statusTabs)
		}
		st := statusTabs[i].status
		m.state.SetStatusFilter(st)
		m.rebuildTasks()
		return m, m.saveFilterCmd(st)
	case "c":
		m.showClosed = !m.showClosed
		m.rebuildTasks()
		return m, nil
	case "n":
		m.setScreen(screenNotifications)
		return m, nil
	case "r":
		return m, m.refreshCmd()
	case "L":
		m.modal = modalConfirmLogout
		m.confirmFocus = confirmFocusCancel
		return m, nil
	}
	var cmd tea.Cmd
	m.tasksList, cmd = m.tasksList.Update(msg)
	return m, cmd
}

func (m appModel) viewTasks() string {
	current := tabIndex(m.state.StatusFilter())
	tabs := make([]string, 0, len(statusTabs))
	for i, t := range statusTabs {
		st := lipgloss.NewStyle().Padding(0, 1)
		if i == current {
			st = st.Bold(true).Foreground(colorAccentFg).Background(colorAccent)
		} else {
			st = st.Foreground(colorMuted)
		}
		tabs = append(tabs, st.Render(t.label))
	}
	bar := strings.Join(tabs, " ")
	if current == 0 && m.showClosed {
		bar += styleMuted().Render("  (closed shown)")
	}

	var body string
	switch {
	case !m.state.Tasks.Loaded() && m.loading:
		body = styleMuted().Render("Loading work orders…")
	case len(m.tasksList.Items()) == 0:
		body = styleMuted().Render("No work orders.")
	default:
		body = m.tasksList.View()
	}
	return bar + "\n" + strings.Repeat(glyphHRule(), max(m.width, 1)) + "\n" + body
}
