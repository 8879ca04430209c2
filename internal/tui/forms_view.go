package tui

import (
	"errors"
	"strings"
	"time"

	"gmao-cli/internal/model"
	"gmao-cli/internal/notify"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// checklistView completes a preventive checklist. The cursor walks the items first,
// then the technicians.
type checklistView struct {
	form       *notify.ChecklistForm
	techs      []model.Technician
	picked     map[string]bool
	cursor     int
	notes      textinput.Model
	focusNotes bool
	err        string
	saving     bool
}

func newChecklistView(f *notify.ChecklistForm, techs []model.Technician) *checklistView {
	in := newInput()
	in.Prompt = "Notes: "
	in.Placeholder = "optional"
	return &checklistView{form: f, techs: techs, picked: map[string]bool{}, notes: in}
}

func (c *checklistView) rows() int { return len(c.form.Items) + len(c.techs) }

func (c *checklistView) toggle() {
	if c.cursor < len(c.form.Items) {
		c.form.Toggle(c.cursor)
		return
	}
	if i := c.cursor - len(c.form.Items); i < len(c.techs) {
		id := c.techs[i].ID
		c.picked[id] = !c.picked[id]
	}
}

// sync copies the technician picks and notes into the form, keeping technician order.
func (c *checklistView) sync() {
	c.form.TechnicianIDs = c.form.TechnicianIDs[:0]
	for _, t := range c.techs {
		if c.picked[t.ID] {
			c.form.TechnicianIDs = append(c.form.TechnicianIDs, t.ID)
		}
	}
	c.form.Notes = c.notes.Value()
}

func (m appModel) updateChecklist(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.checklist
	if c == nil || c.saving {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.checklist = nil
		m.setScreen(screenNotifications)
		return m, nil
	case "tab", "shift+tab":
		c.focusNotes = !c.focusNotes
		if c.focusNotes {
			return m, c.notes.Focus()
		}
		c.notes.Blur()
		return m, nil
	case "ctrl+s":
		c.sync()
		c.err = ""
		if len(c.form.Items) == 0 {
			c.err = notify.ErrNoChecklistItems.Error()
			return m, nil
		}
		c.saving = true
		return m, m.checklistCmd(c.form)
	}
	if c.focusNotes {
		var cmd tea.Cmd
		c.notes, cmd = c.notes.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "up", "k":
		if c.cursor > 0 {
			c.cursor--
		}
	case "down", "j":
		if c.cursor < c.rows()-1 {
			c.cursor++
		}
	case " ", "x", "enter":
		c.toggle()
	}
	return m, nil
}

func (m appModel) onChecklist(msg checklistMsg) (tea.Model, tea.Cmd) {
	c := m.checklist
	if c != nil {
		c.saving = false
	}
	if msg.err != nil {
		if c != nil && errors.Is(msg.err, notify.ErrNoChecklistItems) {
			c.err = msg.err.Error()
			return m, nil
		}
		return m, m.fail(msg.err)
	}
	m.checklist = nil
	m.setScreen(screenNotifications)
	m.rebuildTasks()
	m.state.SetBanner(infoBanner("Checklist submitted; created " + msg.task.Label() + "."))
	return m, nil
}

func (m appModel) viewChecklist() string {
	c := m.checklist
	if c == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(styleTitle().Render("Preventive checklist  OI "+orDash(c.form.OrderValue)) + "\n\n")
	if len(c.form.Items) == 0 {
		b.WriteString(styleMuted().Render("This notification lists no checklist items.") + "\n")
	}
	for i, it := range c.form.Items {
		box := glyphUnchecked()
		if it.Done {
			box = glyphChecked()
		}
		b.WriteString(cursorRow(!c.focusNotes && c.cursor == i, box+" "+it.Description) + "\n")
	}
	if len(c.techs) > 0 {
		b.WriteString("\n" + styleTitle().Render("Technicians") + "\n")
		for i, t := range c.techs {
			box := glyphUnchecked()
			if c.picked[t.ID] {
				box = glyphChecked()
			}
			row := len(c.form.Items) + i
			b.WriteString(cursorRow(!c.focusNotes && c.cursor == row, box+" "+t.Name+styleMuted().Render(" ("+t.ID+")")) + "\n")
		}
	}
	b.WriteString("\n" + c.notes.View() + "\n")
	if c.saving {
		b.WriteString(styleMuted().Render("Submitting…") + "\n")
	}
	if c.err != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(colorError).Render(c.err) + "\n")
	}
	return b.String()
}

func cursorRow(selected bool, s string) string {
	if selected {
		return lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(glyphArrow() + " " + s)
	}
	return "  " + s
}

// cycleView records a cycle visit in two steps: the outcome, then the dates.
type cycleView struct {
	form      *notify.CycleVisitForm
	next      textinput.Model
	performed textinput.Model
	onNext    bool
	errs      map[string]string
	saving    bool
}

func newCycleView(f *notify.CycleVisitForm, now time.Time) *cycleView {
	next := newInput()
	next.Prompt = pad("Next visit", 16)
	next.Placeholder = "YYYY-MM-DD"
	next.CharLimit = 10
	performed := newInput()
	performed.Prompt = pad("Performed on", 16)
	performed.Placeholder = "YYYY-MM-DD"
	performed.CharLimit = 10
	performed.SetValue(string(model.DateOf(now)))
	return &cycleView{form: f, next: next, performed: performed, onNext: true}
}

func (c *cycleView) focus() tea.Cmd {
	if !c.form.Decided() {
		c.next.Blur()
		c.performed.Blur()
		return nil
	}
	if c.onNext {
		c.performed.Blur()
		return c.next.Focus()
	}
	c.next.Blur()
	return c.performed.Focus()
}

func (c *cycleView) help() string {
	if c == nil {
		return ""
	}
	if !c.form.Decided() {
		return "a: accepted  f: failed  esc: cancel"
	}
	return "tab: next field  ctrl+s: submit  esc: back"
}

func (m appModel) updateCycleVisit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.cycle
	if c == nil || c.saving {
		return m, nil
	}
	if !c.form.Decided() {
		switch msg.String() {
		case "a", "y":
			c.form.Decide(true)
			return m, c.focus()
		case "f", "n":
			c.form.Decide(false)
			return m, c.focus()
		case "esc":
			m.cycle = nil
			m.setScreen(screenNotifications)
		}
		return m, nil
	}
	switch msg.String() {
	case "esc":
		c.form.Back()
		c.errs = nil
		return m, c.focus()
	case "tab", "shift+tab", "up", "down":
		c.onNext = !c.onNext
		return m, c.focus()
	case "ctrl+s", "enter":
		c.form.NextVisit = c.next.Value()
		c.form.Performed = c.performed.Value()
		if errs := c.form.Validate(m.now()); errs != nil {
			c.errs = errs
			return m, nil
		}
		c.errs = nil
		c.saving = true
		return m, m.cycleVisitCmd(c.form)
	}
	var cmd tea.Cmd
	if c.onNext {
		c.next, cmd = c.next.Update(msg)
	} else {
		c.performed, cmd = c.performed.Update(msg)
	}
	return m, cmd
}

func (m appModel) onCycleVisit(msg cycleVisitMsg) (tea.Model, tea.Cmd) {
	c := m.cycle
	if c != nil {
		c.saving = false
		c.errs = msg.fields
	}
	if msg.err != nil {
		return m, m.fail(msg.err)
	}
	if len(msg.fields) > 0 {
		return m, nil
	}
	m.cycle = nil
	m.setScreen(screenNotifications)
	m.state.SetBanner(infoBanner("Cycle visit recorded for OI " + msg.order.Value + "; next visit " + model.FormatDate(msg.order.NextCycleVisit) + "."))
	return m, nil
}

func (m appModel) viewCycleVisit() string {
	c := m.cycle
	if c == nil {
		return ""
	}
	o := c.form.Order
	errStyle := lipgloss.NewStyle().Foreground(colorError)
	var b strings.Builder
	b.WriteString(styleTitle().Render("Cycle visit  OI "+o.Value) + "\n")
	b.WriteString(styleMuted().Render("Planned: "+model.FormatDate(o.NextCycleVisit)+"  Last: "+model.FormatDate(o.LastVisitPerformed)+" ("+o.VisitOutcome()+")") + "\n\n")

	if !c.form.Decided() {
		b.WriteString("Was the visit accepted?\n\n")
		b.WriteString("  [a] Accepted    [f] Failed\n")
		return b.String()
	}
	outcome := "Accepted"
	if !*c.form.Accepted {
		outcome = "Failed"
	}
	b.WriteString("Outcome: " + outcome + "\n\n")
	b.WriteString(c.next.View() + "\n")
	if e := c.errs["date_prochaine_visite"]; e != "" {
		b.WriteString(errStyle.Render(e) + "\n")
	}
	b.WriteString(c.performed.View() + "\n")
	if e := c.errs["date_visite_effectuee"]; e != "" {
		b.WriteString(errStyle.Render(e) + "\n")
	}
	if e := c.errs["visite_acceptee"]; e != "" {
		b.WriteString(errStyle.Render(e) + "\n")
	}
	if c.saving {
		b.WriteString(styleMuted().Render("Submitting…") + "\n")
	}
	return b.String()
}
