package tui

import (
	"strconv"
	"strings"

	"gmao-cli/internal/attach"
	"gmao-cli/internal/lifecycle"
	"gmao-cli/internal/model"
	"gmao-cli/internal/notify"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

const detailFlowName = notify.DetailFlow

type fieldKind int

const (
	kindLine fieldKind = iota
	kindArea
	kindChoice
)

type choice struct {
	label string
	value string
}

// field is one editable row of the detail form. key is the name the server and the
// validation rules use for it.
type field struct {
	key   string
	label string
	kind  fieldKind

	input   textinput.Model
	area    textarea.Model
	options []choice
	sel     int
}

// cursorMode applies to every input the TUI creates.
var cursorMode = cursor.CursorBlink

func newInput() textinput.Model {
	in := textinput.New()
	in.Cursor.SetMode(cursorMode)
	return in
}

func lineField(key, label, value string) field {
	in := newInput()
	in.Prompt = ""
	in.SetValue(value)
	return field{key: key, label: label, kind: kindLine, input: in}
}

func areaField(key, label, value string, height int) field {
	ta := textarea.New()
	ta.Cursor.SetMode(cursorMode)
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(height)
	ta.SetValue(value)
	return field{key: key, label: label, kind: kindArea, area: ta}
}

func choiceField(key, label string, options []choice, value string) field {
	f := field{key: key, label: label, kind: kindChoice, options: options}
	for i, o := range options {
		if o.value == value {
			f.sel = i
			return f
		}
	}
	// Keep an unknown current value selectable so an untouched field stays unchanged.
	f.options = append([]choice{{orDash(value), value}}, options...)
	return f
}

func (f *field) value() string {
	switch f.kind {
	case kindArea:
		return f.area.Value()
	case kindChoice:
		if len(f.options) == 0 {
			return ""
		}
		return f.options[f.sel].value
	}
	return f.input.Value()
}

func (f *field) setValue(v string) {
	switch f.kind {
	case kindArea:
		f.area.SetValue(v)
	case kindLine:
		f.input.SetValue(v)
	}
}

func (f *field) focus() tea.Cmd {
	switch f.kind {
	case kindArea:
		return f.area.Focus()
	case kindLine:
		return f.input.Focus()
	}
	return nil
}

func (f *field) blur() {
	f.area.Blur()
	f.input.Blur()
}

func (f *field) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.kind {
	case kindArea:
		f.area, cmd = f.area.Update(msg)
	case kindLine:
		f.input, cmd = f.input.Update(msg)
	}
	return cmd
}

func (f *field) cycle(delta int) {
	if n := len(f.options); n > 0 {
		f.sel = (f.sel + delta + n) % n
	}
}

func (f *field) setWidth(w int) {
	f.input.Width = w
	f.area.SetWidth(w)
}

var typeChoices = []choice{
	{"Preventive", string(model.TypePreventive)},
	{"Corrective", string(model.TypeCorrective)},
	{"Hierarchical visit", string(model.TypeHierarchical)},
}

type detailView struct {
	gen  uint64
	task model.WorkOrder
	// back is where esc returns to.
	back screen

	sess   model.Session
	techs  []model.Technician
	chefs  []model.UserProfile
	access lifecycle.Access
	draft  lifecycle.Draft
	fields []field
	focus  int
	errs   lifecycle.FieldErrors
	stage  *attach.Stage

	width   int
	scroll  int
	loading bool
	partial bool
	saving  bool
}

func newDetailView(gen uint64, wo model.WorkOrder, sess model.Session, techs []model.Technician, chefs []model.UserProfile, width int) *detailView {
	d := &detailView{gen: gen, sess: sess, techs: techs, chefs: chefs, width: width, back: screenTasks}
	d.reset(wo)
	return d
}

// reset reseeds the form from wo, dropping unsaved edits.
func (d *detailView) reset(wo model.WorkOrder) {
	d.task = wo
	d.access = lifecycle.AccessFor(d.sess, wo)
	d.draft = lifecycle.NewDraft(wo, d.techs, d.chefs)
	d.errs = nil
	d.scroll = 0
	d.fields = d.buildFields()
	if d.focus >= len(d.fields) {
		d.focus = 0
	}
	d.setWidth(d.width)
	d.focusField()
}

func (d *detailView) buildFields() []field {
	a, dr := d.access, d.draft
	var fs []field
	if a.Core {
		fs = append(fs,
			lineField("ordre_value", "OI", dr.OrdreValue),
			choiceField("type", "Type", typeChoices, string(dr.Type)),
			areaField("tasks", "Description", dr.Description, 4),
		)
		if d.sess.IsAdmin() {
			assignee := ""
			if dr.AssigneeID != nil {
				assignee = strconv.Itoa(*dr.AssigneeID)
			}
			fs = append(fs, choiceField("assigned_to_profile_id", "Assignee", d.chefChoices(), assignee))
		}
		fs = append(fs,
			lineField("start_date", "Start date", dr.StartDate),
			lineField("start_time", "Start time", dr.StartTime),
			lineField("end_date", "End date", dr.EndDate),
		)
	}
	if a.Management {
		fs = append(fs,
			lineField("technicien_ids", "Technicians", strings.Join(dr.TechnicianIDs, ", ")),
			areaField("epi", "PPE", dr.PPE, 2),
			areaField("pdr", "Parts", dr.Parts, 2),
			lineField("estimated_hours", "Estimated hours", dr.EstimatedHours),
			lineField("hours_of_work", "Operating hours", dr.OperatingHours),
		)
	}
	if len(a.Statuses) > 0 {
		opts := []choice{{string(d.task.Status), string(d.task.Status)}}
		for _, s := range a.Statuses {
			opts = append(opts, choice{string(s), string(s)})
		}
		fs = append(fs, choiceField("status", "Status", opts, string(dr.Status)))
	}
	if a.Notes {
		fs = append(fs,
			areaField("note", "New note", "", 3),
			lineField("images", "Images", ""),
		)
	}
	return fs
}

func (d *detailView) chefChoices() []choice {
	out := []choice{{"(unassigned)", ""}}
	for _, c := range d.chefs {
		out = append(out, choice{c.Label(), strconv.Itoa(c.ID)})
	}
	return out
}

func (d *detailView) field(key string) *field {
	for i := range d.fields {
		if d.fields[i].key == key {
			return &d.fields[i]
		}
	}
	return nil
}

func (d *detailView) value(key string) string {
	if f := d.field(key); f != nil {
		return f.value()
	}
	return ""
}

// applyTo copies the form into dr. Groups the actor cannot edit keep their seeded values.
func (d *detailView) applyTo(dr *lifecycle.Draft) {
	for i := range d.fields {
		f := &d.fields[i]
		v := f.value()
		switch f.key {
		case "ordre_value":
			dr.OrdreValue = strings.TrimSpace(v)
		case "type":
			dr.Type = model.TaskType(v)
		case "tasks":
			dr.Description = v
		case "assigned_to_profile_id":
			dr.AssigneeID = nil
			if id, err := strconv.Atoi(v); err == nil {
				dr.AssigneeID = &id
			}
		case "start_date":
			dr.StartDate = strings.TrimSpace(v)
		case "start_time":
			dr.StartTime = strings.TrimSpace(v)
		case "end_date":
			dr.EndDate = strings.TrimSpace(v)
		case "technicien_ids":
			dr.TechnicianIDs = splitList(v)
		case "epi":
			dr.PPE = v
		case "pdr":
			dr.Parts = v
		case "estimated_hours":
			dr.EstimatedHours = strings.TrimSpace(v)
		case "hours_of_work":
			dr.OperatingHours = strings.TrimSpace(v)
		case "status":
			dr.Status = model.Status(v)
		case "note":
			dr.Note = v
		}
	}
}

// stageImages opens the image paths typed in the form, replacing any earlier stage.
func (d *detailView) stageImages() error {
	d.release()
	d.stage = attach.NewStage(0)
	for _, p := range splitList(d.value("images")) {
		if _, err := d.stage.Add(p); err != nil {
			return err
		}
	}
	return nil
}

func (d *detailView) release() {
	if d.stage != nil {
		_ = d.stage.Close()
		d.stage = nil
	}
}

func (d *detailView) focusField() tea.Cmd {
	for i := range d.fields {
		d.fields[i].blur()
	}
	if d.focus < 0 || d.focus >= len(d.fields) {
		return nil
	}
	return d.fields[d.focus].focus()
}

func (d *detailView) moveFocus(delta int) tea.Cmd {
	n := len(d.fields)
	if n == 0 {
		return nil
	}
	d.focus = (d.focus + delta + n) % n
	return d.focusField()
}

func (d *detailView) updateFocused(msg tea.Msg) tea.Cmd {
	if d.focus < 0 || d.focus >= len(d.fields) {
		return nil
	}
	return d.fields[d.focus].update(msg)
}

func (d *detailView) setWidth(w int) {
	d.width = w
	iw := w - 22
	if iw < 20 {
		iw = 20
	}
	for i := range d.fields {
		d.fields[i].setWidth(iw)
	}
}

func (d *detailView) help() string {
	if d == nil {
		return ""
	}
	parts := []string{}
	if len(d.fields) > 0 {
		parts = append(parts, "tab: next field", "←/→: choose", "ctrl+s: save")
	}
	if d.access.Delete {
		parts = append(parts, "ctrl+d: delete")
	}
	parts = append(parts, "ctrl+p: pdf", "ctrl+r: reload", "pgup/pgdn: scroll", "esc: back")
	return strings.Join(parts, "  ")
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (m *appModel) openDetail(wo model.WorkOrder) tea.Cmd {
	back := m.screen
	if back == screenDetail {
		back = screenTasks
	}
	m.closeDetail()
	gen := m.state.OpenFlow(detailFlowName)
	m.detail = newDetailView(gen, wo, m.session(), m.state.Technicians.Items(), m.state.Chefs.Items(), m.width)
	m.detail.back = back
	m.detail.loading = true
	m.setScreen(screenDetail)
	return m.fetchTaskCmd(gen, wo.ID)
}

func (m *appModel) closeDetail() {
	if m.detail == nil {
		return
	}
	m.detail.release()
	m.detail = nil
	m.state.CloseFlow(detailFlowName)
}

func (m appModel) onTaskLoaded(msg taskLoadedMsg) (tea.Model, tea.Cmd) {
	d := m.detail
	if d == nil || d.gen != msg.gen || !m.state.Current(detailFlowName, msg.gen) {
		return m, nil
	}
	d.loading = false
	if msg.err != nil {
		if d.task.Status == model.StatusLoading {
			back := d.back
			m.closeDetail()
			m.setScreen(back)
			return m, m.fail(msg.err)
		}
		d.partial = true
		m.log.WithError(msg.err).WithField("task", d.task.ID).Warn("task refresh failed; showing cached record")
		return m, m.fail(msg.err)
	}
	wo := msg.task
	wo.Normalize()
	m.state.Tasks.Upsert(wo, func(t model.WorkOrder) bool { return t.ID == wo.ID })
	m.rebuildTasks()
	d.partial = false
	d.reset(wo)
	return m, d.focusField()
}

func (m appModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.detail
	if d == nil {
		m.setScreen(screenTasks)
		return m, nil
	}
	switch msg.String() {
	case "esc":
		back := d.back
		m.closeDetail()
		m.setScreen(back)
		return m, nil
	case "tab":
		return m, d.moveFocus(1)
	case "shift+tab":
		return m, d.moveFocus(-1)
	case "pgdown":
		d.scroll += 5
		return m, nil
	case "pgup":
		d.scroll = max(d.scroll-5, 0)
		return m, nil
	case "ctrl+r":
		if d.task.ID > 0 {
			d.loading = true
			return m, m.fetchTaskCmd(d.gen, d.task.ID)
		}
		return m, nil
	case "ctrl+p":
		if d.task.ID > 0 {
			return m, m.printCmd(d.task.ID)
		}
		return m, nil
	case "ctrl+d":
		if d.access.Delete && !d.loading {
			m.modal = modalConfirmDelete
			m.confirmFocus = confirmFocusCancel
		}
		return m, nil
	case "ctrl+s":
		return m, m.saveDetail()
	case "left", "right":
		if d.focus < len(d.fields) && d.fields[d.focus].kind == kindChoice {
			delta := 1
			if msg.String() == "left" {
				delta = -1
			}
			d.fields[d.focus].cycle(delta)
			return m, nil
		}
	}
	if d.saving {
		return m, nil
	}
	return m, d.updateFocused(msg)
}

func (m *appModel) saveDetail() tea.Cmd {
	d := m.detail
	if d.loading || d.saving || d.gen == 0 || d.task.Status == model.StatusLoading {
		return nil
	}
	dr := d.draft
	d.applyTo(&dr)
	if err := d.stageImages(); err != nil {
		d.errs = lifecycle.FieldErrors{"images": err.Error()}
		d.release()
		return nil
	}
	ups, err := d.stage.Uploads()
	if err != nil {
		d.errs = lifecycle.FieldErrors{"images": err.Error()}
		d.release()
		return nil
	}
	dr.Images = ups
	d.errs = nil
	d.saving = true
	return m.saveCmd(d.gen, d.task, dr)
}

func (m appModel) onSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	d := m.detail
	if d == nil || d.gen != msg.gen || !m.state.Current(detailFlowName, msg.gen) {
		return m, nil
	}
	d.saving = false
	res := msg.res
	switch res.Outcome {
	case lifecycle.Invalid:
		d.errs = res.Fields
		d.release()
		m.state.SetBanner(warnBanner("Not saved: check the highlighted fields."))
	case lifecycle.Unchanged:
		d.release()
		m.state.SetBanner(infoBanner("Nothing to save."))
	case lifecycle.Failed:
		d.errs = res.Fields
		d.release()
		return m, m.fail(res.Err)
	case lifecycle.Updated, lifecycle.UpdatedButNoteFailed:
		m.state.Tasks.Upsert(res.Task, func(t model.WorkOrder) bool { return t.ID == res.Task.ID })
		m.rebuildTasks()
		note, images := d.value("note"), d.value("images")
		d.release()
		d.reset(res.Task)
		if res.Outcome == lifecycle.UpdatedButNoteFailed {
			if f := d.field("note"); f != nil {
				f.setValue(note)
			}
			if f := d.field("images"); f != nil {
				f.setValue(images)
			}
			m.log.WithError(res.Err).WithField("task", res.Task.ID).Warn("note not added")
			m.state.SetBanner(warnBanner("Saved " + res.Task.Label() + ", but the note was not added: " + res.Err.Error()))
			return m, d.focusField()
		}
		if res.Err != nil {
			m.log.WithError(res.Err).WithField("task", res.Task.ID).Warn("reload after save failed")
			m.state.SetBanner(warnBanner(res.Err.Error()))
			return m, d.focusField()
		}
		m.state.SetBanner(infoBanner("Saved " + res.Task.Label() + "."))
		return m, d.focusField()
	}
	return m, nil
}

func (m appModel) onDeleted(msg deletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.fail(msg.err)
	}
	m.state.Tasks.Remove(func(t model.WorkOrder) bool { return t.ID == msg.task.ID })
	if d := m.detail; d != nil && d.task.ID == msg.task.ID {
		back := d.back
		m.closeDetail()
		m.setScreen(back)
	}
	m.rebuildTasks()
	m.state.SetBanner(infoBanner("Deleted " + msg.task.Label() + "."))
	return m, nil
}

func (m appModel) viewDetail() string {
	d := m.detail
	if d == nil {
		return ""
	}
	w := max(m.width, 20)
	wo := d.task
	var b strings.Builder

	head := styleTitle().Render(wo.Label()) + "  " + styleStatus(wo.Status).Render(string(wo.Status))
	if wo.Type != "" {
		head += "  " + string(wo.Type)
	}
	if oi := wo.OrdreValue(); oi != "" {
		head += "  OI " + oi
	}
	switch {
	case d.loading:
		head += "  " + styleMuted().Render("loading…")
	case d.saving:
		head += "  " + styleMuted().Render("saving…")
	}
	if d.partial {
		head += "  " + lipgloss.NewStyle().Foreground(colorWarn).Render("(cached)")
	}
	if d.access.ReadOnly() {
		head += "  " + styleMuted().Render("read-only")
	}
	b.WriteString(head + "\n")

	info := []string{"Assignee: " + orDash(wo.AssignedToName)}
	if len(wo.TechnicianNames) > 0 {
		info = append(info, "Technicians: "+strings.Join(wo.TechnicianNames, ", "))
	}
	if !wo.UpdatedAt.IsZero() {
		info = append(info, "Updated "+humanize.Time(wo.UpdatedAt))
	}
	b.WriteString(styleMuted().Render(strings.Join(info, "  ")) + "\n")
	if len(d.access.Statuses) > 0 {
		moves := make([]string, 0, len(d.access.Statuses))
		for _, s := range d.access.Statuses {
			moves = append(moves, string(s))
		}
		b.WriteString(styleMuted().Render("Can move to: "+strings.Join(moves, ", ")) + "\n")
	}
	b.WriteString(strings.Repeat(glyphHRule(), w) + "\n")

	if len(d.fields) > 0 {
		for i := range d.fields {
			b.WriteString(d.renderField(i) + "\n")
		}
		if msg := d.errs["images"]; msg != "" && d.field("images") == nil {
			b.WriteString(lipgloss.NewStyle().Foreground(colorError).Render(msg) + "\n")
		}
		b.WriteString("\n")
	}
	if !d.access.Core {
		b.WriteString(styleTitle().Render("Description") + "\n")
		b.WriteString(orDash(renderMarkdown(wo.Description, w)) + "\n")
		if !d.access.Management {
			b.WriteString(readOnlyManagement(wo))
		}
		b.WriteString("\n")
	}

	b.WriteString(styleTitle().Render("Progress notes") + "\n")
	if len(wo.Notes) == 0 {
		b.WriteString(styleMuted().Render("No notes yet.") + "\n")
	}
	for _, n := range wo.Notes {
		meta := glyphBullet() + " " + n.Date.String()
		if n.AuthorUsername != "" {
			meta += " " + n.AuthorUsername
		}
		if len(n.Images) > 0 {
			meta += "  " + english.Plural(len(n.Images), "image", "images")
		}
		b.WriteString(styleMuted().Render(meta) + "\n")
		b.WriteString(renderMarkdown(n.Text, w-2) + "\n")
	}

	lines := strings.Split(b.String(), "\n")
	if d.scroll >= len(lines) {
		d.scroll = max(len(lines)-1, 0)
	}
	return strings.Join(lines[d.scroll:], "\n")
}

func (d *detailView) renderField(i int) string {
	f := &d.fields[i]
	label := pad(f.label, 18)
	if i == d.focus {
		label = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(label)
	} else {
		label = styleMuted().Render(label)
	}
	var body string
	switch f.kind {
	case kindChoice:
		cur := "-"
		if len(f.options) > 0 {
			cur = f.options[f.sel].label
		}
		if i == d.focus {
			cur = "‹ " + cur + " ›"
		}
		body = cur
	case kindArea:
		body = f.area.View()
	default:
		body = f.input.View()
	}
	out := lipgloss.JoinHorizontal(lipgloss.Top, label, " ", body)
	if msg := d.errs[f.key]; msg != "" {
		out += "\n" + pad("", 19) + lipgloss.NewStyle().Foreground(colorError).Render(msg)
	}
	return out
}

func readOnlyManagement(wo model.WorkOrder) string {
	rows := [][2]string{
		{"PPE", wo.RequiredPPE},
		{"Parts", wo.RequiredParts},
		{"Estimated hours", model.HoursPtrString(wo.EstimatedHours)},
		{"Operating hours", model.HoursPtrString(wo.ReportedOperating)},
		{"Start", strings.TrimSpace(model.DatePtrString(wo.StartDate) + " " + model.ShortTime(wo.StartTime))},
		{"End", model.DatePtrString(wo.EndDate)},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(styleMuted().Render(pad(r[0], 18)) + " " + orDash(r[1]) + "\n")
	}
	return b.String()
}
