package tui

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/gateway/gatewaytest"
	"gmao-cli/internal/model"
	"gmao-cli/internal/store"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
)

func init() {
	// Blinking cursors schedule timers; the driver runs commands inline.
	cursorMode = cursor.CursorStatic
}

// driver feeds messages to the model and runs the commands it returns inline, so a key
// press plays out all the way through the fake backend.
type driver struct {
	t    *testing.T
	srv  *gatewaytest.Server
	dir  string
	m    appModel
	quit bool
}

func newDriver(t *testing.T) *driver {
	t.Helper()
	srv := gatewaytest.New(t)
	srv.AddOrder(model.CostAllocationOrder{ID: "OI-42", Value: "OI-42"})
	srv.AddTechnician("T1", "Karim")
	d := &driver{t: t, srv: srv, dir: t.TempDir()}
	d.start()
	return d
}

// start builds a fresh model over the same backend and state directory, as a relaunch.
func (d *driver) start() {
	d.t.Helper()
	srv := d.srv
	d.m = newAppModel(context.Background(), Options{
		Store: store.New(d.dir),
		Client: func(token string) *gateway.Client {
			return gateway.New(srv.URL, gateway.WithToken(token))
		},
	})
	d.quit = false
	d.run(d.m.Init(), 0)
	d.send(tea.WindowSizeMsg{Width: 120, Height: 40})
}

func (d *driver) send(msg tea.Msg) {
	d.t.Helper()
	next, cmd := d.m.Update(msg)
	d.m = next.(appModel)
	d.run(cmd, 0)
}

func (d *driver) run(cmd tea.Cmd, depth int) {
	d.t.Helper()
	if cmd == nil {
		return
	}
	if depth > 20 {
		d.t.Fatalf("command chain does not settle")
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			d.run(c, depth+1)
		}
	case tea.QuitMsg:
		d.quit = true
	default:
		next, c := d.m.Update(msg)
		d.m = next.(appModel)
		d.run(c, depth+1)
	}
}

var namedKeys = map[string]tea.KeyType{
	"enter":     tea.KeyEnter,
	"tab":       tea.KeyTab,
	"shift+tab": tea.KeyShiftTab,
	"esc":       tea.KeyEsc,
	"up":        tea.KeyUp,
	"down":      tea.KeyDown,
	"left":      tea.KeyLeft,
	"right":     tea.KeyRight,
	"ctrl+s":    tea.KeyCtrlS,
	"ctrl+d":    tea.KeyCtrlD,
	"ctrl+c":    tea.KeyCtrlC,
	" ":         tea.KeySpace,
}

func (d *driver) key(k string) {
	d.t.Helper()
	if kt, ok := namedKeys[k]; ok {
		d.send(tea.KeyMsg{Type: kt})
		return
	}
	d.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func (d *driver) typeText(s string) {
	d.t.Helper()
	for _, r := range s {
		d.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (d *driver) login(username, password string) {
	d.t.Helper()
	d.typeText(username)
	d.key("enter")
	d.typeText(password)
	d.key("enter")
	if d.m.screen != screenTasks {
		d.t.Fatalf("login as %s: still on screen %v (%s)", username, d.m.screen, d.m.login.err)
	}
}

func (d *driver) addTask(status model.Status, assignee string) model.WorkOrder {
	pid := d.srv.ProfileID(assignee)
	return d.srv.AddTask(model.WorkOrder{
		Ordre:               &model.CostAllocationOrder{Value: "OI-42"},
		Type:                model.TypeCorrective,
		Status:              status,
		Description:         "Inspect the pump",
		AssignedToProfileID: &pid,
	})
}

func (d *driver) setField(key, v string) {
	d.t.Helper()
	f := d.m.detail.field(key)
	if f == nil {
		d.t.Fatalf("no %s field on %s", key, d.m.detail.task.Label())
	}
	f.setValue(v)
}

func (d *driver) banner() string { return d.m.state.Banner().Text }

func TestLoginPersistsSessionAndLoadsLists(t *testing.T) {
	d := newDriver(t)
	wo := d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)

	d.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)
	if got := d.m.session().Name; got != "Bruno Chef" {
		t.Fatalf("session name = %q", got)
	}
	items := d.m.tasksList.Items()
	if len(items) != 1 || items[0].(taskItem).wo.ID != wo.ID {
		t.Fatalf("task list = %v", items)
	}
	if !strings.Contains(d.m.View(), wo.Label()) {
		t.Fatalf("view does not show %s:\n%s", wo.Label(), d.m.View())
	}

	p, err := store.New(d.dir).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess, ok := p.Session(); !ok || sess.Username != gatewaytest.ChefUsername {
		t.Fatalf("persisted session = %+v", p)
	}

	d.start()
	if d.m.screen != screenTasks || len(d.m.tasksList.Items()) != 1 {
		t.Fatalf("relaunch did not restore the session: screen %v", d.m.screen)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	d := newDriver(t)
	d.typeText(gatewaytest.ChefUsername)
	d.key("enter")
	d.typeText("nope")
	d.key("enter")
	if d.m.screen != screenLogin {
		t.Fatalf("expected to stay on login; got %v", d.m.screen)
	}
	if d.m.login.err == "" {
		t.Fatalf("expected a login error")
	}
}

func TestStatusFilterIsPersisted(t *testing.T) {
	d := newDriver(t)
	d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)
	d.addTask(model.StatusInProgress, gatewaytest.ChefUsername)
	d.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	d.key("tab")
	if got := d.m.state.StatusFilter(); got != model.StatusAssigned {
		t.Fatalf("filter = %q", got)
	}
	if n := len(d.m.tasksList.Items()); n != 1 {
		t.Fatalf("expected 1 assigned task; got %d", n)
	}

	p, err := store.New(d.dir).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Filter != model.StatusAssigned {
		t.Fatalf("persisted filter = %q", p.Filter)
	}
}

func TestAllTabHidesClosedUntilAsked(t *testing.T) {
	d := newDriver(t)
	d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)
	d.addTask(model.StatusClosed, gatewaytest.ChefUsername)
	d.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	if n := len(d.m.tasksList.Items()); n != 1 {
		t.Fatalf("expected closed task hidden; got %d items", n)
	}
	d.key("c")
	if n := len(d.m.tasksList.Items()); n != 2 {
		t.Fatalf("expected closed task shown; got %d items", n)
	}
}

func TestChefFirstSubmissionStartsTask(t *testing.T) {
	d := newDriver(t)
	wo := d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)
	d.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)

	d.key("enter")
	if d.m.screen != screenDetail || d.m.detail.loading {
		t.Fatalf("detail not loaded: screen %v", d.m.screen)
	}
	if d.m.detail.field("ordre_value") != nil {
		t.Fatalf("chef must not get core fields")
	}
	d.setField("technicien_ids", "T1")
	d.setField("epi", "Gloves")
	d.setField("pdr", "Filter")
	d.setField("estimated_hours", "2")
	d.setField("hours_of_work", "1500")
	d.key("ctrl+s")

	if d.m.detail.task.Status != model.StatusInProgress {
		t.Fatalf("status = %q (errs %v, banner %q)", d.m.detail.task.Status, d.m.detail.errs, d.banner())
	}
	got, _ := d.srv.Task(wo.ID)
	if got.Status != model.StatusInProgress || len(got.TechnicianNames) != 1 {
		t.Fatalf("server task = %+v", got)
	}
	if !strings.HasPrefix(d.banner(), "Saved") {
		t.Fatalf("banner = %q", d.banner())
	}
}

func TestInvalidSaveShowsFieldErrorsAndSendsNothing(t *testing.T) {
	d := newDriver(t)
	d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)
	d.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)

	d.key("enter")
	d.setField("note", "started")
	d.key("ctrl+s")

	for _, k := range []string{"technicien_ids", "epi", "pdr"} {
		if d.m.detail.errs[k] == "" {
			t.Fatalf("expected error on %s; got %v", k, d.m.detail.errs)
		}
	}
	if n := d.srv.Calls(http.MethodPatch, "/tasks/{id}/"); n != 0 {
		t.Fatalf("expected no PATCH; got %d", n)
	}
	if got := d.m.detail.value("note"); got != "started" {
		t.Fatalf("draft note lost: %q", got)
	}
}

func TestClosedTaskIsReadOnlyForChef(t *testing.T) {
	d := newDriver(t)
	d.addTask(model.StatusClosed, gatewaytest.ChefUsername)
	d.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)

	d.key("c")
	d.key("enter")
	dv := d.m.detail
	if dv == nil || !dv.access.ReadOnly() {
		t.Fatalf("expected read-only detail")
	}
	if dv.field("epi") != nil || dv.field("status") != nil {
		t.Fatalf("closed task must not offer management fields or moves")
	}
	if dv.field("note") == nil {
		t.Fatalf("the assignee can still add notes")
	}
	d.key("ctrl+s")
	if n := d.srv.Calls(http.MethodPatch, "/tasks/{id}/"); n != 0 {
		t.Fatalf("expected no PATCH; got %d", n)
	}
	if d.banner() != "Nothing to save." {
		t.Fatalf("banner = %q", d.banner())
	}
	if !strings.Contains(d.m.View(), "read-only") {
		t.Fatalf("view does not flag read-only")
	}
}

func TestAdminDeleteNeedsConfirmation(t *testing.T) {
	d := newDriver(t)
	wo := d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)
	d.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)
	d.key("enter")

	d.key("ctrl+d")
	if d.m.modal != modalConfirmDelete {
		t.Fatalf("expected delete confirmation")
	}
	d.key("n")
	if _, ok := d.srv.Task(wo.ID); !ok {
		t.Fatalf("task deleted without confirmation")
	}

	d.key("ctrl+d")
	d.key("y")
	if _, ok := d.srv.Task(wo.ID); ok {
		t.Fatalf("task still on the server")
	}
	if d.m.screen != screenTasks || d.m.detail != nil {
		t.Fatalf("expected back on the task list; got %v", d.m.screen)
	}
	if n := len(d.m.tasksList.Items()); n != 0 {
		t.Fatalf("deleted task still listed")
	}
}

func TestStaleTaskLoadIsDropped(t *testing.T) {
	d := newDriver(t)
	wo := d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)
	d.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	d.key("enter")
	gen := d.m.detail.gen
	d.key("esc")
	d.send(taskLoadedMsg{gen: gen, task: wo})
	if d.m.detail != nil || d.m.screen != screenTasks {
		t.Fatalf("late load reopened the detail")
	}
}

func TestPermissionFailureReturnsToLogin(t *testing.T) {
	d := newDriver(t)
	d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)
	d.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	d.srv.FailNext(http.MethodGet, "/tasks/{id}/", http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
	d.key("enter")

	if d.m.screen != screenLogin {
		t.Fatalf("expected login screen; got %v", d.m.screen)
	}
	if !d.m.state.Banner().Relogin {
		t.Fatalf("banner = %+v", d.m.state.Banner())
	}
	p, _ := store.New(d.dir).Load(context.Background())
	if p.SignedIn() {
		t.Fatalf("session still persisted")
	}
}

func TestOpenTaskNotification(t *testing.T) {
	d := newDriver(t)
	wo := d.addTask(model.StatusInProgress, gatewaytest.ChefUsername)
	n := d.srv.Notify(gatewaytest.ChefUsername, model.Notification{
		Message:        "Task updated",
		Category:       model.CategoryTask,
		TaskRelated:    &wo.ID,
		TaskIdentifier: wo.Label(),
	})
	d.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)
	if d.m.state.UnreadCount() != 1 {
		t.Fatalf("unread = %d", d.m.state.UnreadCount())
	}

	d.key("n")
	d.key("enter")
	if d.m.screen != screenDetail || d.m.detail.task.ID != wo.ID || d.m.detail.loading {
		t.Fatalf("expected detail of %s; screen %v", wo.Label(), d.m.screen)
	}
	if got, _ := d.srv.Notification(n.ID); !got.Read {
		t.Fatalf("notification not marked read")
	}
	if d.m.state.UnreadCount() != 0 {
		t.Fatalf("unread = %d", d.m.state.UnreadCount())
	}

	d.key("esc")
	if d.m.screen != screenNotifications {
		t.Fatalf("esc should return to notifications; got %v", d.m.screen)
	}
}

func TestEscBeforeNotificationTaskLoadsStaysClosed(t *testing.T) {
	d := newDriver(t)
	wo := d.addTask(model.StatusInProgress, gatewaytest.ChefUsername)
	d.srv.Notify(gatewaytest.ChefUsername, model.Notification{
		Message:        "Task updated",
		Category:       model.CategoryTask,
		TaskRelated:    &wo.ID,
		TaskIdentifier: wo.Label(),
	})
	d.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)
	d.key("n")
	items := d.m.state.Notifications.Items()
	if len(items) != 1 {
		t.Fatalf("notifications = %d", len(items))
	}

	cmd := d.m.openNotification(items[0])
	if d.m.screen != screenDetail || d.m.detail == nil || !d.m.detail.loading {
		t.Fatalf("expected a loading detail; screen %v", d.m.screen)
	}
	if gen := d.m.detail.gen; gen == 0 || !d.m.state.Current(detailFlowName, gen) {
		t.Fatalf("detail flow not opened before the fetch: gen %d", gen)
	}
	d.key("esc")
	d.run(cmd, 0)
	if d.m.detail != nil || d.m.screen != screenNotifications {
		t.Fatalf("late fetch reopened the detail; screen %v", d.m.screen)
	}
}

func TestChecklistNotification(t *testing.T) {
	d := newDriver(t)
	oi := "OI-42"
	d.srv.Notify(gatewaytest.ChefUsername, model.Notification{
		Message:      "Preventive maintenance due:\n- Change oil\n- Check filter",
		Category:     model.CategoryChecklist,
		OrdreRelated: &oi,
		OrdreValue:   oi,
	})
	d.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)
	d.key("n")
	d.key("enter")
	if d.m.screen != screenChecklist {
		t.Fatalf("expected checklist; got %v (%q)", d.m.screen, d.banner())
	}
	if n := len(d.m.checklist.form.Items); n != 2 {
		t.Fatalf("items = %d", n)
	}

	d.key(" ")
	d.key("down")
	d.key("down")
	d.key(" ")
	d.key("ctrl+s")

	subs := d.srv.Checklists()
	if len(subs) != 1 {
		t.Fatalf("expected one submission; got %d", len(subs))
	}
	items := subs[0]["checklist_items"].([]any)
	if done := items[0].(map[string]any)["is_completed"]; done != true {
		t.Fatalf("first item not checked: %v", items[0])
	}
	if done := items[1].(map[string]any)["is_completed"]; done != false {
		t.Fatalf("second item checked: %v", items[1])
	}
	if ids, _ := subs[0]["technicien_ids"].([]any); len(ids) != 1 || ids[0] != "T1" {
		t.Fatalf("technicians = %v", subs[0]["technicien_ids"])
	}
	if d.m.screen != screenNotifications || !strings.Contains(d.banner(), "ORDT-") {
		t.Fatalf("screen %v banner %q", d.m.screen, d.banner())
	}
}

func TestCycleVisitNotification(t *testing.T) {
	d := newDriver(t)
	oi := "OI-42"
	d.srv.Notify(gatewaytest.ChefUsername, model.Notification{
		Message:      "Cycle visit due",
		Category:     model.CategoryCycleVisit,
		OrdreRelated: &oi,
		OrdreValue:   oi,
	})
	d.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)
	d.key("n")
	d.key("enter")
	if d.m.screen != screenCycleVisit {
		t.Fatalf("expected cycle visit form; got %v", d.m.screen)
	}

	d.key("ctrl+s")
	if d.m.cycle.form.Decided() {
		t.Fatalf("outcome decided without a choice")
	}
	d.key("a")
	d.key("ctrl+s")
	if d.m.cycle.errs["date_prochaine_visite"] == "" {
		t.Fatalf("expected next-visit error; got %v", d.m.cycle.errs)
	}
	if n := d.srv.Calls(http.MethodPost, "/ordres-imputation/{id}/update-cycle-visite/"); n != 0 {
		t.Fatalf("invalid form was sent")
	}

	d.typeText(time.Now().AddDate(0, 6, 0).Format(model.DateLayout))
	d.key("ctrl+s")
	o, _ := d.srv.Order(oi)
	if o.LastVisitAccepted == nil || !*o.LastVisitAccepted || o.NextCycleVisit == nil {
		t.Fatalf("visit not recorded: %+v", o)
	}
	if d.m.screen != screenNotifications {
		t.Fatalf("expected notifications; got %v", d.m.screen)
	}
}

func TestAdminCycleVisitIsInformational(t *testing.T) {
	d := newDriver(t)
	oi := "OI-42"
	d.srv.Notify(gatewaytest.AdminUsername, model.Notification{
		Message:      "Visit recorded",
		Category:     model.CategoryCycleVisit,
		OrdreRelated: &oi,
		OrdreValue:   oi,
	})
	d.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)
	d.key("n")
	d.key("enter")
	if d.m.modal != modalInfo || !strings.Contains(d.m.infoBody, "Next cycle visit") {
		t.Fatalf("expected OI summary; modal %v", d.m.modal)
	}
	d.key("enter")
	if d.m.modal != modalNone {
		t.Fatalf("modal not closed")
	}
}

func TestQuitSavesUIState(t *testing.T) {
	d := newDriver(t)
	wo := d.addTask(model.StatusAssigned, gatewaytest.ChefUsername)
	d.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)
	d.key("enter")
	d.key("ctrl+c")
	if !d.quit {
		t.Fatalf("ctrl+c did not quit")
	}
	ui, err := store.New(d.dir).LoadUIState()
	if err != nil {
		t.Fatalf("load ui state: %v", err)
	}
	if ui.OpenTaskID != wo.ID {
		t.Fatalf("open task = %d", ui.OpenTaskID)
	}

	d.start()
	if d.m.screen != screenDetail || d.m.detail == nil || d.m.detail.task.ID != wo.ID {
		t.Fatalf("detail not restored: screen %v", d.m.screen)
	}
}

func TestGlyphPreference(t *testing.T) {
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })
	applyGlyphPreference("ascii")
	if got := glyphChecked(); got != "[x]" {
		t.Fatalf("ascii checked glyph = %q", got)
	}
	applyGlyphPreference("bogus")
	if glyphs() != glyphSetASCII {
		t.Fatalf("unknown values must keep the current set")
	}
	applyGlyphPreference("")
	if got := glyphChecked(); got != "☑" {
		t.Fatalf("unicode checked glyph = %q", got)
	}
}

func TestNormalizePane(t *testing.T) {
	out := normalizePane("abcdef\nx", 4, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0] != "abc…" || lines[1] != "x   " || lines[2] != "    " {
		t.Fatalf("got %q", lines)
	}
}

func TestRenderMarkdownHasNoMargin(t *testing.T) {
	setMarkdownStyle("dark")
	t.Cleanup(func() { setMarkdownStyle("") })
	out := renderMarkdown("Replace the **filter**", 40)
	if !strings.Contains(out, "filter") {
		t.Fatalf("rendered = %q", out)
	}
	if strings.HasPrefix(out, " ") || strings.HasPrefix(out, "\n") {
		t.Fatalf("unexpected margin: %q", out)
	}
}
