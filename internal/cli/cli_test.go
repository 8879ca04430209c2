package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gmao-cli/internal/gateway/gatewaytest"
	"gmao-cli/internal/model"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// harness runs commands against one fake backend and one state directory.
type harness struct {
	t   *testing.T
	srv *gatewaytest.Server
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("GMAO_API_URL", "")
	t.Setenv("GMAO_FORMAT", "")
	return &harness{t: t, srv: gatewaytest.New(t), dir: t.TempDir()}
}

func (h *harness) args(args ...string) []string {
	return append([]string{"--config-dir", h.dir, "--api", h.srv.URL}, args...)
}

// run executes a command that must succeed and returns its data envelope.
func (h *harness) run(args ...string) any {
	h.t.Helper()
	stdout, stderr, err := runCLI(h.t, h.args(args...))
	if err != nil {
		h.t.Fatalf("gmao %v failed: %v\nstderr:\n%s", args, err, stderr)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		h.t.Fatalf("gmao %v: stdout is not a JSON envelope: %v\n%s", args, err, stdout)
	}
	data, ok := env["data"]
	if !ok {
		h.t.Fatalf("gmao %v: missing data key: %s", args, stdout)
	}
	return data
}

// fail executes a command that must fail and returns its stderr.
func (h *harness) fail(args ...string) string {
	h.t.Helper()
	stdout, stderr, err := runCLI(h.t, h.args(args...))
	if err == nil {
		h.t.Fatalf("gmao %v: expected failure, got stdout:\n%s", args, stdout)
	}
	return string(stderr)
}

func (h *harness) login(username, password string) {
	h.t.Helper()
	h.run("login", "--username", username, "--password", password)
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	if msg := h.fail("whoami"); !strings.Contains(msg, "not logged in") {
		t.Fatalf("whoami before login: %q", msg)
	}
	h.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)

	me := h.run("whoami").(map[string]any)
	if me["username"] != "chef" || me["role"] != string(model.RoleChef) {
		t.Fatalf("whoami = %#v", me)
	}
	if _, leaked := me["token"]; leaked {
		t.Fatalf("token printed: %#v", me)
	}

	h.run("logout")
	if msg := h.fail("whoami"); !strings.Contains(msg, "not logged in") {
		t.Fatalf("whoami after logout: %q", msg)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newHarness(t)
	msg := h.fail("login", "--username", "chef", "--password", "nope")
	if !strings.Contains(msg, "Unable to log in") {
		t.Fatalf("stderr = %q", msg)
	}
}

func TestTasksListRemembersFilter(t *testing.T) {
	h := newHarness(t)
	chef := h.srv.ProfileID(gatewaytest.ChefUsername)
	h.srv.AddTask(model.WorkOrder{Status: model.StatusAssigned, AssignedToProfileID: &chef, Description: "open"})
	h.srv.AddTask(model.WorkOrder{Status: model.StatusClosed, AssignedToProfileID: &chef, Description: "done"})
	h.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	if got := h.run("tasks", "list").([]any); len(got) != 2 {
		t.Fatalf("unfiltered list: %d tasks", len(got))
	}
	closed := h.run("tasks", "list", "--status", "closed").([]any)
	if len(closed) != 1 || closed[0].(map[string]any)["status"] != "closed" {
		t.Fatalf("closed list = %#v", closed)
	}
	// The filter sticks for later runs.
	if again := h.run("tasks", "list").([]any); len(again) != 1 {
		t.Fatalf("remembered filter: %d tasks", len(again))
	}
	if all := h.run("tasks", "list", "--status", "all").([]any); len(all) != 2 {
		t.Fatalf("all: %d tasks", len(all))
	}
	if msg := h.fail("tasks", "list", "--status", "archived"); !strings.Contains(msg, "unknown status") {
		t.Fatalf("stderr = %q", msg)
	}
}

func TestTasksShowAcceptsLabel(t *testing.T) {
	h := newHarness(t)
	wo := h.srv.AddTask(model.WorkOrder{Status: model.StatusAssigned, Description: "Check oil"})
	h.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	got := h.run("tasks", "show", wo.Label()).(map[string]any)
	if int(got["id"].(float64)) != wo.ID || got["tasks"] != "Check oil" {
		t.Fatalf("show = %#v", got)
	}
	if msg := h.fail("tasks", "show", "ORDT-abc"); !strings.Contains(msg, "invalid task id") {
		t.Fatalf("stderr = %q", msg)
	}
}

func TestTasksUpdateInvalidSendsNothing(t *testing.T) {
	h := newHarness(t)
	chef := h.srv.ProfileID(gatewaytest.ChefUsername)
	start := model.Date("2026-03-10")
	wo := h.srv.AddTask(model.WorkOrder{Status: model.StatusAssigned, AssignedToProfileID: &chef, StartDate: &start, Description: "x"})
	h.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	msg := h.fail("tasks", "update", wo.Label(), "--end", "2026-03-01")
	if !strings.Contains(msg, "end_date") {
		t.Fatalf("stderr should name end_date: %q", msg)
	}
	if n := h.srv.Calls(http.MethodPatch, "/tasks/{id}/"); n != 0 {
		t.Fatalf("PATCH sent %d times", n)
	}
}

func TestTasksNoteByAssignee(t *testing.T) {
	h := newHarness(t)
	chef := h.srv.ProfileID(gatewaytest.ChefUsername)
	wo := h.srv.AddTask(model.WorkOrder{Status: model.StatusInProgress, AssignedToProfileID: &chef, Description: "x"})
	h.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)

	img := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(img, []byte("\x89PNG\r\n"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	res := h.run("tasks", "note", wo.Label(), "--text", "Filter replaced", "--image", img).(map[string]any)
	if res["outcome"] != "updated" {
		t.Fatalf("outcome = %v", res["outcome"])
	}
	stored, _ := h.srv.Task(wo.ID)
	if len(stored.Notes) != 1 || stored.Notes[0].Text != "Filter replaced" || len(stored.Notes[0].Images) != 1 {
		t.Fatalf("notes = %#v", stored.Notes)
	}
	if msg := h.fail("tasks", "note", wo.Label()); !strings.Contains(msg, "missing --text") {
		t.Fatalf("stderr = %q", msg)
	}
}

func TestTasksDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	wo := h.srv.AddTask(model.WorkOrder{Status: model.StatusAssigned, Description: "x"})
	closed := h.srv.AddTask(model.WorkOrder{Status: model.StatusClosed, Description: "y"})
	h.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	h.fail("tasks", "delete", wo.Label())
	if n := h.srv.Calls(http.MethodDelete, "/tasks/{id}/"); n != 0 {
		t.Fatalf("DELETE sent without confirmation")
	}
	if msg := h.fail("tasks", "delete", closed.Label(), "--yes"); !strings.Contains(msg, "closed") {
		t.Fatalf("closed delete stderr = %q", msg)
	}

	h.run("tasks", "delete", wo.Label(), "--yes")
	if _, ok := h.srv.Task(wo.ID); ok {
		t.Fatalf("task still present")
	}
}

func TestTasksPrintWritesPDF(t *testing.T) {
	h := newHarness(t)
	wo := h.srv.AddTask(model.WorkOrder{Status: model.StatusAssigned, Description: "x"})
	h.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)
	out := t.TempDir()

	res := h.run("tasks", "print", wo.Label(), "--out", out).(map[string]any)
	path, _ := res["path"].(string)
	if filepath.Base(path) != "tache_"+itoa(wo.ID)+".pdf" {
		t.Fatalf("path = %q", path)
	}
	b, err := os.ReadFile(path)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("pdf: %v %q", err, b)
	}
}

func TestNotificationOpenMarksRead(t *testing.T) {
	h := newHarness(t)
	chef := h.srv.ProfileID(gatewaytest.ChefUsername)
	wo := h.srv.AddTask(model.WorkOrder{Status: model.StatusAssigned, AssignedToProfileID: &chef, Description: "x"})
	id := wo.ID
	n := h.srv.Notify(gatewaytest.ChefUsername, model.Notification{Message: "New task", Category: model.CategoryTask, TaskRelated: &id})
	h.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)

	if unread := h.run("notifications", "list", "--unread").([]any); len(unread) != 1 {
		t.Fatalf("unread = %d", len(unread))
	}
	res := h.run("notifications", "open", string(n.ID)).(map[string]any)
	if res["route"] != "task_detail" || res["task"] == nil {
		t.Fatalf("open = %#v", res)
	}
	if got, _ := h.srv.Notification(n.ID); !got.Read {
		t.Fatalf("notification not marked read")
	}
	// Opening again does not mark it twice.
	h.run("notifications", "open", string(n.ID))
	if c := h.srv.Calls(http.MethodPost, "/notifications/{id}/mark-as-read/"); c != 1 {
		t.Fatalf("mark-as-read calls = %d", c)
	}
}

func TestChecklistSubmit(t *testing.T) {
	h := newHarness(t)
	h.srv.AddOrder(model.CostAllocationOrder{ID: "OI-42", Value: "OI-42"})
	h.srv.AddTechnician("T1", "Karim")
	oi := "OI-42"
	n := h.srv.Notify(gatewaytest.ChefUsername, model.Notification{
		Message:      "Preventive maintenance due:\n- Check oil\n- Check brakes",
		Category:     model.CategoryChecklist,
		OrdreRelated: &oi,
		OrdreValue:   "OI-42",
	})
	h.login(gatewaytest.ChefUsername, gatewaytest.ChefPassword)

	h.run("checklist", "submit", "--notification", string(n.ID), "--check", "2", "--tech", "T1")
	subs := h.srv.Checklists()
	if len(subs) != 1 {
		t.Fatalf("submissions = %d", len(subs))
	}
	items, _ := subs[0]["checklist_items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %#v", subs[0])
	}
	first, second := items[0].(map[string]any), items[1].(map[string]any)
	if first["is_completed"] != false || second["is_completed"] != true {
		t.Fatalf("items = %#v", items)
	}
	if msg := h.fail("checklist", "submit", "--notification", string(n.ID), "--check", "9"); !strings.Contains(msg, "no item 9") {
		t.Fatalf("stderr = %q", msg)
	}
}

func TestReportPDFNeedsRangeOrOI(t *testing.T) {
	h := newHarness(t)
	h.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)
	out := t.TempDir()

	msg := h.fail("reports", "pdf", "--out", out)
	if !strings.Contains(msg, "ordre_imputation_value") {
		t.Fatalf("stderr = %q", msg)
	}
	if entries, _ := os.ReadDir(out); len(entries) != 0 {
		t.Fatalf("files written: %v", entries)
	}
}

func TestOutputFormats(t *testing.T) {
	h := newHarness(t)
	h.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	stdout, _, err := runCLI(t, h.args("--format", "text", "whoami"))
	if err != nil {
		t.Fatalf("text whoami: %v", err)
	}
	if !strings.Contains(string(stdout), "Alice Admin") || strings.Contains(string(stdout), `"data"`) {
		t.Fatalf("text output:\n%s", stdout)
	}
	stdout, _, err = runCLI(t, h.args("--format", "edn", "whoami"))
	if err != nil || !strings.HasPrefix(string(stdout), "{:data") {
		t.Fatalf("edn output %v:\n%s", err, stdout)
	}
}

func TestConfigSet(t *testing.T) {
	h := newHarness(t)
	h.run("config", "set", "tui.glyphs", "ascii")
	got := h.run("config", "show").(map[string]any)
	if got["tui.glyphs"] != "ascii" {
		t.Fatalf("config show = %#v", got)
	}
	if msg := h.fail("config", "set", "colour", "red"); !strings.Contains(msg, "unknown key") {
		t.Fatalf("stderr = %q", msg)
	}
}

func TestParseTaskID(t *testing.T) {
	cases := map[string]int{"12": 12, "ORDT-12": 12, "ordt-7": 7, " 3 ": 3}
	for in, want := range cases {
		got, err := parseTaskID(in)
		if err != nil || got != want {
			t.Fatalf("parseTaskID(%q) = %d, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "ORDT-", "x", "-4", "0"} {
		if _, err := parseTaskID(bad); err == nil {
			t.Fatalf("parseTaskID(%q) accepted", bad)
		}
	}
}

func TestDocs(t *testing.T) {
	h := newHarness(t)
	got := h.run("docs").(map[string]any)
	topics, _ := got["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("docs listed no topics: %#v", got)
	}

	stdout, _, err := runCLI(t, h.args("docs", "statuses", "--raw"))
	if err != nil || !strings.HasPrefix(string(stdout), "# Work order statuses") {
		t.Fatalf("raw docs %v:\n%s", err, stdout)
	}
	if msg := h.fail("docs", "nope"); !strings.Contains(msg, "unknown docs topic") {
		t.Fatalf("stderr = %q", msg)
	}
}

func TestTasksExport(t *testing.T) {
	h := newHarness(t)
	chef := h.srv.ProfileID(gatewaytest.ChefUsername)
	open := h.srv.AddTask(model.WorkOrder{Status: model.StatusAssigned, AssignedToProfileID: &chef, Description: "open"})
	done := h.srv.AddTask(model.WorkOrder{Status: model.StatusClosed, AssignedToProfileID: &chef, Description: "done"})
	h.login(gatewaytest.AdminUsername, gatewaytest.AdminPassword)

	out := filepath.Join(t.TempDir(), "export")
	got := h.run("tasks", "export", "--to", out, "--status", "closed").(map[string]any)
	if written, _ := got["written"].([]any); len(written) != 2 {
		t.Fatalf("written = %#v", got)
	}
	b, err := os.ReadFile(filepath.Join(out, "tasks", done.Label()+".md"))
	if err != nil || !strings.Contains(string(b), "done") {
		t.Fatalf("exported page %v:\n%s", err, b)
	}
	if _, err := os.Stat(filepath.Join(out, "tasks", open.Label()+".md")); err == nil {
		t.Fatalf("status filter ignored")
	}
	if msg := h.fail("tasks", "export", "--to", out, "--status", "closed"); !strings.Contains(msg, "--overwrite") {
		t.Fatalf("stderr = %q", msg)
	}
	h.run("tasks", "export", "--to", out, "--overwrite")
	if _, err := os.Stat(filepath.Join(out, "tasks", open.Label()+".md")); err != nil {
		t.Fatalf("full export: %v", err)
	}
}
