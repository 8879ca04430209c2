// Package gatewaytest provides an in-memory HTTP backend that speaks the same REST
// dialect as the maintenance server, for tests of the gateway and its callers.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"gmao-cli/internal/model"

	"github.com/go-chi/chi/v5"
)

// Seeded accounts.
const (
	AdminUsername     = "admin"
	AdminPassword     = "admin-pass"
	ChefUsername      = "chef"
	ChefPassword      = "chef-pass"
	OtherChefUsername = "chef2"
	OtherChefPassword = "chef2-pass"
)

type account struct {
	userID   int
	username string
	password string
	email    string
	token    string
	active   bool
	profile  model.UserProfile
}

type taskRec struct {
	wo      model.WorkOrder
	techIDs []string
}

type notifRec struct {
	n         model.Notification
	recipient string
}

type failure struct {
	status int
	body   any
}

// Server is a fake backend. All state is guarded by mu; handlers run with mu held.
type Server struct {
	URL string

	srv *httptest.Server

	mu            sync.Mutex
	accounts      []*account
	tasks         map[int]*taskRec
	orders        map[string]*model.CostAllocationOrder
	technicians   map[string]model.Technician
	notifications map[int]*notifRec
	templates     map[int]model.PreventiveTemplate
	checklists    []map[string]any
	calls         map[string]int
	failures      map[string]failure
	nextID        int
	Now           func() time.Time
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		tasks:         map[int]*taskRec{},
		orders:        map[string]*model.CostAllocationOrder{},
		technicians:   map[string]model.Technician{},
		notifications: map[int]*notifRec{},
		templates:     map[int]model.PreventiveTemplate{},
		calls:         map[string]int{},
		failures:      map[string]failure{},
		nextID:        100,
		Now:           time.Now,
	}
	s.seed()
	r := chi.NewRouter()
	s.routes(r)
	s.srv = httptest.NewServer(r)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) seed() {
	add := func(uid int, username, password, name string, role model.Role) {
		s.accounts = append(s.accounts, &account{
			userID:   uid,
			username: username,
			password: password,
			email:    username + "@example.com",
			token:    "tok-" + username,
			active:   true,
			profile: model.UserProfile{
				ID:   uid,
				User: model.ProfileUser{ID: uid, Username: username},
				Name: name,
				Role: role,
			},
		})
	}
	add(1, AdminUsername, AdminPassword, "Alice Admin", model.RoleAdmin)
	add(2, ChefUsername, ChefPassword, "Bruno Chef", model.RoleChef)
	add(3, OtherChefUsername, OtherChefPassword, "Chloe Chef", model.RoleChef)
}

func (s *Server) id() int {
	s.nextID++
	return s.nextID
}

type handler func(w http.ResponseWriter, r *http.Request, a *account)

func (s *Server) route(r chi.Router, method, pattern string, public bool, h handler) {
	key := method + " " + pattern
	r.MethodFunc(method, pattern, func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls[key]++
		if f, ok := s.failures[key]; ok {
			delete(s.failures, key)
			writeJSON(w, f.status, f.body)
			return
		}
		var a *account
		if !public {
			a = s.authenticate(req)
			if a == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
				return
			}
		}
		h(w, req, a)
	})
}

func (s *Server) routes(r chi.Router) {
	s.route(r, http.MethodPost, "/auth-token/", true, s.login)

	s.route(r, http.MethodGet, "/tasks/", false, s.listTasks)
	s.route(r, http.MethodPost, "/tasks/", false, s.createTask)
	s.route(r, http.MethodGet, "/tasks/{id}/", false, s.getTask)
	s.route(r, http.MethodPatch, "/tasks/{id}/", false, s.patchTask)
	s.route(r, http.MethodDelete, "/tasks/{id}/", false, s.deleteTask)
	s.route(r, http.MethodGet, "/tasks/{id}/print/", false, s.printTask)

	s.route(r, http.MethodPost, "/advancement-notes/", false, s.createNote)

	s.route(r, http.MethodGet, "/technicians/", false, s.listTechnicians)
	s.route(r, http.MethodPost, "/technicians/", false, s.createTechnician)
	s.route(r, http.MethodPut, "/technicians/{id}/", false, s.putTechnician)
	s.route(r, http.MethodDelete, "/technicians/{id}/", false, s.deleteTechnician)

	s.route(r, http.MethodGet, "/ordres-imputation/", false, s.listOrders)
	s.route(r, http.MethodPost, "/ordres-imputation/", false, s.createOrder)
	s.route(r, http.MethodGet, "/ordres-imputation/{id}/", false, s.getOrder)
	s.route(r, http.MethodPut, "/ordres-imputation/{id}/", false, s.putOrder)
	s.route(r, http.MethodPatch, "/ordres-imputation/{id}/", false, s.patchOrder)
	s.route(r, http.MethodDelete, "/ordres-imputation/{id}/", false, s.deleteOrder)
	s.route(r, http.MethodPost, "/ordres-imputation/{id}/update-cycle-visite/", false, s.cycleVisit)

	s.route(r, http.MethodGet, "/notifications/", false, s.listNotifications)
	s.route(r, http.MethodPost, "/notifications/mark-all-as-read/", false, s.markAllRead)
	s.route(r, http.MethodPost, "/notifications/{id}/mark-as-read/", false, s.markRead)

	s.route(r, http.MethodGet, "/userprofiles/by-role/{role}/", false, s.profilesByRole)

	s.route(r, http.MethodGet, "/admin/users/", false, s.listUsers)
	s.route(r, http.MethodPost, "/admin/users/", false, s.createUser)
	s.route(r, http.MethodPatch, "/admin/users/{id}/", false, s.patchUser)
	s.route(r, http.MethodDelete, "/admin/users/{id}/", false, s.deleteUser)

	s.route(r, http.MethodGet, "/admin/preventive-task-templates/", false, s.listTemplates)
	s.route(r, http.MethodPost, "/admin/preventive-task-templates/", false, s.createTemplate)
	s.route(r, http.MethodPut, "/admin/preventive-task-templates/{id}/", false, s.putTemplate)
	s.route(r, http.MethodDelete, "/admin/preventive-task-templates/{id}/", false, s.deleteTemplate)

	s.route(r, http.MethodPost, "/submit-preventive-checklist/", false, s.submitChecklist)
	s.route(r, http.MethodGet, "/admin/task-reports/", false, s.taskReport)
}

func (s *Server) authenticate(r *http.Request) *account {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	tok, ok := strings.CutPrefix(h, "Token ")
	if !ok || strings.TrimSpace(tok) == "" {
		return nil
	}
	for _, a := range s.accounts {
		if a.token == strings.TrimSpace(tok) && a.active {
			return a
		}
	}
	return nil
}

// ---- test helpers ----

// Token returns the auth token of a seeded or created account.
func (s *Server) Token(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.accountByUsername(username); a != nil {
		return a.token
	}
	return ""
}

// ProfileID returns the profile id of an account.
func (s *Server) ProfileID(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.accountByUsername(username); a != nil {
		return a.profile.ID
	}
	return 0
}

// ProfileName returns the display name of an account.
func (s *Server) ProfileName(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.accountByUsername(username); a != nil {
		return a.profile.Name
	}
	return ""
}

func (s *Server) AddOrder(o model.CostAllocationOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := o
	s.orders[o.ID] = &cp
}

func (s *Server) AddTechnician(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.technicians[id] = model.Technician{ID: id, Name: name}
}

// AddTask stores wo as-is (assignee from AssignedToProfileID, OI from OrdreValue) and
// returns the rendered record.
func (s *Server) AddTask(wo model.WorkOrder, techIDs ...string) model.WorkOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wo.ID == 0 {
		wo.ID = s.id()
	}
	if wo.Ordre != nil {
		if o := s.orderByValue(wo.Ordre.Value); o != nil {
			wo.Ordre = o
		}
	}
	if wo.CreatedAt.IsZero() {
		wo.CreatedAt = s.Now()
	}
	wo.UpdatedAt = wo.CreatedAt
	s.tasks[wo.ID] = &taskRec{wo: wo, techIDs: append([]string(nil), techIDs...)}
	return s.render(s.tasks[wo.ID])
}

// Task returns the current server-side rendering of a task.
func (s *Server) Task(id int) (model.WorkOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[id]
	if !ok {
		return model.WorkOrder{}, false
	}
	return s.render(rec), true
}

// Order returns the stored OI.
func (s *Server) Order(id string) (model.CostAllocationOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.CostAllocationOrder{}, false
	}
	return *o, true
}

// Notify delivers n to username and returns it with its assigned id.
func (s *Server) Notify(username string, n model.Notification) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	n.ID = model.FlexID(strconv.Itoa(id))
	if n.Timestamp.IsZero() {
		n.Timestamp = s.Now()
	}
	s.notifications[id] = &notifRec{n: n, recipient: username}
	return n
}

// Notification returns the stored notification by id.
func (s *Server) Notification(id model.FlexID) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return model.Notification{}, false
	}
	rec, ok := s.notifications[n]
	if !ok {
		return model.Notification{}, false
	}
	return rec.n, true
}

// Calls reports how many requests hit a route, e.g. Calls("POST", "/notifications/{id}/mark-as-read/").
func (s *Server) Calls(method, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+pattern]
}

// FailNext makes the next request to a route answer status with body.
func (s *Server) FailNext(method, pattern string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+pattern] = failure{status: status, body: body}
}

// Checklists returns the checklist submissions received so far.
func (s *Server) Checklists() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.checklists...)
}

// ---- helpers (mu held) ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func forbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func decodeBody(r *http.Request) (map[string]any, error) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, err
	}
	if in == nil {
		in = map[string]any{}
	}
	return in, nil
}

func badJSON(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error - " + err.Error()})
}

func (s *Server) accountByUsername(username string) *account {
	for _, a := range s.accounts {
		if a.username == username {
			return a
		}
	}
	return nil
}

func (s *Server) accountByProfile(id int) *account {
	for _, a := range s.accounts {
		if a.profile.ID == id {
			return a
		}
	}
	return nil
}

func (s *Server) orderByValue(v string) *model.CostAllocationOrder {
	for _, o := range s.orders {
		if o.Value == v {
			return o
		}
	}
	return nil
}

func (s *Server) notifyRole(role model.Role, n model.Notification) {
	for _, a := range s.accounts {
		if a.profile.Role != role {
			continue
		}
		id := s.id()
		cp := n
		cp.ID = model.FlexID(strconv.Itoa(id))
		cp.Timestamp = s.Now()
		s.notifications[id] = &notifRec{n: cp, recipient: a.username}
	}
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	return n, err == nil
}

func pathString(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func (s *Server) render(rec *taskRec) model.WorkOrder {
	wo := rec.wo
	wo.DisplayID = fmt.Sprintf("ORDT-%d", wo.ID)
	if wo.Ordre != nil {
		o := *wo.Ordre
		if cur, ok := s.orders[o.ID]; ok {
			o = *cur
		}
		wo.Ordre = &o
	}
	wo.AssignedToName = ""
	if wo.AssignedToProfileID != nil {
		if a := s.accountByProfile(*wo.AssignedToProfileID); a != nil {
			wo.AssignedToName = a.profile.Name
		}
	}
	wo.TechnicianNames = []string{}
	for _, id := range rec.techIDs {
		if t, ok := s.technicians[id]; ok {
			wo.TechnicianNames = append(wo.TechnicianNames, t.Name)
		}
	}
	wo.Notes = append([]model.AdvancementNote{}, rec.wo.Notes...)
	for i := range wo.Notes {
		wo.Notes[i].TaskDisplayID = wo.DisplayID
		if wo.Notes[i].Images == nil {
			wo.Notes[i].Images = []model.NoteImage{}
		}
	}
	return wo
}

func (s *Server) canTouchTask(a *account, rec *taskRec) bool {
	if a.profile.Role == model.RoleAdmin {
		return true
	}
	return rec.wo.AssignedToProfileID != nil && *rec.wo.AssignedToProfileID == a.profile.ID
}
