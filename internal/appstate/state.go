// Package appstate is the in-memory client state: the session, the cached lists, the
// open flows and the banner. Logout calls Reset.
package appstate

import (
	"sync"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/model"
)

type View string

const (
	ViewTasks         View = "tasks"
	ViewNotifications View = "notifications"
	ViewOrders        View = "orders"
	ViewTechnicians   View = "technicians"
	ViewUsers         View = "users"
	ViewTemplates     View = "templates"
	ViewReports       View = "reports"
)

type State struct {
	Tasks         Cache[model.WorkOrder]
	Technicians   Cache[model.Technician]
	Orders        Cache[model.CostAllocationOrder]
	Notifications Cache[model.Notification]
	Chefs         Cache[model.UserProfile]
	Users         Cache[model.AdminUser]
	Templates     Cache[model.PreventiveTemplate]

	mu      sync.Mutex
	session *model.Session
	filter  model.Status
	view    View
	flows   map[string]uint64
	banner  Banner
}

func New() *State {
	return &State{view: ViewTasks, flows: map[string]uint64{}}
}

func (s *State) SetSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &sess
}

func (s *State) Session() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return model.Session{}, false
	}
	return *s.session, true
}

// StatusFilter is the task-list filter; "" shows every status.
func (s *State) StatusFilter() model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *State) SetStatusFilter(st model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = st
}

func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *State) SetView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// OpenFlow starts (or restarts) a named flow such as a detail view or a form and
// returns its generation. Results carrying an older generation belong to a closed flow.
func (s *State) OpenFlow(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[name]++
	return s.flows[name]
}

// CloseFlow invalidates every in-flight result of the flow.
func (s *State) CloseFlow(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[name]++
}

// Current reports whether gen is still the live generation of the flow.
func (s *State) Current(name string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != 0 && s.flows[name] == gen
}

func (s *State) Banner() Banner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

func (s *State) SetBanner(b Banner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = b
}

func (s *State) DismissBanner() { s.SetBanner(Banner{}) }

// Reset returns every field to its initial value. Flows and cache tickets move forward
// so late responses from the previous session are dropped.
func (s *State) Reset() {
	s.Tasks.reset()
	s.Technicians.reset()
	s.Orders.reset()
	s.Notifications.reset()
	s.Chefs.reset()
	s.Users.reset()
	s.Templates.reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.filter = ""
	s.view = ViewTasks
	s.banner = Banner{}
	for k := range s.flows {
		s.flows[k]++
	}
}

// SnapshotTickets are the tickets taken before a parallel initial load.
type SnapshotTickets struct {
	Tasks, Technicians, Orders, Notifications, Chefs Ticket
	WithChefs                                        bool
}

func (s *State) BeginSnapshot(withChefs bool) SnapshotTickets {
	t := SnapshotTickets{
		Tasks:         s.Tasks.Begin(),
		Technicians:   s.Technicians.Begin(),
		Orders:        s.Orders.Begin(),
		Notifications: s.Notifications.Begin(),
		WithChefs:     withChefs,
	}
	if withChefs {
		t.Chefs = s.Chefs.Begin()
	}
	return t
}

// ApplySnapshot stores every list of snap under its ticket. Failed lists keep their
// previous content and record the error.
func (s *State) ApplySnapshot(t SnapshotTickets, snap *gateway.Snapshot) {
	s.Tasks.Apply(t.Tasks, snap.Tasks, snap.Errs["tasks"])
	s.Technicians.Apply(t.Technicians, snap.Technicians, snap.Errs["technicians"])
	s.Orders.Apply(t.Orders, snap.Orders, snap.Errs["orders"])
	s.Notifications.Apply(t.Notifications, snap.Notifications, snap.Errs["notifications"])
	if t.WithChefs {
		s.Chefs.Apply(t.Chefs, snap.Chefs, snap.Errs["chefs"])
	}
}

// UnreadCount counts unread cached notifications.
func (s *State) UnreadCount() int {
	n := 0
	for _, it := range s.Notifications.Items() {
		if !it.Read {
			n++
		}
	}
	return n
}
