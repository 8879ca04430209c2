// Package notify turns a clicked notification into the follow-up it calls for and keeps
// the read flags in sync with the server.
package notify

import (
	"strconv"

	"gmao-cli/internal/model"
)

// Kind is the follow-up a notification click leads to.
type Kind int

const (
	// KindNone means no navigation; the notification is only marked read.
	KindNone Kind = iota
	KindCycleVisitForm
	KindCycleVisitInfo
	KindChecklist
	KindTaskDetail
)

func (k Kind) String() string {
	switch k {
	case KindCycleVisitForm:
		return "cycle_visit_form"
	case KindCycleVisitInfo:
		return "cycle_visit_info"
	case KindChecklist:
		return "checklist"
	case KindTaskDetail:
		return "task_detail"
	default:
		return "none"
	}
}

// Caches is the read-only view of the cached lists the router resolves against.
type Caches struct {
	Tasks  []model.WorkOrder
	Orders []model.CostAllocationOrder
}

// Entity is a resolved related object; exactly one field is set.
type Entity struct {
	Order *model.CostAllocationOrder
	Task  *model.WorkOrder
}

// Resolve looks up the object a notification of category points at.
func Resolve(category model.Category, id string, c Caches) (Entity, bool) {
	if id == "" {
		return Entity{}, false
	}
	switch category {
	case model.CategoryCycleVisit, model.CategoryChecklist:
		for i := range c.Orders {
			if c.Orders[i].ID == id {
				o := c.Orders[i]
				return Entity{Order: &o}, true
			}
		}
	default:
		n, err := strconv.Atoi(id)
		if err != nil {
			return Entity{}, false
		}
		for i := range c.Tasks {
			if c.Tasks[i].ID == n {
				t := c.Tasks[i]
				return Entity{Task: &t}, true
			}
		}
	}
	return Entity{}, false
}

// Plan is what a click should do before any fetch.
type Plan struct {
	Kind      Kind
	RelatedID string
	// Cached is the related object when it is already in the cache.
	Cached Entity
	// SwitchView is set when the task list must be shown first.
	SwitchView bool
	// Placeholder stands in for a task that is not cached yet.
	Placeholder *model.WorkOrder
	Items       []ChecklistItem
}

// Route decides the follow-up for n. It does no I/O.
func Route(actor model.Session, n model.Notification, c Caches) Plan {
	id := n.RelatedID()
	p := Plan{RelatedID: id}
	if id == "" {
		return p
	}
	p.Cached, _ = Resolve(n.Category, id, c)
	switch n.Category {
	case model.CategoryCycleVisit:
		switch actor.Role {
		case model.RoleChef:
			p.Kind = KindCycleVisitForm
		case model.RoleAdmin:
			p.Kind = KindCycleVisitInfo
		}
	case model.CategoryChecklist:
		p.Kind = KindChecklist
		p.Items = ParseChecklist(n.Message)
	case model.CategoryTask:
		p.Kind = KindTaskDetail
		p.SwitchView = true
		if p.Cached.Task == nil {
			taskID, _ := strconv.Atoi(id)
			p.Placeholder = &model.WorkOrder{
				ID:          taskID,
				DisplayID:   n.TaskIdentifier,
				Status:      model.StatusLoading,
				Description: "Chargement...",
			}
			p.Placeholder.Normalize()
		}
	}
	return p
}
