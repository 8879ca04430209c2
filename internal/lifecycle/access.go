// Package lifecycle holds the work-order editing rules: who may change which fields,
// which status moves are legal, what must hold before a save, and the update payload.
package lifecycle

import (
	"strings"

	"gmao-cli/internal/model"
)

// Access describes what an actor may do with one work order.
type Access struct {
	// Core covers OI, type, description, assignee and schedule.
	Core bool
	// Management covers technicians, PPE, parts, estimated and operating hours.
	Management bool
	Notes      bool
	Delete     bool
	Statuses   []model.Status
}

// ReadOnly reports whether no field group is editable.
func (a Access) ReadOnly() bool { return !a.Core && !a.Management }

// IsAssignee reports whether actor is the Chef de Parc the work order is assigned to.
// Assignment is matched on the trimmed display name, as the server renders it.
func IsAssignee(actor model.Session, wo model.WorkOrder) bool {
	if actor.Role != model.RoleChef {
		return false
	}
	name := strings.TrimSpace(actor.Name)
	return name != "" && strings.TrimSpace(wo.AssignedToName) == name
}

// AccessFor reports which parts of wo actor may change.
func AccessFor(actor model.Session, wo model.WorkOrder) Access {
	closed := wo.Status == model.StatusClosed
	a := Access{Statuses: AllowedTransitions(actor, wo)}
	switch {
	case actor.IsAdmin():
		a.Core = !closed
		a.Management = !closed
		a.Notes = true
		a.Delete = !closed
	case IsAssignee(actor, wo):
		a.Management = !closed
		a.Notes = true
	}
	return a
}

// AllowedTransitions lists the statuses actor may move wo to, excluding the current one.
// An assignee chef on an assigned task gets none: the server starts the task on the first
// management submission.
func AllowedTransitions(actor model.Session, wo model.WorkOrder) []model.Status {
	if wo.Status == model.StatusLoading {
		return nil
	}
	if actor.IsAdmin() {
		out := make([]model.Status, 0, 2)
		for _, s := range []model.Status{model.StatusAssigned, model.StatusInProgress, model.StatusClosed} {
			if s != wo.Status {
				out = append(out, s)
			}
		}
		return out
	}
	if IsAssignee(actor, wo) && wo.Status == model.StatusInProgress {
		return []model.Status{model.StatusClosed}
	}
	return nil
}

// CanMoveTo reports whether target is reachable from wo's status for actor. Staying put is
// always allowed.
func CanMoveTo(actor model.Session, wo model.WorkOrder, target model.Status) bool {
	if target == wo.Status {
		return true
	}
	for _, s := range AllowedTransitions(actor, wo) {
		if s == target {
			return true
		}
	}
	return false
}
