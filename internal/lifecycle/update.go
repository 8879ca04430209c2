package lifecycle

import (
	"slices"
	"strings"

	"gmao-cli/internal/model"
)

// Update is the partial-update request for a work order.
type Update struct {
	Patch map[string]any
	// Forced marks a first submission by the assignee chef: it is sent even when nothing
	// differs, because it is what starts the task.
	Forced bool
}

// Empty reports whether no PATCH needs to be sent.
func (u Update) Empty() bool { return len(u.Patch) == 0 && !u.Forced }

// BuildUpdate diffs draft against original over the field groups actor may edit.
func BuildUpdate(actor model.Session, wo model.WorkOrder, original, draft Draft) Update {
	acc := AccessFor(actor, wo)
	patch := map[string]any{}

	if acc.Core {
		if v := strings.TrimSpace(draft.OrdreValue); v != strings.TrimSpace(original.OrdreValue) {
			patch["ordre_value"] = v
		}
		if draft.Type != original.Type {
			patch["type"] = string(draft.Type)
		}
		if draft.Description != original.Description {
			patch["tasks"] = draft.Description
		}
		if !sameInt(draft.AssigneeID, original.AssigneeID) {
			if draft.AssigneeID == nil {
				patch["assigned_to_profile_id"] = nil
			} else {
				patch["assigned_to_profile_id"] = *draft.AssigneeID
			}
		}
		if strings.TrimSpace(draft.StartDate) != strings.TrimSpace(original.StartDate) {
			patch["start_date"] = nullable(draft.StartDate)
		}
		if strings.TrimSpace(draft.EndDate) != strings.TrimSpace(original.EndDate) {
			patch["end_date"] = nullable(draft.EndDate)
		}
		if strings.TrimSpace(draft.StartTime) != strings.TrimSpace(original.StartTime) {
			patch["start_time"] = wireTime(draft.StartTime)
		}
	}

	forced := IsAssignee(actor, wo) && wo.Status == model.StatusAssigned
	if acc.Management {
		if forced || !sameIDs(draft.TechnicianIDs, original.TechnicianIDs) {
			patch["technicien_ids"] = append([]string{}, draft.TechnicianIDs...)
		}
		if forced || draft.PPE != original.PPE {
			patch["epi"] = draft.PPE
		}
		if forced || draft.Parts != original.Parts {
			patch["pdr"] = draft.Parts
		}
		if nh, oh := hoursValue(draft.OperatingHours), hoursValue(original.OperatingHours); forced || !sameHours(nh, oh) {
			patch["hours_of_work"] = hoursAny(nh)
		}
		if nh, oh := hoursValue(draft.EstimatedHours), hoursValue(original.EstimatedHours); forced || !sameHours(nh, oh) {
			patch["estimated_hours"] = hoursAny(nh)
		}
	}

	if draft.Status != "" && draft.Status != wo.Status {
		switch {
		case actor.IsAdmin():
			patch["status"] = string(draft.Status)
		case IsAssignee(actor, wo) && wo.Status == model.StatusInProgress && draft.Status == model.StatusClosed:
			patch["status_update_for_chef"] = string(model.StatusClosed)
		}
	}

	if len(patch) == 0 {
		patch = nil
	}
	return Update{Patch: patch, Forced: forced && acc.Management}
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameIDs(a, b []string) bool {
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

func hoursValue(s string) *model.Hours {
	h, err := model.ParseHours(s)
	if err != nil {
		return nil
	}
	return h
}

func sameHours(a, b *model.Hours) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func hoursAny(h *model.Hours) any {
	if h == nil {
		return nil
	}
	return float64(*h)
}

func nullable(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}

// wireTime turns HH:MM into the HH:MM:SS form the server stores.
func wireTime(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.Count(s, ":") == 1 {
		return s + ":00"
	}
	return s
}
