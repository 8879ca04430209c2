package lifecycle

import (
	"strings"

	"gmao-cli/internal/model"
)

// NewTask is the creation form. Admins assign a chef; a chef creating a task starts it
// immediately and must fill the management fields.
type NewTask struct {
	OrdreValue  string
	Type        model.TaskType
	Description string
	AssigneeID  *int
	StartDate   string
	EndDate     string
	StartTime   string

	EstimatedHours string

	TechnicianIDs  []string
	PPE            string
	Parts          string
	OperatingHours string
	PermitRequired bool
}

// ValidateNew checks a task creation request before anything is sent.
func ValidateNew(actor model.Session, t NewTask) FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(t.OrdreValue) == "" {
		fe["ordre_value"] = "OI is required."
	}
	switch t.Type {
	case model.TypePreventive, model.TypeCorrective, model.TypeHierarchical:
	case "":
		fe["type"] = "Type is required."
	default:
		fe["type"] = "Unknown type."
	}
	if strings.TrimSpace(t.Description) == "" {
		fe["tasks"] = "Description is required."
	}
	start, startOK := checkDate(fe, "start_date", t.StartDate)
	end, endOK := checkDate(fe, "end_date", t.EndDate)
	if startOK && endOK && start != "" && end != "" && end < start {
		fe["end_date"] = msgEndBeforeStart
	}
	if tm := strings.TrimSpace(t.StartTime); tm != "" && !validClock(tm) {
		fe["start_time"] = msgTimeFormat
	}
	if start != "" && strings.TrimSpace(t.StartTime) == "" {
		fe["start_time"] = msgStartTimeNeeded
	}

	estimated, estErr := model.ParseHours(t.EstimatedHours)
	switch actor.Role {
	case model.RoleAdmin:
		if t.AssigneeID == nil {
			fe["assigned_to_profile_id"] = "Assign the task to a Chef de Parc."
		}
		if estErr != nil || (estimated != nil && *estimated <= 0) {
			fe["estimated_hours"] = msgEstimatedPos
		}
	case model.RoleChef:
		if len(t.TechnicianIDs) == 0 {
			fe["technicien_ids"] = msgTechnicians
		}
		if strings.TrimSpace(t.PPE) == "" {
			fe["epi"] = msgPPE
		}
		if strings.TrimSpace(t.Parts) == "" {
			fe["pdr"] = msgParts
		}
		if op, err := model.ParseHours(t.OperatingHours); err != nil || op == nil || *op <= 0 {
			fe["hours_of_work"] = msgOperatingNeeded
		}
		if estErr != nil || estimated == nil || *estimated <= 0 {
			fe["estimated_hours"] = msgEstimatedNeeded
		}
	default:
		fe["role"] = "Only an Admin or a Chef de Parc can create tasks."
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// BuildCreate validates t and renders the POST /tasks/ body. Empty optional fields are
// left out rather than sent as null.
func BuildCreate(actor model.Session, t NewTask) (map[string]any, FieldErrors) {
	if fe := ValidateNew(actor, t); fe != nil {
		return nil, fe
	}
	body := map[string]any{
		"ordre_value": strings.TrimSpace(t.OrdreValue),
		"type":        string(t.Type),
		"tasks":       strings.TrimSpace(t.Description),
	}
	if v := nullable(t.StartDate); v != nil {
		body["start_date"] = v
	}
	if v := nullable(t.EndDate); v != nil {
		body["end_date"] = v
	}
	if v := wireTime(t.StartTime); v != nil {
		body["start_time"] = v
	}
	if h := hoursValue(t.EstimatedHours); h != nil {
		body["estimated_hours"] = float64(*h)
	}
	if actor.IsAdmin() {
		body["assigned_to_profile_id"] = *t.AssigneeID
		return body, nil
	}
	body["technicien_ids"] = append([]string{}, t.TechnicianIDs...)
	body["epi"] = strings.TrimSpace(t.PPE)
	body["pdr"] = strings.TrimSpace(t.Parts)
	body["hours_of_work"] = float64(*hoursValue(t.OperatingHours))
	body["permis_de_travail"] = t.PermitRequired
	return body, nil
}
