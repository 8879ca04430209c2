package lifecycle

import (
	"sort"
	"strconv"
	"strings"

	"gmao-cli/internal/gateway"
	"gmao-cli/internal/model"
)

// FieldErrors maps a wire field name (end_date, epi, ...) to a message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Merge copies other into fe (other wins) and returns fe, allocating when nil.
func (fe FieldErrors) Merge(other map[string]string) FieldErrors {
	if len(other) == 0 {
		return fe
	}
	if fe == nil {
		fe = FieldErrors{}
	}
	for k, v := range other {
		fe[k] = v
	}
	return fe
}

const (
	msgEndBeforeStart   = "End date cannot be before start date."
	msgTechnicians      = "At least one technician is required."
	msgPPE              = "PPE details are required."
	msgParts            = "Parts details are required."
	msgOperatingNeeded  = "New total OI operating hours are required and must be positive."
	msgOperatingPos     = "New total OI operating hours must be positive when given."
	msgEstimatedNeeded  = "Estimated hours are required and must be positive."
	msgEstimatedPos     = "Estimated hours must be positive when given."
	msgStartTimeNeeded  = "Start time is required when a start date is set."
	msgDateFormat       = "Use YYYY-MM-DD."
	msgTimeFormat       = "Use HH:MM."
	msgStatusNotAllowed = "This status change is not allowed."
)

// Draft is the editable state of a work-order detail form. Dates are YYYY-MM-DD,
// StartTime is HH:MM, hours are raw user input.
type Draft struct {
	OrdreValue  string
	Type        model.TaskType
	Description string
	AssigneeID  *int
	StartDate   string
	EndDate     string
	StartTime   string

	TechnicianIDs  []string
	PPE            string
	Parts          string
	OperatingHours string
	EstimatedHours string

	Status model.Status

	Note   string
	Images []gateway.Upload

	original *Draft
}

// NewDraft seeds a draft from wo. The server only renders technician names and the
// assignee name, so they are mapped back to ids through the cached lists.
func NewDraft(wo model.WorkOrder, technicians []model.Technician, chefs []model.UserProfile) Draft {
	d := Draft{
		OrdreValue:     wo.OrdreValue(),
		Type:           wo.Type,
		Description:    wo.Description,
		StartDate:      model.DatePtrString(wo.StartDate),
		EndDate:        model.DatePtrString(wo.EndDate),
		StartTime:      model.ShortTime(wo.StartTime),
		PPE:            wo.RequiredPPE,
		Parts:          wo.RequiredParts,
		OperatingHours: model.HoursPtrString(wo.ReportedOperating),
		EstimatedHours: model.HoursPtrString(wo.EstimatedHours),
		Status:         wo.Status,
	}
	if wo.AssignedToProfileID != nil {
		id := *wo.AssignedToProfileID
		d.AssigneeID = &id
	} else if name := strings.TrimSpace(wo.AssignedToName); name != "" {
		for _, c := range chefs {
			if strings.TrimSpace(c.Name) == name {
				id := c.ID
				d.AssigneeID = &id
				break
			}
		}
	}
	d.TechnicianIDs = technicianIDs(wo.TechnicianNames, technicians)
	orig := d
	orig.TechnicianIDs = append([]string(nil), d.TechnicianIDs...)
	d.original = &orig
	return d
}

func technicianIDs(names []string, technicians []model.Technician) []string {
	out := []string{}
	for _, n := range names {
		for _, t := range technicians {
			if t.Name == n {
				out = append(out, t.ID)
				break
			}
		}
	}
	return out
}

// Original returns the snapshot the draft was seeded from. A draft built by hand has
// none, and every editable field counts as changed.
func (d Draft) Original() (Draft, bool) {
	if d.original == nil {
		return Draft{}, false
	}
	return *d.original, true
}

// HasNote reports whether a note append is staged.
func (d Draft) HasNote() bool {
	return strings.TrimSpace(d.Note) != "" || len(d.Images) > 0
}

// Validate checks draft against the rules for actor editing wo. Only fields the actor
// may edit are checked, except the date order which always holds.
func Validate(actor model.Session, wo model.WorkOrder, d Draft) FieldErrors {
	fe := FieldErrors{}
	start, startOK := checkDate(fe, "start_date", d.StartDate)
	end, endOK := checkDate(fe, "end_date", d.EndDate)
	if startOK && endOK && start != "" && end != "" && end < start {
		fe["end_date"] = msgEndBeforeStart
	}
	if t := strings.TrimSpace(d.StartTime); t != "" && !validClock(t) {
		fe["start_time"] = msgTimeFormat
	}

	operating, opErr := model.ParseHours(d.OperatingHours)
	estimated, estErr := model.ParseHours(d.EstimatedHours)
	assignee := IsAssignee(actor, wo)

	switch {
	case assignee && wo.Status == model.StatusAssigned:
		if len(d.TechnicianIDs) == 0 {
			fe["technicien_ids"] = msgTechnicians
		}
		if strings.TrimSpace(d.PPE) == "" {
			fe["epi"] = msgPPE
		}
		if strings.TrimSpace(d.Parts) == "" {
			fe["pdr"] = msgParts
		}
		if opErr != nil || operating == nil || *operating <= 0 {
			fe["hours_of_work"] = msgOperatingNeeded
		}
		if estErr != nil || estimated == nil || *estimated <= 0 {
			fe["estimated_hours"] = msgEstimatedNeeded
		}
		if strings.TrimSpace(d.StartDate) != "" && strings.TrimSpace(d.StartTime) == "" {
			fe["start_time"] = msgStartTimeNeeded
		}
	case assignee && wo.Status == model.StatusInProgress, actor.IsAdmin():
		if opErr != nil || (operating != nil && *operating <= 0) {
			fe["hours_of_work"] = msgOperatingPos
		}
		if estErr != nil || (estimated != nil && *estimated <= 0) {
			fe["estimated_hours"] = msgEstimatedPos
		}
	}

	if d.Status != "" && !CanMoveTo(actor, wo, d.Status) {
		fe["status"] = msgStatusNotAllowed
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func checkDate(fe FieldErrors, field, v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", true
	}
	if _, err := model.ParseDate(v); err != nil {
		fe[field] = msgDateFormat
		return "", false
	}
	return v, true
}

func validClock(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	return err1 == nil && err2 == nil && h >= 0 && h < 24 && m >= 0 && m < 60
}
