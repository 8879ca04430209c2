package notify

import (
	"errors"
	"strings"
	"time"

	"gmao-cli/internal/model"
)

var (
	ErrNoChecklistItems = errors.New("no checklist items to submit")
	ErrOutcomeUndecided = errors.New("visit outcome not chosen")
)

// CycleVisitForm records a cycle visit in two steps: Decide, then the two dates.
type CycleVisitForm struct {
	Order     model.CostAllocationOrder
	Accepted  *bool
	NextVisit string
	Performed string
}

func NewCycleVisitForm(o model.CostAllocationOrder) *CycleVisitForm {
	return &CycleVisitForm{Order: o}
}

func (f *CycleVisitForm) Decide(accepted bool) { f.Accepted = &accepted }

func (f *CycleVisitForm) Decided() bool { return f.Accepted != nil }

// Back returns to the outcome step.
func (f *CycleVisitForm) Back() { f.Accepted = nil }

// Validate checks the dates against today's date. A nil map means the form is valid.
func (f *CycleVisitForm) Validate(today time.Time) map[string]string {
	errs := map[string]string{}
	if !f.Decided() {
		errs["visite_acceptee"] = "Choose whether the visit was accepted."
	}
	day := string(model.DateOf(today))

	next := strings.TrimSpace(f.NextVisit)
	switch {
	case next == "":
		errs["date_prochaine_visite"] = "The next visit date is required."
	case !isDate(next):
		errs["date_prochaine_visite"] = "Use YYYY-MM-DD."
	case next < day:
		errs["date_prochaine_visite"] = "The next visit date cannot be in the past."
	}

	done := strings.TrimSpace(f.Performed)
	switch {
	case done == "":
		errs["date_visite_effectuee"] = "The performed visit date is required."
	case !isDate(done):
		errs["date_visite_effectuee"] = "Use YYYY-MM-DD."
	case done > day:
		errs["date_visite_effectuee"] = "The performed visit date cannot be in the future."
	}

	if _, bad := errs["date_prochaine_visite"]; !bad && isDate(done) && next <= done {
		errs["date_prochaine_visite"] = "The next visit must come after the performed visit."
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Payload is the update-cycle-visite body.
func (f *CycleVisitForm) Payload() (map[string]any, error) {
	if !f.Decided() {
		return nil, ErrOutcomeUndecided
	}
	return map[string]any{
		"visite_acceptee":       *f.Accepted,
		"date_prochaine_visite": strings.TrimSpace(f.NextVisit),
		"date_visite_effectuee": strings.TrimSpace(f.Performed),
	}, nil
}

func isDate(s string) bool {
	_, err := model.ParseDate(s)
	return err == nil
}

type ChecklistItem struct {
	Description string `json:"description"`
	Done        bool   `json:"is_completed"`
}

var bulletMarkers = []string{"- ", "* ", "• "}

// ParseChecklist turns the bullet lines of a notification message into unchecked items.
func ParseChecklist(message string) []ChecklistItem {
	var items []ChecklistItem
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		for _, m := range bulletMarkers {
			if rest, ok := strings.CutPrefix(line, m); ok {
				if rest = strings.TrimSpace(rest); rest != "" {
					items = append(items, ChecklistItem{Description: rest})
				}
				break
			}
		}
	}
	return items
}

// ChecklistForm is a preventive checklist being completed for one OI.
type ChecklistForm struct {
	OrderID       string
	OrderValue    string
	Items         []ChecklistItem
	TechnicianIDs []string
	Notes         string
}

func NewChecklistForm(n model.Notification) *ChecklistForm {
	return &ChecklistForm{
		OrderID:    n.RelatedID(),
		OrderValue: n.OrdreValue,
		Items:      ParseChecklist(n.Message),
	}
}

// Toggle flips item i; out-of-range indexes are ignored.
func (f *ChecklistForm) Toggle(i int) {
	if i >= 0 && i < len(f.Items) {
		f.Items[i].Done = !f.Items[i].Done
	}
}

// Payload renders the submit-preventive-checklist body. Unchecked items are sent as
// they are.
func (f *ChecklistForm) Payload() (map[string]any, error) {
	if len(f.Items) == 0 {
		return nil, ErrNoChecklistItems
	}
	items := make([]ChecklistItem, len(f.Items))
	copy(items, f.Items)
	body := map[string]any{
		"ordre_imputation_id": f.OrderID,
		"checklist_items":     items,
		"notes":               strings.TrimSpace(f.Notes),
	}
	if len(f.TechnicianIDs) > 0 {
		body["technicien_ids"] = append([]string{}, f.TechnicianIDs...)
	}
	return body, nil
}
