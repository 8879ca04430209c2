package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleChef  Role = "Chef de Parc"
)

type Status string

const (
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in progress"
	StatusClosed     Status = "closed"

	// StatusLoading marks a placeholder record shown while the real one is fetched.
	StatusLoading Status = "chargement"
)

type TaskType string

const (
	TypePreventive   TaskType = "preventif"
	TypeCorrective   TaskType = "curatif"
	TypeHierarchical TaskType = "visite hierarchique"
)

type Category string

const (
	CategoryCycleVisit Category = "CYCLE_VISIT"
	CategoryChecklist  Category = "PREVENTIVE_CHECKLIST"
	CategoryTask       Category = "TASK"
	CategoryGeneral    Category = "GENERAL"
)

// Session is the authenticated user as returned by POST /auth-token/.
type Session struct {
	Token    string `json:"token" validate:"required"`
	UserID   int    `json:"user_id"`
	Username string `json:"username" validate:"required"`
	Name     string `json:"name"`
	Role     Role   `json:"role" validate:"required,oneof=Admin 'Chef de Parc'"`
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }
func (s Session) IsChef() bool  { return s.Role == RoleChef }

type UserProfile struct {
	ID   int         `json:"id" validate:"required"`
	User ProfileUser `json:"user"`
	Name string      `json:"name"`
	Role Role        `json:"role"`
}

type ProfileUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Label renders "Name (username)" the way assignee pickers show chefs.
func (p UserProfile) Label() string {
	if strings.TrimSpace(p.User.Username) == "" {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.User.Username)
}

type Technician struct {
	ID   string `json:"id_technician" validate:"required"`
	Name string `json:"name"`
}

// CostAllocationOrder is an "Ordre d'Imputation" (OI): an equipment/billing code that
// accumulates operating hours and cycle-visit history.
type CostAllocationOrder struct {
	ID                  string `json:"id_ordre" validate:"required"`
	Value               string `json:"value" validate:"required"`
	TotalHours          Hours  `json:"total_hours_of_work"`
	NextCycleVisit      *Date  `json:"date_prochain_cycle_visite"`
	LastVisitPerformed  *Date  `json:"date_derniere_visite_effectuee"`
	LastVisitAccepted   *bool  `json:"dernier_cycle_visite_resultat"`
	LastNotifiedHoursAt *int   `json:"last_notified_threshold,omitempty"`
}

// VisitOutcome renders the last cycle-visit result.
func (o CostAllocationOrder) VisitOutcome() string {
	if o.LastVisitAccepted == nil {
		return "N/A"
	}
	if *o.LastVisitAccepted {
		return "Acceptée"
	}
	return "Échouée"
}

type NoteImage struct {
	ID         int       `json:"id"`
	URL        string    `json:"image_url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type AdvancementNote struct {
	ID             int         `json:"id" validate:"required"`
	TaskID         int         `json:"task"`
	TaskDisplayID  string      `json:"task_display_id,omitempty"`
	Date           Date        `json:"date"`
	Text           string      `json:"note"`
	Images         []NoteImage `json:"images"`
	AuthorUsername string      `json:"created_by_username,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// WorkOrder is an "ordre de travail".
type WorkOrder struct {
	ID        int                  `json:"id" validate:"required"`
	DisplayID string               `json:"task_id_display,omitempty"`
	Ordre     *CostAllocationOrder `json:"ordre,omitempty"`
	Type      TaskType             `json:"type" validate:"omitempty,oneof=preventif curatif 'visite hierarchique'"`
	Status    Status               `json:"status" validate:"required,oneof=assigned 'in progress' closed chargement"`
	ClosedAt  string               `json:"closed_at,omitempty"`

	AssignedToName      string   `json:"assignedTo,omitempty"`
	AssignedToProfileID *int     `json:"assigned_to_profile_id,omitempty"`
	TechnicianNames     []string `json:"technicien_names,omitempty"`

	Description       string  `json:"tasks"`
	RequiredPPE       string  `json:"epi,omitempty"`
	RequiredParts     string  `json:"pdr,omitempty"`
	PermitRequired    bool    `json:"permis_de_travail"`
	EstimatedHours    *Hours  `json:"estimated_hours,omitempty"`
	ReportedOperating *Hours  `json:"hours_of_work,omitempty"`
	StartDate         *Date   `json:"start_date,omitempty"`
	EndDate           *Date   `json:"end_date,omitempty"`
	StartTime         *string `json:"start_time,omitempty"`

	Notes []AdvancementNote `json:"advancement_notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Label returns the human identifier (ORDT-{id} when the server has not set one).
func (w WorkOrder) Label() string {
	if strings.TrimSpace(w.DisplayID) != "" {
		return w.DisplayID
	}
	return fmt.Sprintf("ORDT-%d", w.ID)
}

// OrdreValue returns the parent OI display value, or "" when detached.
func (w WorkOrder) OrdreValue() string {
	if w.Ordre == nil {
		return ""
	}
	return w.Ordre.Value
}

// Normalize fills derived display fields the server may omit.
func (w *WorkOrder) Normalize() {
	if strings.TrimSpace(w.DisplayID) == "" {
		w.DisplayID = w.Label()
	}
	for i := range w.Notes {
		if strings.TrimSpace(w.Notes[i].TaskDisplayID) == "" {
			w.Notes[i].TaskDisplayID = w.DisplayID
		}
		if w.Notes[i].Images == nil {
			w.Notes[i].Images = []NoteImage{}
		}
	}
}

type Notification struct {
	ID             FlexID    `json:"id"`
	Message        string    `json:"message"`
	Category       Category  `json:"notification_category"`
	TaskRelated    *int      `json:"task_related,omitempty"`
	TaskIdentifier string    `json:"task_related_identifier,omitempty"`
	OrdreRelated   *string   `json:"ordre_imputation_related,omitempty"`
	OrdreValue     string    `json:"ordre_imputation_related_value,omitempty"`
	Read           bool      `json:"read"`
	Timestamp      time.Time `json:"timestamp"`
}

// IsLocal reports whether the notification was synthesized client-side and must never be
// sent to the server.
func (n Notification) IsLocal() bool { return strings.HasPrefix(string(n.ID), "local-") }

// RelatedID returns the id of the object the notification points at, per category.
func (n Notification) RelatedID() string {
	switch n.Category {
	case CategoryCycleVisit, CategoryChecklist:
		if n.OrdreRelated != nil {
			return strings.TrimSpace(*n.OrdreRelated)
		}
		return ""
	default:
		if n.TaskRelated != nil {
			return fmt.Sprintf("%d", *n.TaskRelated)
		}
		return ""
	}
}

// RelatedDisplay returns the human label for the related object.
func (n Notification) RelatedDisplay() string {
	switch n.Category {
	case CategoryCycleVisit, CategoryChecklist:
		return n.OrdreValue
	default:
		return n.TaskIdentifier
	}
}

type AdminUser struct {
	ID          int        `json:"id" validate:"required"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	ProfileName *string    `json:"profile_name"`
	ProfileRole *Role      `json:"profile_role"`
	IsActive    bool       `json:"is_active"`
	DateJoined  *time.Time `json:"date_joined,omitempty"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

type PreventiveTemplate struct {
	ID           int    `json:"id" validate:"required"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	TriggerHours int    `json:"trigger_hours"`
	OrdreID      string `json:"ordre_imputation,omitempty"`
	OrdreValue   string `json:"ordre_imputation_value,omitempty"`
}
