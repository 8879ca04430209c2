package model

import "strings"

// Forms carry user input for the admin screens. Each marshals directly as its request body.

type TechnicianForm struct {
	ID   string `json:"id_technician" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (f *TechnicianForm) Validate() map[string]string {
	f.ID = strings.TrimSpace(f.ID)
	f.Name = strings.TrimSpace(f.Name)
	return FieldErrorsOf(f)
}

// OrderForm creates or replaces an OI. The id is only sent on create.
type OrderForm struct {
	ID             string `json:"id_ordre,omitempty"`
	Value          string `json:"value" validate:"required"`
	NextCycleVisit *Date  `json:"date_prochain_cycle_visite"`
}

func (f *OrderForm) Validate(create bool) map[string]string {
	f.ID = strings.TrimSpace(f.ID)
	f.Value = strings.TrimSpace(f.Value)
	errs := FieldErrorsOf(f)
	if create && f.ID == "" {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["id_ordre"] = "is required"
	}
	if f.NextCycleVisit != nil {
		if _, ok := f.NextCycleVisit.Time(); !ok {
			if errs == nil {
				errs = map[string]string{}
			}
			errs["date_prochain_cycle_visite"] = "must be YYYY-MM-DD"
		}
	}
	return errs
}

type NewUserForm struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"-" label:"confirm_password" validate:"eqfield=Password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileName     string `json:"profile_name" validate:"required"`
	ProfileRole     Role   `json:"profile_role" validate:"required,oneof=Admin 'Chef de Parc'"`
	IsActive        bool   `json:"is_active"`
}

func (f *NewUserForm) Validate() map[string]string {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.ProfileName = strings.TrimSpace(f.ProfileName)
	return FieldErrorsOf(f)
}

// UpdateUserForm patches a user; an empty password leaves it unchanged.
type UpdateUserForm struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password,omitempty" validate:"omitempty,min=8"`
	ConfirmPassword string `json:"-" label:"confirm_password" validate:"eqfield=Password"`
	ProfileName     string `json:"profile_name" validate:"required"`
	ProfileRole     Role   `json:"profile_role" validate:"required,oneof=Admin 'Chef de Parc'"`
	IsActive        bool   `json:"is_active"`
}

func (f *UpdateUserForm) Validate() map[string]string {
	f.Email = strings.TrimSpace(f.Email)
	f.ProfileName = strings.TrimSpace(f.ProfileName)
	return FieldErrorsOf(f)
}

type TemplateForm struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description" validate:"required"`
	TriggerHours int    `json:"trigger_hours" validate:"gt=0"`
	OrdreID      string `json:"ordre_imputation" validate:"required"`
}

func (f *TemplateForm) Validate() map[string]string {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.OrdreID = strings.TrimSpace(f.OrdreID)
	return FieldErrorsOf(f)
}
