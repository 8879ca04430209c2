package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"gmao-cli/internal/model"
)

func (c *Client) ListTechnicians(ctx context.Context) ([]model.Technician, error) {
	var out []model.Technician
	err := c.do(ctx, http.MethodGet, "/technicians/", nil, nil, &out)
	return out, err
}

func (c *Client) CreateTechnician(ctx context.Context, f model.TechnicianForm) (model.Technician, error) {
	var out model.Technician
	err := c.do(ctx, http.MethodPost, "/technicians/", nil, f, &out)
	return out, err
}

// RenameTechnician replaces the technician's name; the id is immutable.
func (c *Client) RenameTechnician(ctx context.Context, id, name string) (model.Technician, error) {
	var out model.Technician
	err := c.do(ctx, http.MethodPut, idPath("/technicians/", id), nil, map[string]string{"name": name}, &out)
	return out, err
}

func (c *Client) DeleteTechnician(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, idPath("/technicians/", id), nil, nil, nil)
}

// ProfilesByRole lists user profiles with the given role (e.g. the chefs an admin can assign).
func (c *Client) ProfilesByRole(ctx context.Context, role model.Role) ([]model.UserProfile, error) {
	var out []model.UserProfile
	err := c.do(ctx, http.MethodGet, "/userprofiles/by-role/"+url.PathEscape(string(role))+"/", nil, nil, &out)
	return out, err
}

func (c *Client) ListUsers(ctx context.Context) ([]model.AdminUser, error) {
	var out []model.AdminUser
	err := c.do(ctx, http.MethodGet, "/admin/users/", nil, nil, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, f model.NewUserForm) (model.AdminUser, error) {
	var out model.AdminUser
	err := c.do(ctx, http.MethodPost, "/admin/users/", nil, f, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id int, f model.UpdateUserForm) (model.AdminUser, error) {
	var out model.AdminUser
	err := c.do(ctx, http.MethodPatch, idPath("/admin/users/", strconv.Itoa(id)), nil, f, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, idPath("/admin/users/", strconv.Itoa(id)), nil, nil, nil)
}

func (c *Client) ListTemplates(ctx context.Context) ([]model.PreventiveTemplate, error) {
	var out []model.PreventiveTemplate
	err := c.do(ctx, http.MethodGet, "/admin/preventive-task-templates/", nil, nil, &out)
	return out, err
}

func (c *Client) CreateTemplate(ctx context.Context, f model.TemplateForm) (model.PreventiveTemplate, error) {
	var out model.PreventiveTemplate
	err := c.do(ctx, http.MethodPost, "/admin/preventive-task-templates/", nil, f, &out)
	return out, err
}

func (c *Client) UpdateTemplate(ctx context.Context, id int, f model.TemplateForm) (model.PreventiveTemplate, error) {
	var out model.PreventiveTemplate
	err := c.do(ctx, http.MethodPut, idPath("/admin/preventive-task-templates/", strconv.Itoa(id)), nil, f, &out)
	return out, err
}

func (c *Client) DeleteTemplate(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, idPath("/admin/preventive-task-templates/", strconv.Itoa(id)), nil, nil, nil)
}

// TaskReport returns the work orders matching the report filters.
func (c *Client) TaskReport(ctx context.Context, q url.Values) ([]model.WorkOrder, error) {
	var out []model.WorkOrder
	if err := c.do(ctx, http.MethodGet, "/admin/task-reports/", q, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Normalize()
	}
	return out, nil
}

// TaskReportPDF downloads the rendered report; q must already carry format=pdf.
func (c *Client) TaskReportPDF(ctx context.Context, q url.Values) ([]byte, error) {
	return c.fetchBytes(ctx, "/admin/task-reports/", q)
}
