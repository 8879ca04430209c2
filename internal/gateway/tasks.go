package gateway

import (
	"context"
	"net/http"
	"strconv"

	"gmao-cli/internal/model"
)

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (model.Session, error) {
	var out model.Session
	body := map[string]string{"username": username, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth-token/", nil, body, &out)
	return out, err
}

func taskPath(id int, suffix ...string) string {
	return idPath("/tasks/", strconv.Itoa(id), suffix...)
}

// ListTasks returns the work orders visible to the current user.
func (c *Client) ListTasks(ctx context.Context) ([]model.WorkOrder, error) {
	var out []model.WorkOrder
	if err := c.do(ctx, http.MethodGet, "/tasks/", nil, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Normalize()
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, id int) (model.WorkOrder, error) {
	var out model.WorkOrder
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &out); err != nil {
		return model.WorkOrder{}, err
	}
	out.Normalize()
	return out, nil
}

// CreateTask posts a creation payload (see lifecycle.BuildCreate).
func (c *Client) CreateTask(ctx context.Context, payload map[string]any) (model.WorkOrder, error) {
	var out model.WorkOrder
	if err := c.do(ctx, http.MethodPost, "/tasks/", nil, payload, &out); err != nil {
		return model.WorkOrder{}, err
	}
	out.Normalize()
	return out, nil
}

// UpdateTask sends a partial update.
func (c *Client) UpdateTask(ctx context.Context, id int, patch map[string]any) (model.WorkOrder, error) {
	var out model.WorkOrder
	if err := c.do(ctx, http.MethodPatch, taskPath(id), nil, patch, &out); err != nil {
		return model.WorkOrder{}, err
	}
	out.Normalize()
	return out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// PrintTask downloads the server-rendered PDF for a work order.
func (c *Client) PrintTask(ctx context.Context, id int) ([]byte, error) {
	return c.fetchBytes(ctx, taskPath(id, "print/"), nil)
}

// SubmitChecklist records a completed preventive checklist; the server answers with
// the work order it created.
func (c *Client) SubmitChecklist(ctx context.Context, payload any) (model.WorkOrder, error) {
	var out model.WorkOrder
	if err := c.do(ctx, http.MethodPost, "/submit-preventive-checklist/", nil, payload, &out); err != nil {
		return model.WorkOrder{}, err
	}
	out.Normalize()
	return out, nil
}
