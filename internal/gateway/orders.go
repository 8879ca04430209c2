package gateway

import (
	"context"
	"net/http"

	"gmao-cli/internal/model"
)

func orderPath(id string, suffix ...string) string {
	return idPath("/ordres-imputation/", id, suffix...)
}

func (c *Client) ListOrders(ctx context.Context) ([]model.CostAllocationOrder, error) {
	var out []model.CostAllocationOrder
	err := c.do(ctx, http.MethodGet, "/ordres-imputation/", nil, nil, &out)
	return out, err
}

func (c *Client) GetOrder(ctx context.Context, id string) (model.CostAllocationOrder, error) {
	var out model.CostAllocationOrder
	err := c.do(ctx, http.MethodGet, orderPath(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, f model.OrderForm) (model.CostAllocationOrder, error) {
	var out model.CostAllocationOrder
	err := c.do(ctx, http.MethodPost, "/ordres-imputation/", nil, f, &out)
	return out, err
}

// ReplaceOrder PUTs the editable OI fields; the primary key is never resent.
func (c *Client) ReplaceOrder(ctx context.Context, id string, f model.OrderForm) (model.CostAllocationOrder, error) {
	f.ID = ""
	var out model.CostAllocationOrder
	err := c.do(ctx, http.MethodPut, orderPath(id), nil, f, &out)
	return out, err
}

// SetOrderHours overwrites the OI operating-hours odometer.
func (c *Client) SetOrderHours(ctx context.Context, id string, hours model.Hours) (model.CostAllocationOrder, error) {
	var out model.CostAllocationOrder
	body := map[string]any{"total_hours_of_work": float64(hours)}
	err := c.do(ctx, http.MethodPatch, orderPath(id), nil, body, &out)
	return out, err
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, orderPath(id), nil, nil, nil)
}

// UpdateCycleVisit records a cycle-visit outcome for an OI and returns the updated OI.
func (c *Client) UpdateCycleVisit(ctx context.Context, id string, payload any) (model.CostAllocationOrder, error) {
	var out model.CostAllocationOrder
	err := c.do(ctx, http.MethodPost, orderPath(id, "update-cycle-visite/"), nil, payload, &out)
	return out, err
}
