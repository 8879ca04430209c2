package gateway

import (
	"context"
	"net/http"

	"gmao-cli/internal/model"
)

func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	err := c.do(ctx, http.MethodGet, "/notifications/", nil, nil, &out)
	return out, err
}

// MarkNotificationRead confirms a read server-side. Client-local ids are rejected
// without a request.
func (c *Client) MarkNotificationRead(ctx context.Context, id model.FlexID) error {
	n := model.Notification{ID: id}
	if n.IsLocal() {
		return &Error{Kind: KindOther, Endpoint: "/notifications/", Message: "local notification " + string(id) + " has no server record"}
	}
	return c.do(ctx, http.MethodPost, idPath("/notifications/", string(id), "mark-as-read/"), nil, nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/mark-all-as-read/", nil, nil, nil)
}
