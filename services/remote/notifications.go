package remotesvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core/notification"
)

type countResponse struct {
	Count int `json:"count"`
}

// Notifications lists the notifications of the current user; UserID is ignored.
func (c *Client) Notifications(ctx context.Context, qf notification.QueryFilter) ([]notification.Notification, error) {
	p := make(params)
	p.set("kind", qf.Kind)
	if qf.UnreadOnly {
		p.set("unread", "true")
	}
	var ns []notification.Notification
	err := c.do(ctx, rest.Get, "/v1/notifications", p, nil, &ns)
	return ns, errors.Wrap(err, "querying notifications")
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp countResponse
	err := c.do(ctx, rest.Get, "/v1/notifications/unread-count", nil, nil, &resp)
	return resp.Count, errors.Wrap(err, "counting unread notifications")
}

func (c *Client) MarkRead(ctx context.Context, id string) (notification.Notification, error) {
	var n notification.Notification
	err := c.do(ctx, rest.Post, "/v1/notifications/"+id+"/read", nil, nil, &n)
	return n, errors.Wrap(err, "marking notification read")
}

// MarkAllRead returns how many notifications were unread.
func (c *Client) MarkAllRead(ctx context.Context) (int, error) {
	var resp countResponse
	err := c.do(ctx, rest.Post, "/v1/notifications/read-all", nil, nil, &resp)
	return resp.Count, errors.Wrap(err, "marking notifications read")
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return errors.Wrap(c.do(ctx, rest.Delete, "/v1/notifications/"+id, nil, nil, nil), "deleting notification")
}
