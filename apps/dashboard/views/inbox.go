package views

import (
	"context"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/notification"
	"github.com/nexussync/clubs/core/optimistic"
)

type InboxRemote interface {
	Notifications(ctx context.Context, qf notification.QueryFilter) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id string) (notification.Notification, error)
	MarkAllRead(ctx context.Context) (int, error)
	DeleteNotification(ctx context.Context, id string) error
}

const (
	OpMarkRead = "mark read"
	OpDelete   = "delete"
)

// Inbox lists the notifications of the session user, newest first.
type Inbox struct {
	*base[notification.Notification]
	remote InboxRemote
}

func NewInbox(deps Deps, remote InboxRemote) (*Inbox, error) {
	b, err := newBase(deps, baseOptions[notification.Notification]{
		name:   "inbox",
		entity: broadcast.Notifications,
		fetch: func(ctx context.Context) ([]notification.Notification, error) {
			return remote.Notifications(ctx, notification.QueryFilter{})
		},
	})
	if err != nil {
		return nil, err
	}
	return &Inbox{base: b, remote: remote}, nil
}

// Items returns the notifications, the unread ones only when unreadOnly is set, of one
// kind when kind is not empty.
func (in *Inbox) Items(unreadOnly bool, kind string) []notification.Notification {
	return in.filter(func(n notification.Notification) bool {
		return (!unreadOnly || !n.Read) && (kind == "" || n.Kind == kind)
	})
}

func (in *Inbox) UnreadCount() int {
	return len(in.Items(true, ""))
}

func markRead(n notification.Notification) notification.Notification {
	n.Read = true
	return n
}

// MarkRead marks one notification read. A second call while the first is unresolved
// returns optimistic.ErrInFlight and makes no request.
func (in *Inbox) MarkRead(ctx context.Context, id string) (*optimistic.Pending, error) {
	return in.trigger(ctx, optimistic.Intent[notification.Notification]{
		Op:           OpMarkRead,
		Delta:        optimistic.Update[notification.Notification](id, markRead),
		Call:         func(ctx context.Context) error { _, err := in.remote.MarkRead(ctx, id); return err },
		FailureTitle: "Could not mark the notification read",
	})
}

func (in *Inbox) MarkAllRead(ctx context.Context) (*optimistic.Pending, error) {
	return in.trigger(ctx, optimistic.Intent[notification.Notification]{
		Op:           OpMarkRead,
		Delta:        optimistic.Update[notification.Notification](optimistic.AllRecords, markRead),
		Call:         func(ctx context.Context) error { _, err := in.remote.MarkAllRead(ctx); return err },
		FailureTitle: "Could not mark the notifications read",
	})
}

func (in *Inbox) Delete(ctx context.Context, id string) (*optimistic.Pending, error) {
	return in.trigger(ctx, optimistic.Intent[notification.Notification]{
		Op:           OpDelete,
		Delta:        optimistic.Remove[notification.Notification](id),
		Call:         func(ctx context.Context) error { return in.remote.DeleteNotification(ctx, id) },
		FailureTitle: "Could not delete the notification",
	})
}
