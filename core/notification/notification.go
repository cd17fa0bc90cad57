package notification

import (
	"context"
	"time"

	"github.com/nexussync/clubs/core"
)

var ErrNotFound = core.NewNotFoundError("notification not found")

// Kinds
const (
	KindInfo         = "info"
	KindEvent        = "event"
	KindRegistration = "registration"
	KindBudget       = "budget"
	KindMessage      = "message"
	KindComment      = "comment"
	KindClub         = "club"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n Notification) Key() string { return n.ID }

type NewNotification struct {
	UserID string `json:"user_id" validate:"required"`
	Kind   string `json:"kind"`
	Title  string `json:"title" validate:"required,max=200"`
	Body   string `json:"body"`
	Link   string `json:"link"`
}

type QueryFilter struct {
	UserID     string
	UnreadOnly bool
	Kind       string
}

type (
	Repository interface {
		CreateNotifications(ctx context.Context, ns ...Notification) error
		// QueryNotifications returns the newest notifications first.
		QueryNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		GetNotification(ctx context.Context, id string) (Notification, error)
		// MarkRead marks the notifications read. With no ids every notification of the user is marked.
		MarkRead(ctx context.Context, userID string, ids ...string) (int64, error)
		DeleteNotifications(ctx context.Context, userID string, ids ...string) error
		CountUnread(ctx context.Context, userID string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nns ...NewNotification) ([]Notification, error) {
	if len(nns) == 0 {
		return []Notification{}, nil
	}
	now := time.Now().UTC()
	ns := make([]Notification, 0, len(nns))
	for _, nn := range nns {
		kind := nn.Kind
		if kind == "" {
			kind = KindInfo
		}
		ns = append(ns, Notification{
			ID:        core.NewID(),
			UserID:    nn.UserID,
			Kind:      kind,
			Title:     core.CleanString(nn.Title),
			Body:      core.CleanString(nn.Body),
			Link:      core.CleanString(nn.Link),
			CreatedAt: now,
		})
	}
	if err := svc.repo.CreateNotifications(ctx, ns...); err != nil {
		return nil, err
	}
	return ns, nil
}

// NotifyUsers sends the same notification to every user in userIDs.
func (svc *Service) NotifyUsers(ctx context.Context, userIDs []string, kind, title, body, link string) error {
	nns := make([]NewNotification, 0, len(userIDs))
	for _, id := range userIDs {
		nns = append(nns, NewNotification{UserID: id, Kind: kind, Title: title, Body: body, Link: link})
	}
	_, err := svc.Create(ctx, nns...)
	return err
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, filter)
}

// Get returns the notification if it belongs to userID.
func (svc *Service) Get(ctx context.Context, id, userID string) (Notification, error) {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != userID {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read and returns it.
func (svc *Service) MarkRead(ctx context.Context, id, userID string) (Notification, error) {
	n, err := svc.Get(ctx, id, userID)
	if err != nil {
		return Notification{}, err
	}
	if n.Read {
		return n, nil
	}
	if _, err := svc.repo.MarkRead(ctx, userID, id); err != nil {
		return Notification{}, err
	}
	n.Read = true
	return n, nil
}

// MarkAllRead marks every notification of the user read and returns how many changed.
func (svc *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return svc.repo.MarkRead(ctx, userID)
}

func (svc *Service) Delete(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.DeleteNotifications(ctx, userID, ids...)
}

func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnread(ctx, userID)
}

// Unread counts the unread notifications of an already loaded collection.
func Unread(ns []Notification) int {
	var n int
	for _, notif := range ns {
		if !notif.Read {
			n++
		}
	}
	return n
}
