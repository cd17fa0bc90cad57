// Package message sends announcements to groups of users, in-app and by email.
package message

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/user"
)

// Audiences
const (
	AudienceAll  = "all"
	AudienceClub = "club"
	AudienceRole = "role"
)

var ErrNoRecipients = core.NewConflictError("the audience has no recipients")

type Message struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"sender_id"`
	Audience       string    `json:"audience"`
	ClubID         string    `json:"club_id,omitempty"`
	Role           string    `json:"role,omitempty"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	SendEmail      bool      `json:"send_email"`
	RecipientCount int       `json:"recipient_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func (m Message) Key() string { return m.ID }

type NewMessage struct {
	Audience  string `json:"audience" validate:"required,oneof=all club role"`
	ClubID    string `json:"club_id"`
	Role      string `json:"role"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Body      string `json:"body" validate:"notblank,max=10000"`
	SendEmail bool   `json:"send_email"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Audience = core.CleanString(nm.Audience, true /* lower */)
	nm.ClubID = core.CleanString(nm.ClubID)
	nm.Role = core.CleanString(nm.Role, true /* lower */)
	nm.Subject = core.CleanString(nm.Subject)
	nm.Body = core.CleanString(nm.Body)
	if err := validate.Struct(nm); err != nil {
		return err
	}
	switch {
	case nm.Audience == AudienceClub && nm.ClubID == "":
		return core.NewValidationError(nil, core.FieldError{Field: "club_id", Error: "this field is required"})
	case nm.Audience == AudienceRole && !user.IsRole(nm.Role):
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown role"})
	}
	return nil
}

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		// QueryMessages returns the newest messages first, of every sender when senderID is empty.
		QueryMessages(ctx context.Context, senderID string) ([]Message, error)
	}

	UserQuerier interface {
		Query(ctx context.Context, filter user.QueryFilter, orderings []core.DBOrdering) ([]user.User, error)
	}

	MemberLister interface {
		Members(ctx context.Context, clubID string) ([]club.Member, error)
	}

	Notifier interface {
		NotifyUsers(ctx context.Context, userIDs []string, kind, title, body, link string) error
	}

	Service struct {
		repo     Repository
		users    UserQuerier
		members  MemberLister
		notifier Notifier
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, users UserQuerier, members MemberLister, notifier Notifier, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, users: users, members: members, notifier: notifier, mailSvc: mailSvc}
}

type recipient struct {
	id    string
	name  string
	email string
}

// recipients resolves the active users of an audience, the sender excluded.
func (svc *Service) recipients(ctx context.Context, nm NewMessage, senderID string) ([]recipient, error) {
	var rcpts []recipient
	switch nm.Audience {
	case AudienceClub:
		members, err := svc.members.Members(ctx, nm.ClubID)
		if err != nil {
			return nil, errors.Wrap(err, "listing club members")
		}
		for _, m := range members {
			rcpts = append(rcpts, recipient{id: m.UserID, name: m.Name, email: m.Email})
		}
	default:
		active := true
		filter := user.QueryFilter{IsActive: &active}
		if nm.Audience == AudienceRole {
			filter.Roles = []string{nm.Role}
		}
		users, err := svc.users.Query(ctx, filter, nil)
		if err != nil {
			return nil, errors.Wrap(err, "querying users")
		}
		for _, u := range users {
			rcpts = append(rcpts, recipient{id: u.ID, name: u.Name, email: u.Email})
		}
	}

	out := rcpts[:0]
	for _, r := range rcpts {
		if r.id != senderID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Send notifies every recipient of the audience, emails them when asked to,
// and stores the message.
func (svc *Service) Send(ctx context.Context, nm NewMessage, sender user.User) (Message, error) {
	rcpts, err := svc.recipients(ctx, nm, sender.ID)
	if err != nil {
		return Message{}, err
	}
	if len(rcpts) == 0 {
		return Message{}, ErrNoRecipients
	}

	m := Message{
		ID:             core.NewID(),
		SenderID:       sender.ID,
		Audience:       nm.Audience,
		ClubID:         nm.ClubID,
		Role:           nm.Role,
		Subject:        nm.Subject,
		Body:           nm.Body,
		SendEmail:      nm.SendEmail,
		RecipientCount: len(rcpts),
		CreatedAt:      time.Now().UTC(),
	}

	userIDs := make([]string, 0, len(rcpts))
	for _, r := range rcpts {
		userIDs = append(userIDs, r.id)
	}
	if err := svc.notifier.NotifyUsers(ctx, userIDs, "message", m.Subject, m.Body, "/messages/"+m.ID); err != nil {
		return Message{}, errors.Wrap(err, "notifying recipients")
	}

	if m.SendEmail && svc.mailSvc != nil {
		msgs := make([]*core.EmailMessage, 0, len(rcpts))
		for _, r := range rcpts {
			if r.email == "" {
				continue
			}
			msgs = append(msgs, &core.EmailMessage{
				To:           []mail.Address{{Name: r.name, Address: r.email}},
				Subject:      m.Subject,
				TemplateName: "club_message",
				TemplateData: map[string]interface{}{
					"Name":    r.name,
					"Subject": m.Subject,
					"Sender":  sender.Name,
					"Body":    m.Body,
				},
			})
		}
		svc.mailSvc.SendMessages(msgs...)
	}

	return svc.repo.CreateMessage(ctx, m)
}

func (svc *Service) Query(ctx context.Context, senderID string) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, senderID)
}
