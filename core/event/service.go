package event

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/user"
	"github.com/nexussync/clubs/core/venue"
)

var (
	ErrNotFound          = core.NewNotFoundError("event not found")
	ErrNotApproved       = core.NewConflictError("event is not open for registration")
	ErrAlreadyRegistered = core.NewConflictError("already registered for this event")
	ErrNotRegistered     = core.NewConflictError("not registered for this event")
	ErrEventFull         = core.NewConflictError("event is full")
	ErrEventPast         = core.NewConflictError("event has already started")
	ErrNotEditable       = core.NewConflictError("only pending events can be edited")
	ErrStatusTransition  = core.NewConflictError("status change not allowed")
	ErrOverCapacity      = errors.New("capacity exceeds the venue capacity")
)

type RegistrationFilter struct {
	UserID  string
	EventID string
}

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		// QueryEvents returns the events matching filter; Registered is computed for viewerID.
		QueryEvents(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering, viewerID string) ([]Event, error)
		GetEvent(ctx context.Context, id, viewerID string) (Event, error)
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		DeleteEvents(ctx context.Context, ids ...string) error
		// AddRegistration stores reg unless the user already registered (ErrAlreadyRegistered)
		// or the event holds capacity registrations already (ErrEventFull). 0 is unlimited.
		AddRegistration(ctx context.Context, reg Registration, capacity int) error
		// RemoveRegistration returns ErrNotRegistered when there is nothing to remove.
		RemoveRegistration(ctx context.Context, eventID, userID string) error
		QueryRegistrations(ctx context.Context, filter RegistrationFilter) ([]Registration, error)
	}

	VenueGetter interface {
		Get(ctx context.Context, id string) (venue.Venue, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// Notifier delivers in-app notifications.
	Notifier interface {
		NotifyUsers(ctx context.Context, userIDs []string, kind, title, body, link string) error
	}

	Service struct {
		repo     Repository
		venues   VenueGetter
		users    UserGetter
		notifier Notifier
		mailSvc  core.EmailService
		logger   core.Logger

		now func() time.Time // mockable
	}
)

func NewService(
	repo Repository,
	venues VenueGetter,
	users UserGetter,
	notifier Notifier,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		venues:   venues,
		users:    users,
		notifier: notifier,
		mailSvc:  mailSvc,
		logger:   logger,
		now:      time.Now,
	}
}

func (svc *Service) checkVenue(ctx context.Context, venueID string, capacity int) error {
	if venueID == "" {
		return nil
	}
	v, err := svc.venues.Get(ctx, venueID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "venue_id", Error: err.Error()})
		}
		return errors.Wrap(err, "getting venue")
	}
	if v.Capacity > 0 && capacity > v.Capacity {
		return core.NewValidationError(ErrOverCapacity, core.FieldError{
			Field: "capacity",
			Error: fmt.Sprintf("%s (%d)", ErrOverCapacity.Error(), v.Capacity),
		})
	}
	return nil
}

// Create stores a validated NewEvent, pending review.
func (svc *Service) Create(ctx context.Context, ne NewEvent, creatorID string) (Event, error) {
	if err := svc.checkVenue(ctx, ne.VenueID, ne.Capacity); err != nil {
		return Event{}, err
	}
	now := svc.now().UTC()
	return svc.repo.CreateEvent(ctx, Event{
		ID:          core.NewID(),
		ClubID:      ne.ClubID,
		Title:       ne.Title,
		Description: ne.Description,
		VenueID:     ne.VenueID,
		StartsAt:    ne.StartsAt,
		EndsAt:      ne.EndsAt,
		Capacity:    ne.Capacity,
		Resources:   ne.Resources,
		Tags:        ne.Tags,
		Status:      status.Pending,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering, viewerID string) ([]Event, error) {
	filter.Clean()
	return svc.repo.QueryEvents(ctx, filter, core.CleanOrderings(orderings, AllowedOrderings...), viewerID)
}

func (svc *Service) Get(ctx context.Context, id, viewerID string) (Event, error) {
	return svc.repo.GetEvent(ctx, id, viewerID)
}

// Update edits a pending event.
func (svc *Service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id, "")
	if err != nil {
		return Event{}, err
	}
	if e.Status != status.Pending {
		return Event{}, ErrNotEditable
	}
	if err := svc.checkVenue(ctx, ue.VenueID, ue.Capacity); err != nil {
		return Event{}, err
	}
	e.Title = ue.Title
	e.Description = ue.Description
	e.VenueID = ue.VenueID
	e.StartsAt = ue.StartsAt
	e.EndsAt = ue.EndsAt
	e.Capacity = ue.Capacity
	e.Resources = ue.Resources
	e.Tags = ue.Tags
	e.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateEvent(ctx, e)
}

// Review approves or rejects a pending event and tells its creator.
func (svc *Service) Review(ctx context.Context, id string, rr ReviewRequest, reviewerID string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id, "")
	if err != nil {
		return Event{}, err
	}
	target := status.Rejected
	if rr.Decision == DecisionApprove {
		target = status.Approved
	}
	if !status.Allowed(e.Status, target) {
		return Event{}, ErrStatusTransition
	}
	e.Status = target
	e.ReviewedBy = reviewerID
	e.ReviewNote = rr.Note
	e.UpdatedAt = svc.now().UTC()
	if e, err = svc.repo.UpdateEvent(ctx, e); err != nil {
		return Event{}, err
	}
	svc.notifyCreator(ctx, e)
	return e, nil
}

// Cancel cancels a pending or approved event and tells the registered users.
func (svc *Service) Cancel(ctx context.Context, id, by string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id, "")
	if err != nil {
		return Event{}, err
	}
	if !status.Allowed(e.Status, status.Cancelled) {
		return Event{}, ErrStatusTransition
	}
	e.Status = status.Cancelled
	e.ReviewedBy = by
	e.UpdatedAt = svc.now().UTC()
	if e, err = svc.repo.UpdateEvent(ctx, e); err != nil {
		return Event{}, err
	}

	regs, err := svc.repo.QueryRegistrations(ctx, RegistrationFilter{EventID: e.ID})
	if err != nil {
		return e, errors.Wrap(err, "querying registrations")
	}
	userIDs := make([]string, 0, len(regs))
	for _, r := range regs {
		userIDs = append(userIDs, r.UserID)
	}
	if len(userIDs) > 0 && svc.notifier != nil {
		title := fmt.Sprintf("%q was cancelled", e.Title)
		if err := svc.notifier.NotifyUsers(ctx, userIDs, "event", title, "", "/events/"+e.ID); err != nil {
			svc.logError("notifying registered users", err)
		}
	}
	return e, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteEvents(ctx, ids...)
}

// Register signs the user up to an approved event that has not started and still has seats.
func (svc *Service) Register(ctx context.Context, eventID, userID string, form RegistrationForm) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, eventID, userID)
	if err != nil {
		return Event{}, err
	}
	if e.Status != status.Approved {
		return Event{}, ErrNotApproved
	}
	if !svc.now().Before(e.StartsAt) {
		return Event{}, ErrEventPast
	}
	if e.Registered {
		return Event{}, ErrAlreadyRegistered
	}
	if e.Full() {
		return Event{}, ErrEventFull
	}
	form.Clean()
	reg := Registration{
		EventID:   e.ID,
		UserID:    userID,
		Answers:   form.Answers,
		CreatedAt: svc.now().UTC(),
	}
	if err := svc.repo.AddRegistration(ctx, reg, e.Capacity); err != nil {
		return Event{}, err
	}
	return svc.repo.GetEvent(ctx, eventID, userID)
}

func (svc *Service) Unregister(ctx context.Context, eventID, userID string) (Event, error) {
	if err := svc.repo.RemoveRegistration(ctx, eventID, userID); err != nil {
		return Event{}, err
	}
	return svc.repo.GetEvent(ctx, eventID, userID)
}

// Registrations returns the registrations of the user, soonest event first.
func (svc *Service) Registrations(ctx context.Context, userID string) ([]Registration, error) {
	return svc.repo.QueryRegistrations(ctx, RegistrationFilter{UserID: userID})
}

// Attendees returns the registrations to an event.
func (svc *Service) Attendees(ctx context.Context, eventID string) ([]Registration, error) {
	return svc.repo.QueryRegistrations(ctx, RegistrationFilter{EventID: eventID})
}

func (svc *Service) notifyCreator(ctx context.Context, e Event) {
	if e.CreatedBy == "" {
		return
	}
	decision := e.Status.String()
	if svc.notifier != nil {
		title := fmt.Sprintf("Your event %q was %s", e.Title, decision)
		if err := svc.notifier.NotifyUsers(ctx, []string{e.CreatedBy}, "event", title, e.ReviewNote, "/events/"+e.ID); err != nil {
			svc.logError("notifying event creator", err)
		}
	}
	if svc.mailSvc == nil || svc.users == nil {
		return
	}
	creator, err := svc.users.GetByID(ctx, e.CreatedBy)
	if err != nil {
		svc.logError("getting event creator", err)
		return
	}
	if creator.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: creator.Name, Address: creator.Email}},
		Subject:      "Event " + decision,
		TemplateName: "event_reviewed",
		TemplateData: map[string]interface{}{
			"ID":       e.ID,
			"Title":    e.Title,
			"Decision": decision,
			"Note":     e.ReviewNote,
		},
	})
}

func (svc *Service) logError(msg string, err error) {
	if svc.logger != nil {
		svc.logger.Error(msg, errors.Wrap(err, msg))
	}
}
