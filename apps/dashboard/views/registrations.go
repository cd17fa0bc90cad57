package views

import (
	"context"
	"time"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/optimistic"
)

type RegistrationsRemote interface {
	Registrations(ctx context.Context) ([]event.Registration, error)
	Register(ctx context.Context, eventID string, answers map[string]string) (event.Event, error)
	Unregister(ctx context.Context, eventID string) (event.Event, error)
}

const OpRegistration = "registration"

// Registrations lists the events the session user registered to, keyed by event id.
type Registrations struct {
	*base[event.Registration]
	remote RegistrationsRemote
}

func NewRegistrations(deps Deps, remote RegistrationsRemote) (*Registrations, error) {
	b, err := newBase(deps, baseOptions[event.Registration]{
		name:   "registrations",
		entity: broadcast.Registrations,
		fetch:  remote.Registrations,
		watch:  []broadcast.Entity{broadcast.Registrations, broadcast.Events},
	})
	if err != nil {
		return nil, err
	}
	return &Registrations{base: b, remote: remote}, nil
}

func (r *Registrations) Items() []event.Registration {
	return r.filter(nil)
}

// Upcoming returns the registrations to events that did not end at now.
func (r *Registrations) Upcoming(now time.Time) []event.Registration {
	return r.filter(func(reg event.Registration) bool { return reg.EndsAt.After(now) })
}

func (r *Registrations) IsRegistered(eventID string) bool {
	_, ok := r.Get(eventID)
	return ok
}

// Register adds the registration at once and reloads the list once the API confirmed it.
func (r *Registrations) Register(ctx context.Context, e event.Event, answers map[string]string) (*optimistic.Pending, error) {
	reg := event.Registration{
		EventID:    e.ID,
		UserID:     r.sess.UserID,
		UserName:   r.sess.Name,
		EventTitle: e.Title,
		ClubID:     e.ClubID,
		VenueID:    e.VenueID,
		StartsAt:   e.StartsAt,
		EndsAt:     e.EndsAt,
		Status:     e.Status,
		Answers:    answers,
		CreatedAt:  time.Now().UTC(),
	}
	return r.trigger(ctx, optimistic.Intent[event.Registration]{
		Op:    OpRegistration,
		Delta: optimistic.Insert(reg),
		Call: func(ctx context.Context) error {
			_, err := r.remote.Register(ctx, e.ID, answers)
			return err
		},
		FailureTitle: "Could not register to " + e.Title,
		Reload:       boolPtr(true),
	})
}

// Unregister drops the registration at once; the other registrations keep their order.
func (r *Registrations) Unregister(ctx context.Context, eventID string) (*optimistic.Pending, error) {
	return r.trigger(ctx, optimistic.Intent[event.Registration]{
		Op:    OpRegistration,
		Delta: optimistic.Remove[event.Registration](eventID),
		Call: func(ctx context.Context) error {
			_, err := r.remote.Unregister(ctx, eventID)
			return err
		},
		FailureTitle: "Could not cancel the registration",
	})
}
