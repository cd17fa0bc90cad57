package remotesvc

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core/campus"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/venue"
)

func joinStatuses(sts []status.Status) string {
	names := make([]string, 0, len(sts))
	for _, st := range sts {
		if st.IsValid() {
			names = append(names, st.String())
		}
	}
	return strings.Join(names, ",")
}

func (c *Client) Events(ctx context.Context, qf event.QueryFilter) ([]event.Event, error) {
	p := make(params)
	p.set("club", qf.ClubID)
	p.set("venue", qf.VenueID)
	p.set("status", joinStatuses(qf.Statuses))
	p.setTime("from", qf.From)
	p.setTime("to", qf.To)
	p.set("search", qf.Search)
	p.set("tag", qf.Tag)
	if qf.RegisteredOnly {
		p.set("registered", "true")
	}

	var events []event.Event
	err := c.do(ctx, rest.Get, "/v1/events", p, nil, &events)
	return events, errors.Wrap(err, "querying events")
}

func (c *Client) Event(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	err := c.do(ctx, rest.Get, "/v1/events/"+id, nil, nil, &e)
	return e, errors.Wrap(err, "getting event")
}

func (c *Client) CreateEvent(ctx context.Context, ne event.NewEvent) (event.Event, error) {
	var e event.Event
	err := c.do(ctx, rest.Post, "/v1/events", nil, ne, &e)
	return e, errors.Wrap(err, "creating event")
}

func (c *Client) UpdateEvent(ctx context.Context, id string, ue event.UpdateEvent) (event.Event, error) {
	var e event.Event
	err := c.do(ctx, rest.Put, "/v1/events/"+id, nil, ue, &e)
	return e, errors.Wrap(err, "updating event")
}

// ReviewEvent approves ("approve") or rejects ("reject") a pending event.
func (c *Client) ReviewEvent(ctx context.Context, id, decision, note string) (event.Event, error) {
	var e event.Event
	in := event.ReviewRequest{Decision: decision, Note: note}
	err := c.do(ctx, rest.Post, "/v1/events/"+id+"/review", nil, in, &e)
	return e, errors.Wrap(err, "reviewing event")
}

func (c *Client) CancelEvent(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	err := c.do(ctx, rest.Post, "/v1/events/"+id+"/cancel", nil, nil, &e)
	return e, errors.Wrap(err, "cancelling event")
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return errors.Wrap(c.do(ctx, rest.Delete, "/v1/events/"+id, nil, nil, nil), "deleting event")
}

// Register signs the current user up to the event with the registration form answers.
func (c *Client) Register(ctx context.Context, id string, answers map[string]string) (event.Event, error) {
	var e event.Event
	in := event.RegistrationForm{Answers: answers}
	err := c.do(ctx, rest.Post, "/v1/events/"+id+"/registration", nil, in, &e)
	return e, errors.Wrap(err, "registering to event")
}

func (c *Client) Unregister(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	err := c.do(ctx, rest.Delete, "/v1/events/"+id+"/registration", nil, nil, &e)
	return e, errors.Wrap(err, "unregistering from event")
}

// Registrations lists the registrations of the current user.
func (c *Client) Registrations(ctx context.Context) ([]event.Registration, error) {
	var regs []event.Registration
	err := c.do(ctx, rest.Get, "/v1/registrations", nil, nil, &regs)
	return regs, errors.Wrap(err, "listing registrations")
}

func (c *Client) Attendees(ctx context.Context, id string) ([]event.Registration, error) {
	var regs []event.Registration
	err := c.do(ctx, rest.Get, "/v1/events/"+id+"/attendees", nil, nil, &regs)
	return regs, errors.Wrap(err, "listing attendees")
}

func (c *Client) Venues(ctx context.Context, qf venue.QueryFilter) ([]venue.Venue, error) {
	p := make(params)
	p.set("search", qf.Search)
	p.set("facility", qf.Facility)
	if qf.MinCapacity > 0 {
		p.set("min_capacity", strconv.Itoa(qf.MinCapacity))
	}
	var venues []venue.Venue
	err := c.do(ctx, rest.Get, "/v1/venues", p, nil, &venues)
	return venues, errors.Wrap(err, "querying venues")
}

// CampusMap returns the venue markers with the events booked between from and to.
func (c *Client) CampusMap(ctx context.Context, from, to time.Time) (campus.Map, error) {
	p := make(params)
	p.setTime("from", from)
	p.setTime("to", to)
	var m campus.Map
	err := c.do(ctx, rest.Get, "/v1/venues/map", p, nil, &m)
	return m, errors.Wrap(err, "getting campus map")
}
