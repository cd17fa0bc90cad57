package views

import (
	"context"
	"sort"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/status"
)

type EventsRemote interface {
	Events(ctx context.Context, qf event.QueryFilter) ([]event.Event, error)
	ReviewEvent(ctx context.Context, id, decision, note string) (event.Event, error)
	CancelEvent(ctx context.Context, id string) (event.Event, error)
}

const (
	OpReview = "review"
	OpCancel = "cancel"
)

// Events is the event approval board.
type Events struct {
	*base[event.Event]
	remote EventsRemote
}

// NewEvents loads the events matching qf; the approval board of admins loads them all.
func NewEvents(deps Deps, remote EventsRemote, qf event.QueryFilter) (*Events, error) {
	b, err := newBase(deps, baseOptions[event.Event]{
		name:   "events",
		entity: broadcast.Events,
		fetch: func(ctx context.Context) ([]event.Event, error) {
			return remote.Events(ctx, qf)
		},
	})
	if err != nil {
		return nil, err
	}
	return &Events{base: b, remote: remote}, nil
}

func (v *Events) Items(qf event.QueryFilter) []event.Event {
	qf.Clean()
	return v.filter(func(e event.Event) bool { return event.Match(e, qf) })
}

// Pending returns the events awaiting review, the soonest first.
func (v *Events) Pending() []event.Event {
	pending := v.Items(event.QueryFilter{Statuses: []status.Status{status.Pending}})
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].StartsAt.Before(pending[j].StartsAt) })
	return pending
}

// CountByStatus returns how many loaded events are in each status.
func (v *Events) CountByStatus() map[status.Status]int {
	counts := make(map[status.Status]int)
	for _, e := range v.filter(nil) {
		counts[e.Status]++
	}
	return counts
}

func (v *Events) Approve(ctx context.Context, id, note string) (*optimistic.Pending, error) {
	return v.review(ctx, id, "approve", status.Approved, note)
}

func (v *Events) Reject(ctx context.Context, id, note string) (*optimistic.Pending, error) {
	return v.review(ctx, id, "reject", status.Rejected, note)
}

func (v *Events) review(ctx context.Context, id, decision string, to status.Status, note string) (*optimistic.Pending, error) {
	if !v.sess.IsAdmin() {
		return nil, ErrAdminOnly
	}
	reviewer := v.sess.UserID
	return v.trigger(ctx, optimistic.Intent[event.Event]{
		Op: OpReview,
		Delta: optimistic.Update[event.Event](id, func(e event.Event) event.Event {
			e.Status, e.ReviewNote, e.ReviewedBy = to, note, reviewer
			return e
		}),
		Call: func(ctx context.Context) error {
			_, err := v.remote.ReviewEvent(ctx, id, decision, note)
			return err
		},
		FailureTitle: "Could not " + decision + " the event",
	})
}

func (v *Events) Cancel(ctx context.Context, id string) (*optimistic.Pending, error) {
	if !v.sess.IsManager() {
		return nil, ErrManagerOnly
	}
	return v.trigger(ctx, optimistic.Intent[event.Event]{
		Op: OpCancel,
		Delta: optimistic.Update[event.Event](id, func(e event.Event) event.Event {
			e.Status = status.Cancelled
			return e
		}),
		Call: func(ctx context.Context) error {
			_, err := v.remote.CancelEvent(ctx, id)
			return err
		},
		FailureTitle: "Could not cancel the event",
	})
}
