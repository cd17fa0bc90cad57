package views

import (
	"context"
	"sort"
	"time"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/conflict"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/status"
)

type ConflictsRemote interface {
	Conflicts(ctx context.Context, qf conflict.QueryFilter) ([]conflict.Conflict, error)
	ResolveConflict(ctx context.Context, id, note string) (conflict.Conflict, error)
	ReopenConflict(ctx context.Context, id string) (conflict.Conflict, error)
}

const OpResolution = "resolution"

// Conflicts is the scheduling conflicts board of admins. Conflicts are computed from
// events, so event changes reload it too.
type Conflicts struct {
	*base[conflict.Conflict]
	remote ConflictsRemote
}

// NewConflicts loads the conflicts overlapping [from, to).
func NewConflicts(deps Deps, remote ConflictsRemote, from, to time.Time) (*Conflicts, error) {
	if !deps.Session.IsAdmin() {
		return nil, ErrAdminOnly
	}
	b, err := newBase(deps, baseOptions[conflict.Conflict]{
		name:   "conflicts",
		entity: broadcast.Conflicts,
		fetch: func(ctx context.Context) ([]conflict.Conflict, error) {
			return remote.Conflicts(ctx, conflict.QueryFilter{From: from, To: to})
		},
		watch: []broadcast.Entity{broadcast.Conflicts, broadcast.Events},
	})
	if err != nil {
		return nil, err
	}
	return &Conflicts{base: b, remote: remote}, nil
}

// Items returns the matching conflicts, the most severe first, then the soonest.
func (v *Conflicts) Items(qf conflict.QueryFilter) []conflict.Conflict {
	items := v.filter(func(c conflict.Conflict) bool { return conflict.Match(c, qf) })
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Severity != items[j].Severity {
			return items[i].Severity > items[j].Severity
		}
		return items[i].Start.Before(items[j].Start)
	})
	return items
}

func (v *Conflicts) OpenCount() int {
	return len(v.Items(conflict.QueryFilter{Status: status.Open}))
}

func (v *Conflicts) Resolve(ctx context.Context, id, note string) (*optimistic.Pending, error) {
	by := v.sess.UserID
	return v.trigger(ctx, optimistic.Intent[conflict.Conflict]{
		Op: OpResolution,
		Delta: optimistic.Update[conflict.Conflict](id, func(c conflict.Conflict) conflict.Conflict {
			now := time.Now().UTC()
			c.Status, c.Note, c.ResolvedBy, c.ResolvedAt = status.Resolved, note, by, &now
			return c
		}),
		Call: func(ctx context.Context) error {
			_, err := v.remote.ResolveConflict(ctx, id, note)
			return err
		},
		FailureTitle: "Could not resolve the conflict",
	})
}

func (v *Conflicts) Reopen(ctx context.Context, id string) (*optimistic.Pending, error) {
	return v.trigger(ctx, optimistic.Intent[conflict.Conflict]{
		Op: OpResolution,
		Delta: optimistic.Update[conflict.Conflict](id, func(c conflict.Conflict) conflict.Conflict {
			c.Status, c.Note, c.ResolvedBy, c.ResolvedAt = status.Open, "", "", nil
			return c
		}),
		Call: func(ctx context.Context) error {
			_, err := v.remote.ReopenConflict(ctx, id)
			return err
		},
		FailureTitle: "Could not reopen the conflict",
	})
}
