package views

import (
	"context"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/status"
)

type ClubsRemote interface {
	Clubs(ctx context.Context, qf club.QueryFilter) ([]club.Club, error)
	JoinClub(ctx context.Context, id string) (club.Club, error)
	LeaveClub(ctx context.Context, id string) (club.Club, error)
	SetClubStatus(ctx context.Context, id string, st status.Status) (club.Club, error)
}

const (
	OpMembership = "membership"
	OpStatus     = "status"
)

// Clubs is the club directory (students) and the club oversight board (admins).
type Clubs struct {
	*base[club.Club]
	remote ClubsRemote
}

func NewClubs(deps Deps, remote ClubsRemote) (*Clubs, error) {
	b, err := newBase(deps, baseOptions[club.Club]{
		name:   "clubs",
		entity: broadcast.Clubs,
		fetch: func(ctx context.Context) ([]club.Club, error) {
			return remote.Clubs(ctx, club.QueryFilter{})
		},
	})
	if err != nil {
		return nil, err
	}
	return &Clubs{base: b, remote: remote}, nil
}

// Items applies the directory filters (category, free text, tag, status, joined) to the
// whole loaded collection.
func (v *Clubs) Items(qf club.QueryFilter) []club.Club {
	qf.Clean()
	return v.filter(func(c club.Club) bool { return club.Match(c, qf) })
}

// Categories returns the categories holding at least one loaded club, in the
// canonical order.
func (v *Clubs) Categories() []string {
	used := make(map[string]bool)
	for _, c := range v.filter(nil) {
		used[club.CanonicalCategory(c.Category)] = true
	}
	var out []string
	for _, name := range club.Categories {
		if used[name] {
			out = append(out, name)
		}
	}
	return out
}

func join(c club.Club) club.Club {
	if !c.Joined {
		c.Joined = true
		c.MemberCount = c.MemberCount.Inc()
	}
	return c
}

func leave(c club.Club) club.Club {
	if c.Joined {
		c.Joined = false
		c.MemberCount = c.MemberCount.Dec()
	}
	return c
}

func (v *Clubs) Join(ctx context.Context, id string) (*optimistic.Pending, error) {
	return v.trigger(ctx, optimistic.Intent[club.Club]{
		Op:    OpMembership,
		Delta: optimistic.Update[club.Club](id, join),
		Call: func(ctx context.Context) error {
			_, err := v.remote.JoinClub(ctx, id)
			return err
		},
		FailureTitle: "Could not join the club",
	})
}

func (v *Clubs) Leave(ctx context.Context, id string) (*optimistic.Pending, error) {
	return v.trigger(ctx, optimistic.Intent[club.Club]{
		Op:    OpMembership,
		Delta: optimistic.Update[club.Club](id, leave),
		Call: func(ctx context.Context) error {
			_, err := v.remote.LeaveClub(ctx, id)
			return err
		},
		FailureTitle: "Could not leave the club",
	})
}

// SetStatus activates or deactivates a club (admins only).
func (v *Clubs) SetStatus(ctx context.Context, id string, st status.Status) (*optimistic.Pending, error) {
	if !v.sess.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return v.trigger(ctx, optimistic.Intent[club.Club]{
		Op: OpStatus,
		Delta: optimistic.Update[club.Club](id, func(c club.Club) club.Club {
			c.Status = st
			return c
		}),
		Call: func(ctx context.Context) error {
			_, err := v.remote.SetClubStatus(ctx, id, st)
			return err
		},
		FailureTitle: "Could not change the club status",
	})
}
