package views

import (
	"context"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/user"
)

type UsersRemote interface {
	Users(ctx context.Context, qf user.QueryFilter) ([]user.User, error)
	SetUserActive(ctx context.Context, id string, active bool) (user.User, error)
}

const OpActivation = "activation"

var ErrOwnAccount = core.NewForbiddenError("you cannot deactivate your own account")

// Users is the user management view of admins.
type Users struct {
	*base[user.User]
	remote UsersRemote
}

func NewUsers(deps Deps, remote UsersRemote) (*Users, error) {
	if !deps.Session.IsAdmin() {
		return nil, ErrAdminOnly
	}
	b, err := newBase(deps, baseOptions[user.User]{
		name:   "users",
		entity: broadcast.Users,
		fetch: func(ctx context.Context) ([]user.User, error) {
			return remote.Users(ctx, user.QueryFilter{})
		},
	})
	if err != nil {
		return nil, err
	}
	return &Users{base: b, remote: remote}, nil
}

func (v *Users) Items(qf user.QueryFilter) []user.User {
	qf.Clean()
	return v.filter(func(u user.User) bool { return user.Match(u, qf) })
}

func toggleActive(u user.User) user.User {
	u.IsActive = !u.IsActive
	return u
}

// Toggle flips the activation of a user.
func (v *Users) Toggle(ctx context.Context, id string) (*optimistic.Pending, error) {
	if id == v.sess.UserID {
		return nil, ErrOwnAccount
	}
	u, ok := v.Get(id)
	if !ok {
		return nil, user.ErrNotFound
	}
	active := !u.IsActive
	return v.trigger(ctx, optimistic.Intent[user.User]{
		Op:    OpActivation,
		Delta: optimistic.Update[user.User](id, toggleActive),
		Call: func(ctx context.Context) error {
			_, err := v.remote.SetUserActive(ctx, id, active)
			return err
		},
		FailureTitle: "Could not update " + u.Username,
	})
}
