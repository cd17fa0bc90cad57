package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, name, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	created := false
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		created = true
		usr = user.User{
			ID:        core.NewID(),
			Username:  uname,
			Email:     email,
			Roles:     []string{user.RoleStudent},
			CreatedAt: now,
		}
	}
	if name != "" {
		usr.Name = name
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if created {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
