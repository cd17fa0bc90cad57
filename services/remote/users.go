package remotesvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core/user"
)

// Users lists the users (admins only). Only the first of Roles is sent.
func (c *Client) Users(ctx context.Context, qf user.QueryFilter) ([]user.User, error) {
	p := make(params)
	p.set("search", qf.Search)
	p.setBool("is_active", qf.IsActive)
	p.set("department", qf.Department)
	p.set("interest", qf.Interest)
	p.setTime("created_from", qf.CreatedFrom)
	p.setTime("created_to", qf.CreatedTo)
	if len(qf.Roles) > 0 {
		p.set("role", qf.Roles[0])
	}
	var users []user.User
	err := c.do(ctx, rest.Get, "/v1/users", p, nil, &users)
	return users, errors.Wrap(err, "querying users")
}

func (c *Client) User(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	err := c.do(ctx, rest.Get, "/v1/users/"+id, nil, nil, &usr)
	return usr, errors.Wrap(err, "getting user")
}

func (c *Client) CreateUser(ctx context.Context, nu user.NewUser) (user.User, error) {
	var usr user.User
	err := c.do(ctx, rest.Post, "/v1/users/register", nil, nu, &usr)
	return usr, errors.Wrap(err, "creating user")
}

// SetUserActive activates or deactivates an account.
func (c *Client) SetUserActive(ctx context.Context, id string, active bool) (user.User, error) {
	var usr user.User
	in := map[string]bool{"is_active": active}
	err := c.do(ctx, rest.Put, "/v1/users/"+id+"/status", nil, in, &usr)
	return usr, errors.Wrap(err, "setting user status")
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return errors.Wrap(c.do(ctx, rest.Delete, "/v1/users/"+id, nil, nil, nil), "deleting user")
}

func (c *Client) Roles(ctx context.Context) ([]user.Role, error) {
	var roles []user.Role
	err := c.do(ctx, rest.Get, "/v1/users/roles", nil, nil, &roles)
	return roles, errors.Wrap(err, "listing roles")
}
