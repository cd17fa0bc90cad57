package remotesvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/status"
)

func clubParams(qf club.QueryFilter) params {
	p := make(params)
	p.set("search", qf.Search)
	p.set("category", qf.Category)
	p.set("tag", qf.Tag)
	if qf.Status.IsValid() {
		p.set("status", qf.Status.String())
	}
	if qf.MemberID != "" {
		p.set("joined", "true")
	}
	return p
}

// Clubs lists the clubs. A non-empty MemberID keeps the clubs the current user joined.
func (c *Client) Clubs(ctx context.Context, qf club.QueryFilter) ([]club.Club, error) {
	var clubs []club.Club
	err := c.do(ctx, rest.Get, "/v1/clubs", clubParams(qf), nil, &clubs)
	return clubs, errors.Wrap(err, "querying clubs")
}

func (c *Client) Club(ctx context.Context, id string) (club.Club, error) {
	var cl club.Club
	err := c.do(ctx, rest.Get, "/v1/clubs/"+id, nil, nil, &cl)
	return cl, errors.Wrap(err, "getting club")
}

func (c *Client) CreateClub(ctx context.Context, nc club.NewClub) (club.Club, error) {
	var cl club.Club
	err := c.do(ctx, rest.Post, "/v1/clubs", nil, nc, &cl)
	return cl, errors.Wrap(err, "creating club")
}

func (c *Client) UpdateClub(ctx context.Context, id string, uc club.UpdateClub) (club.Club, error) {
	var cl club.Club
	err := c.do(ctx, rest.Put, "/v1/clubs/"+id, nil, uc, &cl)
	return cl, errors.Wrap(err, "updating club")
}

func (c *Client) SetClubStatus(ctx context.Context, id string, st status.Status) (club.Club, error) {
	var cl club.Club
	in := map[string]status.Status{"status": st}
	err := c.do(ctx, rest.Put, "/v1/clubs/"+id+"/status", nil, in, &cl)
	return cl, errors.Wrap(err, "setting club status")
}

func (c *Client) DeleteClub(ctx context.Context, id string) error {
	return errors.Wrap(c.do(ctx, rest.Delete, "/v1/clubs/"+id, nil, nil, nil), "deleting club")
}

func (c *Client) JoinClub(ctx context.Context, id string) (club.Club, error) {
	var cl club.Club
	err := c.do(ctx, rest.Post, "/v1/clubs/"+id+"/join", nil, nil, &cl)
	return cl, errors.Wrap(err, "joining club")
}

func (c *Client) LeaveClub(ctx context.Context, id string) (club.Club, error) {
	var cl club.Club
	err := c.do(ctx, rest.Delete, "/v1/clubs/"+id+"/join", nil, nil, &cl)
	return cl, errors.Wrap(err, "leaving club")
}

func (c *Client) Members(ctx context.Context, id string) ([]club.Member, error) {
	var members []club.Member
	err := c.do(ctx, rest.Get, "/v1/clubs/"+id+"/members", nil, nil, &members)
	return members, errors.Wrap(err, "listing members")
}
