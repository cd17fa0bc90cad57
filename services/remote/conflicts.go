package remotesvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core/conflict"
)

func (c *Client) Conflicts(ctx context.Context, qf conflict.QueryFilter) ([]conflict.Conflict, error) {
	p := make(params)
	p.setTime("from", qf.From)
	p.setTime("to", qf.To)
	p.set("kind", string(qf.Kind))
	if qf.Status.IsValid() {
		p.set("status", qf.Status.String())
	}
	if qf.MinSeverity > 0 {
		p.set("min_severity", qf.MinSeverity.String())
	}
	var cs []conflict.Conflict
	err := c.do(ctx, rest.Get, "/v1/conflicts", p, nil, &cs)
	return cs, errors.Wrap(err, "querying conflicts")
}

func (c *Client) Conflict(ctx context.Context, id string) (conflict.Conflict, error) {
	var cf conflict.Conflict
	err := c.do(ctx, rest.Get, "/v1/conflicts/"+id, nil, nil, &cf)
	return cf, errors.Wrap(err, "getting conflict")
}

func (c *Client) ResolveConflict(ctx context.Context, id, note string) (conflict.Conflict, error) {
	var cf conflict.Conflict
	in := conflict.ResolveRequest{Note: note}
	err := c.do(ctx, rest.Post, "/v1/conflicts/"+id+"/resolve", nil, in, &cf)
	return cf, errors.Wrap(err, "resolving conflict")
}

func (c *Client) ReopenConflict(ctx context.Context, id string) (conflict.Conflict, error) {
	var cf conflict.Conflict
	err := c.do(ctx, rest.Post, "/v1/conflicts/"+id+"/reopen", nil, nil, &cf)
	return cf, errors.Wrap(err, "reopening conflict")
}
