package remotesvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core/budget"
)

// BudgetRequests lists the budget requests. Club leads must set ClubID.
func (c *Client) BudgetRequests(ctx context.Context, qf budget.QueryFilter) ([]budget.Request, error) {
	p := make(params)
	p.set("club", qf.ClubID)
	p.set("status", joinStatuses(qf.Statuses))
	p.set("category", qf.Category)
	p.set("search", qf.Search)
	var reqs []budget.Request
	err := c.do(ctx, rest.Get, "/v1/budgets/requests", p, nil, &reqs)
	return reqs, errors.Wrap(err, "querying budget requests")
}

func (c *Client) BudgetRequest(ctx context.Context, id string) (budget.Request, error) {
	var r budget.Request
	err := c.do(ctx, rest.Get, "/v1/budgets/requests/"+id, nil, nil, &r)
	return r, errors.Wrap(err, "getting budget request")
}

func (c *Client) CreateBudgetRequest(ctx context.Context, nr budget.NewRequest) (budget.Request, error) {
	var r budget.Request
	err := c.do(ctx, rest.Post, "/v1/budgets/requests", nil, nr, &r)
	return r, errors.Wrap(err, "creating budget request")
}

func (c *Client) ReviewBudgetRequest(ctx context.Context, id, decision, note string) (budget.Request, error) {
	var r budget.Request
	in := budget.ReviewRequest{Decision: decision, Note: note}
	err := c.do(ctx, rest.Post, "/v1/budgets/requests/"+id+"/review", nil, in, &r)
	return r, errors.Wrap(err, "reviewing budget request")
}

func (c *Client) CancelBudgetRequest(ctx context.Context, id string) (budget.Request, error) {
	var r budget.Request
	err := c.do(ctx, rest.Post, "/v1/budgets/requests/"+id+"/cancel", nil, nil, &r)
	return r, errors.Wrap(err, "cancelling budget request")
}

func (c *Client) DeleteBudgetRequest(ctx context.Context, id string) error {
	return errors.Wrap(c.do(ctx, rest.Delete, "/v1/budgets/requests/"+id, nil, nil, nil), "deleting budget request")
}

func (c *Client) Allocations(ctx context.Context) ([]budget.Allocation, error) {
	var as []budget.Allocation
	err := c.do(ctx, rest.Get, "/v1/budgets/allocations", nil, nil, &as)
	return as, errors.Wrap(err, "listing allocations")
}

func (c *Client) SetAllocation(ctx context.Context, clubID string, allocated int64) (budget.Allocation, error) {
	var a budget.Allocation
	in := budget.SetAllocation{Allocated: allocated}
	err := c.do(ctx, rest.Put, "/v1/budgets/allocations/"+clubID, nil, in, &a)
	return a, errors.Wrap(err, "setting allocation")
}

// BudgetSummary returns the budget figures of a club, of every club with an empty id.
func (c *Client) BudgetSummary(ctx context.Context, clubID string) (budget.Summary, error) {
	p := make(params)
	p.set("club", clubID)
	var s budget.Summary
	err := c.do(ctx, rest.Get, "/v1/budgets/summary", p, nil, &s)
	return s, errors.Wrap(err, "getting budget summary")
}
