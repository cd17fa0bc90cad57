package views

import (
	"context"
	"sync"

	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/budget"
	"github.com/nexussync/clubs/core/optimistic"
	"github.com/nexussync/clubs/core/status"
)

type BudgetsRemote interface {
	BudgetRequests(ctx context.Context, qf budget.QueryFilter) ([]budget.Request, error)
	BudgetSummary(ctx context.Context, clubID string) (budget.Summary, error)
	ReviewBudgetRequest(ctx context.Context, id, decision, note string) (budget.Request, error)
	CancelBudgetRequest(ctx context.Context, id string) (budget.Request, error)
}

// Budgets tracks the budget requests of one club, or of every club for admins.
type Budgets struct {
	*base[budget.Request]
	remote BudgetsRemote
	clubID string

	mu        sync.Mutex
	allocated int64
}

func NewBudgets(deps Deps, remote BudgetsRemote, clubID string) (*Budgets, error) {
	if clubID == "" && !deps.Session.IsAdmin() {
		return nil, ErrAdminOnly
	}
	v := &Budgets{remote: remote, clubID: clubID}
	b, err := newBase(deps, baseOptions[budget.Request]{
		name:   "budgets",
		entity: broadcast.Budgets,
		fetch:  v.fetch,
		// approvals move the club figures, which only the API knows
		reloadOnSuccess: true,
	})
	if err != nil {
		return nil, err
	}
	v.base = b
	return v, nil
}

// fetch loads the requests along with the allocation they are summarized against.
func (v *Budgets) fetch(ctx context.Context) ([]budget.Request, error) {
	reqs, err := v.remote.BudgetRequests(ctx, budget.QueryFilter{ClubID: v.clubID})
	if err != nil {
		return nil, err
	}
	s, err := v.remote.BudgetSummary(ctx, v.clubID)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.allocated = s.Allocated
	v.mu.Unlock()
	return reqs, nil
}

func (v *Budgets) Items(qf budget.QueryFilter) []budget.Request {
	qf.Clean()
	return v.filter(func(r budget.Request) bool { return budget.Match(r, qf) })
}

// Summary aggregates the loaded requests, optimistic reviews included.
func (v *Budgets) Summary() budget.Summary {
	v.mu.Lock()
	allocated := v.allocated
	v.mu.Unlock()
	s := budget.Summarize(allocated, v.filter(nil))
	s.ClubID = v.clubID
	return s
}

func (v *Budgets) Approve(ctx context.Context, id, note string) (*optimistic.Pending, error) {
	return v.review(ctx, id, "approve", status.Approved, note)
}

func (v *Budgets) Reject(ctx context.Context, id, note string) (*optimistic.Pending, error) {
	return v.review(ctx, id, "reject", status.Rejected, note)
}

func (v *Budgets) review(ctx context.Context, id, decision string, to status.Status, note string) (*optimistic.Pending, error) {
	if !v.sess.IsAdmin() {
		return nil, ErrAdminOnly
	}
	reviewer := v.sess.UserID
	return v.trigger(ctx, optimistic.Intent[budget.Request]{
		Op: OpReview,
		Delta: optimistic.Update[budget.Request](id, func(r budget.Request) budget.Request {
			r.Status, r.ReviewNote, r.ReviewedBy = to, note, reviewer
			return r
		}),
		Call: func(ctx context.Context) error {
			_, err := v.remote.ReviewBudgetRequest(ctx, id, decision, note)
			return err
		},
		FailureTitle: "Could not " + decision + " the budget request",
	})
}

func (v *Budgets) Cancel(ctx context.Context, id string) (*optimistic.Pending, error) {
	return v.trigger(ctx, optimistic.Intent[budget.Request]{
		Op: OpCancel,
		Delta: optimistic.Update[budget.Request](id, func(r budget.Request) budget.Request {
			r.Status = status.Cancelled
			return r
		}),
		Call: func(ctx context.Context) error {
			_, err := v.remote.CancelBudgetRequest(ctx, id)
			return err
		},
		FailureTitle: "Could not cancel the budget request",
	})
}
