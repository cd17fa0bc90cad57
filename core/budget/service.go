package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/status"
)

var (
	ErrNotFound           = core.NewNotFoundError("budget request not found")
	ErrInsufficientBudget = core.NewConflictError("approving this request exceeds the club allocation")
	ErrStatusTransition   = core.NewConflictError("status change not allowed")
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, r Request) (Request, error)
		// QueryRequests returns the newest requests first.
		QueryRequests(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		// UpdateRequest stores r if its stored status is still from, and returns
		// ErrStatusTransition when another write changed it first.
		UpdateRequest(ctx context.Context, r Request, from status.Status) (Request, error)
		// ApproveRequest approves r when the club approved total plus r.Amount stays within
		// its allocation, atomically. It returns ErrInsufficientBudget otherwise and
		// checks from like UpdateRequest.
		ApproveRequest(ctx context.Context, r Request, from status.Status) (Request, error)
		DeleteRequests(ctx context.Context, ids ...string) error
		// GetAllocation returns a zero allocation for clubs that have none.
		GetAllocation(ctx context.Context, clubID string) (Allocation, error)
		QueryAllocations(ctx context.Context) ([]Allocation, error)
		SetAllocation(ctx context.Context, a Allocation) (Allocation, error)
	}

	Notifier interface {
		NotifyUsers(ctx context.Context, userIDs []string, kind, title, body, link string) error
	}

	Service struct {
		repo     Repository
		notifier Notifier
		logger   core.Logger
	}
)

// NewService builds the budget service. notifier and logger may be nil.
func NewService(repo Repository, notifier Notifier, logger core.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

func (svc *Service) CreateRequest(ctx context.Context, nr NewRequest, requestedBy string) (Request, error) {
	now := time.Now().UTC()
	return svc.repo.CreateRequest(ctx, Request{
		ID:          core.NewID(),
		ClubID:      nr.ClubID,
		Title:       nr.Title,
		Description: nr.Description,
		Category:    nr.Category,
		Amount:      nr.Amount,
		Status:      status.Pending,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Request, error) {
	filter.Clean()
	return svc.repo.QueryRequests(ctx, filter, core.CleanOrderings(orderings, AllowedOrderings...))
}

func (svc *Service) Get(ctx context.Context, id string) (Request, error) {
	return svc.repo.GetRequest(ctx, id)
}

// Review approves or rejects a pending request. Approval fails with ErrInsufficientBudget
// when it would take the club over its allocation.
func (svc *Service) Review(ctx context.Context, id string, rr ReviewRequest, reviewerID string) (Request, error) {
	r, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	target := status.Rejected
	if rr.Decision == DecisionApprove {
		target = status.Approved
	}
	from := r.Status
	if !status.Allowed(from, target) {
		return Request{}, ErrStatusTransition
	}
	r.Status = target
	r.ReviewedBy = reviewerID
	r.ReviewNote = rr.Note
	r.UpdatedAt = time.Now().UTC()

	if target == status.Approved {
		r, err = svc.repo.ApproveRequest(ctx, r, from)
	} else {
		r, err = svc.repo.UpdateRequest(ctx, r, from)
	}
	if err != nil {
		return Request{}, err
	}

	if svc.notifier != nil && r.RequestedBy != "" {
		title := fmt.Sprintf("Budget request %q was %s", r.Title, r.Status)
		// best effort, the review is stored
		if err := svc.notifier.NotifyUsers(ctx, []string{r.RequestedBy}, "budget", title, r.ReviewNote, "/budgets/"+r.ID); err != nil {
			svc.logError("notifying budget requester", err)
		}
	}
	return r, nil
}

// Cancel withdraws a pending request.
func (svc *Service) Cancel(ctx context.Context, id string) (Request, error) {
	r, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.Status != status.Pending {
		return Request{}, ErrStatusTransition
	}
	r.Status = status.Cancelled
	r.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRequest(ctx, r, status.Pending)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteRequests(ctx, ids...)
}

func (svc *Service) SetAllocation(ctx context.Context, clubID string, sa SetAllocation) (Allocation, error) {
	if sa.Allocated < 0 {
		return Allocation{}, core.NewValidationError(nil, core.FieldError{Field: "allocated", Error: "must be 0 or greater"})
	}
	return svc.repo.SetAllocation(ctx, Allocation{
		ClubID:    clubID,
		Allocated: sa.Allocated,
		UpdatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Allocations(ctx context.Context) ([]Allocation, error) {
	return svc.repo.QueryAllocations(ctx)
}

// Summary aggregates the requests of a club, or of every club when clubID is empty.
func (svc *Service) Summary(ctx context.Context, clubID string) (Summary, error) {
	var allocated int64
	if clubID != "" {
		a, err := svc.repo.GetAllocation(ctx, clubID)
		if err != nil {
			return Summary{}, errors.Wrap(err, "getting allocation")
		}
		allocated = a.Allocated
	} else {
		as, err := svc.repo.QueryAllocations(ctx)
		if err != nil {
			return Summary{}, errors.Wrap(err, "querying allocations")
		}
		for _, a := range as {
			allocated += a.Allocated
		}
	}
	reqs, err := svc.repo.QueryRequests(ctx, QueryFilter{ClubID: clubID}, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying requests")
	}
	s := Summarize(allocated, reqs)
	s.ClubID = clubID
	return s, nil
}

func (svc *Service) logError(msg string, err error) {
	if svc.logger != nil {
		svc.logger.Error(msg, errors.Wrap(err, msg))
	}
}
