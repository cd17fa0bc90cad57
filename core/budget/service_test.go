package budget

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/status"
)

type memRepo struct {
	mu          sync.Mutex
	reqs        map[string]Request
	allocations map[string]Allocation
	// beforeWrite runs between the read and the write of a review
	beforeWrite func()
}

func newMemRepo() *memRepo {
	return &memRepo{reqs: make(map[string]Request), allocations: make(map[string]Allocation)}
}

func (r *memRepo) CreateRequest(_ context.Context, req Request) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs[req.ID] = req
	return req, nil
}

func (r *memRepo) QueryRequests(_ context.Context, filter QueryFilter, _ []core.DBOrdering) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Request
	for _, req := range r.reqs {
		if filter.ClubID == "" || req.ClubID == filter.ClubID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *memRepo) GetRequest(_ context.Context, id string) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (r *memRepo) write(req Request, from status.Status, check func() error) (Request, error) {
	if hook := r.beforeWrite; hook != nil {
		r.beforeWrite = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.reqs[req.ID]
	if !ok {
		return Request{}, ErrNotFound
	}
	if cur.Status != from {
		return Request{}, ErrStatusTransition
	}
	if check != nil {
		if err := check(); err != nil {
			return Request{}, err
		}
	}
	r.reqs[req.ID] = req
	return req, nil
}

func (r *memRepo) UpdateRequest(_ context.Context, req Request, from status.Status) (Request, error) {
	return r.write(req, from, nil)
}

func (r *memRepo) ApproveRequest(_ context.Context, req Request, from status.Status) (Request, error) {
	return r.write(req, from, func() error {
		approved := req.Amount
		for _, other := range r.reqs {
			if other.ClubID == req.ClubID && other.Status == status.Approved && other.ID != req.ID {
				approved += other.Amount
			}
		}
		if approved > r.allocations[req.ClubID].Allocated {
			return ErrInsufficientBudget
		}
		return nil
	})
}

func (r *memRepo) DeleteRequests(_ context.Context, ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.reqs, id)
	}
	return nil
}

func (r *memRepo) GetAllocation(_ context.Context, clubID string) (Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocations[clubID], nil
}

func (r *memRepo) QueryAllocations(_ context.Context) ([]Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Allocation
	for _, a := range r.allocations {
		out = append(out, a)
	}
	return out, nil
}

func (r *memRepo) SetAllocation(_ context.Context, a Allocation) (Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocations[a.ClubID] = a
	return a, nil
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) NotifyUsers(context.Context, []string, string, string, string, string) error {
	n.calls++
	return errors.New("smtp down")
}

type recordingLogger struct{ errs []string }

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.errs = append(l.errs, msg)
}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func TestReview(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*memRepo, *failingNotifier, *recordingLogger, *Service, Request) {
		repo := newMemRepo()
		notifier := &failingNotifier{}
		logger := &recordingLogger{}
		svc := NewService(repo, notifier, logger)
		_, err := svc.SetAllocation(ctx, "c1", SetAllocation{Allocated: 1000})
		require.NoError(t, err)
		r, err := svc.CreateRequest(ctx, NewRequest{ClubID: "c1", Title: "Arduino kits", Category: CategoryEquipment, Amount: 600}, "u1")
		require.NoError(t, err)
		return repo, notifier, logger, svc, r
	}

	t.Run("notify failure is logged", func(t *testing.T) {
		_, notifier, logger, svc, r := setup(t)
		got, err := svc.Review(ctx, r.ID, ReviewRequest{Decision: DecisionApprove, Note: "ok"}, "admin")
		require.NoError(t, err)
		assert.Equal(t, status.Approved, got.Status)
		assert.Equal(t, 1, notifier.calls)
		assert.Equal(t, []string{"notifying budget requester"}, logger.errs)
	})

	t.Run("losing a concurrent review", func(t *testing.T) {
		repo, _, _, svc, r := setup(t)
		repo.beforeWrite = func() {
			_, err := svc.Review(ctx, r.ID, ReviewRequest{Decision: DecisionReject}, "admin2")
			require.NoError(t, err)
		}
		_, err := svc.Review(ctx, r.ID, ReviewRequest{Decision: DecisionApprove}, "admin1")
		assert.Equal(t, ErrStatusTransition, err)

		got, err := svc.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, status.Rejected, got.Status)
		assert.Equal(t, "admin2", got.ReviewedBy)
	})

	t.Run("cancel after review", func(t *testing.T) {
		repo, _, _, svc, r := setup(t)
		repo.beforeWrite = func() {
			_, err := svc.Review(ctx, r.ID, ReviewRequest{Decision: DecisionApprove}, "admin")
			require.NoError(t, err)
		}
		_, err := svc.Cancel(ctx, r.ID)
		assert.Equal(t, ErrStatusTransition, err)
	})

	t.Run("over allocation", func(t *testing.T) {
		_, _, _, svc, r := setup(t)
		_, err := svc.Review(ctx, r.ID, ReviewRequest{Decision: DecisionApprove}, "admin")
		require.NoError(t, err)
		r2, err := svc.CreateRequest(ctx, NewRequest{ClubID: "c1", Title: "Travel", Category: CategoryTravel, Amount: 500}, "u1")
		require.NoError(t, err)
		_, err = svc.Review(ctx, r2.ID, ReviewRequest{Decision: DecisionApprove}, "admin")
		assert.Equal(t, ErrInsufficientBudget, err)
	})
}
