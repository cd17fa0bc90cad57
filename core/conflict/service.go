package conflict

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
)

var (
	ErrNotFound         = core.NewNotFoundError("conflict not found")
	ErrStatusTransition = core.NewConflictError("status change not allowed")
)

// Resolution is what is stored about a conflict: conflicts themselves are computed.
type Resolution struct {
	ConflictID string    `json:"conflict_id"`
	Note       string    `json:"note"`
	ResolvedBy string    `json:"resolved_by"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type ResolveRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

type QueryFilter struct {
	From   time.Time
	To     time.Time
	Status status.Status // Open, Resolved or Unknown for both
	Kind   Kind
	// MinSeverity drops what is less severe.
	MinSeverity Severity
}

// Match is the client-side form of QueryFilter, the window aside.
func Match(c Conflict, qf QueryFilter) bool {
	if qf.Status != status.Unknown && c.Status != qf.Status {
		return false
	}
	if qf.Kind != "" && c.Kind != qf.Kind {
		return false
	}
	return c.Severity >= qf.MinSeverity
}

type (
	Repository interface {
		// QueryResolutions returns every resolution, or those of ids.
		QueryResolutions(ctx context.Context, ids ...string) ([]Resolution, error)
		SaveResolution(ctx context.Context, r Resolution) error
		DeleteResolution(ctx context.Context, conflictID string) error
	}

	EventQuerier interface {
		Query(ctx context.Context, filter event.QueryFilter, orderings []core.DBOrdering, viewerID string) ([]event.Event, error)
	}

	Service struct {
		repo   Repository
		events EventQuerier
	}
)

func NewService(repo Repository, events EventQuerier) *Service {
	return &Service{repo: repo, events: events}
}

// Query detects the conflicts between the events overlapping the filter window and
// merges the stored resolutions in.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Conflict, error) {
	evs, err := svc.events.Query(ctx, event.QueryFilter{
		Statuses: []status.Status{status.Pending, status.Approved},
		From:     filter.From,
		To:       filter.To,
	}, nil, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}

	detected := Detect(evs)
	resolutions, err := svc.repo.QueryResolutions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying resolutions")
	}
	byID := make(map[string]Resolution, len(resolutions))
	for _, r := range resolutions {
		byID[r.ConflictID] = r
	}

	conflicts := make([]Conflict, 0, len(detected))
	for _, c := range detected {
		if r, ok := byID[c.ID]; ok {
			c.Status = status.Resolved
			c.Note = r.Note
			c.ResolvedBy = r.ResolvedBy
			at := r.ResolvedAt
			c.ResolvedAt = &at
		}
		if Match(c, filter) {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Conflict, error) {
	conflicts, err := svc.Query(ctx, QueryFilter{})
	if err != nil {
		return Conflict{}, err
	}
	for _, c := range conflicts {
		if c.ID == id {
			return c, nil
		}
	}
	return Conflict{}, ErrNotFound
}

// Resolve marks an open conflict resolved.
func (svc *Service) Resolve(ctx context.Context, id string, rr ResolveRequest, by string) (Conflict, error) {
	c, err := svc.Get(ctx, id)
	if err != nil {
		return Conflict{}, err
	}
	if !status.Allowed(c.Status, status.Resolved) {
		return Conflict{}, ErrStatusTransition
	}
	r := Resolution{
		ConflictID: c.ID,
		Note:       core.CleanString(rr.Note),
		ResolvedBy: by,
		ResolvedAt: time.Now().UTC(),
	}
	if err := svc.repo.SaveResolution(ctx, r); err != nil {
		return Conflict{}, errors.Wrap(err, "saving resolution")
	}
	c.Status = status.Resolved
	c.Note = r.Note
	c.ResolvedBy = r.ResolvedBy
	c.ResolvedAt = &r.ResolvedAt
	return c, nil
}

// Reopen forgets the resolution of a conflict.
func (svc *Service) Reopen(ctx context.Context, id string) (Conflict, error) {
	c, err := svc.Get(ctx, id)
	if err != nil {
		return Conflict{}, err
	}
	if !status.Allowed(c.Status, status.Open) {
		return Conflict{}, ErrStatusTransition
	}
	if err := svc.repo.DeleteResolution(ctx, c.ID); err != nil {
		return Conflict{}, errors.Wrap(err, "deleting resolution")
	}
	c.Status = status.Open
	c.Note, c.ResolvedBy, c.ResolvedAt = "", "", nil
	return c, nil
}
