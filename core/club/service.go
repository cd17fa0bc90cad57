package club

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/status"
)

var (
	ErrNotFound         = core.NewNotFoundError("club not found")
	ErrAlreadyMember    = core.NewConflictError("already a member of this club")
	ErrNotMember        = core.NewConflictError("not a member of this club")
	ErrNotActive        = core.NewConflictError("club is not active")
	ErrStatusTransition = core.NewConflictError("status change not allowed")
	ErrNameExists       = errors.New("a club with this name already exists")
)

type (
	Repository interface {
		ClubNameExists(ctx context.Context, name string, excludedIDs ...string) (bool, error)
		CreateClub(ctx context.Context, c Club) (Club, error)
		// QueryClubs returns the clubs matching filter; Joined is computed for viewerID.
		QueryClubs(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering, viewerID string) ([]Club, error)
		GetClub(ctx context.Context, id, viewerID string) (Club, error)
		UpdateClub(ctx context.Context, c Club) (Club, error)
		DeleteClubs(ctx context.Context, ids ...string) error
		// AddMember returns ErrAlreadyMember when the user is already a member.
		AddMember(ctx context.Context, clubID, userID string, at time.Time) error
		// RemoveMember returns ErrNotMember when the user is not a member.
		RemoveMember(ctx context.Context, clubID, userID string) error
		IsMember(ctx context.Context, clubID, userID string) (bool, error)
		Members(ctx context.Context, clubID string) ([]Member, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkName(ctx context.Context, name string, excludedIDs ...string) error {
	exists, err := svc.repo.ClubNameExists(ctx, name, excludedIDs...)
	if err != nil {
		return errors.Wrap(err, "checking club name")
	}
	if exists {
		return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	}
	return nil
}

// Create registers a validated NewClub. Clubs created by admins are active right away,
// the others wait for review.
func (svc *Service) Create(ctx context.Context, nc NewClub, creatorID string, isAdmin bool) (Club, error) {
	if err := svc.checkName(ctx, nc.Name); err != nil {
		return Club{}, err
	}
	now := time.Now().UTC()
	c := Club{
		ID:          core.NewID(),
		Name:        nc.Name,
		Category:    nc.Category,
		Description: nc.Description,
		Tags:        nc.Tags,
		Status:      status.Pending,
		LeadID:      nc.LeadID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.LeadID == "" {
		c.LeadID = creatorID
	}
	if isAdmin {
		c.Status = status.Active
	}
	return svc.repo.CreateClub(ctx, c)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering, viewerID string) ([]Club, error) {
	filter.Clean()
	if c := CanonicalCategory(filter.Category); c != "" {
		filter.Category = c
	}
	return svc.repo.QueryClubs(ctx, filter, core.CleanOrderings(orderings, AllowedOrderings...), viewerID)
}

func (svc *Service) Get(ctx context.Context, id, viewerID string) (Club, error) {
	return svc.repo.GetClub(ctx, id, viewerID)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateClub) (Club, error) {
	c, err := svc.repo.GetClub(ctx, id, "")
	if err != nil {
		return Club{}, err
	}
	if uc.Name != "" && uc.Name != c.Name {
		if err := svc.checkName(ctx, uc.Name, id); err != nil {
			return Club{}, err
		}
		c.Name = uc.Name
	}
	if uc.Category != "" {
		c.Category = uc.Category
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	if uc.Tags != nil {
		c.Tags = uc.Tags
	}
	if uc.LeadID != "" {
		c.LeadID = uc.LeadID
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClub(ctx, c)
}

// SetStatus moves the club to st when the lifecycle allows it.
func (svc *Service) SetStatus(ctx context.Context, id string, st status.Status) (Club, error) {
	c, err := svc.repo.GetClub(ctx, id, "")
	if err != nil {
		return Club{}, err
	}
	if c.Status == st {
		return c, nil
	}
	if !status.Allowed(c.Status, st) {
		return Club{}, ErrStatusTransition
	}
	c.Status = st
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClub(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteClubs(ctx, ids...)
}

// Join adds the user to an active club and returns the club as seen by the user.
func (svc *Service) Join(ctx context.Context, clubID, userID string) (Club, error) {
	c, err := svc.repo.GetClub(ctx, clubID, userID)
	if err != nil {
		return Club{}, err
	}
	if c.Status != status.Active {
		return Club{}, ErrNotActive
	}
	if err := svc.repo.AddMember(ctx, clubID, userID, time.Now().UTC()); err != nil {
		return Club{}, err
	}
	return svc.repo.GetClub(ctx, clubID, userID)
}

func (svc *Service) Leave(ctx context.Context, clubID, userID string) (Club, error) {
	if err := svc.repo.RemoveMember(ctx, clubID, userID); err != nil {
		return Club{}, err
	}
	return svc.repo.GetClub(ctx, clubID, userID)
}

func (svc *Service) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	return svc.repo.IsMember(ctx, clubID, userID)
}

func (svc *Service) Members(ctx context.Context, clubID string) ([]Member, error) {
	return svc.repo.Members(ctx, clubID)
}

// CanManage reports whether the user leads the club or is an admin.
func (svc *Service) CanManage(ctx context.Context, clubID, userID string, isAdmin bool) (bool, error) {
	if isAdmin {
		return true, nil
	}
	c, err := svc.repo.GetClub(ctx, clubID, "")
	if err != nil {
		return false, err
	}
	return c.LeadID == userID, nil
}
