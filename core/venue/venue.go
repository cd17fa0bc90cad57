package venue

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/tags"
)

var (
	ErrNotFound   = core.NewNotFoundError("venue not found")
	ErrNameExists = errors.New("a venue with this name already exists")
)

type Venue struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Building   string    `json:"building"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Capacity   int       `json:"capacity"`
	Facilities tags.List `json:"facilities"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (v Venue) Key() string { return v.ID }

type NewVenue struct {
	Name       string    `json:"name" validate:"required,max=120"`
	Building   string    `json:"building"`
	Latitude   float64   `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64   `json:"longitude" validate:"min=-180,max=180"`
	Capacity   int       `json:"capacity" validate:"min=0"`
	Facilities tags.List `json:"facilities"`
}

func (nv *NewVenue) Validate(validate *validator.Validate) error {
	nv.Name = core.CleanString(nv.Name)
	nv.Building = core.CleanString(nv.Building)
	nv.Facilities = tags.Normalize(nv.Facilities)
	return validate.Struct(nv)
}

// UpdateVenue replaces every field of the venue.
type UpdateVenue = NewVenue

type QueryFilter struct {
	Search   string
	Facility string
	// MinCapacity keeps the venues holding at least this many people.
	MinCapacity int
}

func Match(v Venue, qf QueryFilter) bool {
	if qf.Search != "" && !(core.ContainsFold(v.Name, qf.Search) || core.ContainsFold(v.Building, qf.Search)) {
		return false
	}
	if qf.Facility != "" && !v.Facilities.Contains(qf.Facility) {
		return false
	}
	return qf.MinCapacity <= 0 || v.Capacity >= qf.MinCapacity
}

type (
	Repository interface {
		VenueNameExists(ctx context.Context, name string, excludedIDs ...string) (bool, error)
		CreateVenue(ctx context.Context, v Venue) (Venue, error)
		QueryVenues(ctx context.Context) ([]Venue, error)
		GetVenue(ctx context.Context, id string) (Venue, error)
		UpdateVenue(ctx context.Context, v Venue) (Venue, error)
		DeleteVenues(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkName(ctx context.Context, name string, excludedIDs ...string) error {
	exists, err := svc.repo.VenueNameExists(ctx, name, excludedIDs...)
	if err != nil {
		return errors.Wrap(err, "checking venue name")
	}
	if exists {
		return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nv NewVenue) (Venue, error) {
	if err := svc.checkName(ctx, nv.Name); err != nil {
		return Venue{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateVenue(ctx, Venue{
		ID:         core.NewID(),
		Name:       nv.Name,
		Building:   nv.Building,
		Latitude:   nv.Latitude,
		Longitude:  nv.Longitude,
		Capacity:   nv.Capacity,
		Facilities: nv.Facilities,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// Query returns the venues matching filter, ordered by name.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Venue, error) {
	all, err := svc.repo.QueryVenues(ctx)
	if err != nil {
		return nil, err
	}
	filter.Search = core.CleanString(filter.Search)
	venues := make([]Venue, 0, len(all))
	for _, v := range all {
		if Match(v, filter) {
			venues = append(venues, v)
		}
	}
	return venues, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Venue, error) {
	return svc.repo.GetVenue(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uv UpdateVenue) (Venue, error) {
	v, err := svc.repo.GetVenue(ctx, id)
	if err != nil {
		return Venue{}, err
	}
	if err := svc.checkName(ctx, uv.Name, id); err != nil {
		return Venue{}, err
	}
	v.Name = uv.Name
	v.Building = uv.Building
	v.Latitude = uv.Latitude
	v.Longitude = uv.Longitude
	v.Capacity = uv.Capacity
	v.Facilities = uv.Facilities
	v.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateVenue(ctx, v)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteVenues(ctx, ids...)
}
