package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/tags"
	"github.com/nexussync/clubs/core/venue"
)

type venueRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Building   string    `db:"building"`
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	Capacity   int       `db:"capacity"`
	Facilities tags.List `db:"facilities"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

const venueColumns = "id, name, building, latitude, longitude, capacity, facilities, created_at, updated_at"

func toVenueRow(v venue.Venue) venueRow {
	return venueRow{
		ID:         v.ID,
		Name:       v.Name,
		Building:   v.Building,
		Latitude:   v.Latitude,
		Longitude:  v.Longitude,
		Capacity:   v.Capacity,
		Facilities: tags.Normalize(v.Facilities),
		CreatedAt:  v.CreatedAt.UTC(),
		UpdatedAt:  v.UpdatedAt.UTC(),
	}
}

func (r venueRow) venue() venue.Venue {
	return venue.Venue{
		ID:         r.ID,
		Name:       r.Name,
		Building:   r.Building,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Capacity:   r.Capacity,
		Facilities: r.Facilities,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type venueRepository struct {
	db *sqlx.DB
}

var _ venue.Repository = (*venueRepository)(nil) // interface compliance check

func NewVenueRepository(db *sqlx.DB) *venueRepository {
	return &venueRepository{db: db}
}

func (repo *venueRepository) VenueNameExists(ctx context.Context, name string, excludedIDs ...string) (bool, error) {
	var c conds
	c.add("LOWER(name) = ?", core.CleanString(name, true))
	if len(excludedIDs) > 0 {
		c.add("id NOT IN (?)", excludedIDs)
	}
	q, args, err := in(repo.db, "SELECT COUNT(*) FROM venues"+c.where(), c.args...)
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	var n int
	if err := repo.db.GetContext(ctx, &n, q, args...); err != nil {
		return false, errors.Wrap(err, "checking venue name")
	}
	return n > 0, nil
}

func (repo *venueRepository) CreateVenue(ctx context.Context, v venue.Venue) (venue.Venue, error) {
	q := `INSERT INTO venues (` + venueColumns + `) VALUES
		(:id, :name, :building, :latitude, :longitude, :capacity, :facilities, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toVenueRow(v)); err != nil {
		return venue.Venue{}, errors.Wrap(err, "inserting venue")
	}
	return repo.GetVenue(ctx, v.ID)
}

func (repo *venueRepository) QueryVenues(ctx context.Context) ([]venue.Venue, error) {
	var rows []venueRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+venueColumns+" FROM venues ORDER BY name ASC"); err != nil {
		return nil, errors.Wrap(err, "querying venues")
	}
	venues := make([]venue.Venue, 0, len(rows))
	for _, row := range rows {
		venues = append(venues, row.venue())
	}
	return venues, nil
}

func (repo *venueRepository) GetVenue(ctx context.Context, id string) (venue.Venue, error) {
	var row venueRow
	q := repo.db.Rebind("SELECT " + venueColumns + " FROM venues WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return venue.Venue{}, trapNoRows(err, venue.ErrNotFound, "getting venue")
	}
	return row.venue(), nil
}

func (repo *venueRepository) UpdateVenue(ctx context.Context, v venue.Venue) (venue.Venue, error) {
	q := `UPDATE venues SET name = :name, building = :building, latitude = :latitude, longitude = :longitude,
		capacity = :capacity, facilities = :facilities, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toVenueRow(v))
	if err != nil {
		return venue.Venue{}, errors.Wrap(err, "updating venue")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return venue.Venue{}, venue.ErrNotFound
	}
	return repo.GetVenue(ctx, v.ID)
}

func (repo *venueRepository) DeleteVenues(ctx context.Context, ids ...string) error {
	return deleteWhereIn(ctx, repo.db, "venues", "id", ids)
}
