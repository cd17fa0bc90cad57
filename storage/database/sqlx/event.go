package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/tags"
)

type eventRow struct {
	ID              string        `db:"id"`
	ClubID          string        `db:"club_id"`
	Title           string        `db:"title"`
	Description     string        `db:"description"`
	VenueID         null.String   `db:"venue_id"`
	StartsAt        time.Time     `db:"starts_at"`
	EndsAt          time.Time     `db:"ends_at"`
	Capacity        int           `db:"capacity"`
	RegisteredCount core.Count    `db:"registered_count"`
	Resources       tags.List     `db:"resources"`
	Tags            tags.List     `db:"tags"`
	Status          status.Status `db:"status"`
	CreatedBy       null.String   `db:"created_by"`
	ReviewedBy      null.String   `db:"reviewed_by"`
	ReviewNote      string        `db:"review_note"`
	Registered      bool          `db:"registered"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

func toEventRow(e event.Event) eventRow {
	return eventRow{
		ID:          e.ID,
		ClubID:      e.ClubID,
		Title:       e.Title,
		Description: e.Description,
		VenueID:     nullString(e.VenueID),
		StartsAt:    e.StartsAt.UTC(),
		EndsAt:      e.EndsAt.UTC(),
		Capacity:    e.Capacity,
		Resources:   tags.Normalize(e.Resources),
		Tags:        tags.Normalize(e.Tags),
		Status:      e.Status,
		CreatedBy:   nullString(e.CreatedBy),
		ReviewedBy:  nullString(e.ReviewedBy),
		ReviewNote:  e.ReviewNote,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func (r eventRow) event() event.Event {
	return event.Event{
		ID:              r.ID,
		ClubID:          r.ClubID,
		Title:           r.Title,
		Description:     r.Description,
		VenueID:         r.VenueID.String,
		StartsAt:        r.StartsAt.UTC(),
		EndsAt:          r.EndsAt.UTC(),
		Capacity:        r.Capacity,
		RegisteredCount: r.RegisteredCount,
		Resources:       r.Resources,
		Tags:            r.Tags,
		Status:          r.Status,
		CreatedBy:       r.CreatedBy.String,
		ReviewedBy:      r.ReviewedBy.String,
		ReviewNote:      r.ReviewNote,
		Registered:      r.Registered,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

// eventSelect needs the viewer id as first argument.
const eventSelect = `SELECT e.id, e.club_id, e.title, e.description, e.venue_id, e.starts_at, e.ends_at,
	e.capacity, e.resources, e.tags, e.status, e.created_by, e.reviewed_by, e.review_note,
	e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id) AS registered_count,
	EXISTS (SELECT 1 FROM registrations r WHERE r.event_id = e.id AND r.user_id = ?) AS registered
	FROM events e`

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	q := `INSERT INTO events (id, club_id, title, description, venue_id, starts_at, ends_at, capacity, resources,
		tags, status, created_by, reviewed_by, review_note, created_at, updated_at) VALUES
		(:id, :club_id, :title, :description, :venue_id, :starts_at, :ends_at, :capacity, :resources,
		:tags, :status, :created_by, :reviewed_by, :review_note, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toEventRow(e)); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return repo.GetEvent(ctx, e.ID, "")
}

func (repo *eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter, orderings []core.DBOrdering, viewerID string) ([]event.Event, error) {
	var c conds
	c.args = append(c.args, viewerID)
	if filter.ClubID != "" {
		c.add("e.club_id = ?", filter.ClubID)
	}
	if filter.VenueID != "" {
		c.add("e.venue_id = ?", filter.VenueID)
	}
	if len(filter.Statuses) > 0 {
		names := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			names = append(names, st.String())
		}
		c.add("e.status IN (?)", names)
	}
	if !filter.From.IsZero() {
		c.add("e.ends_at > ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		c.add("e.starts_at < ?", filter.To.UTC())
	}
	if filter.Search != "" {
		val := like(filter.Search)
		c.add("(LOWER(e.title)"+likeOp+" OR LOWER(e.description)"+likeOp+" OR LOWER(e.tags)"+likeOp+")", val, val, val)
	}
	if filter.Tag != "" {
		c.add("LOWER(e.tags)"+likeOp, likeTag(filter.Tag))
	}
	if filter.RegisteredOnly {
		c.add("EXISTS (SELECT 1 FROM registrations rr WHERE rr.event_id = e.id AND rr.user_id = ?)", viewerID)
	}

	q, args, err := in(repo.db, eventSelect+c.where()+" ORDER BY "+core.OrderBy(orderings, "starts_at ASC, title ASC"), c.args...)
	if err != nil {
		return nil, errors.Wrap(err, "building events query")
	}
	var rows []eventRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event())
	}
	return events, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id, viewerID string) (event.Event, error) {
	var row eventRow
	q := repo.db.Rebind(eventSelect + " WHERE e.id = ?")
	if err := repo.db.GetContext(ctx, &row, q, viewerID, id); err != nil {
		return event.Event{}, trapNoRows(err, event.ErrNotFound, "getting event")
	}
	return row.event(), nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	q := `UPDATE events SET title = :title, description = :description, venue_id = :venue_id,
		starts_at = :starts_at, ends_at = :ends_at, capacity = :capacity, resources = :resources, tags = :tags,
		status = :status, reviewed_by = :reviewed_by, review_note = :review_note, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toEventRow(e))
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return repo.GetEvent(ctx, e.ID, "")
}

func (repo *eventRepository) DeleteEvents(ctx context.Context, ids ...string) error {
	return deleteWhereIn(ctx, repo.db, "events", "id", ids)
}

func (repo *eventRepository) AddRegistration(ctx context.Context, reg event.Registration, capacity int) error {
	answers, err := json.Marshal(reg.Answers)
	if err != nil {
		return errors.Wrap(err, "encoding answers")
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "events", reg.EventID, event.ErrNotFound); err != nil {
			return err
		}
		var mine, total int
		q := tx.Rebind(`SELECT
			(SELECT COUNT(*) FROM registrations WHERE event_id = ? AND user_id = ?),
			(SELECT COUNT(*) FROM registrations WHERE event_id = ?)`)
		if err := tx.QueryRowxContext(ctx, q, reg.EventID, reg.UserID, reg.EventID).Scan(&mine, &total); err != nil {
			return errors.Wrap(err, "counting registrations")
		}
		if mine > 0 {
			return event.ErrAlreadyRegistered
		}
		if capacity > 0 && total >= capacity {
			return event.ErrEventFull
		}
		q = tx.Rebind("INSERT INTO registrations (event_id, user_id, answers, created_at) VALUES (?, ?, ?, ?)")
		_, err := tx.ExecContext(ctx, q, reg.EventID, reg.UserID, string(answers), reg.CreatedAt.UTC())
		if isUniqueViolation(err) {
			return event.ErrAlreadyRegistered
		}
		return errors.Wrap(err, "inserting registration")
	})
}

func (repo *eventRepository) RemoveRegistration(ctx context.Context, eventID, userID string) error {
	q := repo.db.Rebind("DELETE FROM registrations WHERE event_id = ? AND user_id = ?")
	res, err := repo.db.ExecContext(ctx, q, eventID, userID)
	if err != nil {
		return errors.Wrap(err, "deleting registration")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.ErrNotRegistered
	}
	return nil
}

type registrationRow struct {
	EventID    string        `db:"event_id"`
	UserID     string        `db:"user_id"`
	UserName   string        `db:"user_name"`
	EventTitle string        `db:"event_title"`
	ClubID     string        `db:"club_id"`
	VenueID    null.String   `db:"venue_id"`
	StartsAt   time.Time     `db:"starts_at"`
	EndsAt     time.Time     `db:"ends_at"`
	Status     status.Status `db:"status"`
	Answers    string        `db:"answers"`
	CreatedAt  time.Time     `db:"created_at"`
}

func (repo *eventRepository) QueryRegistrations(ctx context.Context, filter event.RegistrationFilter) ([]event.Registration, error) {
	var c conds
	if filter.EventID != "" {
		c.add("r.event_id = ?", filter.EventID)
	}
	if filter.UserID != "" {
		c.add("r.user_id = ?", filter.UserID)
	}
	q := `SELECT r.event_id, r.user_id, u.name AS user_name, e.title AS event_title, e.club_id, e.venue_id,
		e.starts_at, e.ends_at, e.status, r.answers, r.created_at
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		JOIN users u ON u.id = r.user_id` + c.where() + " ORDER BY e.starts_at ASC, r.created_at ASC"

	var rows []registrationRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), c.args...); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]event.Registration, 0, len(rows))
	for _, row := range rows {
		answers := make(map[string]string)
		if row.Answers != "" {
			if err := json.Unmarshal([]byte(row.Answers), &answers); err != nil {
				return nil, errors.Wrap(err, "decoding answers")
			}
		}
		regs = append(regs, event.Registration{
			EventID:    row.EventID,
			UserID:     row.UserID,
			UserName:   row.UserName,
			EventTitle: row.EventTitle,
			ClubID:     row.ClubID,
			VenueID:    row.VenueID.String,
			StartsAt:   row.StartsAt.UTC(),
			EndsAt:     row.EndsAt.UTC(),
			Status:     row.Status,
			Answers:    answers,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return regs, nil
}
