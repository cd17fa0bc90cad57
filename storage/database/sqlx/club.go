package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/tags"
)

type clubRow struct {
	ID          string        `db:"id"`
	Name        string        `db:"name"`
	Category    string        `db:"category"`
	Description string        `db:"description"`
	Tags        tags.List     `db:"tags"`
	Status      status.Status `db:"status"`
	LeadID      null.String   `db:"lead_id"`
	MemberCount core.Count    `db:"member_count"`
	Joined      bool          `db:"joined"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (r clubRow) club() club.Club {
	return club.Club{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		Description: r.Description,
		Tags:        r.Tags,
		Status:      r.Status,
		LeadID:      r.LeadID.String,
		MemberCount: r.MemberCount,
		Joined:      r.Joined,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

// clubSelect needs the viewer id as first argument.
const clubSelect = `SELECT c.id, c.name, c.category, c.description, c.tags, c.status, c.lead_id,
	c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM club_members m WHERE m.club_id = c.id) AS member_count,
	EXISTS (SELECT 1 FROM club_members m WHERE m.club_id = c.id AND m.user_id = ?) AS joined
	FROM clubs c`

type clubRepository struct {
	db *sqlx.DB
}

var _ club.Repository = (*clubRepository)(nil) // interface compliance check

func NewClubRepository(db *sqlx.DB) *clubRepository {
	return &clubRepository{db: db}
}

func (repo *clubRepository) ClubNameExists(ctx context.Context, name string, excludedIDs ...string) (bool, error) {
	var c conds
	c.add("LOWER(name) = ?", core.CleanString(name, true))
	if len(excludedIDs) > 0 {
		c.add("id NOT IN (?)", excludedIDs)
	}
	q, args, err := in(repo.db, "SELECT COUNT(*) FROM clubs"+c.where(), c.args...)
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	var n int
	if err := repo.db.GetContext(ctx, &n, q, args...); err != nil {
		return false, errors.Wrap(err, "checking club name")
	}
	return n > 0, nil
}

func (repo *clubRepository) CreateClub(ctx context.Context, c club.Club) (club.Club, error) {
	q := repo.db.Rebind(`INSERT INTO clubs (id, name, category, description, tags, status, lead_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q, c.ID, c.Name, c.Category, c.Description, tags.Normalize(c.Tags), c.Status,
		nullString(c.LeadID), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return club.Club{}, errors.Wrap(err, "inserting club")
	}
	return repo.GetClub(ctx, c.ID, "")
}

func (repo *clubRepository) QueryClubs(ctx context.Context, filter club.QueryFilter, orderings []core.DBOrdering, viewerID string) ([]club.Club, error) {
	var c conds
	c.args = append(c.args, viewerID)
	if filter.Search != "" {
		val := like(filter.Search)
		c.add("(LOWER(c.name)"+likeOp+" OR LOWER(c.description)"+likeOp+" OR LOWER(c.tags)"+likeOp+")", val, val, val)
	}
	if filter.Category != "" {
		c.add("LOWER(c.category) = ?", core.CleanString(filter.Category, true))
	}
	if filter.Tag != "" {
		c.add("LOWER(c.tags)"+likeOp, likeTag(filter.Tag))
	}
	if filter.Status != status.Unknown {
		c.add("c.status = ?", filter.Status)
	}
	if filter.MemberID != "" {
		c.add("EXISTS (SELECT 1 FROM club_members mm WHERE mm.club_id = c.id AND mm.user_id = ?)", filter.MemberID)
	}

	q := clubSelect + c.where() + " ORDER BY " + core.OrderBy(orderings, "name ASC")
	var rows []clubRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), c.args...); err != nil {
		return nil, errors.Wrap(err, "querying clubs")
	}
	clubs := make([]club.Club, 0, len(rows))
	for _, row := range rows {
		clubs = append(clubs, row.club())
	}
	return clubs, nil
}

func (repo *clubRepository) GetClub(ctx context.Context, id, viewerID string) (club.Club, error) {
	var row clubRow
	q := repo.db.Rebind(clubSelect + " WHERE c.id = ?")
	if err := repo.db.GetContext(ctx, &row, q, viewerID, id); err != nil {
		return club.Club{}, trapNoRows(err, club.ErrNotFound, "getting club")
	}
	return row.club(), nil
}

func (repo *clubRepository) UpdateClub(ctx context.Context, c club.Club) (club.Club, error) {
	q := repo.db.Rebind(`UPDATE clubs SET name = ?, category = ?, description = ?, tags = ?, status = ?,
		lead_id = ?, updated_at = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, c.Name, c.Category, c.Description, tags.Normalize(c.Tags), c.Status,
		nullString(c.LeadID), c.UpdatedAt.UTC(), c.ID)
	if err != nil {
		return club.Club{}, errors.Wrap(err, "updating club")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return club.Club{}, club.ErrNotFound
	}
	return repo.GetClub(ctx, c.ID, "")
}

func (repo *clubRepository) DeleteClubs(ctx context.Context, ids ...string) error {
	return deleteWhereIn(ctx, repo.db, "clubs", "id", ids)
}

func (repo *clubRepository) AddMember(ctx context.Context, clubID, userID string, at time.Time) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var n int
		q := tx.Rebind("SELECT COUNT(*) FROM club_members WHERE club_id = ? AND user_id = ?")
		if err := tx.GetContext(ctx, &n, q, clubID, userID); err != nil {
			return errors.Wrap(err, "checking membership")
		}
		if n > 0 {
			return club.ErrAlreadyMember
		}
		q = tx.Rebind("INSERT INTO club_members (club_id, user_id, joined_at) VALUES (?, ?, ?)")
		_, err := tx.ExecContext(ctx, q, clubID, userID, at.UTC())
		return errors.Wrap(err, "adding member")
	})
}

func (repo *clubRepository) RemoveMember(ctx context.Context, clubID, userID string) error {
	q := repo.db.Rebind("DELETE FROM club_members WHERE club_id = ? AND user_id = ?")
	res, err := repo.db.ExecContext(ctx, q, clubID, userID)
	if err != nil {
		return errors.Wrap(err, "removing member")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return club.ErrNotMember
	}
	return nil
}

func (repo *clubRepository) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM club_members WHERE club_id = ? AND user_id = ?")
	if err := repo.db.GetContext(ctx, &n, q, clubID, userID); err != nil {
		return false, errors.Wrap(err, "checking membership")
	}
	return n > 0, nil
}

func (repo *clubRepository) Members(ctx context.Context, clubID string) ([]club.Member, error) {
	var rows []struct {
		ClubID   string    `db:"club_id"`
		UserID   string    `db:"user_id"`
		Name     string    `db:"name"`
		Email    string    `db:"email"`
		JoinedAt time.Time `db:"joined_at"`
	}
	q := repo.db.Rebind(`SELECT m.club_id, m.user_id, u.name, u.email, m.joined_at
		FROM club_members m JOIN users u ON u.id = m.user_id
		WHERE m.club_id = ? ORDER BY m.joined_at ASC, u.name ASC`)
	if err := repo.db.SelectContext(ctx, &rows, q, clubID); err != nil {
		return nil, errors.Wrap(err, "listing members")
	}
	members := make([]club.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, club.Member{
			ClubID:   row.ClubID,
			UserID:   row.UserID,
			Name:     row.Name,
			Email:    row.Email,
			JoinedAt: row.JoinedAt.UTC(),
		})
	}
	return members, nil
}
