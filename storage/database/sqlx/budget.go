package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/budget"
	"github.com/nexussync/clubs/core/status"
)

type budgetRequestRow struct {
	ID          string        `db:"id"`
	ClubID      string        `db:"club_id"`
	ClubName    string        `db:"club_name"`
	Title       string        `db:"title"`
	Description string        `db:"description"`
	Category    string        `db:"category"`
	Amount      int64         `db:"amount"`
	Status      status.Status `db:"status"`
	RequestedBy null.String   `db:"requested_by"`
	ReviewedBy  null.String   `db:"reviewed_by"`
	ReviewNote  string        `db:"review_note"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (r budgetRequestRow) request() budget.Request {
	return budget.Request{
		ID:          r.ID,
		ClubID:      r.ClubID,
		ClubName:    r.ClubName,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Amount:      r.Amount,
		Status:      r.Status,
		RequestedBy: r.RequestedBy.String,
		ReviewedBy:  r.ReviewedBy.String,
		ReviewNote:  r.ReviewNote,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const budgetRequestSelect = `SELECT br.id, br.club_id, c.name AS club_name, br.title, br.description, br.category,
	br.amount, br.status, br.requested_by, br.reviewed_by, br.review_note, br.created_at, br.updated_at
	FROM budget_requests br JOIN clubs c ON c.id = br.club_id`

type budgetRepository struct {
	db *sqlx.DB
}

var _ budget.Repository = (*budgetRepository)(nil) // interface compliance check

func NewBudgetRepository(db *sqlx.DB) *budgetRepository {
	return &budgetRepository{db: db}
}

func (repo *budgetRepository) CreateRequest(ctx context.Context, r budget.Request) (budget.Request, error) {
	q := repo.db.Rebind(`INSERT INTO budget_requests (id, club_id, title, description, category, amount, status,
		requested_by, reviewed_by, review_note, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q, r.ID, r.ClubID, r.Title, r.Description, r.Category, r.Amount, r.Status,
		nullString(r.RequestedBy), nullString(r.ReviewedBy), r.ReviewNote, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	if err != nil {
		return budget.Request{}, errors.Wrap(err, "inserting budget request")
	}
	return repo.GetRequest(ctx, r.ID)
}

func (repo *budgetRepository) QueryRequests(ctx context.Context, filter budget.QueryFilter, orderings []core.DBOrdering) ([]budget.Request, error) {
	var c conds
	if filter.ClubID != "" {
		c.add("br.club_id = ?", filter.ClubID)
	}
	if len(filter.Statuses) > 0 {
		names := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			names = append(names, st.String())
		}
		c.add("br.status IN (?)", names)
	}
	if filter.Category != "" {
		c.add("br.category = ?", filter.Category)
	}
	if filter.Search != "" {
		val := like(filter.Search)
		c.add("(LOWER(br.title)"+likeOp+" OR LOWER(br.description)"+likeOp+" OR LOWER(c.name)"+likeOp+")", val, val, val)
	}
	q, args, err := in(repo.db, budgetRequestSelect+c.where()+" ORDER BY "+core.OrderBy(orderings, "created_at DESC"), c.args...)
	if err != nil {
		return nil, errors.Wrap(err, "building budget query")
	}
	var rows []budgetRequestRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying budget requests")
	}
	reqs := make([]budget.Request, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, row.request())
	}
	return reqs, nil
}

func (repo *budgetRepository) GetRequest(ctx context.Context, id string) (budget.Request, error) {
	var row budgetRequestRow
	q := repo.db.Rebind(budgetRequestSelect + " WHERE br.id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return budget.Request{}, trapNoRows(err, budget.ErrNotFound, "getting budget request")
	}
	return row.request(), nil
}

// updateRequest writes r when the stored status is still from, so concurrent reviews
// cannot both act on the same pending request.
func updateRequest(ctx context.Context, ext sqlx.ExtContext, r budget.Request, from status.Status) error {
	q := ext.Rebind(`UPDATE budget_requests SET title = ?, description = ?, category = ?, amount = ?, status = ?,
		reviewed_by = ?, review_note = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := ext.ExecContext(ctx, q, r.Title, r.Description, r.Category, r.Amount, r.Status,
		nullString(r.ReviewedBy), r.ReviewNote, r.UpdatedAt.UTC(), r.ID, from)
	if err != nil {
		return errors.Wrap(err, "updating budget request")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var found int
	q = ext.Rebind("SELECT COUNT(*) FROM budget_requests WHERE id = ?")
	if err := sqlx.GetContext(ctx, ext, &found, q, r.ID); err != nil {
		return errors.Wrap(err, "checking budget request")
	}
	if found == 0 {
		return budget.ErrNotFound
	}
	return budget.ErrStatusTransition
}

func (repo *budgetRepository) UpdateRequest(ctx context.Context, r budget.Request, from status.Status) (budget.Request, error) {
	if err := updateRequest(ctx, repo.db, r, from); err != nil {
		return budget.Request{}, err
	}
	return repo.GetRequest(ctx, r.ID)
}

func (repo *budgetRepository) ApproveRequest(ctx context.Context, r budget.Request, from status.Status) (budget.Request, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// approvals of one club queue on the club row
		if err := lockRow(ctx, tx, "clubs", r.ClubID, budget.ErrNotFound); err != nil {
			return err
		}
		var allocated, approved int64
		q := tx.Rebind(`SELECT
			COALESCE((SELECT allocated FROM budget_allocations WHERE club_id = ?), 0),
			COALESCE((SELECT SUM(amount) FROM budget_requests WHERE club_id = ? AND status = ? AND id <> ?), 0)`)
		if err := tx.QueryRowxContext(ctx, q, r.ClubID, r.ClubID, status.Approved, r.ID).Scan(&allocated, &approved); err != nil {
			return errors.Wrap(err, "summing approved requests")
		}
		if approved+r.Amount > allocated {
			return budget.ErrInsufficientBudget
		}
		return updateRequest(ctx, tx, r, from)
	})
	if err != nil {
		return budget.Request{}, err
	}
	return repo.GetRequest(ctx, r.ID)
}

func (repo *budgetRepository) DeleteRequests(ctx context.Context, ids ...string) error {
	return deleteWhereIn(ctx, repo.db, "budget_requests", "id", ids)
}

type allocationRow struct {
	ClubID    string    `db:"club_id"`
	Allocated int64     `db:"allocated"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r allocationRow) allocation() budget.Allocation {
	return budget.Allocation{ClubID: r.ClubID, Allocated: r.Allocated, UpdatedAt: r.UpdatedAt.UTC()}
}

func (repo *budgetRepository) GetAllocation(ctx context.Context, clubID string) (budget.Allocation, error) {
	var row allocationRow
	q := repo.db.Rebind("SELECT club_id, allocated, updated_at FROM budget_allocations WHERE club_id = ?")
	if err := repo.db.GetContext(ctx, &row, q, clubID); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return budget.Allocation{ClubID: clubID}, nil
		}
		return budget.Allocation{}, errors.Wrap(err, "getting allocation")
	}
	return row.allocation(), nil
}

func (repo *budgetRepository) QueryAllocations(ctx context.Context) ([]budget.Allocation, error) {
	var rows []allocationRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT club_id, allocated, updated_at FROM budget_allocations ORDER BY club_id"); err != nil {
		return nil, errors.Wrap(err, "querying allocations")
	}
	as := make([]budget.Allocation, 0, len(rows))
	for _, row := range rows {
		as = append(as, row.allocation())
	}
	return as, nil
}

func (repo *budgetRepository) SetAllocation(ctx context.Context, a budget.Allocation) (budget.Allocation, error) {
	q := repo.db.Rebind(`INSERT INTO budget_allocations (club_id, allocated, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (club_id) DO UPDATE SET allocated = excluded.allocated, updated_at = excluded.updated_at`)
	if _, err := repo.db.ExecContext(ctx, q, a.ClubID, a.Allocated, a.UpdatedAt.UTC()); err != nil {
		return budget.Allocation{}, errors.Wrap(err, "setting allocation")
	}
	return repo.GetAllocation(ctx, a.ClubID)
}
