package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/tags"
	"github.com/nexussync/clubs/core/user"
)

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	IsActive     bool      `db:"is_active"`
	Roles        tags.List `db:"roles"`
	Interests    tags.List `db:"interests"`
	Department   string    `db:"department"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

const userColumns = "id, name, username, email, is_active, roles, interests, department, password_hash, created_at, updated_at, last_login"

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Roles:        tags.List(usr.Roles),
		Interests:    tags.Normalize(usr.Interests),
		Department:   usr.Department,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		Interests:    r.Interests,
		Department:   r.Department,
		PasswordHash: []byte(r.PasswordHash),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	var c conds
	c.add("(LOWER(username) = ? OR LOWER(email) = ?)", core.CleanString(username, true), core.CleanString(email, true))
	if len(excludedIDs) > 0 {
		c.add("id NOT IN (?)", excludedIDs)
	}
	q, args, err := in(repo.db, "SELECT username, email FROM users"+c.where(), c.args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && core.CleanString(row.Username, true) == core.CleanString(username, true) {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = core.NewID()
	}
	q := `INSERT INTO users (` + userColumns + `) VALUES
		(:id, :name, :username, :email, :is_active, :roles, :interests, :department, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, orderings []core.DBOrdering) ([]user.User, error) {
	var c conds
	// users with Name, Username or Email matching the search keyword
	if filter.Search != "" {
		val := like(filter.Search)
		c.add("(LOWER(name)"+likeOp+" OR LOWER(username)"+likeOp+" OR LOWER(email)"+likeOp+")", val, val, val)
	}
	// users with any role that starts with any of the provided roles
	if len(filter.Roles) > 0 {
		clauses := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			clauses = append(clauses, "LOWER(roles)"+likeOp)
			c.args = append(c.args, like(`"`+role))
		}
		c.clauses = append(c.clauses, "("+joinOr(clauses)+")")
	}
	if filter.IsActive != nil {
		c.add("is_active = ?", *filter.IsActive)
	}
	if filter.Department != "" {
		c.add("LOWER(department) = ?", core.CleanString(filter.Department, true))
	}
	if filter.Interest != "" {
		c.add("LOWER(interests)"+likeOp, likeTag(filter.Interest))
	}
	if !filter.CreatedFrom.IsZero() {
		c.add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		c.add("created_at <= ?", filter.CreatedTo.UTC())
	}

	q := "SELECT " + userColumns + " FROM users" + c.where() + " ORDER BY " + core.OrderBy(orderings, "name ASC, username ASC")
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), c.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var c conds
	switch {
	case filter.ID != "":
		if !core.IsID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		c.add("id = ?", filter.ID)
	case filter.Username != "":
		c.add("LOWER(username) = ?", core.CleanString(filter.Username, true))
	case filter.Email != "":
		c.add("LOWER(email) = ?", core.CleanString(filter.Email, true))
	case len(filter.UsernameOrEmail) > 0:
		uname := filter.UsernameOrEmail[0]
		email := uname
		if len(filter.UsernameOrEmail) > 1 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
		if uname == "" {
			uname = email
		}
		c.add("(LOWER(username) = ? OR LOWER(email) = ?)", core.CleanString(uname, true), core.CleanString(email, true))
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := "SELECT " + userColumns + " FROM users" + c.where() + " LIMIT 1"
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), c.args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET name = :name, username = :username, email = :email, is_active = :is_active,
		roles = :roles, interests = :interests, department = :department, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) SetUserActive(ctx context.Context, id string, active bool) error {
	q := repo.db.Rebind("UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?")
	res, err := repo.db.ExecContext(ctx, q, active, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "setting user active")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetUserLastLogin(ctx context.Context, id string, at time.Time) error {
	q := repo.db.Rebind("UPDATE users SET last_login = ? WHERE id = ?")
	if _, err := repo.db.ExecContext(ctx, q, at.UTC(), id); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	return deleteWhereIn(ctx, repo.db, "users", "id", ids)
}
