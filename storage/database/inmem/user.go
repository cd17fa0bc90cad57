package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	for _, usr := range repo.query() {
		if excluded[usr.ID] {
			continue
		}
		if strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if usr.ID == "" {
		usr.ID = core.NewID()
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

// QueryUsers honors the "name" and "created_at" orderings, by name otherwise.
func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, orderings []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.table))
	for _, usr := range repo.query() {
		if user.Match(usr, filter) {
			users = append(users, usr)
		}
	}
	less := func(i, j int) bool { return users[i].Name < users[j].Name }
	if len(orderings) > 0 {
		ord := orderings[0]
		switch ord.Field {
		case "created_at":
			less = func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) }
		}
		if !ord.Ascending {
			asc := less
			less = func(i, j int) bool { return asc(j, i) }
		}
	}
	sort.SliceStable(users, less)
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var match func(u user.User) bool
	switch {
	case filter.ID != "":
		if usr, ok := repo.db.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	case filter.Username != "":
		match = func(u user.User) bool { return strings.EqualFold(u.Username, filter.Username) }
	case filter.Email != "":
		match = func(u user.User) bool { return strings.EqualFold(u.Email, filter.Email) }
	case len(filter.UsernameOrEmail) > 0:
		uname, email := filter.UsernameOrEmail[0], filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) > 1 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
		}
		match = func(u user.User) bool {
			return strings.EqualFold(u.Username, uname) || strings.EqualFold(u.Email, email)
		}
	default:
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.query() {
		if match(usr) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) SetUserActive(_ context.Context, id string, active bool) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.IsActive = active
	usr.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *userRepository) SetUserLastLogin(_ context.Context, id string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = at
	return nil
}

func (repo *userRepository) DeleteUsers(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
