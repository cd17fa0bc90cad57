// Package inmemdb keeps repositories in process memory. It backs the service tests
// that do not need SQL.
package inmemdb

import (
	"sync"

	"github.com/nexussync/clubs/core/user"
)

type (
	DB struct {
		user *userTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
	}
}
