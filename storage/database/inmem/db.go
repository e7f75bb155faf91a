package inmemdb

import (
	"sync"

	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/user"
)

type (
	// DB is a process local store. Used in tests and by the API when no database is configured.
	DB struct {
		user  *userTable
		class *classTable
	}

	userTable struct {
		mutex sync.RWMutex
		pk    int
		table map[int]*user.User
	}

	classTable struct {
		mutex sync.RWMutex
		pk    int
		table map[int]*class.Class
	}
)

func Open() *DB {
	return &DB{
		user:  &userTable{table: make(map[int]*user.User)},
		class: &classTable{table: make(map[int]*class.Class)},
	}
}
