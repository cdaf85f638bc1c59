// Package inmemdb implements the core repositories in memory. It backs the API and CLI tests
// and local runs without PostgreSQL.
package inmemdb

import (
	"context"
	"strings"
	"sync"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/absence"
	"github.com/trezcool/kita/core/facility"
	"github.com/trezcool/kita/core/group"
	"github.com/trezcool/kita/core/grouplist"
	"github.com/trezcool/kita/core/mealplan"
	"github.com/trezcool/kita/core/news"
	"github.com/trezcool/kita/core/user"
)

type DB struct {
	mutex sync.RWMutex
	txMu  sync.Mutex

	users       map[string]user.User
	children    map[string]user.Child
	facilities  map[string]facility.Facility
	codes       map[string]facility.RegistrationCode // facilityID/role
	groups      map[string]group.Group
	news        map[string]news.News
	hiddenNews  map[string]map[string]bool // userID -> newsID
	lists       map[string]grouplist.List
	absences    map[string]absence.Absence
	readStatus  map[string]absence.ReadStatus // absenceID/userID
	mealDays    map[string]mealplan.Day       // facilityID/weekKey/dayKey
	mealOptions map[string]mealplan.Option
}

func Open() *DB {
	return &DB{
		users:       make(map[string]user.User),
		children:    make(map[string]user.Child),
		facilities:  make(map[string]facility.Facility),
		codes:       make(map[string]facility.RegistrationCode),
		groups:      make(map[string]group.Group),
		news:        make(map[string]news.News),
		hiddenNews:  make(map[string]map[string]bool),
		lists:       make(map[string]grouplist.List),
		absences:    make(map[string]absence.Absence),
		readStatus:  make(map[string]absence.ReadStatus),
		mealDays:    make(map[string]mealplan.Day),
		mealOptions: make(map[string]mealplan.Option),
	}
}

// Transactor serializes units of work. Changes made before a failure are not rolled back.
type Transactor struct {
	db *DB
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()
	return fn(nil)
}

func key(parts ...string) string {
	return strings.Join(parts, "/")
}

func contains(vals []string, v string) bool {
	for _, val := range vals {
		if val == v {
			return true
		}
	}
	return false
}
