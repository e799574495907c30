// Package dummydb is an in-memory store for tests and local runs.
// Transactions lock the whole store and restore a snapshot on failure.
package dummydb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/core/user"
	"github.com/sigcolegio/backend/core/validity"
)

type tables struct {
	users          map[string]user.User
	refs           map[string]catalog.Ref
	periods        map[string]catalog.Period
	qualifications map[string]qualification.Qualification
	validities     map[string]validity.Validity
	seq            map[string]int64 // insertion order, used as the last sort key
	lastSeq        int64
}

type DB struct {
	mu sync.RWMutex
	t  tables

	faults map[string]int // table -> inserts allowed before failing
}

func Open() (*DB, error) {
	db := &DB{
		t: tables{
			users:          make(map[string]user.User),
			refs:           make(map[string]catalog.Ref),
			periods:        make(map[string]catalog.Period),
			qualifications: make(map[string]qualification.Qualification),
			validities:     make(map[string]validity.Validity),
			seq:            make(map[string]int64),
		},
		faults: make(map[string]int),
	}
	return db, nil
}

// FailInsertAfter makes the insert following the next n inserts into table fail with a store error.
func (db *DB) FailInsertAfter(table string, n int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.faults[table] = n
}

// Reset drops every record.
func (db *DB) Reset() {
	fresh, _ := Open()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t = fresh.t
	db.faults = fresh.faults
}

func (db *DB) snapshot() tables {
	snap := tables{
		users:          make(map[string]user.User, len(db.t.users)),
		refs:           make(map[string]catalog.Ref, len(db.t.refs)),
		periods:        make(map[string]catalog.Period, len(db.t.periods)),
		qualifications: make(map[string]qualification.Qualification, len(db.t.qualifications)),
		validities:     make(map[string]validity.Validity, len(db.t.validities)),
		seq:            make(map[string]int64, len(db.t.seq)),
		lastSeq:        db.t.lastSeq,
	}
	for k, v := range db.t.users {
		snap.users[k] = v
	}
	for k, v := range db.t.refs {
		snap.refs[k] = v
	}
	for k, v := range db.t.periods {
		snap.periods[k] = v
	}
	for k, v := range db.t.qualifications {
		snap.qualifications[k] = v
	}
	for k, v := range db.t.validities {
		snap.validities[k] = copyValidity(v)
	}
	for k, v := range db.t.seq {
		snap.seq[k] = v
	}
	return snap
}

// session guards access to the DB. A session opened by InTx already holds the write lock.
type session struct {
	db   *DB
	inTx bool
}

func (s session) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.db.mu.RLock()
	return s.db.mu.RUnlock
}

func (s session) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

// runInTx runs fn holding the write lock and restores the tables when fn fails.
func (s session) runInTx(ctx context.Context, fn func(tx session) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return core.NewStoreError("beginning transaction", err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	snap := s.db.snapshot()
	if err := fn(session{db: s.db, inTx: true}); err != nil {
		s.db.t = snap
		return err
	}
	return nil
}

// insert registers id in insertion order and applies the injected faults. Callers hold the write lock.
func (s session) insert(table string) (string, error) {
	if n, ok := s.db.faults[table]; ok {
		if n <= 0 {
			delete(s.db.faults, table)
			return "", core.NewStoreError("inserting into "+table, fmt.Errorf("injected fault"))
		}
		s.db.faults[table] = n - 1
	}
	id := uuid.New().String()
	s.db.t.lastSeq++
	s.db.t.seq[id] = s.db.t.lastSeq
	return id, nil
}

func copyValidity(v validity.Validity) validity.Validity {
	v.Headquarters = append([]validity.HeadquarterInfo{}, v.Headquarters...)
	v.GradeConventions = append([]validity.GradeConvention{}, v.GradeConventions...)
	return v
}

// sortBy sorts ids by the given orderings, then by insertion order.
func (s session) sortBy(ids []string, ordering []core.DBOrdering, field func(id, name string) interface{}) {
	sort.SliceStable(ids, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(field(ids[i], ord.Field), field(ids[j], ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return s.db.t.seq[ids[i]] < s.db.t.seq[ids[j]]
	})
}

// compare orders values of the same type; nil sorts last like NULLs in ascending SQL order.
func compare(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1
		default:
			return -1
		}
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
	}
	return 0
}

func nullable(valid bool, s string) interface{} {
	if !valid {
		return nil
	}
	return s
}
