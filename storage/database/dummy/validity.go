package dummydb

import (
	"context"
	"time"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/validity"
)

type validityRepository struct {
	session
}

var _ validity.Repository = (*validityRepository)(nil) // interface compliance check

func NewValidityRepository(db *DB) *validityRepository {
	return &validityRepository{session{db: db}}
}

func (repo *validityRepository) InTx(ctx context.Context, fn func(repo validity.Repository) error) error {
	return repo.runInTx(ctx, func(tx session) error {
		return fn(&validityRepository{tx})
	})
}

func (repo *validityRepository) CreateValidity(_ context.Context, v validity.Validity) (validity.Validity, error) {
	defer repo.lock()()

	for _, existing := range repo.db.t.validities {
		if existing.Year == v.Year && existing.SchoolID == v.SchoolID {
			return validity.Validity{}, validity.ErrValidityExists
		}
	}
	id, err := repo.insert("validities")
	if err != nil {
		return validity.Validity{}, err
	}
	v.ID = id
	repo.db.t.validities[id] = copyValidity(v)
	return v, nil
}

func (repo *validityRepository) GetValidity(_ context.Context, id string) (validity.Validity, error) {
	defer repo.rlock()()

	v, ok := repo.db.t.validities[id]
	if !ok {
		return validity.Validity{}, validity.ErrNotFound
	}
	return copyValidity(v), nil
}

func matchesValidity(v validity.Validity, filter validity.Filter) bool {
	switch {
	case filter.Year != 0 && v.Year != filter.Year:
		return false
	case filter.SchoolID != "" && v.SchoolID != filter.SchoolID:
		return false
	case filter.Active != nil && v.Active != *filter.Active:
		return false
	}
	return true
}

func (repo *validityRepository) query(filter validity.Filter, ordering []core.DBOrdering) []validity.Validity {
	var ids []string
	for id, v := range repo.db.t.validities {
		if matchesValidity(v, filter) {
			ids = append(ids, id)
		}
	}
	repo.sortBy(ids, ordering, func(id, name string) interface{} {
		v := repo.db.t.validities[id]
		switch name {
		case "year":
			return v.Year
		case "school_id":
			return v.SchoolID
		case "active":
			return v.Active
		case "created_at":
			return v.CreatedAt
		}
		return nil
	})

	vals := make([]validity.Validity, 0, len(ids))
	for _, id := range ids {
		vals = append(vals, copyValidity(repo.db.t.validities[id]))
	}
	return vals
}

func (repo *validityRepository) FindValidity(_ context.Context, filter validity.Filter) (validity.Validity, error) {
	defer repo.rlock()()

	vals := repo.query(filter, nil)
	if len(vals) == 0 {
		return validity.Validity{}, validity.ErrNotFound
	}
	return vals[0], nil
}

func (repo *validityRepository) QueryValidities(_ context.Context, filter validity.Filter, ordering []core.DBOrdering) ([]validity.Validity, error) {
	defer repo.rlock()()
	return repo.query(filter, ordering), nil
}

func (repo *validityRepository) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	defer repo.lock()()

	v, ok := repo.db.t.validities[id]
	if !ok {
		return validity.ErrNotFound
	}
	if active {
		for otherID, other := range repo.db.t.validities {
			if otherID != id && other.Active {
				return core.NewStoreError("activating validity", core.NewConflictError("another validity is active", "active"))
			}
		}
	}
	v.Active = active
	v.UpdatedAt = at
	repo.db.t.validities[id] = v
	return nil
}

func (repo *validityRepository) DeactivateAll(_ context.Context, at time.Time) error {
	defer repo.lock()()

	for id, v := range repo.db.t.validities {
		if v.Active {
			v.Active = false
			v.UpdatedAt = at
			repo.db.t.validities[id] = v
		}
	}
	return nil
}
