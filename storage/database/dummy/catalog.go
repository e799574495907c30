package dummydb

import (
	"context"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
)

type catalogRepository struct {
	session
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{session{db: db}}
}

func (repo *catalogRepository) CreateRef(_ context.Context, ref catalog.Ref) (catalog.Ref, error) {
	defer repo.lock()()

	id, err := repo.insert("refs")
	if err != nil {
		return catalog.Ref{}, err
	}
	ref.ID = id
	repo.db.t.refs[id] = ref
	return ref, nil
}

func (repo *catalogRepository) GetRef(_ context.Context, kind, id string) (catalog.Ref, error) {
	defer repo.rlock()()

	ref, ok := repo.db.t.refs[id]
	if !ok || ref.Kind != kind {
		return catalog.Ref{}, catalog.ErrNotFound
	}
	return ref, nil
}

func (repo *catalogRepository) QueryRefs(_ context.Context, kind, schoolID string) ([]catalog.Ref, error) {
	defer repo.rlock()()

	var ids []string
	for id, ref := range repo.db.t.refs {
		if ref.Kind != kind || (schoolID != "" && ref.SchoolID.String != schoolID) {
			continue
		}
		ids = append(ids, id)
	}
	repo.sortBy(ids, core.OrderBy("name"), func(id, _ string) interface{} { return repo.db.t.refs[id].Name })

	refs := make([]catalog.Ref, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, repo.db.t.refs[id])
	}
	return refs, nil
}

func (repo *catalogRepository) GetRefsByIDs(_ context.Context, kind string, ids []string) ([]catalog.Ref, error) {
	defer repo.rlock()()

	refs := make([]catalog.Ref, 0, len(ids))
	for _, id := range ids {
		if ref, ok := repo.db.t.refs[id]; ok && ref.Kind == kind {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (repo *catalogRepository) CreatePeriod(_ context.Context, p catalog.Period) (catalog.Period, error) {
	defer repo.lock()()

	for _, existing := range repo.db.t.periods {
		if existing.SchoolID == p.SchoolID && existing.Year == p.Year && existing.Name == p.Name {
			return catalog.Period{}, catalog.ErrPeriodExists
		}
	}
	id, err := repo.insert("periods")
	if err != nil {
		return catalog.Period{}, err
	}
	p.ID = id
	repo.db.t.periods[id] = p
	return p, nil
}

func (repo *catalogRepository) QueryPeriods(_ context.Context, filter catalog.PeriodFilter) ([]catalog.Period, error) {
	defer repo.rlock()()

	var ids []string
	for id, p := range repo.db.t.periods {
		if filter.SchoolID != "" && p.SchoolID != filter.SchoolID {
			continue
		}
		if filter.Year != 0 && p.Year != filter.Year {
			continue
		}
		ids = append(ids, id)
	}
	repo.sortBy(ids, core.OrderBy("order", "name"), func(id, name string) interface{} {
		p := repo.db.t.periods[id]
		if name == "order" {
			return p.Order
		}
		return p.Name
	})

	periods := make([]catalog.Period, 0, len(ids))
	for _, id := range ids {
		periods = append(periods, repo.db.t.periods[id])
	}
	return periods, nil
}

func (repo *catalogRepository) GetPeriodsByIDs(_ context.Context, ids []string) ([]catalog.Period, error) {
	defer repo.rlock()()

	periods := make([]catalog.Period, 0, len(ids))
	for _, id := range ids {
		if p, ok := repo.db.t.periods[id]; ok {
			periods = append(periods, p)
		}
	}
	return periods, nil
}
