package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/user"
)

var (
	ErrNotFound       = core.NewNotFoundError("reference")
	ErrSchoolNotFound = core.NewNotFoundError("school")
	ErrPeriodExists   = core.NewConflictError("a period with this name already exists for this school year", "name")
)

type (
	Repository interface {
		CreateRef(ctx context.Context, ref Ref) (Ref, error)
		GetRef(ctx context.Context, kind, id string) (Ref, error)
		// QueryRefs lists the refs of a kind sorted by name. An empty schoolID does not filter.
		QueryRefs(ctx context.Context, kind, schoolID string) ([]Ref, error)
		GetRefsByIDs(ctx context.Context, kind string, ids []string) ([]Ref, error)

		CreatePeriod(ctx context.Context, p Period) (Period, error)
		// QueryPeriods lists periods sorted by order then name.
		QueryPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error)
		GetPeriodsByIDs(ctx context.Context, ids []string) ([]Period, error)
	}

	// PersonSource resolves users referenced as students, staff or registrants.
	PersonSource interface {
		GetByIDs(ctx context.Context, ids []string) ([]user.User, error)
	}

	Service struct {
		repo    Repository
		persons PersonSource
	}
)

func NewService(repo Repository, persons PersonSource) *Service {
	return &Service{repo: repo, persons: persons}
}

func (svc *Service) CreateRef(ctx context.Context, nr NewRef) (Ref, error) {
	if nr.SchoolID.Valid {
		if _, err := svc.repo.GetRef(ctx, KindSchool, nr.SchoolID.String); err != nil {
			if err == ErrNotFound {
				return Ref{}, ErrSchoolNotFound
			}
			return Ref{}, errors.Wrap(err, "finding school")
		}
	}
	return svc.repo.CreateRef(ctx, Ref{
		Kind:      nr.Kind,
		Name:      nr.Name,
		SchoolID:  nr.SchoolID,
		CreatedAt: core.Timestamp(time.Now()),
	})
}

func (svc *Service) ListRefs(ctx context.Context, kind, schoolID string) ([]Ref, error) {
	return svc.repo.QueryRefs(ctx, kind, schoolID)
}

func (svc *Service) GetRef(ctx context.Context, kind, id string) (Ref, error) {
	if !core.IsRef(id) {
		return Ref{}, ErrNotFound
	}
	return svc.repo.GetRef(ctx, kind, id)
}

func (svc *Service) CreatePeriod(ctx context.Context, np NewPeriod) (Period, error) {
	if _, err := svc.repo.GetRef(ctx, KindSchool, np.SchoolID); err != nil {
		if err == ErrNotFound {
			return Period{}, ErrSchoolNotFound
		}
		return Period{}, errors.Wrap(err, "finding school")
	}
	return svc.repo.CreatePeriod(ctx, Period{
		SchoolID:   np.SchoolID,
		Year:       np.Year,
		Name:       np.Name,
		Order:      np.Order,
		Percentage: np.Percentage,
		CreatedAt:  core.Timestamp(time.Now()),
	})
}

func (svc *Service) ListPeriods(ctx context.Context, schoolID string, year int) ([]Period, error) {
	return svc.repo.QueryPeriods(ctx, PeriodFilter{SchoolID: schoolID, Year: year})
}

// Resolve fetches the referenced entities in one batched lookup per kind.
// Unknown ids are left out of the result.
func (svc *Service) Resolve(ctx context.Context, keys []Key) (Refs, error) {
	ids := make(map[string][]string)
	seen := make(map[Key]bool, len(keys))
	for _, k := range keys {
		if k.ID == "" || seen[k] || !core.IsRef(k.ID) {
			continue
		}
		seen[k] = true
		ids[k.Kind] = append(ids[k.Kind], k.ID)
	}

	refs := make(Refs)
	kinds := make([]string, 0, len(ids))
	for kind := range ids {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		switch kind {
		case KindPerson:
			if svc.persons == nil {
				continue
			}
			users, err := svc.persons.GetByIDs(ctx, ids[kind])
			if err != nil {
				return nil, errors.Wrap(err, "resolving persons")
			}
			for _, u := range users {
				refs.put(Ref{ID: u.ID, Kind: KindPerson, Name: u.FullName(), SchoolID: u.SchoolID})
			}
		case KindPeriod:
			periods, err := svc.repo.GetPeriodsByIDs(ctx, ids[kind])
			if err != nil {
				return nil, errors.Wrap(err, "resolving periods")
			}
			for _, p := range periods {
				refs.put(Ref{ID: p.ID, Kind: KindPeriod, Name: p.Name, SchoolID: nullRef(p.SchoolID)})
			}
		default:
			found, err := svc.repo.GetRefsByIDs(ctx, kind, ids[kind])
			if err != nil {
				return nil, errors.Wrapf(err, "resolving %s refs", kind)
			}
			for _, r := range found {
				refs.put(r)
			}
		}
	}
	return refs, nil
}
