package validity

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sigcolegio/backend/core"
)

var (
	ErrNotFound       = core.NewNotFoundError("validity")
	ErrNoneActive     = core.NewNotFoundError("active validity")
	ErrValidityExists = core.NewConflictError("a validity already exists for this year and school", "year")

	// OrderingFields are the fields validities may be listed by.
	OrderingFields = []string{"year", "school_id", "active", "created_at"}
)

type (
	// Filter selects validities; zero fields do not filter.
	Filter struct {
		Year     int
		SchoolID string
		Active   *bool
	}

	Repository interface {
		// InTx runs fn in a single transaction. Every write done through the Repository given to fn
		// is rolled back when fn returns an error.
		InTx(ctx context.Context, fn func(repo Repository) error) error

		// CreateValidity returns ErrValidityExists when (year, school) is taken.
		CreateValidity(ctx context.Context, v Validity) (Validity, error)
		GetValidity(ctx context.Context, id string) (Validity, error)
		// FindValidity returns the first validity matching filter, or ErrNotFound.
		FindValidity(ctx context.Context, filter Filter) (Validity, error)
		QueryValidities(ctx context.Context, filter Filter, ordering []core.DBOrdering) ([]Validity, error)
		// SetActive sets the active flag of one validity. ErrNotFound when id is unknown.
		SetActive(ctx context.Context, id string, active bool, at time.Time) error
		// DeactivateAll clears the active flag of every validity.
		DeactivateAll(ctx context.Context, at time.Time) error
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		nowFunc    func() time.Time // mockable
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		repo:       repo,
		validate:   validate,
		translator: translator,
		nowFunc:    time.Now,
	}
}

// Create records a new inactive validity.
func (svc *Service) Create(ctx context.Context, nv NewValidity) (Validity, error) {
	if err := nv.Validate(svc.validate); err != nil {
		return Validity{}, core.TranslateValidationErrors(err, svc.translator, "")
	}

	_, err := svc.repo.FindValidity(ctx, Filter{Year: nv.Year, SchoolID: nv.SchoolID})
	switch {
	case err == nil:
		return Validity{}, ErrValidityExists
	case err != ErrNotFound:
		return Validity{}, errors.Wrap(err, "checking validity uniqueness")
	}
	return svc.repo.CreateValidity(ctx, nv.toValidity(core.Timestamp(svc.nowFunc())))
}

// List lists validities, latest year first unless ordering says otherwise.
func (svc *Service) List(ctx context.Context, ordering []core.DBOrdering) ([]Validity, error) {
	ordering = core.FilterOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = core.OrderBy("-year")
	}
	return svc.repo.QueryValidities(ctx, Filter{}, append(ordering, core.OrderBy("created_at")...))
}

func (svc *Service) GetByID(ctx context.Context, id string) (Validity, error) {
	if !core.IsRef(id) {
		return Validity{}, ErrNotFound
	}
	return svc.repo.GetValidity(ctx, id)
}

// GetActive returns the active validity or ErrNoneActive.
func (svc *Service) GetActive(ctx context.Context) (Validity, error) {
	active := true
	v, err := svc.repo.FindValidity(ctx, Filter{Active: &active})
	if err == ErrNotFound {
		return Validity{}, ErrNoneActive
	}
	return v, err
}

// Activate makes id the only active validity, across all schools.
func (svc *Service) Activate(ctx context.Context, id string) (Validity, error) {
	if !core.IsRef(id) {
		return Validity{}, ErrNotFound
	}

	var activated Validity
	err := svc.repo.InTx(ctx, func(repo Repository) error {
		if _, err := repo.GetValidity(ctx, id); err != nil {
			return err
		}
		now := core.Timestamp(svc.nowFunc())
		if err := repo.DeactivateAll(ctx, now); err != nil {
			return errors.Wrap(err, "deactivating validities")
		}
		if err := repo.SetActive(ctx, id, true, now); err != nil {
			return err
		}
		var err error
		activated, err = repo.GetValidity(ctx, id)
		return err
	})
	return activated, err
}

// Deactivate clears the active flag of id only.
func (svc *Service) Deactivate(ctx context.Context, id string) (Validity, error) {
	if !core.IsRef(id) {
		return Validity{}, ErrNotFound
	}
	if err := svc.repo.SetActive(ctx, id, false, core.Timestamp(svc.nowFunc())); err != nil {
		return Validity{}, err
	}
	return svc.repo.GetValidity(ctx, id)
}
