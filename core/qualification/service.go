package qualification

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
)

var (
	ErrNotFound   = core.NewNotFoundError("qualification")
	ErrEmptyBatch = core.NewValidationError(errors.New("the batch is empty"), core.FieldError{Field: "items", Error: "at least one qualification is required"})
)

type (
	Repository interface {
		// InTx runs fn in a single transaction. Every write done through the Repository given to fn
		// is rolled back when fn returns an error.
		InTx(ctx context.Context, fn func(repo Repository) error) error

		CreateQualification(ctx context.Context, q Qualification) (Qualification, error)
		GetQualification(ctx context.Context, id string) (Qualification, error)
		QueryQualifications(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Qualification, error)
		UpdateQualification(ctx context.Context, q Qualification) (Qualification, error)
		// FindFinal returns the earliest FINAL record matching key, or ErrNotFound.
		FindFinal(ctx context.Context, key FinalKey) (Qualification, error)
	}

	// PeriodSource provides the academic periods of a school year.
	PeriodSource interface {
		ListPeriods(ctx context.Context, schoolID string, year int) ([]catalog.Period, error)
	}

	// RefResolver attaches referenced entities in batched lookups.
	RefResolver interface {
		Resolve(ctx context.Context, keys []catalog.Key) (catalog.Refs, error)
	}

	Service struct {
		repo       Repository
		periods    PeriodSource
		resolver   RefResolver
		validate   *validator.Validate
		translator ut.Translator
		nowFunc    func() time.Time // mockable
	}
)

func NewService(
	repo Repository,
	periods PeriodSource,
	resolver RefResolver,
	validate *validator.Validate,
	translator ut.Translator,
) *Service {
	return &Service{
		repo:       repo,
		periods:    periods,
		resolver:   resolver,
		validate:   validate,
		translator: translator,
		nowFunc:    time.Now,
	}
}

// ResolveRegistrant picks who registers a record: the authenticated principal wins over
// the client supplied value, which is only used when there is no principal.
func ResolveRegistrant(principal string, client null.String) null.String {
	if principal != "" {
		return null.StringFrom(principal)
	}
	if client.Valid && client.String != "" {
		return client
	}
	return null.String{}
}

func (svc *Service) build(principal string, nq NewQualification) Qualification {
	now := core.Timestamp(svc.nowFunc())
	regDate := core.Timestamp(nq.RegistrationDate)
	if nq.RegistrationDate.IsZero() {
		regDate = now
	}
	q := Qualification{
		SchoolID:           nq.SchoolID,
		StudentID:          nq.StudentID,
		SubjectID:          nq.SubjectID,
		GroupID:            nq.GroupID,
		PeriodID:           nq.PeriodID,
		Year:               nq.Year,
		GradeType:          nq.GradeType,
		EvaluativeJudgment: nq.EvaluativeJudgment,
		Absences:           nq.Absences,
		Observations:       nq.Observations,
		RegistrationDate:   regDate,
		RegisteredBy:       ResolveRegistrant(principal, nq.RegisteredBy),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if nq.Grade != nil {
		q.Grade = *nq.Grade
	}
	if q.IsFinal() {
		q.PeriodID = null.String{}
	}
	return q
}

func (svc *Service) validateNew(nq *NewQualification, prefix string) error {
	if err := nq.Validate(svc.validate); err != nil {
		return core.TranslateValidationErrors(err, svc.translator, prefix)
	}
	return nil
}

// Create records a single qualification. principal is the authenticated user id, if any.
func (svc *Service) Create(ctx context.Context, principal string, nq NewQualification) (Qualification, error) {
	if err := svc.validateNew(&nq, ""); err != nil {
		return Qualification{}, err
	}
	return svc.repo.CreateQualification(ctx, svc.build(principal, nq))
}

// CreateBatch records all the qualifications or none of them.
// Records are returned in input order.
func (svc *Service) CreateBatch(ctx context.Context, principal string, batch []NewQualification) ([]Qualification, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	var fields []core.FieldError
	for i := range batch {
		if err := svc.validateNew(&batch[i], fmt.Sprintf("items[%d]", i)); err != nil {
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				return nil, err
			}
			fields = append(fields, vErr.Fields...)
		}
	}
	if len(fields) > 0 {
		return nil, core.NewValidationError(errors.New("invalid batch"), fields...)
	}

	created := make([]Qualification, 0, len(batch))
	err := svc.repo.InTx(ctx, func(repo Repository) error {
		for i, nq := range batch {
			q, err := repo.CreateQualification(ctx, svc.build(principal, nq))
			if err != nil {
				return errors.Wrapf(err, "inserting item %d", i)
			}
			created = append(created, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GenerateFinals computes and upserts the FINAL grades of every (student, subject) having
// PERIOD grades in scope. The whole run is a single transaction.
func (svc *Service) GenerateFinals(ctx context.Context, principal string, scope FinalsScope) (FinalsResult, error) {
	scope.SchoolID = core.CleanString(scope.SchoolID)
	scope.GroupID.String = core.CleanString(scope.GroupID.String)
	if scope.GroupID.String == "" {
		scope.GroupID = null.String{}
	}
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(scope.SchoolID, "school_id"),
		vala.GreaterThan(scope.Year, 0, "year"),
	).Check(); err != nil {
		return FinalsResult{}, core.NewValidationError(err)
	}

	periods, err := svc.periods.ListPeriods(ctx, scope.SchoolID, scope.Year)
	if err != nil {
		return FinalsResult{}, errors.Wrap(err, "listing periods")
	}
	weights := WeightsFromPeriods(periods)

	filter := QueryFilter{
		SchoolID:  scope.SchoolID,
		Year:      scope.Year,
		GroupID:   scope.GroupID.String,
		GradeType: TypePeriod,
	}
	registrant := ResolveRegistrant(principal, null.String{})

	results := make([]Qualification, 0)
	err = svc.repo.InTx(ctx, func(repo Repository) error {
		grades, err := repo.QueryQualifications(ctx, filter, core.OrderBy("student_id", "subject_id", "updated_at"))
		if err != nil {
			return errors.Wrap(err, "querying period grades")
		}

		now := core.Timestamp(svc.nowFunc())
		for _, fg := range ComputeFinals(grades, weights) {
			key := FinalKey{
				SchoolID:  scope.SchoolID,
				StudentID: fg.StudentID,
				SubjectID: fg.SubjectID,
				Year:      scope.Year,
				GroupID:   scope.GroupID.String,
			}
			final, err := repo.FindFinal(ctx, key)
			switch {
			case err == nil:
				final.Grade = fg.Grade
				final.GroupID = scope.GroupID
				final.PeriodID = null.String{}
				final.UpdatedAt = now
				final, err = repo.UpdateQualification(ctx, final)
			case err == ErrNotFound:
				final, err = repo.CreateQualification(ctx, Qualification{
					SchoolID:         scope.SchoolID,
					StudentID:        fg.StudentID,
					SubjectID:        fg.SubjectID,
					GroupID:          scope.GroupID,
					Year:             scope.Year,
					GradeType:        TypeFinal,
					Grade:            fg.Grade,
					RegistrationDate: now,
					RegisteredBy:     registrant,
					CreatedAt:        now,
					UpdatedAt:        now,
				})
			}
			if err != nil {
				return errors.Wrapf(err, "upserting final of student %s in subject %s", fg.StudentID, fg.SubjectID)
			}
			results = append(results, final)
		}
		return nil
	})
	if err != nil {
		return FinalsResult{}, err
	}
	return FinalsResult{Count: len(results), Results: results}, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Qualification, error) {
	if !core.IsRef(id) {
		return Qualification{}, ErrNotFound
	}
	return svc.repo.GetQualification(ctx, id)
}

func (svc *Service) update(ctx context.Context, id string, uq UpdateQualification, finalOnly bool) (Qualification, error) {
	if err := uq.Validate(svc.validate); err != nil {
		return Qualification{}, core.TranslateValidationErrors(err, svc.translator, "")
	}

	var updated Qualification
	err := svc.repo.InTx(ctx, func(repo Repository) error {
		q, err := repo.GetQualification(ctx, id)
		if err != nil {
			return err
		}
		if finalOnly && !q.IsFinal() {
			return ErrNotFound
		}
		uq.apply(&q)
		q.UpdatedAt = core.Timestamp(svc.nowFunc())
		updated, err = repo.UpdateQualification(ctx, q)
		return err
	})
	return updated, err
}

// Update changes a qualification of any grade type.
func (svc *Service) Update(ctx context.Context, id string, uq UpdateQualification) (Qualification, error) {
	if !core.IsRef(id) {
		return Qualification{}, ErrNotFound
	}
	return svc.update(ctx, id, uq, false)
}

// UpdateFinal overrides a FINAL qualification. Other grade types are not found.
func (svc *Service) UpdateFinal(ctx context.Context, id string, uq UpdateQualification) (Qualification, error) {
	if !core.IsRef(id) {
		return Qualification{}, ErrNotFound
	}
	return svc.update(ctx, id, uq, true)
}

func (svc *Service) query(ctx context.Context, filter QueryFilter, ordering ...string) ([]Qualification, error) {
	return svc.repo.QueryQualifications(ctx, filter, core.OrderBy(ordering...))
}

// ListByStudent lists the qualifications of a student, latest year first.
// A zero year does not filter.
func (svc *Service) ListByStudent(ctx context.Context, studentID string, year int) ([]Qualification, error) {
	return svc.query(ctx, QueryFilter{StudentID: studentID, Year: year}, "-year", "grade_type", "created_at")
}

func (svc *Service) ListByGroup(ctx context.Context, groupID string, year int) ([]Qualification, error) {
	return svc.query(ctx, QueryFilter{GroupID: groupID, Year: year}, "subject_id", "created_at")
}

func (svc *Service) ListByGroupAndSubject(ctx context.Context, groupID, subjectID string, year int) ([]Qualification, error) {
	return svc.query(ctx, QueryFilter{GroupID: groupID, SubjectID: subjectID, Year: year}, "student_id", "created_at")
}

// ListFinalsByYear lists the FINAL qualifications of a year. An empty schoolID does not filter.
func (svc *Service) ListFinalsByYear(ctx context.Context, year int, schoolID string) ([]Qualification, error) {
	if year <= 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "year", Error: "year must be a positive number"})
	}
	return svc.query(ctx, QueryFilter{Year: year, SchoolID: schoolID, GradeType: TypeFinal}, "group_id", "student_id", "created_at")
}

func (svc *Service) ListFinalsByStudent(ctx context.Context, studentID string, year int) ([]Qualification, error) {
	return svc.query(ctx, QueryFilter{StudentID: studentID, Year: year, GradeType: TypeFinal}, "-year", "created_at")
}

func (svc *Service) ListFinalsByGroup(ctx context.Context, groupID string, year int) ([]Qualification, error) {
	return svc.query(ctx, QueryFilter{GroupID: groupID, Year: year, GradeType: TypeFinal}, "student_id", "created_at")
}

// Expand attaches the referenced school, student, subject, group, period and registrant.
func (svc *Service) Expand(ctx context.Context, quals ...Qualification) ([]Expanded, error) {
	keys := make([]catalog.Key, 0, len(quals)*6)
	for _, q := range quals {
		keys = append(keys,
			catalog.Key{Kind: catalog.KindSchool, ID: q.SchoolID},
			catalog.Key{Kind: catalog.KindPerson, ID: q.StudentID},
			catalog.Key{Kind: catalog.KindSubject, ID: q.SubjectID},
			catalog.Key{Kind: catalog.KindGroup, ID: q.GroupID.String},
			catalog.Key{Kind: catalog.KindPeriod, ID: q.PeriodID.String},
			catalog.Key{Kind: catalog.KindPerson, ID: q.RegisteredBy.String},
		)
	}
	refs, err := svc.resolver.Resolve(ctx, keys)
	if err != nil {
		return nil, errors.Wrap(err, "resolving references")
	}

	lookup := func(kind, id string) *catalog.Ref {
		if ref, ok := refs.Get(kind, id); ok {
			return &ref
		}
		return nil
	}

	expanded := make([]Expanded, 0, len(quals))
	for _, q := range quals {
		expanded = append(expanded, Expanded{
			Qualification:    q,
			School:           lookup(catalog.KindSchool, q.SchoolID),
			Student:          lookup(catalog.KindPerson, q.StudentID),
			Subject:          lookup(catalog.KindSubject, q.SubjectID),
			Group:            lookup(catalog.KindGroup, q.GroupID.String),
			Period:           lookup(catalog.KindPeriod, q.PeriodID.String),
			RegisteredByUser: lookup(catalog.KindPerson, q.RegisteredBy.String),
		})
	}
	return expanded, nil
}
