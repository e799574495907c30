package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/validity"
)

var validityColumns = []string{
	"id", "year", "school_id", "active", "rector_id", "general_secretary_id", "headquarters", "max_grade",
	"min_grade", "grade_conventions", "fail_year_condition", "recovery_type", "recovery_percentage",
	"max_failed_subjects", "recovery_act_template", "created_at", "updated_at",
}

type validityRow struct {
	ID                  string         `db:"id"`
	Year                int            `db:"year"`
	SchoolID            string         `db:"school_id"`
	Active              bool           `db:"active"`
	RectorID            null.String    `db:"rector_id"`
	GeneralSecretaryID  null.String    `db:"general_secretary_id"`
	Headquarters        types.JSONText `db:"headquarters"`
	MaxGrade            float64        `db:"max_grade"`
	MinGrade            float64        `db:"min_grade"`
	GradeConventions    types.JSONText `db:"grade_conventions"`
	FailYearCondition   string         `db:"fail_year_condition"`
	RecoveryType        string         `db:"recovery_type"`
	RecoveryPercentage  float64        `db:"recovery_percentage"`
	MaxFailedSubjects   int            `db:"max_failed_subjects"`
	RecoveryActTemplate string         `db:"recovery_act_template"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func toValidityRow(v validity.Validity) (validityRow, error) {
	headquarters, err := json.Marshal(v.Headquarters)
	if err != nil {
		return validityRow{}, errors.Wrap(err, "encoding headquarters")
	}
	conventions, err := json.Marshal(v.GradeConventions)
	if err != nil {
		return validityRow{}, errors.Wrap(err, "encoding grade conventions")
	}
	return validityRow{
		ID:                  v.ID,
		Year:                v.Year,
		SchoolID:            v.SchoolID,
		Active:              v.Active,
		RectorID:            v.RectorID,
		GeneralSecretaryID:  v.GeneralSecretaryID,
		Headquarters:        types.JSONText(headquarters),
		MaxGrade:            v.MaxGrade,
		MinGrade:            v.MinGrade,
		GradeConventions:    types.JSONText(conventions),
		FailYearCondition:   v.FailYearCondition,
		RecoveryType:        v.RecoveryType,
		RecoveryPercentage:  v.RecoveryPercentage,
		MaxFailedSubjects:   v.MaxFailedSubjects,
		RecoveryActTemplate: v.RecoveryActTemplate,
		CreatedAt:           v.CreatedAt.UTC(),
		UpdatedAt:           v.UpdatedAt.UTC(),
	}, nil
}

func (r validityRow) values() []interface{} {
	return []interface{}{
		r.ID, r.Year, r.SchoolID, r.Active, r.RectorID, r.GeneralSecretaryID, r.Headquarters, r.MaxGrade,
		r.MinGrade, r.GradeConventions, r.FailYearCondition, r.RecoveryType, r.RecoveryPercentage,
		r.MaxFailedSubjects, r.RecoveryActTemplate, r.CreatedAt, r.UpdatedAt,
	}
}

func (r validityRow) validity() (validity.Validity, error) {
	v := validity.Validity{
		ID:                  r.ID,
		Year:                r.Year,
		SchoolID:            r.SchoolID,
		Active:              r.Active,
		RectorID:            r.RectorID,
		GeneralSecretaryID:  r.GeneralSecretaryID,
		Headquarters:        []validity.HeadquarterInfo{},
		MaxGrade:            r.MaxGrade,
		MinGrade:            r.MinGrade,
		GradeConventions:    []validity.GradeConvention{},
		FailYearCondition:   r.FailYearCondition,
		RecoveryType:        r.RecoveryType,
		RecoveryPercentage:  r.RecoveryPercentage,
		MaxFailedSubjects:   r.MaxFailedSubjects,
		RecoveryActTemplate: r.RecoveryActTemplate,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
	if len(r.Headquarters) > 0 {
		if err := r.Headquarters.Unmarshal(&v.Headquarters); err != nil {
			return validity.Validity{}, errors.Wrap(err, "decoding headquarters")
		}
	}
	if len(r.GradeConventions) > 0 {
		if err := r.GradeConventions.Unmarshal(&v.GradeConventions); err != nil {
			return validity.Validity{}, errors.Wrap(err, "decoding grade conventions")
		}
	}
	return v, nil
}

type validityRepository struct {
	conn
}

var _ validity.Repository = (*validityRepository)(nil) // interface compliance check

func NewValidityRepository(db *sqlx.DB) *validityRepository {
	return &validityRepository{newConn(db)}
}

func (repo *validityRepository) InTx(ctx context.Context, fn func(repo validity.Repository) error) error {
	return repo.inTx(ctx, func(tx conn) error {
		return fn(&validityRepository{tx})
	})
}

func (repo *validityRepository) CreateValidity(ctx context.Context, v validity.Validity) (validity.Validity, error) {
	v.ID = uuid.New().String()
	row, err := toValidityRow(v)
	if err != nil {
		return validity.Validity{}, err
	}
	b := psql.Insert("validities").Columns(validityColumns...).Values(row.values()...)
	if _, err = repo.exec(ctx, b); err != nil {
		return validity.Validity{}, storeErr(err, "inserting validity", nil, validity.ErrValidityExists)
	}
	return row.validity()
}

func (repo *validityRepository) GetValidity(ctx context.Context, id string) (validity.Validity, error) {
	var row validityRow
	b := psql.Select(validityColumns...).From("validities").Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &row, b); err != nil {
		return validity.Validity{}, storeErr(err, "getting validity", validity.ErrNotFound, nil)
	}
	return row.validity()
}

func whereValidity(b sq.SelectBuilder, filter validity.Filter) sq.SelectBuilder {
	if filter.Year != 0 {
		b = b.Where(sq.Eq{"year": filter.Year})
	}
	if filter.SchoolID != "" {
		b = b.Where(sq.Eq{"school_id": filter.SchoolID})
	}
	if filter.Active != nil {
		b = b.Where(sq.Eq{"active": *filter.Active})
	}
	return b
}

func (repo *validityRepository) FindValidity(ctx context.Context, filter validity.Filter) (validity.Validity, error) {
	var row validityRow
	b := whereValidity(psql.Select(validityColumns...).From("validities"), filter).OrderBy("created_at").Limit(1)
	if err := repo.get(ctx, &row, b); err != nil {
		return validity.Validity{}, storeErr(err, "finding validity", validity.ErrNotFound, nil)
	}
	return row.validity()
}

func (repo *validityRepository) QueryValidities(ctx context.Context, filter validity.Filter, ordering []core.DBOrdering) ([]validity.Validity, error) {
	b := whereValidity(psql.Select(validityColumns...).From("validities"), filter)
	b = orderBy(b, ordering, validity.OrderingFields...)

	var rows []validityRow
	if err := repo.selectAll(ctx, &rows, b); err != nil {
		return nil, storeErr(err, "querying validities", nil, nil)
	}
	vals := make([]validity.Validity, 0, len(rows))
	for _, r := range rows {
		v, err := r.validity()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (repo *validityRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	b := psql.Update("validities").
		Set("active", active).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"id": id})

	n, err := repo.exec(ctx, b)
	if err != nil {
		return storeErr(err, "setting validity active flag", nil, nil)
	}
	if n == 0 {
		return validity.ErrNotFound
	}
	return nil
}

func (repo *validityRepository) DeactivateAll(ctx context.Context, at time.Time) error {
	b := psql.Update("validities").
		Set("active", false).
		Set("updated_at", at.UTC()).
		Where(sq.Eq{"active": true})
	_, err := repo.exec(ctx, b)
	return storeErr(err, "deactivating validities", nil, nil)
}
