package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/qualification"
)

var qualificationColumns = []string{
	"id", "school_id", "student_id", "subject_id", "group_id", "period_id", "year", "grade_type", "grade",
	"evaluative_judgment", "absences", "observations", "registration_date", "registered_by", "created_at", "updated_at",
}

type qualificationRow struct {
	ID                 string      `db:"id"`
	SchoolID           string      `db:"school_id"`
	StudentID          string      `db:"student_id"`
	SubjectID          string      `db:"subject_id"`
	GroupID            null.String `db:"group_id"`
	PeriodID           null.String `db:"period_id"`
	Year               int         `db:"year"`
	GradeType          string      `db:"grade_type"`
	Grade              float64     `db:"grade"`
	EvaluativeJudgment string      `db:"evaluative_judgment"`
	Absences           int         `db:"absences"`
	Observations       string      `db:"observations"`
	RegistrationDate   time.Time   `db:"registration_date"`
	RegisteredBy       null.String `db:"registered_by"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func (r qualificationRow) qualification() qualification.Qualification {
	return qualification.Qualification{
		ID:                 r.ID,
		SchoolID:           r.SchoolID,
		StudentID:          r.StudentID,
		SubjectID:          r.SubjectID,
		GroupID:            r.GroupID,
		PeriodID:           r.PeriodID,
		Year:               r.Year,
		GradeType:          r.GradeType,
		Grade:              r.Grade,
		EvaluativeJudgment: r.EvaluativeJudgment,
		Absences:           r.Absences,
		Observations:       r.Observations,
		RegistrationDate:   r.RegistrationDate.UTC(),
		RegisteredBy:       r.RegisteredBy,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

type qualificationRepository struct {
	conn
}

var _ qualification.Repository = (*qualificationRepository)(nil) // interface compliance check

func NewQualificationRepository(db *sqlx.DB) *qualificationRepository {
	return &qualificationRepository{newConn(db)}
}

func (repo *qualificationRepository) InTx(ctx context.Context, fn func(repo qualification.Repository) error) error {
	return repo.inTx(ctx, func(tx conn) error {
		return fn(&qualificationRepository{tx})
	})
}

func (repo *qualificationRepository) CreateQualification(ctx context.Context, q qualification.Qualification) (qualification.Qualification, error) {
	q.ID = uuid.New().String()
	b := psql.Insert("qualifications").Columns(qualificationColumns...).Values(
		q.ID, q.SchoolID, q.StudentID, q.SubjectID, q.GroupID, q.PeriodID, q.Year, q.GradeType, q.Grade,
		q.EvaluativeJudgment, q.Absences, q.Observations, q.RegistrationDate.UTC(), q.RegisteredBy,
		q.CreatedAt.UTC(), q.UpdatedAt.UTC(),
	)
	if _, err := repo.exec(ctx, b); err != nil {
		return qualification.Qualification{}, storeErr(err, "inserting qualification", nil, nil)
	}
	return q, nil
}

func (repo *qualificationRepository) GetQualification(ctx context.Context, id string) (qualification.Qualification, error) {
	var row qualificationRow
	b := psql.Select(qualificationColumns...).From("qualifications").Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &row, b); err != nil {
		return qualification.Qualification{}, storeErr(err, "getting qualification", qualification.ErrNotFound, nil)
	}
	return row.qualification(), nil
}

func whereQualification(b sq.SelectBuilder, filter qualification.QueryFilter) sq.SelectBuilder {
	eq := sq.Eq{}
	if filter.SchoolID != "" {
		eq["school_id"] = filter.SchoolID
	}
	if filter.StudentID != "" {
		eq["student_id"] = filter.StudentID
	}
	if filter.SubjectID != "" {
		eq["subject_id"] = filter.SubjectID
	}
	if filter.GroupID != "" {
		eq["group_id"] = filter.GroupID
	}
	if filter.Year != 0 {
		eq["year"] = filter.Year
	}
	if filter.GradeType != "" {
		eq["grade_type"] = filter.GradeType
	}
	if len(eq) == 0 {
		return b
	}
	return b.Where(eq)
}

func (repo *qualificationRepository) QueryQualifications(ctx context.Context, filter qualification.QueryFilter, ordering []core.DBOrdering) ([]qualification.Qualification, error) {
	b := whereQualification(psql.Select(qualificationColumns...).From("qualifications"), filter)
	b = orderBy(b, ordering, qualificationColumns...)

	var rows []qualificationRow
	if err := repo.selectAll(ctx, &rows, b); err != nil {
		return nil, storeErr(err, "querying qualifications", nil, nil)
	}
	quals := make([]qualification.Qualification, 0, len(rows))
	for _, r := range rows {
		quals = append(quals, r.qualification())
	}
	return quals, nil
}

func (repo *qualificationRepository) UpdateQualification(ctx context.Context, q qualification.Qualification) (qualification.Qualification, error) {
	b := psql.Update("qualifications").
		SetMap(map[string]interface{}{
			"group_id":            q.GroupID,
			"period_id":           q.PeriodID,
			"grade":               q.Grade,
			"evaluative_judgment": q.EvaluativeJudgment,
			"absences":            q.Absences,
			"observations":        q.Observations,
			"updated_at":          q.UpdatedAt.UTC(),
		}).
		Where(sq.Eq{"id": q.ID})

	n, err := repo.exec(ctx, b)
	if err != nil {
		return qualification.Qualification{}, storeErr(err, "updating qualification", nil, nil)
	}
	if n == 0 {
		return qualification.Qualification{}, qualification.ErrNotFound
	}
	return q, nil
}

func (repo *qualificationRepository) FindFinal(ctx context.Context, key qualification.FinalKey) (qualification.Qualification, error) {
	filter := qualification.QueryFilter{
		SchoolID:  key.SchoolID,
		StudentID: key.StudentID,
		SubjectID: key.SubjectID,
		GroupID:   key.GroupID,
		Year:      key.Year,
		GradeType: qualification.TypeFinal,
	}
	b := whereQualification(psql.Select(qualificationColumns...).From("qualifications"), filter).
		OrderBy("created_at", "id").
		Limit(1)

	var row qualificationRow
	if err := repo.get(ctx, &row, b); err != nil {
		return qualification.Qualification{}, storeErr(err, "finding final qualification", qualification.ErrNotFound, nil)
	}
	return row.qualification(), nil
}
