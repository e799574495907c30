package dummydb

import (
	"context"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/qualification"
)

type qualificationRepository struct {
	session
}

var _ qualification.Repository = (*qualificationRepository)(nil) // interface compliance check

func NewQualificationRepository(db *DB) *qualificationRepository {
	return &qualificationRepository{session{db: db}}
}

func (repo *qualificationRepository) InTx(ctx context.Context, fn func(repo qualification.Repository) error) error {
	return repo.runInTx(ctx, func(tx session) error {
		return fn(&qualificationRepository{tx})
	})
}

func (repo *qualificationRepository) CreateQualification(_ context.Context, q qualification.Qualification) (qualification.Qualification, error) {
	defer repo.lock()()

	id, err := repo.insert("qualifications")
	if err != nil {
		return qualification.Qualification{}, err
	}
	q.ID = id
	repo.db.t.qualifications[id] = q
	return q, nil
}

func (repo *qualificationRepository) GetQualification(_ context.Context, id string) (qualification.Qualification, error) {
	defer repo.rlock()()

	q, ok := repo.db.t.qualifications[id]
	if !ok {
		return qualification.Qualification{}, qualification.ErrNotFound
	}
	return q, nil
}

func qualificationField(q qualification.Qualification, name string) interface{} {
	switch name {
	case "year":
		return q.Year
	case "grade_type":
		return q.GradeType
	case "grade":
		return q.Grade
	case "school_id":
		return q.SchoolID
	case "student_id":
		return q.StudentID
	case "subject_id":
		return q.SubjectID
	case "group_id":
		return nullable(q.GroupID.Valid, q.GroupID.String)
	case "period_id":
		return nullable(q.PeriodID.Valid, q.PeriodID.String)
	case "registration_date":
		return q.RegistrationDate
	case "created_at":
		return q.CreatedAt
	case "updated_at":
		return q.UpdatedAt
	}
	return nil
}

func matchesQualification(q qualification.Qualification, filter qualification.QueryFilter) bool {
	switch {
	case filter.SchoolID != "" && q.SchoolID != filter.SchoolID:
		return false
	case filter.StudentID != "" && q.StudentID != filter.StudentID:
		return false
	case filter.SubjectID != "" && q.SubjectID != filter.SubjectID:
		return false
	case filter.GroupID != "" && q.GroupID.String != filter.GroupID:
		return false
	case filter.Year != 0 && q.Year != filter.Year:
		return false
	case filter.GradeType != "" && q.GradeType != filter.GradeType:
		return false
	}
	return true
}

func (repo *qualificationRepository) QueryQualifications(_ context.Context, filter qualification.QueryFilter, ordering []core.DBOrdering) ([]qualification.Qualification, error) {
	defer repo.rlock()()

	var ids []string
	for id, q := range repo.db.t.qualifications {
		if matchesQualification(q, filter) {
			ids = append(ids, id)
		}
	}
	repo.sortBy(ids, ordering, func(id, name string) interface{} {
		return qualificationField(repo.db.t.qualifications[id], name)
	})

	quals := make([]qualification.Qualification, 0, len(ids))
	for _, id := range ids {
		quals = append(quals, repo.db.t.qualifications[id])
	}
	return quals, nil
}

func (repo *qualificationRepository) UpdateQualification(_ context.Context, q qualification.Qualification) (qualification.Qualification, error) {
	defer repo.lock()()

	if _, ok := repo.db.t.qualifications[q.ID]; !ok {
		return qualification.Qualification{}, qualification.ErrNotFound
	}
	repo.db.t.qualifications[q.ID] = q
	return q, nil
}

func (repo *qualificationRepository) FindFinal(_ context.Context, key qualification.FinalKey) (qualification.Qualification, error) {
	defer repo.rlock()()

	filter := qualification.QueryFilter{
		SchoolID:  key.SchoolID,
		StudentID: key.StudentID,
		SubjectID: key.SubjectID,
		GroupID:   key.GroupID,
		Year:      key.Year,
		GradeType: qualification.TypeFinal,
	}
	var (
		found qualification.Qualification
		seq   int64
	)
	for id, q := range repo.db.t.qualifications {
		if !matchesQualification(q, filter) {
			continue
		}
		if s := repo.db.t.seq[id]; found.ID == "" || s < seq {
			found, seq = q, s
		}
	}
	if found.ID == "" {
		return qualification.Qualification{}, qualification.ErrNotFound
	}
	return found, nil
}
