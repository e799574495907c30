package qualification

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
)

// Grade types
const (
	TypePeriod = "PERIOD"
	TypeFinal  = "FINAL"
)

// Qualification is a grade of a student in a subject. A FINAL qualification has no period.
type Qualification struct {
	ID                 string      `json:"id"`
	SchoolID           string      `json:"school_id"`
	StudentID          string      `json:"student_id"`
	SubjectID          string      `json:"subject_id"`
	GroupID            null.String `json:"group_id"`
	PeriodID           null.String `json:"period_id"`
	Year               int         `json:"year"`
	GradeType          string      `json:"grade_type"`
	Grade              float64     `json:"grade"`
	EvaluativeJudgment string      `json:"evaluative_judgment"`
	Absences           int         `json:"absences"`
	Observations       string      `json:"observations"`
	RegistrationDate   time.Time   `json:"registration_date"` // UTC
	RegisteredBy       null.String `json:"registered_by"`
	CreatedAt          time.Time   `json:"created_at"` // UTC
	UpdatedAt          time.Time   `json:"updated_at"` // UTC
}

func (q Qualification) IsFinal() bool { return q.GradeType == TypeFinal }

// Expanded is a Qualification with its references attached.
type Expanded struct {
	Qualification
	School           *catalog.Ref `json:"school,omitempty"`
	Student          *catalog.Ref `json:"student,omitempty"`
	Subject          *catalog.Ref `json:"subject,omitempty"`
	Group            *catalog.Ref `json:"group,omitempty"`
	Period           *catalog.Ref `json:"period,omitempty"`
	RegisteredByUser *catalog.Ref `json:"registered_by_user,omitempty"`
}

// NewQualification contains information needed to record a Qualification.
type NewQualification struct {
	SchoolID           string      `json:"school_id" validate:"required,ref"`
	StudentID          string      `json:"student_id" validate:"required,ref"`
	SubjectID          string      `json:"subject_id" validate:"required,ref"`
	GroupID            null.String `json:"group_id" validate:"omitempty,ref"`
	PeriodID           null.String `json:"period_id" validate:"omitempty,ref"`
	Year               int         `json:"year" validate:"required,gte=2000,lte=2100"`
	GradeType          string      `json:"grade_type" validate:"required,oneof=PERIOD FINAL"`
	Grade              *float64    `json:"grade" validate:"required,gte=0,lte=10"`
	EvaluativeJudgment string      `json:"evaluative_judgment" validate:"max=2000"`
	Absences           int         `json:"absences" validate:"gte=0"`
	Observations       string      `json:"observations" validate:"max=2000"`
	RegistrationDate   time.Time   `json:"registration_date"`
	// RegisteredBy is the client supplied registrant. An authenticated principal takes precedence.
	RegisteredBy null.String `json:"registered_by" validate:"omitempty,ref"`
}

func (nq *NewQualification) Clean() {
	nq.SchoolID = core.CleanString(nq.SchoolID)
	nq.StudentID = core.CleanString(nq.StudentID)
	nq.SubjectID = core.CleanString(nq.SubjectID)
	nq.GradeType = core.CleanString(nq.GradeType)
	if nq.GradeType == "" {
		nq.GradeType = TypePeriod
	}
	nq.EvaluativeJudgment = core.CleanString(nq.EvaluativeJudgment)
	nq.Observations = core.CleanString(nq.Observations)
}

func (nq *NewQualification) Validate(validate *validator.Validate) error {
	nq.Clean()
	return validate.Struct(nq)
}

// UpdateQualification defines what may be changed on a recorded Qualification.
type UpdateQualification struct {
	Grade              *float64 `json:"grade" validate:"omitempty,gte=0,lte=10"`
	EvaluativeJudgment *string  `json:"evaluative_judgment" validate:"omitempty,max=2000"`
	Absences           *int     `json:"absences" validate:"omitempty,gte=0"`
	Observations       *string  `json:"observations" validate:"omitempty,max=2000"`
}

func (uq *UpdateQualification) Validate(validate *validator.Validate) error {
	if uq.EvaluativeJudgment != nil {
		s := core.CleanString(*uq.EvaluativeJudgment)
		uq.EvaluativeJudgment = &s
	}
	if uq.Observations != nil {
		s := core.CleanString(*uq.Observations)
		uq.Observations = &s
	}
	return validate.Struct(uq)
}

func (uq UpdateQualification) apply(q *Qualification) {
	if uq.Grade != nil {
		q.Grade = *uq.Grade
	}
	if uq.EvaluativeJudgment != nil {
		q.EvaluativeJudgment = *uq.EvaluativeJudgment
	}
	if uq.Absences != nil {
		q.Absences = *uq.Absences
	}
	if uq.Observations != nil {
		q.Observations = *uq.Observations
	}
}

// FinalsScope selects the PERIOD grades final grades are generated from.
type FinalsScope struct {
	SchoolID string      `json:"school_id"`
	Year     int         `json:"year"`
	GroupID  null.String `json:"group_id"`
}

type FinalsResult struct {
	Count   int             `json:"count"`
	Results []Qualification `json:"results"`
}

// QueryFilter applies AND operation on its non-zero fields.
type QueryFilter struct {
	SchoolID  string
	StudentID string
	SubjectID string
	GroupID   string
	Year      int
	GradeType string
}

// FinalKey identifies the FINAL record of a student in a subject.
// An empty GroupID matches any group.
type FinalKey struct {
	SchoolID  string
	StudentID string
	SubjectID string
	Year      int
	GroupID   string
}
