package validity

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
)

// Recovery types
const (
	RecoveryAverage     = "AVERAGE"
	RecoveryReplacement = "REPLACEMENT"
)

// defaults
const (
	DefaultMaxGrade           = 5.0
	DefaultMinGrade           = 1.0
	DefaultFailYearCondition  = "2 subjects"
	DefaultRecoveryType       = RecoveryAverage
	DefaultRecoveryPercentage = 20.0
	DefaultMaxFailedSubjects  = 2
)

type HeadquarterInfo struct {
	HeadquarterID string      `json:"headquarter_id" validate:"required,ref"`
	CoordinatorID null.String `json:"coordinator_id" validate:"omitempty,ref"`
	SecretaryID   null.String `json:"secretary_id" validate:"omitempty,ref"`
}

type GradeConvention struct {
	Code  string `json:"code" validate:"required,max=16"`
	Value string `json:"value" validate:"required,max=64"`
	Order int    `json:"order" validate:"gte=0"`
}

// Validity is the academic configuration of a school year. At most one Validity is active.
type Validity struct {
	ID                  string            `json:"id"`
	Year                int               `json:"year"`
	SchoolID            string            `json:"school_id"`
	Active              bool              `json:"active"`
	RectorID            null.String       `json:"rector_id"`
	GeneralSecretaryID  null.String       `json:"general_secretary_id"`
	Headquarters        []HeadquarterInfo `json:"headquarter_info"`
	MaxGrade            float64           `json:"max_grade"`
	MinGrade            float64           `json:"min_grade"`
	GradeConventions    []GradeConvention `json:"grade_conventions"`
	FailYearCondition   string            `json:"fail_year_condition"`
	RecoveryType        string            `json:"recovery_type"`
	RecoveryPercentage  float64           `json:"recovery_percentage"`
	MaxFailedSubjects   int               `json:"max_failed_subjects"`
	RecoveryActTemplate string            `json:"recovery_act_template"`
	CreatedAt           time.Time         `json:"created_at"` // UTC
	UpdatedAt           time.Time         `json:"updated_at"` // UTC
}

// NewValidity contains information needed to create a Validity. Omitted settings take their defaults.
type NewValidity struct {
	Year                int               `json:"year" validate:"required,gte=2000,lte=2100"`
	SchoolID            string            `json:"school_id" validate:"required,ref"`
	RectorID            null.String       `json:"rector_id" validate:"omitempty,ref"`
	GeneralSecretaryID  null.String       `json:"general_secretary_id" validate:"omitempty,ref"`
	Headquarters        []HeadquarterInfo `json:"headquarter_info" validate:"omitempty,dive"`
	MaxGrade            *float64          `json:"max_grade" validate:"omitempty,gte=0,lte=10"`
	MinGrade            *float64          `json:"min_grade" validate:"omitempty,gte=0,lte=10"`
	GradeConventions    []GradeConvention `json:"grade_conventions" validate:"omitempty,dive"`
	FailYearCondition   string            `json:"fail_year_condition" validate:"max=256"`
	RecoveryType        string            `json:"recovery_type" validate:"omitempty,oneof=AVERAGE REPLACEMENT"`
	RecoveryPercentage  *float64          `json:"recovery_percentage" validate:"omitempty,gte=0,lte=100"`
	MaxFailedSubjects   *int              `json:"max_failed_subjects" validate:"omitempty,gte=0"`
	RecoveryActTemplate string            `json:"recovery_act_template"`
}

func (nv *NewValidity) Clean() {
	nv.SchoolID = core.CleanString(nv.SchoolID)
	nv.FailYearCondition = core.CleanString(nv.FailYearCondition)
	nv.RecoveryType = core.CleanString(nv.RecoveryType)
	for i := range nv.GradeConventions {
		nv.GradeConventions[i].Code = core.CleanString(nv.GradeConventions[i].Code)
		nv.GradeConventions[i].Value = core.CleanString(nv.GradeConventions[i].Value)
	}
}

func (nv *NewValidity) Validate(validate *validator.Validate) error {
	nv.Clean()
	return validate.Struct(nv)
}

// toValidity builds an inactive Validity with defaults applied.
func (nv NewValidity) toValidity(now time.Time) Validity {
	v := Validity{
		Year:                nv.Year,
		SchoolID:            nv.SchoolID,
		RectorID:            nv.RectorID,
		GeneralSecretaryID:  nv.GeneralSecretaryID,
		Headquarters:        nv.Headquarters,
		MaxGrade:            DefaultMaxGrade,
		MinGrade:            DefaultMinGrade,
		GradeConventions:    nv.GradeConventions,
		FailYearCondition:   nv.FailYearCondition,
		RecoveryType:        nv.RecoveryType,
		RecoveryPercentage:  DefaultRecoveryPercentage,
		MaxFailedSubjects:   DefaultMaxFailedSubjects,
		RecoveryActTemplate: nv.RecoveryActTemplate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if nv.MaxGrade != nil {
		v.MaxGrade = *nv.MaxGrade
	}
	if nv.MinGrade != nil {
		v.MinGrade = *nv.MinGrade
	}
	if nv.RecoveryPercentage != nil {
		v.RecoveryPercentage = *nv.RecoveryPercentage
	}
	if nv.MaxFailedSubjects != nil {
		v.MaxFailedSubjects = *nv.MaxFailedSubjects
	}
	if v.FailYearCondition == "" {
		v.FailYearCondition = DefaultFailYearCondition
	}
	if v.RecoveryType == "" {
		v.RecoveryType = DefaultRecoveryType
	}
	if v.Headquarters == nil {
		v.Headquarters = []HeadquarterInfo{}
	}
	if v.GradeConventions == nil {
		v.GradeConventions = []GradeConvention{}
	}
	return v
}
