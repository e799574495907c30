package validity

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sigcolegio/backend/core"
)

var (
	gradeRangeTag  = "graderange"
	gradeRangeText = "the minimum grade cannot be greater than the maximum grade"
)

// InitValidators registers the validity validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newValidityStructValidation, NewValidity{})
	core.RegisterCustomTranslation(validate, translator, gradeRangeTag, gradeRangeText)
}

func newValidityStructValidation(sl validator.StructLevel) {
	nv, ok := sl.Current().Interface().(NewValidity)
	if !ok {
		return
	}
	maxGrade, minGrade := DefaultMaxGrade, DefaultMinGrade
	if nv.MaxGrade != nil {
		maxGrade = *nv.MaxGrade
	}
	if nv.MinGrade != nil {
		minGrade = *nv.MinGrade
	}
	if minGrade > maxGrade {
		sl.ReportError(nv.MinGrade, "min_grade", "MinGrade", gradeRangeTag, "")
	}
}
