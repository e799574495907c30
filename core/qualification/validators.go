package qualification

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sigcolegio/backend/core"
)

var (
	periodRequiredTag  = "periodrequired"
	periodRequiredText = "a PERIOD grade requires a period"

	periodForbiddenTag  = "periodforbidden"
	periodForbiddenText = "a FINAL grade cannot have a period"
)

// InitValidators registers the qualification validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newQualificationStructValidation, NewQualification{})
	core.RegisterCustomTranslation(validate, translator, periodRequiredTag, periodRequiredText)
	core.RegisterCustomTranslation(validate, translator, periodForbiddenTag, periodForbiddenText)
}

// newQualificationStructValidation checks the period against the grade type.
func newQualificationStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQualification)
	if !ok {
		return
	}
	switch nq.GradeType {
	case TypePeriod:
		if !nq.PeriodID.Valid || nq.PeriodID.String == "" {
			sl.ReportError(nq.PeriodID, "period_id", "PeriodID", periodRequiredTag, "")
		}
	case TypeFinal:
		if nq.PeriodID.Valid {
			sl.ReportError(nq.PeriodID, "period_id", "PeriodID", periodForbiddenTag, "")
		}
	}
}
