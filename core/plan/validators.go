package plan

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/quizly/backend/core"
)

var (
	planTierTag  = "plantier"
	planTierText = "{0} must be one of " + joinTiers()
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(planTierTag, planTierValidation)
	core.RegisterCustomTranslation(validate, translator, planTierTag, planTierText)
}

func planTierValidation(fl validator.FieldLevel) bool {
	return Tier(fl.Field().String()).Valid()
}

func joinTiers() string {
	names := make([]string, 0, len(Tiers))
	for _, t := range Tiers {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
