package quiz

import (
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/quizly/backend/core"
)

var (
	difficultyTag  = "difficulty"
	difficultyText = "{0} must be one of easy, medium, hard"

	languageTag  = "language"
	languageText = "{0} must be one of " + strings.Join(Languages, ", ")

	questionTypeTag  = "questiontype"
	questionTypeText = "{0} must be one of theory, code_analysis"

	questionCountTag  = "questioncount"
	questionCountText = "at least one question is required"

	answerRangeTag  = "answerrange"
	answerRangeText = "{0} must be the index of one of the options"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	sort.Strings(Languages)

	_ = validate.RegisterValidation(difficultyTag, difficultyValidation)
	core.RegisterCustomTranslation(validate, translator, difficultyTag, difficultyText)

	_ = validate.RegisterValidation(languageTag, languageValidation)
	core.RegisterCustomTranslation(validate, translator, languageTag, languageText)

	_ = validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)

	validate.RegisterStructValidation(newQuizStructValidation, NewQuiz{})
	core.RegisterCustomTranslation(validate, translator, questionCountTag, questionCountText)

	validate.RegisterStructValidation(questionStructValidation, Question{})
	core.RegisterCustomTranslation(validate, translator, answerRangeTag, answerRangeText)
}

// Custom Validators

func difficultyValidation(fl validator.FieldLevel) bool {
	d := Difficulty(fl.Field().String())
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

// languageValidation checks the language against the sorted Languages.
func languageValidation(fl validator.FieldLevel) bool {
	lang := fl.Field().String()
	idx := sort.SearchStrings(Languages, lang)
	return idx < len(Languages) && Languages[idx] == lang
}

func questionTypeValidation(fl validator.FieldLevel) bool {
	switch QuestionType(fl.Field().String()) {
	case QuestionTheory, QuestionCodeAnalysis:
		return true
	}
	return false
}

// newQuizStructValidation checks that at least one question is requested.
func newQuizStructValidation(sl validator.StructLevel) {
	nq := sl.Current().Interface().(NewQuiz)
	if nq.QuestionCount() == 0 {
		sl.ReportError(nq.TheoryCount, "theoryCount", "TheoryCount", questionCountTag, "")
	}
}

// questionStructValidation checks that the answer points at an option.
func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if len(q.Options) > 0 && q.Answer >= len(q.Options) {
		sl.ReportError(q.Answer, "answer", "Answer", answerRangeTag, "")
	}
}
