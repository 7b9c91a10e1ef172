package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quizly/backend/core"
)

type (
	Difficulty   string
	QuestionType string
)

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"

	QuestionTheory       QuestionType = "theory"
	QuestionCodeAnalysis QuestionType = "code_analysis"
)

var (
	Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
	Languages    = []string{
		"c", "cpp", "csharp", "go", "java", "javascript", "kotlin",
		"php", "python", "ruby", "rust", "sql", "swift", "typescript",
	}
)

type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type" validate:"required,questiontype"`
	Prompt      string       `json:"prompt" validate:"required,max=2000"`
	Code        string       `json:"code,omitempty" validate:"max=10000"`
	Options     []string     `json:"options" validate:"required,min=2,max=8,dive,required"`
	Answer      int          `json:"answer" validate:"min=0"`
	Explanation string       `json:"explanation,omitempty"`
}

type Quiz struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	CompanyID   string     `json:"companyId"`
	Title       string     `json:"title"`
	Topic       string     `json:"topic"`
	Language    string     `json:"language"`
	Difficulty  Difficulty `json:"difficulty"`
	Questions   []Question `json:"questions"`
	IsPublished bool       `json:"isPublished"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// QuestionByID indexes the quiz questions.
func (q Quiz) QuestionByID() map[string]Question {
	idx := make(map[string]Question, len(q.Questions))
	for _, qn := range q.Questions {
		idx[qn.ID] = qn
	}
	return idx
}

// NewQuiz is a generation request.
type NewQuiz struct {
	Title       string     `json:"title" validate:"required,min=3,max=120"`
	Topic       string     `json:"topic" validate:"required,max=200"`
	Language    string     `json:"language" validate:"required,language"`
	Difficulty  Difficulty `json:"difficulty" validate:"required,difficulty"`
	TheoryCount int        `json:"theoryCount" validate:"min=0,max=50"`
	CodeCount   int        `json:"codeCount" validate:"min=0,max=50"`
}

func (nq NewQuiz) QuestionCount() int { return nq.TheoryCount + nq.CodeCount }

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.Topic = core.CleanString(nq.Topic)
	nq.Language = core.CleanString(nq.Language, true /* lower */)
	return validate.Struct(nq)
}

// GenerateRequest is what the quiz generation service receives.
type GenerateRequest struct {
	NewQuiz
	OwnerID   string `json:"ownerId"`
	CompanyID string `json:"companyId"`
}

// UpdateQuiz is an owner's edit. Publication state is only changed by the publish flows.
type UpdateQuiz struct {
	Title     *string    `json:"title,omitempty" validate:"omitempty,min=3,max=120"`
	Questions []Question `json:"questions,omitempty" validate:"omitempty,min=1,dive"`
}

func (uq *UpdateQuiz) Validate(validate *validator.Validate) error {
	if uq.Title != nil {
		title := core.CleanString(*uq.Title)
		uq.Title = &title
	}
	return validate.Struct(uq)
}

// Patch is the partial update sent to the quiz generation service.
type Patch struct {
	Title       *string    `json:"title,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
	IsPublished *bool      `json:"isPublished,omitempty"`
}

// Usage counters kept by the quiz generation service for the current period.
type Usage struct {
	OwnerID            string    `json:"ownerId"`
	QuizzesGenerated   int       `json:"quizzesGenerated"`
	QuestionsGenerated int       `json:"questionsGenerated"`
	PeriodStart        time.Time `json:"periodStart"`
}

type UsageReport struct {
	Usage
	Tier             string `json:"tier"`
	MaxQuizzes       int    `json:"maxQuizzes"`
	RemainingQuizzes int    `json:"remainingQuizzes"` // -1: unlimited
	MaxQuestions     int    `json:"maxQuestions"`
}
