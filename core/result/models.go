package result

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/quiz"
)

type Answer struct {
	QuestionID string `json:"questionId" validate:"required"`
	Choice     int    `json:"choice" validate:"min=0"`
}

// Attempt is a candidate's submission for a published quiz.
type Attempt struct {
	CandidateName  string   `json:"candidateName" validate:"required,max=100"`
	CandidateEmail string   `json:"candidateEmail" validate:"required,email"`
	Answers        []Answer `json:"answers" validate:"required,min=1,dive"`
}

func (at *Attempt) Validate(validate *validator.Validate) error {
	at.CandidateName = core.CleanString(at.CandidateName)
	at.CandidateEmail = core.CleanString(at.CandidateEmail, true /* lower */)
	return validate.Struct(at)
}

type GradedAnswer struct {
	QuestionID string `json:"questionId"`
	Choice     int    `json:"choice"`
	Correct    bool   `json:"correct"`
}

type Result struct {
	ID             string         `json:"id"`
	QuizID         string         `json:"quizId"`
	OwnerID        string         `json:"ownerId"`
	Link           string         `json:"link"`
	CandidateName  string         `json:"candidateName"`
	CandidateEmail string         `json:"candidateEmail"`
	Answers        []GradedAnswer `json:"answers"`
	Score          int            `json:"score"`
	Total          int            `json:"total"`
	Percentage     float64        `json:"percentage"`
	SubmittedAt    time.Time      `json:"submittedAt"`
}

type AttemptStatus struct {
	Attempts    int  `json:"attempts"`
	MaxAttempts int  `json:"maxAttempts"`
	Remaining   int  `json:"remaining"`
	Attempted   bool `json:"attempted"`
}

// Grade scores answers against the quiz. Unanswered questions count as wrong,
// a question answered twice keeps its first answer. It returns the ids of
// answered questions that are not part of the quiz.
func Grade(q quiz.Quiz, answers []Answer) (graded []GradedAnswer, score int, unknown []string) {
	questions := q.QuestionByID()
	seen := make(map[string]bool, len(answers))
	graded = make([]GradedAnswer, 0, len(answers))

	for _, a := range answers {
		qn, ok := questions[a.QuestionID]
		if !ok {
			unknown = append(unknown, a.QuestionID)
			continue
		}
		if seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true

		correct := a.Choice == qn.Answer
		if correct {
			score++
		}
		graded = append(graded, GradedAnswer{QuestionID: a.QuestionID, Choice: a.Choice, Correct: correct})
	}
	return graded, score, unknown
}

// Percentage is rounded to two decimals.
func Percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*10000) / 100
}
