package publish

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quizly/backend/core/quiz"
)

// Publication makes a quiz reachable through a public link.
type Publication struct {
	QuizID      string     `json:"quizId"`
	OwnerID     string     `json:"ownerId"`
	Link        string     `json:"link"`
	Title       string     `json:"title"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	MaxAttempts int        `json:"maxAttempts"`
	SecretHash  string     `json:"secretHash,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Expired reports whether the publication is past its expiry at now.
func (p Publication) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

func (p Publication) HasSecret() bool { return p.SecretHash != "" }

// View is what the owner sees. The secret hash never leaves the gateway.
type View struct {
	QuizID      string     `json:"quizId"`
	Link        string     `json:"link"`
	URL         string     `json:"url"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	MaxAttempts int        `json:"maxAttempts"`
	HasSecret   bool       `json:"hasSecret"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (p Publication) View(frontendBaseURL string) View {
	return View{
		QuizID:      p.QuizID,
		Link:        p.Link,
		URL:         strings.TrimRight(frontendBaseURL, "/") + "/q/" + p.Link,
		ExpiresAt:   p.ExpiresAt,
		MaxAttempts: p.MaxAttempts,
		HasSecret:   p.HasSecret(),
		CreatedAt:   p.CreatedAt,
	}
}

type NewPublication struct {
	ExpiresAt   *time.Time `json:"expiresAt" validate:"omitempty,futuretime"`
	MaxAttempts int        `json:"maxAttempts" validate:"omitempty,min=1,max=100"`
	SecretKey   string     `json:"secretKey" validate:"omitempty,min=4,max=64"`
}

func (np *NewPublication) Validate(validate *validator.Validate) error {
	np.SecretKey = strings.TrimSpace(np.SecretKey)
	return validate.Struct(np)
}

// PublicQuestion is a question as shown to a quiz taker: no answer, no explanation.
type PublicQuestion struct {
	ID      string            `json:"id"`
	Type    quiz.QuestionType `json:"type"`
	Prompt  string            `json:"prompt"`
	Code    string            `json:"code,omitempty"`
	Options []string          `json:"options"`
}

type PublicQuiz struct {
	Link        string           `json:"link"`
	Title       string           `json:"title"`
	Topic       string           `json:"topic"`
	Language    string           `json:"language"`
	Difficulty  quiz.Difficulty  `json:"difficulty"`
	ExpiresAt   *time.Time       `json:"expiresAt"`
	MaxAttempts int              `json:"maxAttempts"`
	Questions   []PublicQuestion `json:"questions"`
}

func NewPublicQuiz(p Publication, q quiz.Quiz) PublicQuiz {
	pq := PublicQuiz{
		Link:        p.Link,
		Title:       q.Title,
		Topic:       q.Topic,
		Language:    q.Language,
		Difficulty:  q.Difficulty,
		ExpiresAt:   p.ExpiresAt,
		MaxAttempts: p.MaxAttempts,
		Questions:   make([]PublicQuestion, 0, len(q.Questions)),
	}
	for _, qn := range q.Questions {
		pq.Questions = append(pq.Questions, PublicQuestion{
			ID:      qn.ID,
			Type:    qn.Type,
			Prompt:  qn.Prompt,
			Code:    qn.Code,
			Options: qn.Options,
		})
	}
	return pq
}

// SweepResult is the outcome of expiring one publication.
type SweepResult struct {
	QuizID    string     `json:"quizId"`
	Link      string     `json:"link"`
	Title     string     `json:"title"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Skipped   bool       `json:"skipped"` // locked by another run, or no longer the quiz's current publication
	Err       error      `json:"-"`
}
