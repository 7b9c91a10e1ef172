package result

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/publish"
	"github.com/quizly/backend/core/quiz"
)

var (
	errMaxAttempts    = "maximum attempts reached"
	errUnknownAnswers = "unknown questions: "
	errEmailRequired  = "this field is required"
)

type (
	Repository interface {
		CreateResult(ctx context.Context, r Result) (Result, error)
		ListResultsByQuiz(ctx context.Context, quizID string) ([]Result, error)
		DeleteResult(ctx context.Context, ownerID, id string) error
		CountAttempts(ctx context.Context, quizID, email string) (int, error)
	}

	// Publications resolves public links. Implemented by publish.Service.
	Publications interface {
		Lookup(ctx context.Context, link string) (publish.Publication, error)
		Resolve(ctx context.Context, link, secret string) (publish.Publication, quiz.Quiz, error)
	}

	// OwnedQuizzes is implemented by quiz.Service.
	OwnedQuizzes interface {
		Get(ctx context.Context, ownerID, id string) (quiz.Quiz, error)
	}

	Service struct {
		repo    Repository
		pubs    Publications
		quizzes OwnedQuizzes
		plans   quiz.PlanGetter
		mailer  core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, pubs Publications, quizzes OwnedQuizzes, plans quiz.PlanGetter, mailer core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		pubs:    pubs,
		quizzes: quizzes,
		plans:   plans,
		mailer:  mailer,
		logger:  logger,
	}
}

// Check reports how many attempts email already made on the quiz behind link.
func (svc *Service) Check(ctx context.Context, link, email string) (AttemptStatus, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return AttemptStatus{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: errEmailRequired})
	}
	pub, err := svc.pubs.Lookup(ctx, link)
	if err != nil {
		return AttemptStatus{}, err
	}
	n, err := svc.repo.CountAttempts(ctx, pub.QuizID, email)
	if err != nil {
		return AttemptStatus{}, errors.Wrap(err, "counting attempts")
	}

	remaining := pub.MaxAttempts - n
	if remaining < 0 {
		remaining = 0
	}
	return AttemptStatus{Attempts: n, MaxAttempts: pub.MaxAttempts, Remaining: remaining, Attempted: n > 0}, nil
}

// Submit grades a validated attempt and records it.
func (svc *Service) Submit(ctx context.Context, link, secret string, at Attempt) (Result, error) {
	pub, q, err := svc.pubs.Resolve(ctx, link, secret)
	if err != nil {
		return Result{}, err
	}

	n, err := svc.repo.CountAttempts(ctx, pub.QuizID, at.CandidateEmail)
	if err != nil {
		return Result{}, errors.Wrap(err, "counting attempts")
	}
	if n >= pub.MaxAttempts {
		return Result{}, core.NewForbiddenError(errMaxAttempts)
	}

	graded, score, unknown := Grade(q, at.Answers)
	if len(unknown) > 0 {
		return Result{}, core.NewValidationError(nil, core.FieldError{Field: "answers", Error: errUnknownAnswers + strings.Join(unknown, ", ")})
	}

	total := len(q.Questions)
	res, err := svc.repo.CreateResult(ctx, Result{
		QuizID:         pub.QuizID,
		OwnerID:        pub.OwnerID,
		Link:           pub.Link,
		CandidateName:  at.CandidateName,
		CandidateEmail: at.CandidateEmail,
		Answers:        graded,
		Score:          score,
		Total:          total,
		Percentage:     Percentage(score, total),
		SubmittedAt:    core.NowFunc(),
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "saving result")
	}

	svc.sendFeedback(ctx, q, res)
	return res, nil
}

func (svc *Service) sendFeedback(ctx context.Context, q quiz.Quiz, res Result) {
	pl, err := svc.plans.Get(ctx, res.OwnerID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("result %s: owner plan unavailable, no candidate feedback: %v", res.ID, err), err)
		return
	}
	if !pl.Tier.Limits().CandidateFeedback {
		return
	}

	type explanation struct {
		Prompt      string
		Correct     bool
		Explanation string
	}
	correct := make(map[string]bool, len(res.Answers))
	for _, a := range res.Answers {
		correct[a.QuestionID] = a.Correct
	}
	explanations := make([]explanation, 0, len(q.Questions))
	for _, qn := range q.Questions {
		explanations = append(explanations, explanation{
			Prompt:      qn.Prompt,
			Correct:     correct[qn.ID],
			Explanation: qn.Explanation,
		})
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: res.CandidateName, Address: res.CandidateEmail}},
		Subject:      fmt.Sprintf("Your results for %q", q.Title),
		Tag:          "attempt_feedback",
		TemplateName: "attempt_feedback",
		TemplateData: map[string]interface{}{
			"CandidateName": res.CandidateName,
			"Title":         q.Title,
			"Score":         res.Score,
			"Total":         res.Total,
			"Percentage":    res.Percentage,
			"Explanations":  explanations,
		},
	})
}

// ListForQuiz returns the results of one of the owner's quizzes.
func (svc *Service) ListForQuiz(ctx context.Context, ownerID, quizID string) ([]Result, error) {
	if _, err := svc.quizzes.Get(ctx, ownerID, quizID); err != nil {
		return nil, err
	}
	results, err := svc.repo.ListResultsByQuiz(ctx, quizID)
	if err != nil {
		return nil, errors.Wrap(err, "listing results")
	}
	return results, nil
}

// Delete removes a result. Ownership is enforced by the result service.
func (svc *Service) Delete(ctx context.Context, ownerID, id string) error {
	return svc.repo.DeleteResult(ctx, ownerID, id)
}
