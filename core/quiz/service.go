package quiz

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/company"
	"github.com/quizly/backend/core/plan"
)

var (
	errCompanyRequired    = errors.New("a company is required before generating quizzes")
	errPublishedQuestions = "questions of a published quiz cannot be changed"
	errTooManyQuestions   = "too many questions"
	resourceQuizzes       = "quiz"
	resourceQuestions     = "question"
)

type (
	Repository interface {
		GenerateQuiz(ctx context.Context, req GenerateRequest) (Quiz, error)
		QueryQuizzes(ctx context.Context, ownerID string) ([]Quiz, error)
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		UpdateQuiz(ctx context.Context, id string, p Patch) (Quiz, error)
		DeleteQuiz(ctx context.Context, id string) error
		GetUsage(ctx context.Context, ownerID string) (Usage, error)
	}

	CompanyFinder interface {
		GetByOwner(ctx context.Context, ownerID string) (company.Company, error)
	}

	PlanGetter interface {
		Get(ctx context.Context, userID string) (plan.Plan, error)
	}

	// Unpublisher takes a published quiz offline before it is deleted.
	Unpublisher interface {
		Unpublish(ctx context.Context, caller core.Caller, quizID string) error
	}

	Service struct {
		repo      Repository
		companies CompanyFinder
		plans     PlanGetter
		unpub     Unpublisher
		logger    core.Logger
	}
)

func NewService(repo Repository, companies CompanyFinder, plans PlanGetter, unpub Unpublisher, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		companies: companies,
		plans:     plans,
		unpub:     unpub,
		logger:    logger,
	}
}

// Generate checks the caller's plan quotas, forwards the generation request
// and drops near-duplicate questions from the result.
func (svc *Service) Generate(ctx context.Context, caller core.Caller, nq NewQuiz) (Quiz, error) {
	pl, err := svc.plans.Get(ctx, caller.ID)
	if err != nil {
		return Quiz{}, errors.Wrap(err, "getting plan")
	}
	limits := pl.Tier.Limits()
	if limits.MaxQuestions > 0 && nq.QuestionCount() > limits.MaxQuestions {
		return Quiz{}, &core.QuotaError{Resource: resourceQuestions, Limit: limits.MaxQuestions, Tier: string(pl.Tier)}
	}

	if limits.MaxQuizzes > 0 {
		usage, err := svc.repo.GetUsage(ctx, caller.ID)
		if err != nil && !core.IsNotFound(err) {
			return Quiz{}, errors.Wrap(err, "getting usage")
		}
		if usage.QuizzesGenerated >= limits.MaxQuizzes {
			return Quiz{}, &core.QuotaError{Resource: resourceQuizzes, Limit: limits.MaxQuizzes, Tier: string(pl.Tier)}
		}
	}

	comp, err := svc.companies.GetByOwner(ctx, caller.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return Quiz{}, core.NewValidationError(errCompanyRequired)
		}
		return Quiz{}, errors.Wrap(err, "getting company")
	}

	qz, err := svc.repo.GenerateQuiz(ctx, GenerateRequest{NewQuiz: nq, OwnerID: caller.ID, CompanyID: comp.ID})
	if err != nil {
		return Quiz{}, errors.Wrap(err, "generating quiz")
	}

	kept, dropped := DedupeQuestions(qz.Questions, DuplicateRatio)
	if dropped == 0 {
		return qz, nil
	}
	svc.logger.Info(fmt.Sprintf("quiz %s: dropped %d near-duplicate generated questions", qz.ID, dropped), caller)
	updated, err := svc.repo.UpdateQuiz(ctx, qz.ID, Patch{Questions: kept})
	if err != nil {
		// the quiz exists upstream with its duplicates, serve it as is
		svc.logger.Error(fmt.Sprintf("quiz %s: saving deduplicated questions: %v", qz.ID, err), err, caller)
		return qz, nil
	}
	return updated, nil
}

func (svc *Service) Query(ctx context.Context, ownerID string) ([]Quiz, error) {
	quizzes, err := svc.repo.QueryQuizzes(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	// callers only ever see their own quizzes
	owned := quizzes[:0]
	for _, q := range quizzes {
		if q.OwnerID == ownerID {
			owned = append(owned, q)
		}
	}
	return owned, nil
}

// Get returns core.ErrNotFound for quizzes owned by someone else.
func (svc *Service) Get(ctx context.Context, ownerID, id string) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if q.OwnerID != ownerID {
		return Quiz{}, core.ErrNotFound
	}
	return q, nil
}

func (svc *Service) Update(ctx context.Context, ownerID, id string, uq UpdateQuiz) (Quiz, error) {
	q, err := svc.Get(ctx, ownerID, id)
	if err != nil {
		return Quiz{}, err
	}
	if uq.Questions != nil {
		if q.IsPublished {
			return Quiz{}, core.NewValidationError(nil, core.FieldError{Field: "questions", Error: errPublishedQuestions})
		}
		pl, err := svc.plans.Get(ctx, ownerID)
		if err != nil {
			return Quiz{}, errors.Wrap(err, "getting plan")
		}
		if max := pl.Tier.Limits().MaxQuestions; max > 0 && len(uq.Questions) > max {
			return Quiz{}, core.NewValidationError(nil, core.FieldError{
				Field: "questions",
				Error: fmt.Sprintf("%s: the %s plan allows %d per quiz", errTooManyQuestions, pl.Tier, max),
			})
		}
	}

	updated, err := svc.repo.UpdateQuiz(ctx, id, Patch{Title: uq.Title, Questions: uq.Questions})
	if err != nil {
		return Quiz{}, errors.Wrap(err, "updating quiz")
	}
	return updated, nil
}

// Delete removes a quiz, unpublishing it first if needed. A failed unpublish is logged, not fatal.
func (svc *Service) Delete(ctx context.Context, caller core.Caller, id string) error {
	q, err := svc.Get(ctx, caller.ID, id)
	if err != nil {
		return err
	}
	if q.IsPublished && svc.unpub != nil {
		if err := svc.unpub.Unpublish(ctx, caller, id); err != nil && !core.IsNotFound(err) {
			svc.logger.Error(fmt.Sprintf("quiz %s: unpublishing before delete: %v", id, err), err, caller)
		}
	}
	if err := svc.repo.DeleteQuiz(ctx, id); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return nil
}

func (svc *Service) Usage(ctx context.Context, ownerID string) (UsageReport, error) {
	pl, err := svc.plans.Get(ctx, ownerID)
	if err != nil {
		return UsageReport{}, errors.Wrap(err, "getting plan")
	}
	usage, err := svc.repo.GetUsage(ctx, ownerID)
	if err != nil {
		if !core.IsNotFound(err) {
			return UsageReport{}, errors.Wrap(err, "getting usage")
		}
		usage = Usage{OwnerID: ownerID}
	}

	limits := pl.Tier.Limits()
	remaining := -1
	if limits.MaxQuizzes > 0 {
		remaining = limits.MaxQuizzes - usage.QuizzesGenerated
		if remaining < 0 {
			remaining = 0
		}
	}
	return UsageReport{
		Usage:            usage,
		Tier:             string(pl.Tier),
		MaxQuizzes:       limits.MaxQuizzes,
		RemainingQuizzes: remaining,
		MaxQuestions:     limits.MaxQuestions,
	}, nil
}
