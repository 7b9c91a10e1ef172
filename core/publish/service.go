package publish

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/quiz"
)

const expireLockTTL = 5 * time.Minute

var (
	errAlreadyPublished = errors.New("quiz is already published")
	errNotPublished     = errors.New("quiz is not published")
	errExpired          = "quiz has expired"
	errBadSecret        = "invalid secret key"
)

type (
	Repository interface {
		CreatePublication(ctx context.Context, p Publication) (Publication, error)
		GetPublicationByLink(ctx context.Context, link string) (Publication, error)
		GetPublicationByQuiz(ctx context.Context, quizID string) (Publication, error)
		ListExpiredPublications(ctx context.Context, before time.Time) ([]Publication, error)
		DeletePublication(ctx context.Context, quizID string) error
	}

	Service struct {
		pubs      Repository
		quizzes   quiz.Repository
		plans     quiz.PlanGetter
		companies quiz.CompanyFinder
		cache     core.Cache
		mailer    core.EmailService
		logger    core.Logger
		ttl       time.Duration
		baseURL   string
	}
)

func NewService(
	pubs Repository,
	quizzes quiz.Repository,
	plans quiz.PlanGetter,
	companies quiz.CompanyFinder,
	cache core.Cache,
	mailer core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		pubs:      pubs,
		quizzes:   quizzes,
		plans:     plans,
		companies: companies,
		cache:     cache,
		mailer:    mailer,
		logger:    logger,
		ttl:       conf.Cache.PublicationTTL,
		baseURL:   conf.FrontendBaseURL,
	}
}

func linkKey(link string) string { return core.CacheKeyPublicationPrefix + link }

func lockKey(link string) string { return core.CacheKeyExpireLockPrefix + link }

// BaseURL is the frontend origin public links are built on.
func (svc *Service) BaseURL() string { return svc.baseURL }

func (svc *Service) ownedQuiz(ctx context.Context, ownerID, quizID string) (quiz.Quiz, error) {
	q, err := svc.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}
	if q.OwnerID != ownerID {
		return quiz.Quiz{}, core.ErrNotFound
	}
	return q, nil
}

// Publish makes the caller's quiz public under the constraints of their plan.
// np must have been validated.
func (svc *Service) Publish(ctx context.Context, caller core.Caller, quizID string, np NewPublication) (Publication, error) {
	q, err := svc.ownedQuiz(ctx, caller.ID, quizID)
	if err != nil {
		return Publication{}, err
	}
	if q.IsPublished {
		return Publication{}, core.NewValidationError(errAlreadyPublished)
	}

	pl, err := svc.plans.Get(ctx, caller.ID)
	if err != nil {
		return Publication{}, errors.Wrap(err, "getting plan")
	}
	limits := pl.Tier.Limits()
	now := core.NowFunc()

	maxExpiry := now.AddDate(0, 0, limits.MaxPublishDays)
	expiresAt := maxExpiry
	if np.ExpiresAt != nil {
		switch {
		case !np.ExpiresAt.After(now):
			return Publication{}, core.NewValidationError(nil, core.FieldError{Field: "expiresAt", Error: "expiresAt must be in the future"})
		case np.ExpiresAt.After(maxExpiry):
			return Publication{}, core.NewValidationError(nil, core.FieldError{
				Field: "expiresAt",
				Error: fmt.Sprintf("the %s plan allows publishing for at most %d days", pl.Tier, limits.MaxPublishDays),
			})
		}
		expiresAt = np.ExpiresAt.UTC()
	}

	maxAttempts := np.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	if maxAttempts > limits.MaxAttempts {
		return Publication{}, core.NewValidationError(nil, core.FieldError{
			Field: "maxAttempts",
			Error: fmt.Sprintf("the %s plan allows at most %d attempts", pl.Tier, limits.MaxAttempts),
		})
	}

	var secretHash string
	if np.SecretKey != "" {
		if !limits.SecretKey {
			return Publication{}, core.NewValidationError(nil, core.FieldError{
				Field: "secretKey",
				Error: fmt.Sprintf("secret keys are not available on the %s plan", pl.Tier),
			})
		}
		if secretHash, err = HashSecret(np.SecretKey); err != nil {
			return Publication{}, err
		}
	}

	pub, err := svc.pubs.CreatePublication(ctx, Publication{
		QuizID:      q.ID,
		OwnerID:     caller.ID,
		Link:        NewLink(),
		Title:       q.Title,
		ExpiresAt:   &expiresAt,
		MaxAttempts: maxAttempts,
		SecretHash:  secretHash,
		CreatedAt:   now,
	})
	if err != nil {
		return Publication{}, errors.Wrap(err, "creating publication")
	}

	if _, err = svc.quizzes.UpdateQuiz(ctx, q.ID, quiz.Patch{IsPublished: core.BoolPtr(true)}); err != nil {
		if delErr := svc.pubs.DeletePublication(ctx, q.ID); delErr != nil {
			svc.logger.Error(
				fmt.Sprintf("quiz %s: publication %s left behind after failed publish: %v", q.ID, pub.Link, delErr),
				delErr, caller,
			)
		}
		return Publication{}, errors.Wrap(err, "marking quiz published")
	}
	return pub, nil
}

// Unpublish removes the publication of the caller's quiz and marks it unpublished.
func (svc *Service) Unpublish(ctx context.Context, caller core.Caller, quizID string) error {
	q, err := svc.ownedQuiz(ctx, caller.ID, quizID)
	if err != nil {
		return err
	}

	pub, err := svc.pubs.GetPublicationByQuiz(ctx, quizID)
	switch {
	case core.IsNotFound(err) && !q.IsPublished:
		return core.NewValidationError(errNotPublished)
	case err != nil && !core.IsNotFound(err):
		return errors.Wrap(err, "getting publication")
	}

	if err = svc.pubs.DeletePublication(ctx, quizID); err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "deleting publication")
	}
	svc.forget(ctx, pub.Link)

	if _, err = svc.quizzes.UpdateQuiz(ctx, quizID, quiz.Patch{IsPublished: core.BoolPtr(false)}); err != nil {
		svc.logger.Error(
			fmt.Sprintf("quiz %s: publication deleted but quiz still marked published: %v", quizID, err),
			err, caller,
		)
		return errors.Wrap(err, "marking quiz unpublished")
	}
	return nil
}

// Current returns the publication of the caller's quiz.
func (svc *Service) Current(ctx context.Context, ownerID, quizID string) (Publication, error) {
	if _, err := svc.ownedQuiz(ctx, ownerID, quizID); err != nil {
		return Publication{}, err
	}
	return svc.pubs.GetPublicationByQuiz(ctx, quizID)
}

func (svc *Service) forget(ctx context.Context, link string) {
	if link == "" {
		return
	}
	if err := svc.cache.Delete(ctx, linkKey(link)); err != nil {
		svc.logger.Warn(fmt.Sprintf("publication cache delete: %v", err), err)
	}
}

// Lookup returns the live publication behind link. An expired publication is
// expired on the spot and reported as a core.GoneError.
func (svc *Service) Lookup(ctx context.Context, link string) (Publication, error) {
	var pub Publication
	found, err := svc.cache.Get(ctx, linkKey(link), &pub)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("publication cache get: %v", err), err)
	}
	if !found {
		if pub, err = svc.pubs.GetPublicationByLink(ctx, link); err != nil {
			return Publication{}, err
		}
		if err = svc.cache.Set(ctx, linkKey(link), pub, svc.ttl); err != nil {
			svc.logger.Warn(fmt.Sprintf("publication cache set: %v", err), err)
		}
	}

	if pub.Expired(core.NowFunc()) {
		if err = svc.Expire(ctx, pub); err != nil {
			svc.logger.Error(fmt.Sprintf("expiring quiz %s: %v", pub.QuizID, err), err)
		}
		return Publication{}, core.NewGoneError(errExpired)
	}
	return pub, nil
}

// Resolve checks the secret key of a live publication and loads its quiz.
func (svc *Service) Resolve(ctx context.Context, link, secret string) (Publication, quiz.Quiz, error) {
	pub, err := svc.Lookup(ctx, link)
	if err != nil {
		return Publication{}, quiz.Quiz{}, err
	}
	if pub.HasSecret() && !CheckSecret(pub.SecretHash, secret) {
		return Publication{}, quiz.Quiz{}, core.NewForbiddenError(errBadSecret)
	}

	q, err := svc.quizzes.GetQuiz(ctx, pub.QuizID)
	if err != nil {
		return Publication{}, quiz.Quiz{}, err
	}
	if !q.IsPublished {
		return Publication{}, quiz.Quiz{}, core.ErrNotFound
	}
	return pub, q, nil
}

// GetByLink returns the taker's view of a published quiz.
func (svc *Service) GetByLink(ctx context.Context, link, secret string) (PublicQuiz, error) {
	pub, q, err := svc.Resolve(ctx, link, secret)
	if err != nil {
		return PublicQuiz{}, err
	}
	return NewPublicQuiz(pub, q), nil
}

// Expire takes an expired publication offline: the quiz is marked unpublished,
// then the publication is deleted and the owner notified.
// Concurrent calls for the same link run the cascade once, and a publication
// that is no longer the quiz's current one is left alone.
func (svc *Service) Expire(ctx context.Context, pub Publication) error {
	_, err := svc.expire(ctx, pub)
	return err
}

func (svc *Service) expire(ctx context.Context, pub Publication) (bool, error) {
	acquired, err := svc.cache.SetNX(ctx, lockKey(pub.Link), core.NowFunc(), expireLockTTL)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("expire lock for link %s: %v", pub.Link, err), err)
	} else if !acquired {
		return false, nil
	}

	// runs to completion even if the taker disconnects
	ctx = context.WithoutCancel(ctx)
	release := func() {
		if delErr := svc.cache.Delete(ctx, lockKey(pub.Link)); delErr != nil {
			svc.logger.Warn(fmt.Sprintf("expire lock release: %v", delErr), delErr)
		}
	}

	// pub may be a stale copy: only the quiz's current publication is taken down
	cur, err := svc.pubs.GetPublicationByQuiz(ctx, pub.QuizID)
	switch {
	case core.IsNotFound(err):
		svc.forget(ctx, pub.Link)
		return false, nil
	case err != nil:
		release()
		return true, errors.Wrap(err, "loading current publication")
	case cur.Link != pub.Link:
		svc.forget(ctx, pub.Link)
		return false, nil
	}

	if _, err = svc.quizzes.UpdateQuiz(ctx, pub.QuizID, quiz.Patch{IsPublished: core.BoolPtr(false)}); err != nil && !core.IsNotFound(err) {
		release()
		return true, errors.Wrap(err, "marking quiz unpublished")
	}

	if err = svc.pubs.DeletePublication(ctx, pub.QuizID); err != nil && !core.IsNotFound(err) {
		svc.logger.Error(
			fmt.Sprintf("quiz %s unpublished but publication %s not deleted: %v", pub.QuizID, pub.Link, err),
			err,
		)
	}
	svc.forget(ctx, pub.Link)
	svc.notifyExpired(ctx, pub)
	return true, nil
}

func (svc *Service) notifyExpired(ctx context.Context, pub Publication) {
	comp, err := svc.companies.GetByOwner(ctx, pub.OwnerID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("quiz %s expired, owner company not found: %v", pub.QuizID, err), err)
		return
	}
	if comp.OwnerEmail == "" {
		return
	}

	expiredAt := core.NowFunc()
	if pub.ExpiresAt != nil {
		expiredAt = *pub.ExpiresAt
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: comp.Name, Address: comp.OwnerEmail}},
		Subject:      fmt.Sprintf("Your quiz %q has expired", pub.Title),
		Tag:          "quiz_expired",
		TemplateName: "quiz_expired",
		TemplateData: map[string]interface{}{
			"CompanyName": comp.Name,
			"Title":       pub.Title,
			"ExpiredAt":   expiredAt.Format("Jan 2, 2006 15:04 MST"),
			"QuizID":      pub.QuizID,
		},
	})
}

// SweepExpired expires every publication whose expiry is before now.
func (svc *Service) SweepExpired(ctx context.Context, now time.Time) ([]SweepResult, error) {
	pubs, err := svc.pubs.ListExpiredPublications(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "listing expired publications")
	}

	results := make([]SweepResult, 0, len(pubs))
	for _, pub := range pubs {
		if !pub.Expired(now) {
			continue
		}
		ran, err := svc.expire(ctx, pub)
		results = append(results, SweepResult{
			QuizID:    pub.QuizID,
			Link:      pub.Link,
			Title:     pub.Title,
			ExpiresAt: pub.ExpiresAt,
			Skipped:   !ran,
			Err:       err,
		})
	}
	return results, nil
}
