package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizly/backend/assets"
	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/company"
	"github.com/quizly/backend/core/plan"
	"github.com/quizly/backend/core/quiz"
	emailsvc "github.com/quizly/backend/services/email"
	logsvc "github.com/quizly/backend/services/logger"
	"github.com/quizly/backend/storage/cache"
)

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type pubRepoMock struct {
	mu        sync.Mutex
	byQuiz    map[string]Publication
	byLinkN   int
	deleteErr error
	deletes   []string
}

func (r *pubRepoMock) CreatePublication(_ context.Context, p Publication) (Publication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byQuiz[p.QuizID] = p
	return p, nil
}

func (r *pubRepoMock) GetPublicationByLink(_ context.Context, link string) (Publication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLinkN++
	for _, p := range r.byQuiz {
		if p.Link == link {
			return p, nil
		}
	}
	return Publication{}, core.ErrNotFound
}

func (r *pubRepoMock) GetPublicationByQuiz(_ context.Context, quizID string) (Publication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byQuiz[quizID]
	if !ok {
		return Publication{}, core.ErrNotFound
	}
	return p, nil
}

func (r *pubRepoMock) ListExpiredPublications(_ context.Context, before time.Time) ([]Publication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []Publication
	for _, p := range r.byQuiz {
		if p.Expired(before) {
			expired = append(expired, p)
		}
	}
	return expired, nil
}

func (r *pubRepoMock) DeletePublication(_ context.Context, quizID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, quizID)
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.byQuiz[quizID]; !ok {
		return core.ErrNotFound
	}
	delete(r.byQuiz, quizID)
	return nil
}

type quizRepoMock struct {
	mu        sync.Mutex
	quizzes   map[string]quiz.Quiz
	updateErr error
	updates   int
}

func (r *quizRepoMock) GenerateQuiz(context.Context, quiz.GenerateRequest) (quiz.Quiz, error) {
	return quiz.Quiz{}, errors.New("not implemented")
}

func (r *quizRepoMock) QueryQuizzes(context.Context, string) ([]quiz.Quiz, error) {
	return nil, errors.New("not implemented")
}

func (r *quizRepoMock) GetQuiz(_ context.Context, id string) (quiz.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quizzes[id]
	if !ok {
		return quiz.Quiz{}, core.ErrNotFound
	}
	return q, nil
}

func (r *quizRepoMock) UpdateQuiz(_ context.Context, id string, p quiz.Patch) (quiz.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.updateErr != nil {
		return quiz.Quiz{}, r.updateErr
	}
	q := r.quizzes[id]
	if p.IsPublished != nil {
		q.IsPublished = *p.IsPublished
	}
	r.quizzes[id] = q
	return q, nil
}

func (r *quizRepoMock) DeleteQuiz(context.Context, string) error { return errors.New("not implemented") }

func (r *quizRepoMock) GetUsage(context.Context, string) (quiz.Usage, error) {
	return quiz.Usage{}, core.ErrNotFound
}

type plansMock map[string]plan.Tier

func (m plansMock) Get(_ context.Context, userID string) (plan.Plan, error) {
	if t, ok := m[userID]; ok {
		return plan.Plan{UserID: userID, Tier: t}, nil
	}
	return plan.Default(userID), nil
}

type companiesMock map[string]company.Company

func (m companiesMock) GetByOwner(_ context.Context, ownerID string) (company.Company, error) {
	c, ok := m[ownerID]
	if !ok {
		return company.Company{}, core.ErrNotFound
	}
	return c, nil
}

type fixture struct {
	svc     *Service
	pubs    *pubRepoMock
	quizzes *quizRepoMock
	mailer  *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *fixture {
	origNow := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = origNow })

	conf := &core.Config{
		AppName:          "Quizly",
		FrontendBaseURL:  "https://quizly.test",
		DefaultFromEmail: "noreply@quizly.test",
		TestMode:         true,
	}
	conf.Cache.PublicationTTL = time.Minute
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(assets.FS, conf, logger)

	f := &fixture{
		pubs: &pubRepoMock{byQuiz: make(map[string]Publication)},
		quizzes: &quizRepoMock{quizzes: map[string]quiz.Quiz{
			"free-quiz":  {ID: "free-quiz", OwnerID: "free", Title: "Go basics"},
			"elite-quiz": {ID: "elite-quiz", OwnerID: "elite", Title: "Rust ownership"},
		}},
		mailer: emailsvc.NewConsoleServiceMock(conf, logger),
	}
	plans := plansMock{"elite": plan.TierElite}
	companies := companiesMock{
		"elite": {ID: "c1", OwnerID: "elite", OwnerEmail: "owner@elite.test", Name: "Elite Corp"},
	}
	f.svc = NewService(f.pubs, f.quizzes, plans, companies, cache.NewMemoryCache(128), f.mailer, conf, logger)
	return f
}

func timePtr(t time.Time) *time.Time { return &t }

func TestService_Publish(t *testing.T) {
	ctx := context.Background()
	free := core.Caller{ID: "free"}
	elite := core.Caller{ID: "elite"}

	tests := []struct {
		name      string
		caller    core.Caller
		quizID    string
		np        NewPublication
		wantField string
		notFound  bool
	}{
		{name: "not owner", caller: free, quizID: "elite-quiz", notFound: true},
		{name: "unknown quiz", caller: free, quizID: "nope", notFound: true},
		{name: "past expiry", caller: free, quizID: "free-quiz", np: NewPublication{ExpiresAt: timePtr(now.Add(-time.Hour))}, wantField: "expiresAt"},
		{name: "expiry beyond plan", caller: free, quizID: "free-quiz", np: NewPublication{ExpiresAt: timePtr(now.AddDate(0, 0, 8))}, wantField: "expiresAt"},
		{name: "attempts beyond plan", caller: free, quizID: "free-quiz", np: NewPublication{MaxAttempts: 2}, wantField: "maxAttempts"},
		{name: "secret not in plan", caller: free, quizID: "free-quiz", np: NewPublication{SecretKey: "s3cret"}, wantField: "secretKey"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			_, err := f.svc.Publish(ctx, tt.caller, tt.quizID, tt.np)
			if tt.notFound {
				assert.True(t, core.IsNotFound(err))
				return
			}
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			assert.Empty(t, f.pubs.byQuiz)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		f := setup(t)
		pub, err := f.svc.Publish(ctx, free, "free-quiz", NewPublication{})
		require.NoError(t, err)
		assert.Equal(t, 1, pub.MaxAttempts)
		assert.Equal(t, now.AddDate(0, 0, 7), *pub.ExpiresAt)
		assert.False(t, pub.HasSecret())
		assert.NotEmpty(t, pub.Link)
		assert.True(t, f.quizzes.quizzes["free-quiz"].IsPublished)

		_, err = f.svc.Publish(ctx, free, "free-quiz", NewPublication{})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr, "already published")
	})

	t.Run("secret is hashed", func(t *testing.T) {
		f := setup(t)
		pub, err := f.svc.Publish(ctx, elite, "elite-quiz", NewPublication{SecretKey: "s3cret", MaxAttempts: 5})
		require.NoError(t, err)
		assert.NotEqual(t, "s3cret", pub.SecretHash)
		assert.True(t, CheckSecret(pub.SecretHash, "s3cret"))
		assert.Equal(t, "https://quizly.test/q/"+pub.Link, pub.View(f.svc.BaseURL()).URL)
	})

	t.Run("quiz update failure undoes publication", func(t *testing.T) {
		f := setup(t)
		f.quizzes.updateErr = errors.New("quiz service down")
		_, err := f.svc.Publish(ctx, free, "free-quiz", NewPublication{})
		require.Error(t, err)
		assert.Empty(t, f.pubs.byQuiz)
		assert.Equal(t, []string{"free-quiz"}, f.pubs.deletes)
	})
}

func TestService_Unpublish(t *testing.T) {
	ctx := context.Background()
	free := core.Caller{ID: "free"}

	t.Run("not published", func(t *testing.T) {
		f := setup(t)
		err := f.svc.Unpublish(ctx, free, "free-quiz")
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("published", func(t *testing.T) {
		f := setup(t)
		pub, err := f.svc.Publish(ctx, free, "free-quiz", NewPublication{})
		require.NoError(t, err)
		_, err = f.svc.Lookup(ctx, pub.Link)
		require.NoError(t, err)

		require.NoError(t, f.svc.Unpublish(ctx, free, "free-quiz"))
		assert.False(t, f.quizzes.quizzes["free-quiz"].IsPublished)

		_, err = f.svc.Lookup(ctx, pub.Link)
		assert.True(t, core.IsNotFound(err), "cached link must be dropped")
	})

	t.Run("quiz update failure is reported", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Publish(ctx, free, "free-quiz", NewPublication{})
		require.NoError(t, err)
		f.quizzes.updateErr = errors.New("quiz service down")
		assert.Error(t, f.svc.Unpublish(ctx, free, "free-quiz"))
		assert.Empty(t, f.pubs.byQuiz, "no rollback of the deleted publication")
	})
}

func TestService_GetByLink(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.quizzes.quizzes["elite-quiz"] = quiz.Quiz{
		ID: "elite-quiz", OwnerID: "elite", Title: "Rust ownership",
		Questions: []quiz.Question{{ID: "1", Type: quiz.QuestionTheory, Prompt: "Borrow?", Options: []string{"a", "b"}, Answer: 1, Explanation: "because"}},
	}
	pub, err := f.svc.Publish(ctx, core.Caller{ID: "elite"}, "elite-quiz", NewPublication{SecretKey: "open-sesame"})
	require.NoError(t, err)

	_, err = f.svc.GetByLink(ctx, pub.Link, "")
	var fErr *core.ForbiddenError
	require.ErrorAs(t, err, &fErr)
	assert.Equal(t, "invalid secret key", fErr.Error())

	pq, err := f.svc.GetByLink(ctx, pub.Link, "open-sesame")
	require.NoError(t, err)
	assert.Equal(t, "Rust ownership", pq.Title)
	require.Len(t, pq.Questions, 1)
	assert.Equal(t, []string{"a", "b"}, pq.Questions[0].Options)

	_, err = f.svc.GetByLink(ctx, "unknown-link", "")
	assert.True(t, core.IsNotFound(err))

	// the publication is cached
	_, _ = f.svc.GetByLink(ctx, pub.Link, "open-sesame")
	assert.Equal(t, 2, f.pubs.byLinkN)
}

func TestService_ExpireOnLookup(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	pub, err := f.svc.Publish(ctx, core.Caller{ID: "elite"}, "elite-quiz", NewPublication{ExpiresAt: timePtr(now.Add(time.Hour))})
	require.NoError(t, err)

	core.NowFunc = func() time.Time { return now.Add(2 * time.Hour) }

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Lookup(ctx, pub.Link)
		}(i)
	}
	wg.Wait()

	// takers arriving after the cascade completed no longer find the link
	gone := 0
	for _, err := range errs {
		var gErr *core.GoneError
		if errors.As(err, &gErr) {
			assert.Equal(t, "quiz has expired", gErr.Error())
			gone++
			continue
		}
		assert.True(t, core.IsNotFound(err), "unexpected error: %v", err)
	}
	assert.GreaterOrEqual(t, gone, 1)
	assert.False(t, f.quizzes.quizzes["elite-quiz"].IsPublished)
	assert.Empty(t, f.pubs.byQuiz)
	assert.Len(t, f.pubs.deletes, 1, "cascade runs once")

	sent := f.mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner@elite.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Rust ownership")
}

func TestService_Expire(t *testing.T) {
	ctx := context.Background()

	t.Run("quiz update failure aborts and releases lock", func(t *testing.T) {
		f := setup(t)
		pub, err := f.svc.Publish(ctx, core.Caller{ID: "free"}, "free-quiz", NewPublication{})
		require.NoError(t, err)

		f.quizzes.updateErr = errors.New("quiz service down")
		require.Error(t, f.svc.Expire(ctx, pub))
		assert.NotEmpty(t, f.pubs.byQuiz)
		assert.Empty(t, f.mailer.SentMessages())

		f.quizzes.updateErr = nil
		require.NoError(t, f.svc.Expire(ctx, pub))
		assert.Empty(t, f.pubs.byQuiz)
	})

	t.Run("publication delete failure is not fatal", func(t *testing.T) {
		f := setup(t)
		pub, err := f.svc.Publish(ctx, core.Caller{ID: "free"}, "free-quiz", NewPublication{})
		require.NoError(t, err)

		f.pubs.deleteErr = errors.New("publish service down")
		require.NoError(t, f.svc.Expire(ctx, pub))
		assert.False(t, f.quizzes.quizzes["free-quiz"].IsPublished)
		assert.Empty(t, f.mailer.SentMessages(), "free owner has no company to notify")
	})
}

func TestService_ExpireRepublished(t *testing.T) {
	ctx := context.Background()
	caller := core.Caller{ID: "elite"}

	t.Run("a new publication expires within the lock ttl", func(t *testing.T) {
		f := setup(t)
		first, err := f.svc.Publish(ctx, caller, "elite-quiz", NewPublication{ExpiresAt: timePtr(now.Add(time.Minute))})
		require.NoError(t, err)

		core.NowFunc = func() time.Time { return now.Add(2 * time.Minute) }
		require.NoError(t, f.svc.Expire(ctx, first))
		assert.False(t, f.quizzes.quizzes["elite-quiz"].IsPublished)

		second, err := f.svc.Publish(ctx, caller, "elite-quiz", NewPublication{ExpiresAt: timePtr(now.Add(3 * time.Minute))})
		require.NoError(t, err)
		assert.NotEqual(t, first.Link, second.Link)

		core.NowFunc = func() time.Time { return now.Add(4 * time.Minute) }
		results, err := f.svc.SweepExpired(ctx, core.NowFunc())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.False(t, results[0].Skipped)
		assert.False(t, f.quizzes.quizzes["elite-quiz"].IsPublished)
		assert.Empty(t, f.pubs.byQuiz)
		assert.Len(t, f.pubs.deletes, 2)
	})

	t.Run("a stale copy leaves the current publication alone", func(t *testing.T) {
		f := setup(t)
		stale, err := f.svc.Publish(ctx, caller, "elite-quiz", NewPublication{ExpiresAt: timePtr(now.Add(time.Minute))})
		require.NoError(t, err)

		current := stale
		current.Link = NewLink()
		current.ExpiresAt = timePtr(now.AddDate(0, 0, 7))
		f.pubs.byQuiz["elite-quiz"] = current

		core.NowFunc = func() time.Time { return now.Add(2 * time.Minute) }
		require.NoError(t, f.svc.Expire(ctx, stale))
		assert.True(t, f.quizzes.quizzes["elite-quiz"].IsPublished)
		assert.Empty(t, f.pubs.deletes)
		assert.Equal(t, current.Link, f.pubs.byQuiz["elite-quiz"].Link)
		assert.Empty(t, f.mailer.SentMessages())

		_, err = f.svc.Lookup(ctx, current.Link)
		assert.NoError(t, err)
	})
}

func TestService_SweepExpired(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.svc.Publish(ctx, core.Caller{ID: "free"}, "free-quiz", NewPublication{ExpiresAt: timePtr(now.Add(time.Hour))})
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, core.Caller{ID: "elite"}, "elite-quiz", NewPublication{})
	require.NoError(t, err)

	results, err := f.svc.SweepExpired(ctx, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "free-quiz", results[0].QuizID)
	assert.False(t, results[0].Skipped)
	assert.NoError(t, results[0].Err)

	_, ok := f.pubs.byQuiz["elite-quiz"]
	assert.True(t, ok)

	results, err = f.svc.SweepExpired(ctx, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSecret(t *testing.T) {
	hash, err := HashSecret("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckSecret(hash, "hunter22"))
	assert.False(t, CheckSecret(hash, "hunter23"))
	assert.False(t, CheckSecret(hash, ""))
	assert.False(t, CheckSecret("", "hunter22"))
	assert.NotEqual(t, NewLink(), NewLink())
}
