package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/company"
	"github.com/quizly/backend/core/plan"
	"github.com/quizly/backend/core/publish"
	"github.com/quizly/backend/core/quiz"
	"github.com/quizly/backend/core/result"
	emailsvc "github.com/quizly/backend/services/email"
)

type stub struct {
	status int
	body   string
	delay  time.Duration
}

// Upstream fakes the six upstream services in memory, behind a single HTTP server.
type Upstream struct {
	URL string

	mu        sync.Mutex
	seq       int
	companies map[string]company.Company // by owner
	plans     map[string]plan.Plan
	quizzes   map[string]quiz.Quiz
	usage     map[string]quiz.Usage
	pubs      map[string]publish.Publication // by quiz
	results   map[string]result.Result
	emails    []emailsvc.Delivery
	stubs     map[string]stub // "METHOD /path/prefix"
	calls     []string
}

// NewUpstream starts the fake; it is closed with the test.
func NewUpstream(t *testing.T) *Upstream {
	up := &Upstream{
		companies: make(map[string]company.Company),
		plans:     make(map[string]plan.Plan),
		quizzes:   make(map[string]quiz.Quiz),
		usage:     make(map[string]quiz.Usage),
		pubs:      make(map[string]publish.Publication),
		results:   make(map[string]result.Result),
		stubs:     make(map[string]stub),
	}

	app := echo.New()
	app.HideBanner = true
	app.Use(up.record)

	app.POST("/companies", up.createCompany)
	app.GET("/companies/owner/:owner", up.getCompany)

	app.GET("/plans/:user", up.getPlan)
	app.PUT("/plans/:user", up.updatePlan)

	app.POST("/quizzes", up.generateQuiz)
	app.GET("/quizzes", up.queryQuizzes)
	app.GET("/quizzes/:id", up.getQuiz)
	app.PUT("/quizzes/:id", up.updateQuiz)
	app.DELETE("/quizzes/:id", up.deleteQuiz)
	app.GET("/usage/:owner", up.getUsage)

	app.POST("/publications", up.createPublication)
	app.GET("/publications", up.listExpired)
	app.GET("/publications/link/:link", up.getPublicationByLink)
	app.GET("/publications/quiz/:id", up.getPublicationByQuiz)
	app.DELETE("/publications/quiz/:id", up.deletePublication)

	app.POST("/results", up.createResult)
	app.GET("/results/check", up.countAttempts)
	app.GET("/results/quiz/:id", up.listResults)
	app.DELETE("/results/:id", up.deleteResult)

	app.POST("/emails", up.deliverEmail)

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	up.URL = srv.URL
	return up
}

// Config points every upstream service at the fake.
func (up *Upstream) Config() core.ServicesConfig {
	svc := core.ServiceConfig{BaseURL: up.URL}
	return core.ServicesConfig{
		Timeout: 5 * time.Second,
		Company: svc,
		Quiz:    svc,
		Publish: svc,
		Result:  svc,
		Plan:    svc,
		Email:   svc,
	}
}

// Stub makes every request matching method and path prefix answer status with body.
func (up *Upstream) Stub(method, pathPrefix string, status int, body string) {
	up.StubSlow(method, pathPrefix, 0, status, body)
}

// StubSlow is Stub with an answer held back for delay, or until the caller gives up.
func (up *Upstream) StubSlow(method, pathPrefix string, delay time.Duration, status int, body string) {
	up.mu.Lock()
	defer up.mu.Unlock()
	up.stubs[method+" "+pathPrefix] = stub{status: status, body: body, delay: delay}
}

func (up *Upstream) Calls() []string {
	up.mu.Lock()
	defer up.mu.Unlock()
	return append([]string(nil), up.calls...)
}

func (up *Upstream) nextID(prefix string) string {
	up.seq++
	return fmt.Sprintf("%s%d", prefix, up.seq)
}

func (up *Upstream) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		up.mu.Lock()
		up.calls = append(up.calls, req.Method+" "+req.URL.Path)
		var st *stub
		for key, s := range up.stubs {
			method, prefix, _ := strings.Cut(key, " ")
			if method == req.Method && strings.HasPrefix(req.URL.Path, prefix) {
				s := s
				st = &s
				break
			}
		}
		up.mu.Unlock()

		if st != nil {
			if st.delay > 0 {
				select {
				case <-time.After(st.delay):
				case <-req.Context().Done():
					return nil
				}
			}
			return ctx.Blob(st.status, echo.MIMEApplicationJSON, []byte(st.body))
		}
		return next(ctx)
	}
}

func notFound(ctx echo.Context) error {
	return ctx.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
}

// Seeding & inspection

func (up *Upstream) AddCompany(c company.Company) company.Company {
	up.mu.Lock()
	defer up.mu.Unlock()
	if c.ID == "" {
		c.ID = up.nextID("c")
	}
	up.companies[c.OwnerID] = c
	return c
}

func (up *Upstream) SetPlan(userID string, tier plan.Tier) {
	up.mu.Lock()
	defer up.mu.Unlock()
	up.plans[userID] = plan.Plan{UserID: userID, Tier: tier, UpdatedAt: core.NowFunc()}
}

func (up *Upstream) AddQuiz(q quiz.Quiz) quiz.Quiz {
	up.mu.Lock()
	defer up.mu.Unlock()
	if q.ID == "" {
		q.ID = up.nextID("q")
	}
	up.quizzes[q.ID] = q
	return q
}

func (up *Upstream) Quiz(id string) (quiz.Quiz, bool) {
	up.mu.Lock()
	defer up.mu.Unlock()
	q, ok := up.quizzes[id]
	return q, ok
}

func (up *Upstream) SetUsage(u quiz.Usage) {
	up.mu.Lock()
	defer up.mu.Unlock()
	up.usage[u.OwnerID] = u
}

func (up *Upstream) AddPublication(p publish.Publication) {
	up.mu.Lock()
	defer up.mu.Unlock()
	up.pubs[p.QuizID] = p
}

func (up *Upstream) Publication(quizID string) (publish.Publication, bool) {
	up.mu.Lock()
	defer up.mu.Unlock()
	p, ok := up.pubs[quizID]
	return p, ok
}

func (up *Upstream) AddResult(r result.Result) result.Result {
	up.mu.Lock()
	defer up.mu.Unlock()
	if r.ID == "" {
		r.ID = up.nextID("r")
	}
	up.results[r.ID] = r
	return r
}

func (up *Upstream) Results() []result.Result {
	up.mu.Lock()
	defer up.mu.Unlock()
	list := make([]result.Result, 0, len(up.results))
	for _, r := range up.results {
		list = append(list, r)
	}
	return list
}

func (up *Upstream) Emails() []emailsvc.Delivery {
	up.mu.Lock()
	defer up.mu.Unlock()
	return append([]emailsvc.Delivery(nil), up.emails...)
}

// company service

func (up *Upstream) createCompany(ctx echo.Context) error {
	var c company.Company
	if err := ctx.Bind(&c); err != nil {
		return err
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	if _, ok := up.companies[c.OwnerID]; ok {
		return ctx.JSON(http.StatusConflict, echo.Map{"message": "company already exists"})
	}
	c.ID = up.nextID("c")
	up.companies[c.OwnerID] = c
	return ctx.JSON(http.StatusCreated, c)
}

func (up *Upstream) getCompany(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	c, ok := up.companies[ctx.Param("owner")]
	if !ok {
		return notFound(ctx)
	}
	return ctx.JSON(http.StatusOK, c)
}

// plan service

func (up *Upstream) getPlan(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	p, ok := up.plans[ctx.Param("user")]
	if !ok {
		return notFound(ctx)
	}
	return ctx.JSON(http.StatusOK, p)
}

func (up *Upstream) updatePlan(ctx echo.Context) error {
	var data plan.UpdatePlan
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	p := plan.Plan{UserID: ctx.Param("user"), Tier: data.Tier, RenewsAt: data.RenewsAt, UpdatedAt: core.NowFunc()}
	up.plans[p.UserID] = p
	return ctx.JSON(http.StatusOK, p)
}

// quiz generation service

func (up *Upstream) generateQuiz(ctx echo.Context) error {
	var req quiz.GenerateRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	up.mu.Lock()
	defer up.mu.Unlock()

	now := core.NowFunc()
	q := quiz.Quiz{
		ID:         up.nextID("q"),
		OwnerID:    req.OwnerID,
		CompanyID:  req.CompanyID,
		Title:      req.Title,
		Topic:      req.Topic,
		Language:   req.Language,
		Difficulty: req.Difficulty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i := 0; i < req.TheoryCount+req.CodeCount; i++ {
		qn := quiz.Question{
			ID:      fmt.Sprintf("%s-%d", q.ID, i+1),
			Type:    quiz.QuestionTheory,
			Prompt:  fmt.Sprintf("Question %d about %s: which statement number %d holds?", i+1, req.Topic, i*7+3),
			Options: []string{"first", "second", "third", "fourth"},
			Answer:  i % 4,
		}
		if i >= req.TheoryCount {
			qn.Type = quiz.QuestionCodeAnalysis
			qn.Code = fmt.Sprintf("fmt.Println(%d)", i)
		}
		q.Questions = append(q.Questions, qn)
	}
	up.quizzes[q.ID] = q

	u := up.usage[req.OwnerID]
	u.OwnerID = req.OwnerID
	u.QuizzesGenerated++
	u.QuestionsGenerated += len(q.Questions)
	up.usage[req.OwnerID] = u
	return ctx.JSON(http.StatusCreated, q)
}

func (up *Upstream) queryQuizzes(ctx echo.Context) error {
	owner := ctx.QueryParam("ownerId")
	up.mu.Lock()
	defer up.mu.Unlock()
	list := make([]quiz.Quiz, 0)
	for _, q := range up.quizzes {
		if owner == "" || q.OwnerID == owner {
			list = append(list, q)
		}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (up *Upstream) getQuiz(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	q, ok := up.quizzes[ctx.Param("id")]
	if !ok {
		return notFound(ctx)
	}
	return ctx.JSON(http.StatusOK, q)
}

func (up *Upstream) updateQuiz(ctx echo.Context) error {
	var p quiz.Patch
	if err := ctx.Bind(&p); err != nil {
		return err
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	q, ok := up.quizzes[ctx.Param("id")]
	if !ok {
		return notFound(ctx)
	}
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Questions != nil {
		q.Questions = p.Questions
	}
	if p.IsPublished != nil {
		q.IsPublished = *p.IsPublished
	}
	q.UpdatedAt = core.NowFunc()
	up.quizzes[q.ID] = q
	return ctx.JSON(http.StatusOK, q)
}

func (up *Upstream) deleteQuiz(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	id := ctx.Param("id")
	if _, ok := up.quizzes[id]; !ok {
		return notFound(ctx)
	}
	delete(up.quizzes, id)
	return ctx.NoContent(http.StatusNoContent)
}

func (up *Upstream) getUsage(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	u, ok := up.usage[ctx.Param("owner")]
	if !ok {
		return notFound(ctx)
	}
	return ctx.JSON(http.StatusOK, u)
}

// publishing service

func (up *Upstream) createPublication(ctx echo.Context) error {
	var p publish.Publication
	if err := ctx.Bind(&p); err != nil {
		return err
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	if _, ok := up.pubs[p.QuizID]; ok {
		return ctx.JSON(http.StatusConflict, echo.Map{"error": "quiz already published"})
	}
	up.pubs[p.QuizID] = p
	return ctx.JSON(http.StatusCreated, p)
}

func (up *Upstream) listExpired(ctx echo.Context) error {
	before, err := time.Parse(time.RFC3339, ctx.QueryParam("expiredBefore"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "expiredBefore must be RFC3339"})
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	list := make([]publish.Publication, 0)
	for _, p := range up.pubs {
		if p.ExpiresAt != nil && p.ExpiresAt.Before(before) {
			list = append(list, p)
		}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (up *Upstream) getPublicationByLink(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	for _, p := range up.pubs {
		if p.Link == ctx.Param("link") {
			return ctx.JSON(http.StatusOK, p)
		}
	}
	return notFound(ctx)
}

func (up *Upstream) getPublicationByQuiz(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	p, ok := up.pubs[ctx.Param("id")]
	if !ok {
		return notFound(ctx)
	}
	return ctx.JSON(http.StatusOK, p)
}

func (up *Upstream) deletePublication(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	id := ctx.Param("id")
	if _, ok := up.pubs[id]; !ok {
		return notFound(ctx)
	}
	delete(up.pubs, id)
	return ctx.NoContent(http.StatusNoContent)
}

// results service

func (up *Upstream) createResult(ctx echo.Context) error {
	var r result.Result
	if err := ctx.Bind(&r); err != nil {
		return err
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	r.ID = up.nextID("r")
	up.results[r.ID] = r
	return ctx.JSON(http.StatusCreated, r)
}

func (up *Upstream) countAttempts(ctx echo.Context) error {
	quizID, email := ctx.QueryParam("quizId"), ctx.QueryParam("email")
	up.mu.Lock()
	defer up.mu.Unlock()
	var n int
	for _, r := range up.results {
		if r.QuizID == quizID && r.CandidateEmail == email {
			n++
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"attempts": n})
}

func (up *Upstream) listResults(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	list := make([]result.Result, 0)
	for _, r := range up.results {
		if r.QuizID == ctx.Param("id") {
			list = append(list, r)
		}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (up *Upstream) deleteResult(ctx echo.Context) error {
	up.mu.Lock()
	defer up.mu.Unlock()
	r, ok := up.results[ctx.Param("id")]
	if !ok || r.OwnerID != ctx.Request().Header.Get("X-Owner-ID") {
		return notFound(ctx)
	}
	delete(up.results, r.ID)
	return ctx.NoContent(http.StatusNoContent)
}

// email service

func (up *Upstream) deliverEmail(ctx echo.Context) error {
	var d emailsvc.Delivery
	if err := ctx.Bind(&d); err != nil {
		return err
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	up.emails = append(up.emails, d)
	return ctx.NoContent(http.StatusAccepted)
}
