package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizly/backend/core/company"
	"github.com/quizly/backend/core/plan"
	"github.com/quizly/backend/core/quiz"
)

const newQuizBody = `{"title":"Go basics","topic":"goroutines","language":"Go","difficulty":"easy","theoryCount":2,"codeCount":1}`

func Test_quizApi_create(t *testing.T) {
	tests := []struct {
		httpTest
		withCompany bool
		tier        plan.Tier
		usage       int
	}{
		{
			httpTest: httpTest{
				name:     "company required",
				body:     []byte(newQuizBody),
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"error":"a company is required before generating quizzes"}`),
			},
		},
		{
			httpTest: httpTest{
				name:     "invalid data",
				body:     []byte(`{"title":"Go","language":"cobol","difficulty":"insane"}`),
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{
					"title":"title must be at least 3 characters in length",
					"topic":"this field is required",
					"language":"language must be one of c, cpp, csharp, go, java, javascript, kotlin, php, python, ruby, rust, sql, swift, typescript",
					"difficulty":"difficulty must be one of easy, medium, hard",
					"theoryCount":"at least one question is required"
				}`),
			},
			withCompany: true,
		},
		{
			httpTest: httpTest{
				name:     "too many questions for the plan",
				body:     []byte(`{"title":"Go basics","topic":"goroutines","language":"go","difficulty":"easy","theoryCount":8,"codeCount":3}`),
				wantCode: http.StatusForbidden,
				wantData: []byte(`{"error":"question quota reached: the free plan allows 10"}`),
			},
			withCompany: true,
		},
		{
			httpTest: httpTest{
				name:     "quiz quota reached",
				body:     []byte(newQuizBody),
				wantCode: http.StatusForbidden,
				wantData: []byte(`{"error":"quiz quota reached: the free plan allows 3"}`),
			},
			withCompany: true,
			usage:       3,
		},
		{
			httpTest: httpTest{
				name:     "business plan is unlimited",
				body:     []byte(newQuizBody),
				wantCode: http.StatusCreated,
			},
			withCompany: true,
			tier:        plan.TierBusiness,
			usage:       300,
		},
		{
			httpTest: httpTest{
				name:     "generated",
				body:     []byte(newQuizBody),
				wantCode: http.StatusCreated,
			},
			withCompany: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			if tt.withCompany {
				f.up.AddCompany(company.Company{OwnerID: "owner", Name: "Acme"})
			}
			if tt.tier != "" {
				f.up.SetPlan("owner", tt.tier)
			}
			if tt.usage > 0 {
				f.up.SetUsage(quiz.Usage{OwnerID: "owner", QuizzesGenerated: tt.usage})
			}

			rec := f.do(http.MethodPost, "/v1/quizzes", getToken(t, "owner"), tt.body)
			checkCodeAndData(t, tt.httpTest, rec)

			if tt.wantCode == http.StatusCreated {
				var q quiz.Quiz
				unmarchall(t, rec, &q)
				assert.Equal(t, "owner", q.OwnerID)
				assert.Equal(t, "go", q.Language)
				assert.Len(t, q.Questions, 3)
			}
		})
	}
}

func Test_quizApi_dedupesGenerated(t *testing.T) {
	f := setup(t)
	f.up.AddCompany(company.Company{OwnerID: "owner", Name: "Acme"})
	f.up.Stub(http.MethodPost, "/quizzes", http.StatusCreated, `{
		"id":"dup","ownerId":"owner","title":"Go basics",
		"questions":[
			{"id":"a","type":"theory","prompt":"What does the go keyword start?","options":["a goroutine","a thread"],"answer":0},
			{"id":"b","type":"theory","prompt":"what  does the GO keyword start?","options":["a goroutine","a thread"],"answer":0}
		]
	}`)
	f.up.AddQuiz(quiz.Quiz{ID: "dup", OwnerID: "owner", Title: "Go basics"})

	rec := f.do(http.MethodPost, "/v1/quizzes", getToken(t, "owner"), []byte(newQuizBody))
	require.Equal(t, http.StatusCreated, rec.Code)
	var q quiz.Quiz
	unmarchall(t, rec, &q)
	require.Len(t, q.Questions, 1)
	assert.Equal(t, "a", q.Questions[0].ID)

	stored, _ := f.up.Quiz("dup")
	assert.Len(t, stored.Questions, 1)
}

func Test_quizApi_query(t *testing.T) {
	f := setup(t)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	q1 := f.up.AddQuiz(quiz.Quiz{ID: "q1", OwnerID: "owner", Title: "Beta", CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour)})
	q2 := f.up.AddQuiz(quiz.Quiz{ID: "q2", OwnerID: "owner", Title: "alpha", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour), IsPublished: true})
	q3 := f.up.AddQuiz(quiz.Quiz{ID: "q3", OwnerID: "owner", Title: "Gamma", CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)})
	f.up.AddQuiz(quiz.Quiz{ID: "other", OwnerID: "someone", Title: "Not mine", CreatedAt: base})
	token := getToken(t, "owner")

	ids := func(t *testing.T, path string) []string {
		rec := f.do(http.MethodGet, path, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var list []quiz.Quiz
		unmarchall(t, rec, &list)
		got := make([]string, 0, len(list))
		for _, q := range list {
			got = append(got, q.ID)
		}
		return got
	}

	assert.Equal(t, []string{q3.ID, q2.ID, q1.ID}, ids(t, "/v1/quizzes"))
	assert.Equal(t, []string{q2.ID, q1.ID, q3.ID}, ids(t, "/v1/quizzes?ordering=title"))
	assert.Equal(t, []string{q1.ID, q3.ID, q2.ID}, ids(t, "/v1/quizzes?ordering=-updatedAt"))
	assert.Equal(t, []string{q2.ID}, ids(t, "/v1/quizzes?published=true"))
	assert.Equal(t, []string{q1.ID, q3.ID}, ids(t, "/v1/quizzes?published=false&ordering=createdAt"))

	rec := f.do(http.MethodGet, "/v1/quizzes?ordering=score", token)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"ordering":"unknown field: score"}`)}, rec)
	rec = f.do(http.MethodGet, "/v1/quizzes?published=maybe", token)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"published":"must be true or false"}`)}, rec)
}

func Test_quizApi_detail(t *testing.T) {
	f := setup(t)
	draft := f.up.AddQuiz(quiz.Quiz{
		ID: "draft", OwnerID: "owner", Title: "Draft",
		Questions: []quiz.Question{{ID: "1", Type: quiz.QuestionTheory, Prompt: "p", Options: []string{"a", "b"}}},
	})
	published := f.up.AddQuiz(quiz.Quiz{ID: "pub", OwnerID: "owner", Title: "Live", IsPublished: true})
	f.up.AddQuiz(quiz.Quiz{ID: "other", OwnerID: "someone", Title: "Not mine"})
	token := getToken(t, "owner")
	questions := `[{"type":"theory","prompt":"new?","options":["yes","no"],"answer":1}]`

	tests := []httpTest{
		{
			name:     "get",
			method:   http.MethodGet,
			path:     "/v1/quizzes/" + draft.ID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, draft),
		},
		{
			name:     "get someone else's",
			method:   http.MethodGet,
			path:     "/v1/quizzes/other",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "get unknown",
			method:   http.MethodGet,
			path:     "/v1/quizzes/nope",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "invalid update",
			method:   http.MethodPut,
			path:     "/v1/quizzes/" + draft.ID,
			body:     []byte(`{"title":"ab"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title":"title must be at least 3 characters in length"}`),
		},
		{
			name:     "questions of a published quiz",
			method:   http.MethodPut,
			path:     "/v1/quizzes/" + published.ID,
			body:     []byte(`{"questions":` + questions + `}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"questions":"questions of a published quiz cannot be changed"}`),
		},
		{
			name:     "rename a published quiz",
			method:   http.MethodPut,
			path:     "/v1/quizzes/" + published.ID,
			body:     []byte(`{"title":"Still live"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "edit questions",
			method:   http.MethodPut,
			path:     "/v1/quizzes/" + draft.ID,
			body:     []byte(`{"title":" Renamed ","questions":` + questions + `}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "delete someone else's",
			method:   http.MethodDelete,
			path:     "/v1/quizzes/other",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	stored, _ := f.up.Quiz(draft.ID)
	assert.Equal(t, "Renamed", stored.Title)
	require.Len(t, stored.Questions, 1)
	assert.Equal(t, "new?", stored.Questions[0].Prompt)

	rec := f.do(http.MethodDelete, "/v1/quizzes/"+draft.ID, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodGet, "/v1/quizzes/"+draft.ID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_quizApi_usage(t *testing.T) {
	f := setup(t)
	f.up.SetUsage(quiz.Usage{OwnerID: "owner", QuizzesGenerated: 2, QuestionsGenerated: 15})

	rec := f.do(http.MethodGet, "/v1/quizzes/usage", getToken(t, "owner"))
	require.Equal(t, http.StatusOK, rec.Code)
	var report quiz.UsageReport
	unmarchall(t, rec, &report)
	assert.Equal(t, 2, report.QuizzesGenerated)
	assert.Equal(t, "free", report.Tier)
	assert.Equal(t, 1, report.RemainingQuizzes)

	rec = f.do(http.MethodGet, "/v1/quizzes/usage", getToken(t, "newcomer"))
	require.Equal(t, http.StatusOK, rec.Code)
	report = quiz.UsageReport{}
	unmarchall(t, rec, &report)
	assert.Equal(t, 3, report.RemainingQuizzes)
}
