package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizly/backend/core/plan"
	"github.com/quizly/backend/core/publish"
	"github.com/quizly/backend/core/result"
)

func publishQuiz(t *testing.T, f *fixture, quizID, ownerID string, maxAttempts int) string {
	q, _ := f.up.Quiz(quizID)
	q.IsPublished = true
	f.up.AddQuiz(q)
	expiresAt := time.Now().Add(24 * time.Hour).UTC()
	link := "link-" + quizID
	f.up.AddPublication(publish.Publication{
		QuizID:      quizID,
		OwnerID:     ownerID,
		Link:        link,
		Title:       q.Title,
		ExpiresAt:   &expiresAt,
		MaxAttempts: maxAttempts,
	})
	return link
}

func Test_resultApi_submit(t *testing.T) {
	f := setup(t)
	seedQuiz(f, "q1", "owner")
	link := publishQuiz(t, f, "q1", "owner", 1)
	path := "/v1/public/quizzes/" + link + "/attempts"

	tests := []httpTest{
		{
			name:     "invalid data",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"candidateName":"","candidateEmail":"nope","answers":[]}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"candidateName":"this field is required",
				"candidateEmail":"candidateEmail must be a valid email address",
				"answers":"answers must contain at least 1 item"
			}`),
		},
		{
			name:     "unknown question",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"candidateName":"Ada","candidateEmail":"ada@example.com","answers":[{"questionId":"1","choice":0},{"questionId":"42","choice":1}]}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"answers":"unknown questions: 42"}`),
		},
		{
			name:     "unknown link",
			method:   http.MethodPost,
			path:     "/v1/public/quizzes/nope/attempts",
			body:     []byte(`{"candidateName":"Ada","candidateEmail":"ada@example.com","answers":[{"questionId":"1","choice":0}]}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, "", tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	body := []byte(`{"candidateName":" Ada ","candidateEmail":"Ada@Example.com","answers":[{"questionId":"1","choice":0},{"questionId":"2","choice":0}]}`)
	rec := f.do(http.MethodPost, path, "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res result.Result
	unmarchall(t, rec, &res)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "Ada", res.CandidateName)
	assert.Equal(t, "ada@example.com", res.CandidateEmail)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 50.0, res.Percentage)
	assert.Equal(t, "owner", res.OwnerID)

	// free plan: no candidate feedback
	assert.Empty(t, f.mailer.SentMessages())

	rec = f.do(http.MethodPost, path, "", body)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: []byte(`{"error":"maximum attempts reached"}`)}, rec)
}

func Test_resultApi_feedback(t *testing.T) {
	f := setup(t)
	seedQuiz(f, "q1", "owner")
	f.up.SetPlan("owner", plan.TierElite)
	link := publishQuiz(t, f, "q1", "owner", 2)

	body := []byte(`{"candidateName":"Ada","candidateEmail":"ada@example.com","answers":[{"questionId":"1","choice":0},{"questionId":"2","choice":1}]}`)
	rec := f.do(http.MethodPost, "/v1/public/quizzes/"+link+"/attempts", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	sent := f.mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@example.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "The go keyword.")
}

func Test_resultApi_check(t *testing.T) {
	f := setup(t)
	seedQuiz(f, "q1", "owner")
	link := publishQuiz(t, f, "q1", "owner", 2)
	f.up.AddResult(result.Result{QuizID: "q1", OwnerID: "owner", CandidateEmail: "ada@example.com"})
	path := "/v1/public/quizzes/" + link + "/attempts/check"

	tests := []httpTest{
		{
			name:     "email required",
			method:   http.MethodGet,
			path:     path,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required"}`),
		},
		{
			name:     "attempted",
			method:   http.MethodGet,
			path:     path + "?email=ADA@example.com",
			wantCode: http.StatusOK,
			wantData: []byte(`{"attempts":1,"maxAttempts":2,"remaining":1,"attempted":true}`),
		},
		{
			name:     "first timer",
			method:   http.MethodGet,
			path:     path + "?email=bob@example.com",
			wantCode: http.StatusOK,
			wantData: []byte(`{"attempts":0,"maxAttempts":2,"remaining":2,"attempted":false}`),
		},
		{
			name:     "unknown link",
			method:   http.MethodGet,
			path:     "/v1/public/quizzes/nope/attempts/check?email=bob@example.com",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, "", tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_resultApi_owner(t *testing.T) {
	f := setup(t)
	seedQuiz(f, "q1", "owner")
	seedQuiz(f, "q2", "someone")
	r1 := f.up.AddResult(result.Result{QuizID: "q1", OwnerID: "owner", CandidateEmail: "ada@example.com", Score: 2, Total: 2})
	r2 := f.up.AddResult(result.Result{QuizID: "q2", OwnerID: "someone", CandidateEmail: "bob@example.com"})
	token := getToken(t, "owner")

	tests := []httpTest{
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/v1/quizzes/q1/results",
			wantCode: http.StatusOK,
			wantData: []byte("[" + string(marchallObj(t, r1)) + "]"),
		},
		{
			name:     "list someone else's quiz",
			method:   http.MethodGet,
			path:     "/v1/quizzes/q2/results",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "delete someone else's result",
			method:   http.MethodDelete,
			path:     "/v1/results/" + r2.ID,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/v1/results/" + r1.ID,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "list after delete",
			method:   http.MethodGet,
			path:     "/v1/quizzes/q1/results",
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
