package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/quizly/backend/core/result"
)

const headerOwnerID = "X-Owner-ID"

type ResultRepository struct {
	client *Client
}

var _ result.Repository = (*ResultRepository)(nil)

func NewResultRepository(client *Client) *ResultRepository {
	return &ResultRepository{client: client}
}

func (repo *ResultRepository) CreateResult(ctx context.Context, r result.Result) (result.Result, error) {
	var created result.Result
	if err := repo.client.Do(ctx, http.MethodPost, "/results", r, &created); err != nil {
		return result.Result{}, err
	}
	return created, nil
}

func (repo *ResultRepository) ListResultsByQuiz(ctx context.Context, quizID string) ([]result.Result, error) {
	results := make([]result.Result, 0)
	if err := repo.client.Do(ctx, http.MethodGet, "/results/quiz/"+escape(quizID), nil, &results); err != nil {
		if IsNotFound(err) {
			return results, nil
		}
		return nil, err
	}
	return results, nil
}

func (repo *ResultRepository) DeleteResult(ctx context.Context, ownerID, id string) error {
	err := repo.client.Do(ctx, http.MethodDelete, "/results/"+escape(id), nil, nil, WithHeader(headerOwnerID, ownerID))
	return notFound(err)
}

func (repo *ResultRepository) CountAttempts(ctx context.Context, quizID, email string) (int, error) {
	var reply struct {
		Attempts int `json:"attempts"`
	}
	q := url.Values{"quizId": {quizID}, "email": {email}}
	if err := repo.client.Do(ctx, http.MethodGet, "/results/check", nil, &reply, WithQuery(q)); err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return reply.Attempts, nil
}
