package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/quizly/backend/core/quiz"
)

type QuizRepository struct {
	client *Client
}

var _ quiz.Repository = (*QuizRepository)(nil)

func NewQuizRepository(client *Client) *QuizRepository {
	return &QuizRepository{client: client}
}

func (repo *QuizRepository) GenerateQuiz(ctx context.Context, req quiz.GenerateRequest) (quiz.Quiz, error) {
	var q quiz.Quiz
	if err := repo.client.Do(ctx, http.MethodPost, "/quizzes", req, &q); err != nil {
		return quiz.Quiz{}, err
	}
	return q, nil
}

func (repo *QuizRepository) QueryQuizzes(ctx context.Context, ownerID string) ([]quiz.Quiz, error) {
	quizzes := make([]quiz.Quiz, 0)
	err := repo.client.Do(ctx, http.MethodGet, "/quizzes", nil, &quizzes, WithQuery(url.Values{"ownerId": {ownerID}}))
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (repo *QuizRepository) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	var q quiz.Quiz
	if err := repo.client.Do(ctx, http.MethodGet, "/quizzes/"+escape(id), nil, &q); err != nil {
		return quiz.Quiz{}, notFound(err)
	}
	return q, nil
}

func (repo *QuizRepository) UpdateQuiz(ctx context.Context, id string, p quiz.Patch) (quiz.Quiz, error) {
	var q quiz.Quiz
	if err := repo.client.Do(ctx, http.MethodPut, "/quizzes/"+escape(id), p, &q); err != nil {
		return quiz.Quiz{}, notFound(err)
	}
	return q, nil
}

func (repo *QuizRepository) DeleteQuiz(ctx context.Context, id string) error {
	return notFound(repo.client.Do(ctx, http.MethodDelete, "/quizzes/"+escape(id), nil, nil))
}

func (repo *QuizRepository) GetUsage(ctx context.Context, ownerID string) (quiz.Usage, error) {
	var u quiz.Usage
	if err := repo.client.Do(ctx, http.MethodGet, "/usage/"+escape(ownerID), nil, &u); err != nil {
		return quiz.Usage{}, notFound(err)
	}
	if u.OwnerID == "" {
		u.OwnerID = ownerID
	}
	return u, nil
}
