package upstream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/quizly/backend/core/publish"
)

type PublicationRepository struct {
	client *Client
}

var _ publish.Repository = (*PublicationRepository)(nil)

func NewPublicationRepository(client *Client) *PublicationRepository {
	return &PublicationRepository{client: client}
}

func (repo *PublicationRepository) CreatePublication(ctx context.Context, p publish.Publication) (publish.Publication, error) {
	var created publish.Publication
	if err := repo.client.Do(ctx, http.MethodPost, "/publications", p, &created); err != nil {
		return publish.Publication{}, err
	}
	if created.Link == "" {
		return p, nil
	}
	return created, nil
}

func (repo *PublicationRepository) GetPublicationByLink(ctx context.Context, link string) (publish.Publication, error) {
	var p publish.Publication
	if err := repo.client.Do(ctx, http.MethodGet, "/publications/link/"+escape(link), nil, &p); err != nil {
		return publish.Publication{}, notFound(err)
	}
	return p, nil
}

func (repo *PublicationRepository) GetPublicationByQuiz(ctx context.Context, quizID string) (publish.Publication, error) {
	var p publish.Publication
	if err := repo.client.Do(ctx, http.MethodGet, "/publications/quiz/"+escape(quizID), nil, &p); err != nil {
		return publish.Publication{}, notFound(err)
	}
	return p, nil
}

func (repo *PublicationRepository) ListExpiredPublications(ctx context.Context, before time.Time) ([]publish.Publication, error) {
	pubs := make([]publish.Publication, 0)
	q := url.Values{"expiredBefore": {before.UTC().Format(time.RFC3339)}}
	if err := repo.client.Do(ctx, http.MethodGet, "/publications", nil, &pubs, WithQuery(q)); err != nil {
		return nil, err
	}
	return pubs, nil
}

func (repo *PublicationRepository) DeletePublication(ctx context.Context, quizID string) error {
	return notFound(repo.client.Do(ctx, http.MethodDelete, "/publications/quiz/"+escape(quizID), nil, nil))
}
