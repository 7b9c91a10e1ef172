package upstream

import (
	"context"
	"net/http"

	emailsvc "github.com/quizly/backend/services/email"
)

type EmailRepository struct {
	client *Client
}

var _ emailsvc.Sender = (*EmailRepository)(nil)

func NewEmailRepository(client *Client) *EmailRepository {
	return &EmailRepository{client: client}
}

func (repo *EmailRepository) Deliver(ctx context.Context, d emailsvc.Delivery) error {
	return repo.client.Do(ctx, http.MethodPost, "/emails", d, nil)
}
