package upstream

import (
	"context"
	"net/http"

	"github.com/quizly/backend/core/company"
)

type CompanyRepository struct {
	client *Client
}

var _ company.Repository = (*CompanyRepository)(nil)

func NewCompanyRepository(client *Client) *CompanyRepository {
	return &CompanyRepository{client: client}
}

func (repo *CompanyRepository) CreateCompany(ctx context.Context, c company.Company) (company.Company, error) {
	var created company.Company
	if err := repo.client.Do(ctx, http.MethodPost, "/companies", c, &created); err != nil {
		return company.Company{}, err
	}
	return created, nil
}

func (repo *CompanyRepository) GetCompanyByOwner(ctx context.Context, ownerID string) (company.Company, error) {
	var c company.Company
	if err := repo.client.Do(ctx, http.MethodGet, "/companies/owner/"+escape(ownerID), nil, &c); err != nil {
		return company.Company{}, notFound(err)
	}
	if c.ID == "" {
		// a 200 with a null body means no company
		return company.Company{}, notFound(&Error{Service: repo.client.Name(), StatusCode: http.StatusNotFound})
	}
	return c, nil
}
