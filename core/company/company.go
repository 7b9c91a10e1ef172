package company

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
)

var errCompanyExists = "company already exists"

type (
	Company struct {
		ID         string    `json:"id"`
		OwnerID    string    `json:"ownerId"`
		OwnerEmail string    `json:"ownerEmail"`
		Name       string    `json:"name"`
		Website    string    `json:"website,omitempty"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	NewCompany struct {
		Name    string `json:"name" validate:"required,min=2,max=100"`
		Website string `json:"website" validate:"omitempty,url"`
	}

	Repository interface {
		CreateCompany(ctx context.Context, c Company) (Company, error)
		GetCompanyByOwner(ctx context.Context, ownerID string) (Company, error)
	}

	Service struct {
		repo Repository
	}
)

func (nc *NewCompany) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Website = core.CleanString(nc.Website)
	return validate.Struct(nc)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers the caller's company. An owner has at most one company.
func (svc *Service) Create(ctx context.Context, caller core.Caller, nc NewCompany) (Company, error) {
	if _, err := svc.repo.GetCompanyByOwner(ctx, caller.ID); err == nil {
		return Company{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: errCompanyExists})
	} else if !core.IsNotFound(err) {
		return Company{}, errors.Wrap(err, "checking existing company")
	}

	c, err := svc.repo.CreateCompany(ctx, Company{
		OwnerID:    caller.ID,
		OwnerEmail: caller.Email,
		Name:       nc.Name,
		Website:    nc.Website,
		CreatedAt:  core.NowFunc(),
	})
	if err != nil {
		return Company{}, errors.Wrap(err, "creating company")
	}
	return c, nil
}

// GetByOwner returns core.ErrNotFound when the owner has no company yet.
func (svc *Service) GetByOwner(ctx context.Context, ownerID string) (Company, error) {
	return svc.repo.GetCompanyByOwner(ctx, ownerID)
}
