package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/company"
)

type companyApi struct {
	svc      *company.Service
	validate *validator.Validate
}

func registerCompanyAPI(g *echo.Group, svc *company.Service, validate *validator.Validate) {
	api := companyApi{svc: svc, validate: validate}

	cg := g.Group("/companies")
	cg.POST("", api.create)
	cg.GET("/me", api.retrieveOwn)
}

func (api *companyApi) create(ctx echo.Context) error {
	var data company.NewCompany
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCompany")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Create(ctx.Request().Context(), caller, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

// retrieveOwn answers `null` when the caller has not registered a company yet.
func (api *companyApi) retrieveOwn(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetByOwner(ctx.Request().Context(), caller.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return ctx.JSON(http.StatusOK, nil)
		}
		return errors.Wrap(err, "finding company")
	}
	return ctx.JSON(http.StatusOK, c)
}
