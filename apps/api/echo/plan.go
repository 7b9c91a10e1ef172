package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core/plan"
)

type planApi struct {
	svc      *plan.Service
	validate *validator.Validate
}

func registerPlanAPI(g *echo.Group, svc *plan.Service, validate *validator.Validate) {
	api := planApi{svc: svc, validate: validate}

	g.GET("/plan", api.retrieve)
	g.PUT("/plan", api.update)
}

func (api *planApi) retrieve(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Get(ctx.Request().Context(), caller.ID)
	if err != nil {
		return errors.Wrap(err, "getting plan")
	}
	return ctx.JSON(http.StatusOK, p.Details())
}

// update forwards tier changes as-is; the plan service decides whether the caller may switch tiers.
func (api *planApi) update(ctx echo.Context) error {
	var data plan.UpdatePlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Update(ctx.Request().Context(), caller.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.Details())
}
