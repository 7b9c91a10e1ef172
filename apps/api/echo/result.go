package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core/result"
)

type resultApi struct {
	svc      *result.Service
	validate *validator.Validate
}

func registerResultAPI(authed, public *echo.Group, svc *result.Service, validate *validator.Validate) {
	api := resultApi{svc: svc, validate: validate}

	authed.GET("/quizzes/:id/results", api.queryForQuiz)
	authed.DELETE("/results/:id", api.destroy)

	ag := public.Group("/quizzes/:link/attempts")
	ag.POST("", api.submit)
	ag.GET("/check", api.check)
}

func (api *resultApi) queryForQuiz(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	results, err := api.svc.ListForQuiz(ctx.Request().Context(), caller.ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) destroy(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), caller.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting result")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *resultApi) submit(ctx echo.Context) error {
	var data result.Attempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Attempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("link"), quizSecret(ctx), data)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *resultApi) check(ctx echo.Context) error {
	status, err := api.svc.Check(ctx.Request().Context(), ctx.Param("link"), ctx.QueryParam("email"))
	if err != nil {
		return errors.Wrap(err, "checking attempts")
	}
	return ctx.JSON(http.StatusOK, status)
}
