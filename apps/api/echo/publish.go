package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core/publish"
)

type publishApi struct {
	svc      *publish.Service
	validate *validator.Validate
}

func registerPublishAPI(authed, public *echo.Group, svc *publish.Service, validate *validator.Validate) {
	api := publishApi{svc: svc, validate: validate}

	pg := authed.Group("/quizzes/:id/publish")
	pg.POST("", api.publish)
	pg.GET("", api.retrieve)
	pg.DELETE("", api.unpublish)

	public.GET("/quizzes/:link", api.retrievePublic)
}

// quizSecret reads the secret key of a protected quiz from the header, or the `key` query param.
func quizSecret(ctx echo.Context) string {
	if key := ctx.Request().Header.Get(headerQuizKey); key != "" {
		return key
	}
	return ctx.QueryParam("key")
}

func (api *publishApi) publish(ctx echo.Context) error {
	var data publish.NewPublication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPublication")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	pub, err := api.svc.Publish(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "publishing quiz")
	}
	return ctx.JSON(http.StatusCreated, pub.View(api.svc.BaseURL()))
}

func (api *publishApi) retrieve(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	pub, err := api.svc.Current(ctx.Request().Context(), caller.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting publication")
	}
	return ctx.JSON(http.StatusOK, pub.View(api.svc.BaseURL()))
}

func (api *publishApi) unpublish(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Unpublish(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "unpublishing quiz")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *publishApi) retrievePublic(ctx echo.Context) error {
	pq, err := api.svc.GetByLink(ctx.Request().Context(), ctx.Param("link"), quizSecret(ctx))
	if err != nil {
		return errors.Wrap(err, "getting published quiz")
	}
	return ctx.JSON(http.StatusOK, pq)
}
