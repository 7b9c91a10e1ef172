package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core/quiz"
)

type quizApi struct {
	svc      *quiz.Service
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, svc *quiz.Service, validate *validator.Validate) {
	api := quizApi{svc: svc, validate: validate}

	qg := g.Group("/quizzes")
	qg.POST("", api.create)
	qg.GET("", api.query)
	qg.GET("/usage", api.usage)

	// detail endpoints
	qg.GET("/:id", api.retrieve)
	qg.PUT("/:id", api.update)
	qg.DELETE("/:id", api.destroy)
}

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.Generate(ctx.Request().Context(), caller, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *quizApi) query(ctx echo.Context) error {
	var filter QuizFilter
	if err := filter.Bind(ctx); err != nil {
		return err
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	quizzes, err := api.svc.Query(ctx.Request().Context(), caller.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, filter.Apply(quizzes))
}

func (api *quizApi) usage(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	report, err := api.svc.Usage(ctx.Request().Context(), caller.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.Get(ctx.Request().Context(), caller.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) update(ctx echo.Context) error {
	var data quiz.UpdateQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.Update(ctx.Request().Context(), caller.ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
