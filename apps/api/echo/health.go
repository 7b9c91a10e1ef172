package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quizly/backend/core"
)

const healthTimeout = 2 * time.Second

func registerHealthAPI(app *echo.Echo, cache core.Cache, conf *core.Config) {
	app.GET("/", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+conf.AppName+" API!")
	})
	app.GET("/healthz", func(ctx echo.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthTimeout)
		defer cancel()
		if err := cache.Ping(pingCtx); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "cache": err.Error()})
		}
		return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": conf.Build})
	})
	app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
