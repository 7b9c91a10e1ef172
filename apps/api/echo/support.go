package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core/support"
)

const msgReceived = "Thanks, your message has been received."

type SuccessResponse struct {
	Success string `json:"success"`
}

type supportApi struct {
	svc      *support.Service
	validate *validator.Validate
}

func registerSupportAPI(authed, public *echo.Group, svc *support.Service, validate *validator.Validate) {
	api := supportApi{svc: svc, validate: validate}

	authed.POST("/feedback", api.feedback)
	public.POST("/contact", api.contact)
}

func (api *supportApi) feedback(ctx echo.Context) error {
	var data support.Feedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Feedback")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return err
	}
	api.svc.SendFeedback(caller, data)
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: msgReceived})
}

func (api *supportApi) contact(ctx echo.Context) error {
	var data support.Contact
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Contact")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	api.svc.SendContact(data)
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: msgReceived})
}
