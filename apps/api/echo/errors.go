package echoapi

import (
	"fmt"
	"net"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/storage/upstream"
)

var (
	errMissingToken = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")
	errInvalidToken = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	errTooMany      = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// httpError maps err to a status code and a response payload.
// A nil payload means an internal error whose details must not leak.
func httpError(err error, translator ut.Translator) (int, interface{}) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs
	case *core.ValidationError:
		if origErr.Fields != nil {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, origErr.Error()
	case *core.ForbiddenError:
		return http.StatusForbidden, origErr.Error()
	case *core.GoneError:
		return http.StatusGone, origErr.Error()
	case *core.QuotaError:
		return http.StatusForbidden, origErr.Error()
	case *upstream.Error:
		code := origErr.StatusCode
		if code < http.StatusBadRequest || code > 599 {
			code = http.StatusBadGateway
		}
		return code, origErr.Message
	}

	if core.IsNotFound(err) {
		return http.StatusNotFound, errHttpNotFound.Message
	}
	var uErr *upstream.Error
	if errors.As(err, &uErr) {
		return httpError(uErr, translator)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return http.StatusGatewayTimeout, "upstream service timed out"
	}
	return http.StatusInternalServerError, nil
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		// already answered, e.g. by the request logger
		if ctx.Response().Committed {
			return
		}
		code, message := httpError(err, translator)

		switch {
		case message == nil: // any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			caller, _ := getContextCaller(ctx)
			logger.Error(fmt.Sprintf("%s: %v", msg, err), errors.Wrap(err, msg), caller)

			if ctx.Echo().Debug {
				message = echo.Map{"error": msg, "stack": fmt.Sprintf("%+v", err)}
			} else {
				message = msg
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		case code >= http.StatusInternalServerError:
			caller, _ := getContextCaller(ctx)
			logger.Error(fmt.Sprintf("%s %s: %v", ctx.Request().Method, ctx.Path(), err), err, caller)
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
