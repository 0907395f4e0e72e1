package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core"
)

var errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "Page not found")

type errorPage struct {
	Code    int
	Status  string
	Message string
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler rendering the error page.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)

			logger.Error(message, errors.Wrap(err, message), getContextSession(ctx), map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Request().URL.Path,
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.Render(code, "error", newPageData(ctx, "", errorPage{
					Code:    code,
					Status:  http.StatusText(code),
					Message: message,
				}))
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// loadFailed logs a backend failure of a page and returns nil so that the page renders
// its static error message. Backend 401s are returned for the guard to sign the client out.
func (p *portal) loadFailed(err error, ctx echo.Context, what string) error {
	if core.IsUnauthorized(err) {
		return err
	}
	p.logger.Error(what, err, getContextSession(ctx))
	return nil
}

// formErrors splits a form failure into the message shown above the form and the per-field messages.
// ok is false for errors that are not validation failures.
func (p *portal) formErrors(err error) (msg string, fields map[string]string, ok bool) {
	vErr, ok := errors.Cause(core.TranslateValidationErrors(err, p.translator)).(*core.ValidationError)
	if !ok {
		return "", nil, false
	}
	if vErr.Err != nil {
		msg = vErr.Err.Error()
	}
	return msg, vErr.FieldMessages(), true
}
