package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"skincareReco/business/bandit"
	"skincareReco/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that escaped the handlers: routing errors,
// recovered panics and anything a handler returned instead of writing.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}

	if code >= http.StatusInternalServerError {
		logger.Error("request failed",
			"trace_id", bandit.TraceIDFromContext(c.Request().Context()),
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, errorBody{Code: http.StatusText(code), Message: msg})
	}
	if writeErr != nil {
		logger.Error("failed to write error response", "error", writeErr)
	}
}
