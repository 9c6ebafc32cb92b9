package middleware

import (
	"skincareReco/business/bandit"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TraceID propagates X-Request-ID, generating one when the client sent none,
// and stores it on the request context for the bandit logs.
func TraceID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			traceID := req.Header.Get(echo.HeaderXRequestID)
			if traceID == "" {
				traceID = uuid.NewString()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, traceID)
			c.SetRequest(req.WithContext(bandit.WithTraceID(req.Context(), traceID)))

			return next(c)
		}
	}
}
