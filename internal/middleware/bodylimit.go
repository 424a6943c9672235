package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// BodyLimit rejects requests whose body exceeds limit (e.g. "1M") with 413
// before any handler or the notifier reads it.
func BodyLimit(limit string) echo.MiddlewareFunc {
	if limit == "" {
		limit = "1M"
	}
	return middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{Limit: limit})
}
