// Package middleware holds the cross-cutting echo middleware wrapped around
// the catalog endpoints.
package middleware

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// Paths that are reachable without a token.
var publicPaths = map[string]bool{
	"/":       true,
	"/health": true,
}

// Auth requires an HS256 bearer token signed with secret on every request
// except OPTIONS and the health checks. An empty secret disables the check.
func Auth(secret string) echo.MiddlewareFunc {
	if secret == "" {
		logger.Warn().Msg("JWT_SECRET not set, bearer token verification disabled")
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		Skipper:    skipAuth,
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Debug().Err(err).Msgf("Rejected %s %s", c.Request().Method, c.Request().URL.Path)
			return c.JSON(http.StatusUnauthorized, map[string]string{"status": "unauthorized"})
		},
	})
}

func skipAuth(c echo.Context) bool {
	r := c.Request()
	return r.Method == http.MethodOptions || publicPaths[r.URL.Path]
}
