package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Middleware authenticates the Bearer token and resolves the profile for
// every request. A valid token whose profile cannot be resolved gets 401:
// the session is force-closed rather than served half-initialized.
func Middleware(secret string, resolver ProfileResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := ParseToken(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
			}

			user, err := resolver.ResolveProfile(c.Request().Context(), claims.Subject)
			if err != nil || user == nil {
				// Forced sign-out: authenticated identity without a profile.
				return echo.NewHTTPError(http.StatusUnauthorized, "session invalidated")
			}

			c.SetRequest(c.Request().WithContext(WithUser(c.Request().Context(), user)))
			return next(c)
		}
	}
}
