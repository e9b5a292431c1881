package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinica/intake/internal/domain/access"
)

// RequireRole allows only the listed specialties through. Administrador
// always passes.
func RequireRole(roles ...access.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFromContext(c.Request().Context())
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "no session")
			}
			if user.Role == access.RoleAdministrador {
				return next(c)
			}
			for _, r := range roles {
				if user.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("role %s may not access this resource", user.Role))
		}
	}
}
