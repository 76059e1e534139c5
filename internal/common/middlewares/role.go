package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	RoleProfessional = "professional"
	RoleReceptionist = "receptionist"
)

// RequireRole rejects any authenticated identity whose role is not in the
// allowed set. Runs after JWTMiddleware.
func RequireRole(allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"ok":    false,
					"error": "Missing or invalid JWT claims",
				})
			}

			for _, role := range allowed {
				if claims.Role == role {
					return next(c)
				}
			}

			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"ok":    false,
				"error": "Role " + claims.Role + " is not allowed to perform this action",
			})
		}
	}
}
