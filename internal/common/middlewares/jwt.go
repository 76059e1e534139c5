package middlewares

import (
	"net/http"
	"strings"

	"github.com/atmedrano/clinibox-backend/pkg/utils"
	"github.com/labstack/echo/v4"
)

// ContextKeyClaims is the echo context key under which the validated claims
// are stored for downstream handlers and middlewares.
const ContextKeyClaims = "claims"

// JWTMiddleware validates the Bearer token and stores the claims in the
// request context. Token issuance belongs to the external identity service.
func JWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"ok":    false,
					"error": "Authorization header missing",
				})
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"ok":    false,
					"error": "Invalid authorization header",
				})
			}
			claims, err := utils.ValidateJWTToken(parts[1])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"ok":    false,
					"error": "Invalid token: " + err.Error(),
				})
			}

			c.Set(ContextKeyClaims, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the validated claims stored by JWTMiddleware, or nil.
func ClaimsFrom(c echo.Context) *utils.Claims {
	claims, _ := c.Get(ContextKeyClaims).(*utils.Claims)
	return claims
}
