package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atmedrano/clinibox-backend/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

func doRequest(t *testing.T, handler echo.HandlerFunc, mws []echo.MiddlewareFunc, token string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := handler
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	assert.NoError(t, h(c))
	return rec
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	token, err := utils.GenerateJWTToken("7", "Dr. Soler", RoleProfessional, time.Now().Add(time.Hour))
	assert.NoError(t, err)

	var seen *utils.Claims
	handler := func(c echo.Context) error {
		seen = ClaimsFrom(c)
		return okHandler(c)
	}

	rec := doRequest(t, handler, []echo.MiddlewareFunc{JWTMiddleware()}, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, seen) {
		assert.Equal(t, "7", seen.IDUser)
		assert.Equal(t, RoleProfessional, seen.Role)
	}
}

func TestJWTMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	rec := doRequest(t, okHandler, []echo.MiddlewareFunc{JWTMiddleware()}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, okHandler, []echo.MiddlewareFunc{JWTMiddleware()}, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	token, err := utils.GenerateJWTToken("7", "Dr. Soler", RoleProfessional, time.Now().Add(-time.Minute))
	assert.NoError(t, err)

	rec := doRequest(t, okHandler, []echo.MiddlewareFunc{JWTMiddleware()}, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	professional, err := utils.GenerateJWTToken("7", "Dr. Soler", RoleProfessional, time.Now().Add(time.Hour))
	assert.NoError(t, err)
	receptionist, err := utils.GenerateJWTToken("3", "Marta", RoleReceptionist, time.Now().Add(time.Hour))
	assert.NoError(t, err)

	chain := []echo.MiddlewareFunc{JWTMiddleware(), RequireRole(RoleProfessional)}

	rec := doRequest(t, okHandler, chain, professional)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, okHandler, chain, receptionist)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	both := []echo.MiddlewareFunc{JWTMiddleware(), RequireRole(RoleProfessional, RoleReceptionist)}
	rec = doRequest(t, okHandler, both, receptionist)
	assert.Equal(t, http.StatusOK, rec.Code)
}
