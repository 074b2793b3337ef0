package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	g := e.Group("", JWTMiddleware(secret))
	g.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"user_id": UserID(c), "role": Role(c)})
	})
	g.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RequireRole("admin"))
	return e
}

func do(e *echo.Echo, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	e := newEcho(t)

	token, err := GenerateToken(7, "data_manager", secret, time.Hour)
	require.NoError(t, err)

	rec := do(e, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 7, "role": "data_manager"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "Bearer garbage").Code)

	other, err := GenerateToken(7, "admin", "other-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "Bearer "+other).Code)

	expired, err := GenerateToken(7, "admin", secret, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "Bearer "+expired).Code)
}

func TestJWTMiddlewareRejectsMissingUser(t *testing.T) {
	e := newEcho(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "Bearer "+token).Code)
}

func TestRequireRole(t *testing.T) {
	e := newEcho(t)

	admin, err := GenerateToken(1, "admin", secret, time.Hour)
	require.NoError(t, err)
	viewer, err := GenerateToken(2, "viewer", secret, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, do(e, "/admin", "Bearer "+admin).Code)
	assert.Equal(t, http.StatusForbidden, do(e, "/admin", "Bearer "+viewer).Code)
}

func TestGenerateTokenNeedsSecret(t *testing.T) {
	_, err := GenerateToken(1, "admin", "", time.Hour)
	assert.Error(t, err)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, err := NewRateLimiter("2-M")
	require.NoError(t, err)

	e := echo.New()
	e.Use(RateLimitMiddleware(limiter))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(e, "/ping", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	_, err = NewRateLimiter("lots")
	assert.Error(t, err)
}
