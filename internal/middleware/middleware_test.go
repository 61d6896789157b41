package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmacy-portal/internal/config"
	"pharmacy-portal/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sessionCfg = config.Session{JWTSecret: "test-secret", CookieName: "session"}

func makeToken(t *testing.T, secret, sub string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, SessionClaims{
		Email: "jane@patient.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func sessionEcho() *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"user_id": c.Get(CtxUserIDKey).(string),
			"email":   c.Get(CtxUserEmailKey).(string),
		})
	}, Session(sessionCfg))
	return e
}

func TestSessionBearer(t *testing.T) {
	e := sessionEcho()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+makeToken(t, "test-secret", "user-1", jwt.SigningMethodHS256, time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-1"`)
	assert.Contains(t, rec.Body.String(), `"email":"jane@patient.test"`)
}

func TestSessionCookie(t *testing.T) {
	e := sessionEcho()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: makeToken(t, "test-secret", "user-2", jwt.SigningMethodHS256, time.Now().Add(time.Hour))})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":"user-2"`)
}

func TestSessionRejects(t *testing.T) {
	cases := map[string]string{
		"missing":       "",
		"bad_scheme":    "Token abc",
		"wrong_secret":  "Bearer " + makeToken(t, "other", "u", jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
		"wrong_alg":     "Bearer " + makeToken(t, "test-secret", "u", jwt.SigningMethodHS512, time.Now().Add(time.Hour)),
		"expired":       "Bearer " + makeToken(t, "test-secret", "u", jwt.SigningMethodHS256, time.Now().Add(-time.Hour)),
		"empty_subject": "Bearer " + makeToken(t, "test-secret", "", jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
	}
	e := sessionEcho()
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
		})
	}
}

func TestAdminGate(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		AdminGate(config.Admin{GateCookie: "admin_gate", GateValue: "ok"}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "admin_gate", Value: "nope"})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "admin_gate", Value: "ok"})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestContext(t *testing.T) {
	base := zap.NewNop()
	e := echo.New()
	e.Use(echomw.RequestID())
	e.Use(RequestContext(base))
	e.GET("/", func(c echo.Context) error {
		l := logger.FromContext(c.Request().Context(), nil)
		assert.NotSame(t, base, l)
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
