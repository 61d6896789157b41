package middleware

import (
	"errors"
	"net/http"
	"strings"

	"pharmacy-portal/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey    = "user_id"    // string
	CtxUserEmailKey = "user_email" // string
)

type errorResponse struct {
	Error string `json:"error"`
}

// SessionClaims is what the login service signs into the session token.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session authenticates the caller from the session cookie or a bearer token
// and stores the user id and email on the echo context.
func Session(cfg config.Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := sessionToken(c, cfg.CookieName)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			}

			claims := &SessionClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			}

			c.Set(CtxUserIDKey, claims.Subject)
			c.Set(CtxUserEmailKey, claims.Email)
			return next(c)
		}
	}
}

func sessionToken(c echo.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AdminGate admits requests carrying the shared admin cookie.
func AdminGate(cfg config.Admin) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cfg.GateCookie)
			if err != nil || cookie.Value != cfg.GateValue {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "admin access required"})
			}
			return next(c)
		}
	}
}
