package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/middleware"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeError maps a service error to its status and a JSON body.
func writeError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	if kind == service.KindInternal || kind == service.KindDataIntegrity {
		logger.FromContext(c.Request().Context(), nil).Error("request failed",
			zap.String("kind", kind.String()), zap.Error(err))
	}
	return c.JSON(kind.HTTPStatus(), dto.ErrorResponse{Error: service.PublicMessage(err)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg})
}

func identityFromContext(c echo.Context) (service.Identity, error) {
	userID, _ := c.Get(middleware.CtxUserIDKey).(string)
	if userID == "" {
		return service.Identity{}, &service.Error{Kind: service.KindUnauthorized, Message: "unauthorized"}
	}
	email, _ := c.Get(middleware.CtxUserEmailKey).(string)
	return service.Identity{UserID: userID, Email: email}, nil
}

func errInvalidQuery(name string) error {
	return errors.New("invalid " + name)
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidQuery(name)
	}
	return uint(id), nil
}

// parseTimeQuery accepts RFC 3339 or a bare date.
func parseTimeQuery(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errInvalidQuery(name)
	}
	if name == "to" {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseIntQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errInvalidQuery(name)
	}
	return n, nil
}
