package handler

import (
	"io"
	"net/http"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ProviderHandler struct {
	providerService service.ProviderService
}

func NewProviderHandler(providerService service.ProviderService) *ProviderHandler {
	return &ProviderHandler{
		providerService: providerService,
	}
}

func (h *ProviderHandler) Signup(c echo.Context) error {
	var req dto.ProviderSignupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	account, err := h.providerService.Signup(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, account)
}

func (h *ProviderHandler) ESignWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "unreadable body")
	}

	if err := h.providerService.HandleESignWebhook(ctx, c.Request().Header, body); err != nil {
		if service.IsWebhookRejection(err) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: service.PublicMessage(err)})
		}
		logger.FromContext(ctx, nil).Error("e-sign webhook accepted with error", zap.Error(err))
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

func (h *ProviderHandler) SetStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req dto.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	account, err := h.providerService.SetStatus(c.Request().Context(), id, model.ProviderStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, account)
}
