package handler

import (
	"io"
	"net/http"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	checkoutService service.CheckoutService
}

func NewPaymentHandler(checkoutService service.CheckoutService) *PaymentHandler {
	return &PaymentHandler{
		checkoutService: checkoutService,
	}
}

func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.CreateIntentRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	resp, err := h.checkoutService.CreateIntent(ctx, identity, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Webhook acknowledges verified deliveries immediately; settlement happens in
// the background.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "unreadable body")
	}

	err = h.checkoutService.ReceiveWebhook(ctx, c.Request().Header, body)
	if err != nil {
		if service.IsWebhookRejection(err) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: service.PublicMessage(err)})
		}
		logger.FromContext(ctx, nil).Error("payment webhook accepted with error", zap.Error(err))
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
