package handler

import (
	"net/http"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) Create(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.CreateOrderRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	order, created, err := h.orderService.Create(c.Request().Context(), identity, c.Request().Header.Get(HeaderIdempotencyKey), &req)
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, order)
}

func (h *OrderHandler) List(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	orders, err := h.orderService.List(c.Request().Context(), identity.UserID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, dto.OrderListResponse{Orders: orders, Total: int64(len(orders))})
}

func (h *OrderHandler) Get(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	order, err := h.orderService.Get(c.Request().Context(), identity.UserID, id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, order)
}
