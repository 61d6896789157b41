package handler

import (
	"net/http"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

func (h *CartHandler) Get(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	cart, err := h.cartService.Get(c.Request().Context(), identity.UserID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) Add(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	item, err := h.cartService.Add(c.Request().Context(), identity.UserID, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, item)
}

func (h *CartHandler) Update(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req dto.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	item, err := h.cartService.UpdateQuantity(c.Request().Context(), identity.UserID, id, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) Remove(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.cartService.Remove(c.Request().Context(), identity.UserID, id); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) Clear(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.cartService.Clear(c.Request().Context(), identity.UserID); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
