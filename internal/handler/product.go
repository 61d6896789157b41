package handler

import (
	"net/http"
	"strconv"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/repository"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// List is the public catalogue. Shoppers only ever see active or sold-out
// products.
func (h *ProductHandler) List(c echo.Context) error {
	filter, err := productFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	switch filter.Status {
	case "":
		filter.Status = model.ProductStatusActive
	case model.ProductStatusActive, model.ProductStatusOutOfStock:
	default:
		return badRequest(c, "unknown product status")
	}

	products, err := h.productService.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"products": products})
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	product, err := h.productService.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, product)
}

// AdminList returns products in any status.
func (h *ProductHandler) AdminList(c echo.Context) error {
	filter, err := productFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	products, err := h.productService.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"products": products})
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req dto.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	product, err := h.productService.Create(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req dto.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	product, err := h.productService.Update(c.Request().Context(), id, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.productService.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func productFilterFromQuery(c echo.Context) (repository.ProductFilter, error) {
	filter := repository.ProductFilter{
		Category: c.QueryParam("category"),
		Status:   model.ProductStatus(c.QueryParam("status")),
	}
	if raw := c.QueryParam("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errInvalidQuery("featured")
		}
		filter.Featured = &featured
	}
	limit, err := parseIntQuery(c, "limit")
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	return filter, nil
}
