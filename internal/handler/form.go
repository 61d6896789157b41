package handler

import (
	"net/http"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
)

type FormHandler struct {
	formService service.FormService
}

func NewFormHandler(formService service.FormService) *FormHandler {
	return &FormHandler{
		formService: formService,
	}
}

func (h *FormHandler) Submit(c echo.Context) error {
	identity, err := identityFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.SubmitFormRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.formService.Submit(c.Request().Context(), identity, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, resp)
}
