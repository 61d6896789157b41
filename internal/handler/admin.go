package handler

import (
	"net/http"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/repository"
	"pharmacy-portal/internal/service"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) ListSubmissions(c echo.Context) error {
	filter, err := submissionFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.adminService.ListSubmissions(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) SubmissionStats(c echo.Context) error {
	filter, err := submissionFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.adminService.SubmissionStats(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) UpdateSubmissionStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req dto.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	submission, err := h.adminService.UpdateSubmissionStatus(c.Request().Context(), id, model.SubmissionStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, submission)
}

func (h *AdminHandler) ListOrders(c echo.Context) error {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return badRequest(c, err.Error())
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return badRequest(c, err.Error())
	}
	limit, err := parseIntQuery(c, "limit")
	if err != nil {
		return badRequest(c, err.Error())
	}
	offset, err := parseIntQuery(c, "offset")
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.adminService.ListOrders(c.Request().Context(), repository.OrderFilter{
		PaymentStatus: model.PaymentStatus(c.QueryParam("payment_status")),
		OrderStatus:   model.OrderStatus(c.QueryParam("order_status")),
		From:          from,
		To:            to,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

func submissionFilterFromQuery(c echo.Context) (repository.SubmissionFilter, error) {
	var filter repository.SubmissionFilter
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseIntQuery(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseIntQuery(c, "offset"); err != nil {
		return filter, err
	}
	filter.FormType = model.FormType(c.QueryParam("form_type"))
	filter.Status = model.SubmissionStatus(c.QueryParam("status"))
	return filter, nil
}
