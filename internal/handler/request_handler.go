package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
	"reimburse/internal/service"
)

// RequestHandler handles reimbursement request endpoints.
type RequestHandler struct {
	requestService service.RequestService
	logger         *zap.Logger
}

// NewRequestHandler creates a new request handler.
func NewRequestHandler(requestService service.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{requestService: requestService, logger: logger}
}

// RequestResponse is a request together with its tracking identity.
type RequestResponse struct {
	*model.Request
	TrackingID     uint                 `json:"trackingId,omitempty"`
	TrackingStatus model.TrackingStatus `json:"trackingStatus,omitempty"`
}

// readRequestForm extracts the multipart fields shared by create and update.
// The returned closer must be called once the document has been consumed.
func readRequestForm(c echo.Context) (service.RequestInput, func(), error) {
	noop := func() {}
	in := service.RequestInput{
		ExpenseCategory: c.FormValue("expenseCategory"),
		Description:     c.FormValue("description"),
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("amount")))
	if err != nil {
		return in, noop, apperrors.ErrInvalidAmount.With("amount is not a number")
	}
	in.Amount = amount

	if raw := strings.TrimSpace(c.FormValue("requestDate")); raw != "" {
		submitted, err := parseDate(raw)
		if err != nil {
			return in, noop, apperrors.ErrValidation.With("requestDate %q", raw)
		}
		in.SubmittedAt = &submitted
	}

	header, err := c.FormFile("document")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, noop, nil
		}
		return in, noop, apperrors.ErrInvalidDocument.With("unreadable upload")
	}
	file, err := header.Open()
	if err != nil {
		return in, noop, apperrors.Service("open upload", err)
	}
	in.Document = &service.Document{Filename: header.Filename, Content: file}
	return in, func() { closeUpload(file) }, nil
}

func closeUpload(f multipart.File) {
	_ = f.Close()
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// Create godoc
// @Summary Submit a reimbursement request
// @Tags Request
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param expenseCategory formData string true "Expense category"
// @Param amount formData number true "Amount"
// @Param description formData string false "Description"
// @Param document formData file true "Supporting document (pdf, png, jpeg)"
// @Success 201 {object} RequestResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /Request [post]
func (h *RequestHandler) Create(c echo.Context) error {
	in, done, err := readRequestForm(c)
	defer done()
	if err != nil {
		return fail(c, h.logger, err)
	}
	if in.Document == nil {
		return fail(c, h.logger, apperrors.ErrDocumentMissing)
	}

	request, tracking, err := h.requestService.Create(c.Request().Context(), PrincipalFrom(c), in)
	if err != nil {
		return fail(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, RequestResponse{
		Request:        request,
		TrackingID:     tracking.ID,
		TrackingStatus: tracking.Status,
	})
}

// Update godoc
// @Summary Update a reimbursement request
// @Tags Request
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param requestId formData int true "Request ID"
// @Param expenseCategory formData string true "Expense category"
// @Param amount formData number true "Amount"
// @Param description formData string false "Description"
// @Param requestDate formData string false "Request date (RFC 3339 or YYYY-MM-DD)"
// @Param document formData file false "Replacement document"
// @Success 200 {object} model.Request
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /Request [put]
func (h *RequestHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(strings.TrimSpace(c.FormValue("requestId")), 10, 64)
	if err != nil || id == 0 {
		return invalidRequest("invalid requestId")
	}

	in, done, err := readRequestForm(c)
	defer done()
	if err != nil {
		return fail(c, h.logger, err)
	}

	request, err := h.requestService.Update(c.Request().Context(), PrincipalFrom(c), uint(id), in)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, request)
}

// Delete godoc
// @Summary Delete a reimbursement request
// @Tags Request
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /Request/{id} [delete]
func (h *RequestHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.requestService.Delete(c.Request().Context(), PrincipalFrom(c), id); err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "request deleted"})
}

// Get godoc
// @Summary Get a reimbursement request
// @Tags Request
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} model.Request
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /Request/{id} [get]
func (h *RequestHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	request, err := h.requestService.Get(c.Request().Context(), PrincipalFrom(c), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, request)
}

// List godoc
// @Summary List all reimbursement requests
// @Tags Request
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Request
// @Failure 403 {object} errors.ErrorResponse
// @Router /Request [get]
func (h *RequestHandler) List(c echo.Context) error {
	requests, err := h.requestService.List(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, requests)
}

// ListByUsername godoc
// @Summary List the requests of a user
// @Tags Request
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {array} model.Request
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /Request/user/{username} [get]
func (h *RequestHandler) ListByUsername(c echo.Context) error {
	requests, err := h.requestService.ListByUsername(c.Request().Context(), PrincipalFrom(c), c.Param("username"))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, requests)
}

// ListByCategory godoc
// @Summary List requests of an expense category
// @Tags Request
// @Produce json
// @Security BearerAuth
// @Param category path string true "Expense category"
// @Success 200 {array} model.Request
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /Request/category/{category} [get]
func (h *RequestHandler) ListByCategory(c echo.Context) error {
	requests, err := h.requestService.ListByCategory(c.Request().Context(), PrincipalFrom(c), c.Param("category"))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, requests)
}
