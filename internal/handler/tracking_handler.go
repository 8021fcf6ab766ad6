package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"reimburse/internal/service"
)

// TrackingHandler handles workflow endpoints.
type TrackingHandler struct {
	trackingService service.TrackingService
	logger          *zap.Logger
}

// NewTrackingHandler creates a new tracking handler.
func NewTrackingHandler(trackingService service.TrackingService, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{trackingService: trackingService, logger: logger}
}

// OpenTrackingRequest creates the tracking row of a request.
type OpenTrackingRequest struct {
	RequestID uint   `json:"requestId" validate:"required"`
	Status    string `json:"trackingStatus" validate:"omitempty,max=20"`
}

// ApprovalRequest records an HR decision.
type ApprovalRequest struct {
	TrackingID        uint       `json:"trackingId" validate:"required"`
	Status            string     `json:"trackingStatus" validate:"omitempty,max=20"`
	ApprovalDate      *time.Time `json:"approvalDate"`
	ReimbursementDate *time.Time `json:"reimbursementDate"`
}

// Open godoc
// @Summary Create the tracking record of a request
// @Tags Tracking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body OpenTrackingRequest true "Tracking data"
// @Success 201 {object} model.Tracking
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /Tracking [post]
func (h *TrackingHandler) Open(c echo.Context) error {
	var req OpenTrackingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tracking, err := h.trackingService.Open(c.Request().Context(), PrincipalFrom(c), req.RequestID, req.Status)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, tracking)
}

// RecordApproval godoc
// @Summary Record status and dates of a tracking record
// @Tags Tracking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ApprovalRequest true "Decision"
// @Success 200 {object} model.Tracking
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /Tracking [put]
func (h *TrackingHandler) RecordApproval(c echo.Context) error {
	var req ApprovalRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tracking, err := h.trackingService.RecordApproval(c.Request().Context(), PrincipalFrom(c), service.ApprovalInput{
		TrackingID:        req.TrackingID,
		Status:            req.Status,
		ApprovalDate:      req.ApprovalDate,
		ReimbursementDate: req.ReimbursementDate,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tracking)
}

// Advance godoc
// @Summary Move a request to a new status
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Param status path string true "Target status" Enums(Pending, Verified, Approved, Rejected)
// @Success 200 {object} model.Tracking
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /Tracking/{requestId}/{status} [put]
func (h *TrackingHandler) Advance(c echo.Context) error {
	requestID, err := parseID(c, "requestId")
	if err != nil {
		return err
	}
	tracking, err := h.trackingService.Advance(c.Request().Context(), PrincipalFrom(c), requestID, c.Param("status"))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tracking)
}

// List godoc
// @Summary List all tracking records
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Tracking
// @Router /Tracking [get]
func (h *TrackingHandler) List(c echo.Context) error {
	trackings, err := h.trackingService.List(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, trackings)
}

// Get godoc
// @Summary Get a tracking record
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param trackingId path int true "Tracking ID"
// @Success 200 {object} model.Tracking
// @Failure 404 {object} errors.ErrorResponse
// @Router /Tracking/{trackingId} [get]
func (h *TrackingHandler) Get(c echo.Context) error {
	id, err := parseID(c, "trackingId")
	if err != nil {
		return err
	}
	tracking, err := h.trackingService.GetByID(c.Request().Context(), PrincipalFrom(c), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tracking)
}

// GetByRequest godoc
// @Summary Get the tracking record of a request
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} model.Tracking
// @Failure 404 {object} errors.ErrorResponse
// @Router /Tracking/request/{id} [get]
func (h *TrackingHandler) GetByRequest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	tracking, err := h.trackingService.GetByRequestID(c.Request().Context(), PrincipalFrom(c), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tracking)
}

// History godoc
// @Summary List the status changes of a request
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {array} model.TrackingEvent
// @Failure 404 {object} errors.ErrorResponse
// @Router /Tracking/request/{id}/history [get]
func (h *TrackingHandler) History(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	events, err := h.trackingService.History(c.Request().Context(), PrincipalFrom(c), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, events)
}

// ListByUsername godoc
// @Summary List the tracking records of a user
// @Tags Tracking
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {array} model.Tracking
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /Tracking/user/{username} [get]
func (h *TrackingHandler) ListByUsername(c echo.Context) error {
	trackings, err := h.trackingService.ListByUsername(c.Request().Context(), PrincipalFrom(c), c.Param("username"))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, trackings)
}
