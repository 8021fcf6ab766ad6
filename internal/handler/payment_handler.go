package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"reimburse/internal/service"
)

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *zap.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentService service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, logger: logger}
}

// RecordPaymentRequest represents a payment against an approved request.
type RecordPaymentRequest struct {
	RequestID         uint            `json:"requestId" validate:"required"`
	BankAccountNumber string          `json:"bankAccountNumber" validate:"required"`
	RoutingCode       string          `json:"routingCode" validate:"required"`
	Amount            decimal.Decimal `json:"paymentAmount" swaggertype:"number"`
	PaymentDate       *time.Time      `json:"paymentDate"`
}

// UpdatePaymentRequest changes an existing payment. Omitted fields are kept.
type UpdatePaymentRequest struct {
	PaymentID         uint            `json:"paymentId" validate:"required"`
	RequestID         uint            `json:"requestId"`
	BankAccountNumber string          `json:"bankAccountNumber"`
	RoutingCode       string          `json:"routingCode"`
	Amount            decimal.Decimal `json:"paymentAmount" swaggertype:"number"`
	PaymentDate       *time.Time      `json:"paymentDate"`
}

// Record godoc
// @Summary Record the payment of an approved request
// @Tags PaymentDetails
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RecordPaymentRequest true "Payment data"
// @Success 201 {object} model.PaymentDetails
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /PaymentDetails [post]
func (h *PaymentHandler) Record(c echo.Context) error {
	var req RecordPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	payment, err := h.paymentService.Record(c.Request().Context(), PrincipalFrom(c), service.PaymentInput{
		RequestID:         req.RequestID,
		BankAccountNumber: req.BankAccountNumber,
		RoutingCode:       req.RoutingCode,
		Amount:            req.Amount,
		PaymentDate:       req.PaymentDate,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, payment)
}

// Update godoc
// @Summary Update a payment record
// @Tags PaymentDetails
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdatePaymentRequest true "Payment changes"
// @Success 200 {object} model.PaymentDetails
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /PaymentDetails [put]
func (h *PaymentHandler) Update(c echo.Context) error {
	var req UpdatePaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	payment, err := h.paymentService.Update(c.Request().Context(), PrincipalFrom(c), req.PaymentID, service.PaymentInput{
		RequestID:         req.RequestID,
		BankAccountNumber: req.BankAccountNumber,
		RoutingCode:       req.RoutingCode,
		Amount:            req.Amount,
		PaymentDate:       req.PaymentDate,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, payment)
}

// Delete godoc
// @Summary Delete a payment record
// @Tags PaymentDetails
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /PaymentDetails/{paymentId} [delete]
func (h *PaymentHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "paymentId")
	if err != nil {
		return err
	}
	if err := h.paymentService.Delete(c.Request().Context(), PrincipalFrom(c), id); err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "payment deleted"})
}

// List godoc
// @Summary List payments with masked bank accounts
// @Tags PaymentDetails
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.PaymentDetails
// @Router /PaymentDetails [get]
func (h *PaymentHandler) List(c echo.Context) error {
	payments, err := h.paymentService.List(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, payments)
}

// Get godoc
// @Summary Get a payment with masked bank account
// @Tags PaymentDetails
// @Produce json
// @Security BearerAuth
// @Param paymentId path int true "Payment ID"
// @Success 200 {object} model.PaymentDetails
// @Failure 404 {object} errors.ErrorResponse
// @Router /PaymentDetails/{paymentId} [get]
func (h *PaymentHandler) Get(c echo.Context) error {
	id, err := parseID(c, "paymentId")
	if err != nil {
		return err
	}
	payment, err := h.paymentService.Get(c.Request().Context(), PrincipalFrom(c), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, payment)
}
