package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"reimburse/internal/service"
)

// ProfileHandler handles user profile endpoints.
type ProfileHandler struct {
	profileService service.ProfileService
	logger         *zap.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profileService service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, logger: logger}
}

// ProfileRequest carries the caller's profile fields.
type ProfileRequest struct {
	FirstName         string `json:"firstName" validate:"required,max=100"`
	LastName          string `json:"lastName" validate:"required,max=100"`
	City              string `json:"city" validate:"max=100"`
	ContactNumber     string `json:"contactNumber" validate:"omitempty,max=20"`
	BankAccountNumber string `json:"bankAccountNumber" validate:"max=34"`
	RoutingCode       string `json:"routingCode" validate:"max=20"`
}

func (r ProfileRequest) input() service.ProfileInput {
	return service.ProfileInput{
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		City:              r.City,
		ContactNumber:     r.ContactNumber,
		BankAccountNumber: r.BankAccountNumber,
		RoutingCode:       r.RoutingCode,
	}
}

// Add godoc
// @Summary Create the caller's profile
// @Tags UserProfile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileRequest true "Profile"
// @Success 201 {object} model.UserProfile
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /UserProfile [post]
func (h *ProfileHandler) Add(c echo.Context) error {
	var req ProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	profile, err := h.profileService.Add(c.Request().Context(), PrincipalFrom(c), req.input())
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, profile)
}

// Update godoc
// @Summary Update the caller's profile
// @Tags UserProfile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileRequest true "Profile"
// @Success 200 {object} model.UserProfile
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /UserProfile [put]
func (h *ProfileHandler) Update(c echo.Context) error {
	var req ProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	profile, err := h.profileService.Update(c.Request().Context(), PrincipalFrom(c), req.input())
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// Remove godoc
// @Summary Remove a user's profile
// @Tags UserProfile
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /UserProfile/{username} [delete]
func (h *ProfileHandler) Remove(c echo.Context) error {
	if err := h.profileService.Remove(c.Request().Context(), PrincipalFrom(c), c.Param("username")); err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "profile removed"})
}

// List godoc
// @Summary List all profiles
// @Tags UserProfile
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.UserProfile
// @Router /UserProfile [get]
func (h *ProfileHandler) List(c echo.Context) error {
	profiles, err := h.profileService.List(c.Request().Context(), PrincipalFrom(c))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profiles)
}

// Get godoc
// @Summary Get a profile by ID
// @Tags UserProfile
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Profile ID"
// @Success 200 {object} model.UserProfile
// @Failure 404 {object} errors.ErrorResponse
// @Router /UserProfile/{userId} [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return err
	}
	profile, err := h.profileService.GetByID(c.Request().Context(), PrincipalFrom(c), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// GetByUsername godoc
// @Summary Get a profile by username
// @Tags UserProfile
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} model.UserProfile
// @Failure 404 {object} errors.ErrorResponse
// @Router /UserProfile/username/{username} [get]
func (h *ProfileHandler) GetByUsername(c echo.Context) error {
	profile, err := h.profileService.GetByUsername(c.Request().Context(), PrincipalFrom(c), c.Param("username"))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profile)
}
