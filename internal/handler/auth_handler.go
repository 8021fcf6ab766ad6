package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
	"reimburse/internal/service"
)

// AuthHandler handles registration and authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=Employee HR"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is a registered user without credentials.
type UserResponse struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// Register godoc
// @Summary Register a new user
// @Tags User
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /User [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password, model.Role(req.Role))
	if err != nil {
		return fail(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, UserResponse{Username: user.Username, Role: user.Role})
}

// Login godoc
// @Summary Login user
// @Tags User
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /User/Login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return fail(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}

// Logout godoc
// @Summary Revoke the current token
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /User/Logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return fail(c, h.logger, apperrors.ErrInvalidToken)
	}

	if err := h.authService.Logout(c.Request().Context(), claims); err != nil {
		return fail(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}
