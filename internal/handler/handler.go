package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"reimburse/internal/auth"
	apperrors "reimburse/internal/errors"
)

// ContextKeyClaims is where the JWT middleware stores the caller's *auth.Claims.
const ContextKeyClaims = "user"

// ClaimsFrom returns the verified claims of the current request, if any.
func ClaimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(ContextKeyClaims).(*auth.Claims)
	return claims, ok && claims != nil
}

// PrincipalFrom returns the authenticated caller. Unauthenticated requests yield the zero Principal.
func PrincipalFrom(c echo.Context) auth.Principal {
	if claims, ok := ClaimsFrom(c); ok {
		return claims.Principal()
	}
	return auth.Principal{}
}

// fail converts err into an HTTP error response, logging server-side failures.
func fail(c echo.Context, logger *zap.Logger, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Stringer("kind", apperrors.KindOf(err)),
			zap.Error(err))
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func invalidRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Error: message,
		Code:  "INVALID_REQUEST",
	})
}

func invalidInput(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Error: err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return invalidRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return invalidInput(err)
	}
	return nil
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, invalidRequest("invalid " + name)
	}
	return uint(id), nil
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
