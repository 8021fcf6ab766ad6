package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"reimburse/internal/auth"
	"reimburse/internal/config"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/handler"
	"reimburse/internal/model"
	"reimburse/internal/service"
	"reimburse/internal/storage"
)

// HealthChecker reports whether a backing dependency is usable.
type HealthChecker func(ctx context.Context) error

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *zap.Logger,
	jwtService *auth.JWTService,
	authService service.AuthService,
	health HealthChecker,
	authHandler *handler.AuthHandler,
	requestHandler *handler.RequestHandler,
	trackingHandler *handler.TrackingHandler,
	paymentHandler *handler.PaymentHandler,
	profileHandler *handler.ProfileHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", cfg.MaxDocumentBytes/1024+1024)))

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		if health != nil {
			if err := health(c.Request().Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				return c.String(http.StatusServiceUnavailable, "unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static(strings.TrimSuffix(storage.PublicPrefix, "/"), cfg.DocumentDir)

	api := e.Group("/api")

	// Public routes
	api.POST("/User", authHandler.Register)
	api.POST("/User/Login", authHandler.Login)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  handler.ContextKeyClaims,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return nil, err
			}
			if authService.IsRevoked(c.Request().Context(), claims) {
				return nil, errors.New("token revoked")
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: apperrors.ErrInvalidToken.Message,
				Code:  apperrors.ErrInvalidToken.Code,
			})
		},
	}))

	employee := RequireRole(model.RoleEmployee)
	hr := RequireRole(model.RoleHR)
	anyRole := RequireRole(model.RoleEmployee, model.RoleHR)

	secured.POST("/User/Logout", authHandler.Logout)

	// Request routes
	secured.POST("/Request", requestHandler.Create, employee)
	secured.PUT("/Request", requestHandler.Update, employee)
	secured.DELETE("/Request/:id", requestHandler.Delete, employee)
	secured.GET("/Request", requestHandler.List, hr)
	secured.GET("/Request/:id", requestHandler.Get, anyRole)
	secured.GET("/Request/user/:username", requestHandler.ListByUsername, anyRole)
	secured.GET("/Request/category/:category", requestHandler.ListByCategory, hr)

	// Tracking routes
	secured.POST("/Tracking", trackingHandler.Open, anyRole)
	secured.PUT("/Tracking", trackingHandler.RecordApproval, hr)
	secured.PUT("/Tracking/:requestId/:status", trackingHandler.Advance, hr)
	secured.GET("/Tracking", trackingHandler.List, hr)
	secured.GET("/Tracking/:trackingId", trackingHandler.Get, anyRole)
	secured.GET("/Tracking/request/:id", trackingHandler.GetByRequest, anyRole)
	secured.GET("/Tracking/request/:id/history", trackingHandler.History, anyRole)
	secured.GET("/Tracking/user/:username", trackingHandler.ListByUsername, anyRole)

	// Payment routes
	secured.POST("/PaymentDetails", paymentHandler.Record, hr)
	secured.PUT("/PaymentDetails", paymentHandler.Update, hr)
	secured.DELETE("/PaymentDetails/:paymentId", paymentHandler.Delete, hr)
	secured.GET("/PaymentDetails", paymentHandler.List, hr)
	secured.GET("/PaymentDetails/:paymentId", paymentHandler.Get, hr)

	// Profile routes
	secured.POST("/UserProfile", profileHandler.Add, employee)
	secured.PUT("/UserProfile", profileHandler.Update, employee)
	secured.DELETE("/UserProfile/:username", profileHandler.Remove, hr)
	secured.GET("/UserProfile", profileHandler.List, hr)
	secured.GET("/UserProfile/:userId", profileHandler.Get, anyRole)
	secured.GET("/UserProfile/username/:username", profileHandler.GetByUsername, anyRole)
}

// RequireRole rejects callers whose token carries none of roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := handler.PrincipalFrom(c)
			for _, role := range roles {
				if caller.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
				Error: apperrors.ErrForbidden.Message,
				Code:  apperrors.ErrForbidden.Code,
			})
		}
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil && v.Status >= http.StatusInternalServerError {
				logger.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
