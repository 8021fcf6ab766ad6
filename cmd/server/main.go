package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"reimburse/docs" // swagger docs

	"reimburse/internal/auth"
	"reimburse/internal/cache"
	"reimburse/internal/config"
	"reimburse/internal/db"
	"reimburse/internal/handler"
	"reimburse/internal/logger"
	"reimburse/internal/repository"
	"reimburse/internal/router"
	"reimburse/internal/service"
	"reimburse/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Reimbursement Tracker API
// @version 1.0
// @description Expense reimbursement requests, HR approval workflow and payment recording with JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatal("database init", zap.Error(err))
	}

	// Drop tables if RESET_DB environment variable is set
	if cfg.ResetDB {
		zlog.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			zlog.Warn("drop tables", zap.Error(err))
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		zlog.Fatal("migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		zlog.Warn("redis unavailable, running without cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	cancel()

	documents, err := storage.NewLocalDocumentStore(cfg.DocumentDir, cfg.PublicBaseURL, cfg.MaxDocumentBytes)
	if err != nil {
		zlog.Fatal("document store", zap.Error(err))
	}

	// Initialize repositories
	store := repository.NewStore(gormDB)

	// Initialize auth components
	signing, err := auth.NewSigningContext(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		zlog.Fatal("signing context", zap.Error(err))
	}
	jwtService := auth.NewJWTService(signing)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	recorder := service.NewEventRecorder(store.TrackingEvents, zlog)
	authService := service.NewAuthService(store.Users, jwtService, tokenStore, zlog)
	requestService := service.NewRequestService(store, documents, recorder, zlog)
	trackingService := service.NewTrackingService(store, recorder, zlog)
	paymentService := service.NewPaymentService(store, zlog)
	profileService := service.NewProfileService(store.Profiles, cacheClient, zlog)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, zlog)
	requestHandler := handler.NewRequestHandler(requestService, zlog)
	trackingHandler := handler.NewTrackingHandler(trackingService, zlog)
	paymentHandler := handler.NewPaymentHandler(paymentService, zlog)
	profileHandler := handler.NewProfileHandler(profileService, zlog)

	health := func(ctx context.Context) error {
		sqlDB, err := gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	e := echo.New()
	e.HideBanner = true

	// Register routes
	router.Register(
		e,
		cfg,
		zlog,
		jwtService,
		authService,
		health,
		authHandler,
		requestHandler,
		trackingHandler,
		paymentHandler,
		profileHandler,
	)

	if cfg.SwaggerHost != "" {
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
		docs.SwaggerInfo.Host = host
	}
	zlog.Info("swagger documentation available", zap.String("url", cfg.PublicBaseURL+"/swagger/index.html"))

	go func() {
		zlog.Info("server starting", zap.String("addr", cfg.HTTPAddress()), zap.String("db_driver", cfg.DBDriver))
		if err := e.Start(cfg.HTTPAddress()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	ctx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := e.Shutdown(ctx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}

	// Flush queued tracking events before the database goes away.
	recorder.Close()

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
