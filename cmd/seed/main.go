package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"reimburse/internal/auth"
	"reimburse/internal/config"
	"reimburse/internal/db"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/logger"
	"reimburse/internal/model"
	"reimburse/internal/repository"
	"reimburse/internal/service"
)

const defaultSeedSource = "seed/users.json"

// SeedUser is one entry of the seed file.
type SeedUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	source := os.Getenv("SEED_SOURCE")
	if source == "" {
		source = defaultSeedSource
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatal("connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		zlog.Fatal("run migrations", zap.Error(err))
	}

	users, err := loadSeedUsers(source)
	if err != nil {
		zlog.Fatal("load seed users", zap.String("source", source), zap.Error(err))
	}
	zlog.Info("loaded seed users", zap.String("source", source), zap.Int("count", len(users)))

	signing, err := auth.NewSigningContext(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		zlog.Fatal("signing context", zap.Error(err))
	}
	store := repository.NewStore(gormDB)
	authService := service.NewAuthService(store.Users, auth.NewJWTService(signing), auth.NewTokenStore(nil), zlog)

	created, skipped, err := seedUsers(context.Background(), authService, users)
	if err != nil {
		zlog.Fatal("seed users", zap.Error(err))
	}
	zlog.Info("seed completed", zap.Int("created", created), zap.Int("skipped", skipped))
}

// loadSeedUsers reads seed users from a local file or an http(s) URL.
func loadSeedUsers(source string) ([]SeedUser, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := &http.Client{Timeout: 15 * time.Second}
		resp, err := client.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch seed source: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("read seed source: %w", err)
		}
	} else {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		body = data
	}

	var users []SeedUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("parse seed JSON: %w", err)
	}
	return users, nil
}

// seedUsers registers every user, skipping usernames that already exist.
func seedUsers(ctx context.Context, authService service.AuthService, users []SeedUser) (created, skipped int, err error) {
	for _, u := range users {
		_, err := authService.Register(ctx, u.Username, u.Password, model.Role(u.Role))
		switch {
		case err == nil:
			created++
		case apperrors.KindOf(err) == apperrors.KindAlreadyExists:
			skipped++
		default:
			return created, skipped, fmt.Errorf("register %q: %w", u.Username, err)
		}
	}
	return created, skipped, nil
}
