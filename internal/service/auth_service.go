package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"reimburse/internal/auth"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
	"reimburse/internal/repository"
)

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, username, password string, role model.Role) (*model.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	IsRevoked(ctx context.Context, claims *auth.Claims) bool
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, logger *zap.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		logger:     logger,
	}
}

// Register creates a new user with a keyed password digest.
func (s *authService) Register(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.ErrValidation.With("username and password are required")
	}
	if !role.Valid() {
		return nil, apperrors.ErrInvalidRole
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, apperrors.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Service("check user existence", err)
	}

	digest, key, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.Service("hash password", err)
	}

	user := &model.User{
		Username:       username,
		PasswordDigest: digest,
		DigestKey:      key,
		Role:           role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, writeErr("create user", err, apperrors.ErrUserAlreadyExists)
	}

	s.logger.Info("user registered", zap.String("username", username), zap.String("role", string(role)))
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Service("find user", err)
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	if !auth.VerifyPassword(password, user.PasswordDigest, user.DigestKey) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, claims, err := s.jwtService.GenerateToken(user.Username, user.Role)
	if err != nil {
		return nil, apperrors.Service("generate token", err)
	}

	return &LoginResult{
		Username:  user.Username,
		Role:      user.Role,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the presented token until it would have expired.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return apperrors.ErrInvalidToken
	}
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.tokenStore.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return apperrors.Service("revoke token", err)
	}
	return nil
}

// IsRevoked reports whether the token behind claims was logged out.
func (s *authService) IsRevoked(ctx context.Context, claims *auth.Claims) bool {
	if claims == nil || claims.ID == "" {
		return false
	}
	revoked, err := s.tokenStore.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Warn("token revocation lookup failed", zap.Error(err))
		return false
	}
	return revoked
}
