package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"reimburse/internal/model"
)

// DefaultTokenExpiry is the lifetime of an access token unless configured otherwise.
const DefaultTokenExpiry = 24 * time.Hour

// Claims represents JWT claims.
type Claims struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the caller identity asserted by the claims.
func (c *Claims) Principal() Principal {
	return Principal{Username: c.Username, Role: c.Role}
}

// SigningContext carries the token signing key and policy. It is built once at
// start-up and handed to the JWTService; nothing else holds the key.
type SigningContext struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigningContext validates and captures the signing configuration.
func NewSigningContext(secret, issuer string, ttl time.Duration) (*SigningContext, error) {
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}
	return &SigningContext{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime.
func (s *SigningContext) TTL() time.Duration {
	return s.ttl
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	signing *SigningContext
}

// NewJWTService creates a new JWT service over the given signing context.
func NewJWTService(signing *SigningContext) *JWTService {
	return &JWTService{signing: signing}
}

// GenerateToken issues a signed token asserting username and role.
func (s *JWTService) GenerateToken(username string, role model.Role) (string, *Claims, error) {
	now := s.signing.now()
	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   username,
			Issuer:    s.signing.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.signing.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signing.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.signing.now),
	}
	if s.signing.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.signing.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signing.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Username == "" || !claims.Role.Valid() {
		return nil, errors.New("token lacks identity claims")
	}
	return claims, nil
}
