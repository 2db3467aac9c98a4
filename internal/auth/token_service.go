// Package auth issues and verifies the signed client tokens that identify a
// caller's isolated task namespace. A token carries no user identity, only
// a random client id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-tasks/internal/config"
	"github.com/phrazzld/scry-tasks/internal/platform/logger"
)

const tokenTypeClient = "client"

// TokenService issues and validates client tokens.
type TokenService interface {
	// Issue creates a token for a new client id. It returns the signed token
	// and the client id it carries.
	Issue(ctx context.Context) (signed string, clientID string, err error)

	// Validate verifies a signed token and returns its client id.
	Validate(ctx context.Context, signed string) (clientID string, err error)
}

// hmacTokenService is a TokenService using HMAC-SHA256 signing.
type hmacTokenService struct {
	signingKey    []byte
	tokenLifetime time.Duration
	timeFunc      func() time.Time // Injectable for testing
	clockSkew     time.Duration
}

type clientClaims struct {
	ClientID  string `json:"cid"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

var _ TokenService = (*hmacTokenService)(nil)

// NewTokenService creates a TokenService from the auth configuration.
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	if len(cfg.TokenSecret) < 32 {
		return nil, fmt.Errorf("token secret must be at least 32 characters")
	}
	if cfg.TokenLifetimeMinutes <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive")
	}

	return &hmacTokenService{
		signingKey:    []byte(cfg.TokenSecret),
		tokenLifetime: cfg.TokenLifetime(),
		timeFunc:      time.Now,
		clockSkew:     2 * time.Minute,
	}, nil
}

// Issue implements TokenService.
func (s *hmacTokenService) Issue(ctx context.Context) (string, string, error) {
	now := s.timeFunc()
	clientID := uuid.NewString()

	claims := clientClaims{
		ClientID:  clientID,
		TokenType: tokenTypeClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign client token",
			"error", err,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", "", fmt.Errorf("failed to sign client token: %w", err)
	}
	return signed, clientID, nil
}

// Validate implements TokenService.
func (s *hmacTokenService) Validate(ctx context.Context, signed string) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	token, err := jwt.ParseWithClaims(
		signed,
		&clientClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("client token expired", "error", err)
			return "", ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("client token not yet valid", "error", err)
			return "", ErrTokenNotYetValid
		default:
			log.Debug("client token rejected", "error", err, "error_type", fmt.Sprintf("%T", err))
			return "", ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*clientClaims)
	if !ok || !token.Valid || claims.TokenType != tokenTypeClient || claims.ClientID == "" {
		log.Debug("client token has invalid claims")
		return "", ErrInvalidToken
	}
	return claims.ClientID, nil
}
