package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/scry-tasks/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisatestsecretthatislongenough32chars"

func newTestService(t *testing.T, now func() time.Time) *hmacTokenService {
	t.Helper()
	svc, err := NewTokenService(config.AuthConfig{TokenSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	impl := svc.(*hmacTokenService)
	if now != nil {
		impl.timeFunc = now
	}
	return impl
}

func TestNewTokenServiceValidation(t *testing.T) {
	_, err := NewTokenService(config.AuthConfig{TokenSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = NewTokenService(config.AuthConfig{TokenSecret: testSecret})
	assert.Error(t, err)
}

func TestIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	signed, clientID, err := svc.Issue(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, clientID)
	assert.Equal(t, 2, strings.Count(signed, "."))

	got, err := svc.Validate(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, clientID, got)

	_, otherID, err := svc.Issue(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, clientID, otherID)
}

func TestValidateRejections(t *testing.T) {
	ctx := context.Background()
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := newTestService(t, func() time.Time { return issuedAt })
	signed, _, err := issuer.Issue(ctx)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestService(t, func() time.Time { return issuedAt.Add(2 * time.Hour) })
		_, err := later.Validate(ctx, signed)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("within clock skew", func(t *testing.T) {
		later := newTestService(t, func() time.Time { return issuedAt.Add(61 * time.Minute) })
		_, err := later.Validate(ctx, signed)
		assert.NoError(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenService(config.AuthConfig{
			TokenSecret:          strings.Repeat("x", 32),
			TokenLifetimeMinutes: 60,
		})
		require.NoError(t, err)
		other.(*hmacTokenService).timeFunc = func() time.Time { return issuedAt }
		_, err = other.Validate(ctx, signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := issuer.Validate(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong token type", func(t *testing.T) {
		claims := clientClaims{
			ClientID:  "abc",
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		}
		foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuer.Validate(ctx, foreign)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := clientClaims{ClientID: "abc", TokenType: tokenTypeClient}
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Validate(ctx, none)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
