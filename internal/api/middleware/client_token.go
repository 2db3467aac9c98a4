package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/scry-tasks/internal/api/shared"
	"github.com/phrazzld/scry-tasks/internal/auth"
	"github.com/phrazzld/scry-tasks/internal/platform/logger"
)

// Where client tokens travel besides the Authorization header.
const (
	ClientCookieName  = "scry_client"
	ClientTokenHeader = "X-Client-Token"
	clientTokenQuery  = "token"
)

// ClientTokenMiddleware resolves the caller's client id from a signed token,
// issuing a new token to callers that present none.
type ClientTokenMiddleware struct {
	tokens   auth.TokenService
	lifetime time.Duration
}

// NewClientTokenMiddleware creates a ClientTokenMiddleware.
func NewClientTokenMiddleware(tokens auth.TokenService, lifetime time.Duration) *ClientTokenMiddleware {
	return &ClientTokenMiddleware{tokens: tokens, lifetime: lifetime}
}

// Handle reads the token from the Authorization header, the token query
// parameter or the client cookie, in that order. A present but invalid
// token is rejected with 401.
func (m *ClientTokenMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		signed := TokenFromRequest(r)

		var clientID string
		if signed == "" {
			var err error
			signed, clientID, err = m.tokens.Issue(ctx)
			if err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
					"Failed to issue client token", err)
				return
			}
			SetClientToken(w, signed, m.lifetime)
			logger.FromContext(ctx).Debug("issued client token")
		} else {
			var err error
			clientID, err = m.tokens.Validate(ctx, signed)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Client token expired", err)
				return
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid client token", err,
					shared.WithElevatedLogLevel())
				return
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
					"Authentication error", err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(shared.WithClientID(ctx, clientID)))
	})
}

// TokenFromRequest extracts a client token, or returns "" when none is present.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token := r.URL.Query().Get(clientTokenQuery); token != "" {
		return token
	}
	if cookie, err := r.Cookie(ClientCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// SetClientToken hands a freshly issued token to the caller as a cookie and
// a response header.
func SetClientToken(w http.ResponseWriter, signed string, lifetime time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(lifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(ClientTokenHeader, signed)
}
