package api

import (
	"net/http"
	"time"

	"github.com/phrazzld/scry-tasks/internal/api/middleware"
	"github.com/phrazzld/scry-tasks/internal/api/shared"
	"github.com/phrazzld/scry-tasks/internal/auth"
)

// SessionResponse is the body of POST /api/session.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionHandler issues client tokens.
type SessionHandler struct {
	tokens   auth.TokenService
	lifetime time.Duration
	timeFunc func() time.Time
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(tokens auth.TokenService, lifetime time.Duration) *SessionHandler {
	return &SessionHandler{tokens: tokens, lifetime: lifetime, timeFunc: time.Now}
}

// CreateSession handles POST /api/session requests. Each call starts a new,
// empty task namespace.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	signed, _, err := h.tokens.Issue(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to issue client token", err)
		return
	}

	middleware.SetClientToken(w, signed, h.lifetime)
	shared.RespondWithJSON(w, r, http.StatusCreated, SessionResponse{
		Token:     signed,
		ExpiresAt: h.timeFunc().Add(h.lifetime).UTC(),
	})
}
