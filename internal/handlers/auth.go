package handlers

import (
	"context"
	"net"
	"net/http"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type authService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.RegisterResult, error)
	SignIn(ctx context.Context, req services.SignInRequest, clientIP string) (*services.Session, error)
	Confirm(ctx context.Context, token string) error
	SignOut(ctx context.Context, claims *services.Claims) error
}

type profileInvalidator interface {
	Invalidate(id string)
}

type userDisconnector interface {
	Disconnect(userID string) bool
}

// AuthHandler handles sign-up, sign-in and session requests
type AuthHandler struct {
	authService authService
	profiles    profileInvalidator
	hub         userDisconnector
}

// NewAuthHandler creates a new auth handler. On sign-out the user's cached
// profile is dropped and their live feed connection closed.
func NewAuthHandler(authService authService, profiles profileInvalidator, hub userDisconnector) *AuthHandler {
	return &AuthHandler{authService: authService, profiles: profiles, hub: hub}
}

// ConfirmRequest carries an email confirmation token
type ConfirmRequest struct {
	Token string `json:"token"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "Failed to register")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req services.SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.SignIn(r.Context(), req, clientIP(r))
	if err != nil {
		respondServiceError(w, err, "Failed to sign in")
		return
	}

	log.Info().Str("user_id", session.User.ID).Msg("Signed in")
	respondJSON(w, http.StatusOK, session)
}

// Confirm handles POST /api/v1/auth/confirm
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		respondError(w, "token is required", http.StatusBadRequest)
		return
	}

	if err := h.authService.Confirm(r.Context(), req.Token); err != nil {
		respondServiceError(w, err, "Failed to confirm email")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if err := h.authService.SignOut(r.Context(), claims); err != nil {
		respondServiceError(w, err, "Failed to sign out")
		return
	}

	if claims != nil {
		userID := claims.Identity.ID
		h.profiles.Invalidate(userID)
		if h.hub.Disconnect(userID) {
			log.Debug().Str("user_id", userID).Msg("Closed live feed on sign-out")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/v1/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":       claims.Identity,
		"expires_at": claims.ExpiresAt,
	})
}

// clientIP returns the remote host. Forwarded headers are only honoured when
// the router runs behind a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
