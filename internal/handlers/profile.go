package handlers

import (
	"context"
	"net/http"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type profileUpdater interface {
	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.UserProfile, bool)
}

type avatarSigner interface {
	GetUploadURL(ctx context.Context, userID string, req services.AvatarUploadRequest) (*services.AvatarUploadResponse, error)
}

type viewerUpdater interface {
	UpdateViewer(viewer models.Viewer)
}

// ProfileHandler handles profile requests
type ProfileHandler struct {
	profiles profileUpdater
	avatars  avatarSigner
	hub      viewerUpdater
}

// NewProfileHandler creates a new profile handler. avatars and hub may be nil.
func NewProfileHandler(profiles profileUpdater, avatars avatarSigner, hub viewerUpdater) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		avatars:  avatars,
		hub:      hub,
	}
}

// GetProfile handles GET /api/v1/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfile(r.Context())
	if profile == nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /api/v1/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var upd models.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	if upd.IsEmpty() {
		respondError(w, "No fields to update", http.StatusBadRequest)
		return
	}
	if upd.Role != nil && !upd.Role.IsValid() {
		respondError(w, "role must be one of donor, volunteer, recipient", http.StatusBadRequest)
		return
	}
	if err := services.ValidateStruct(upd); err != nil {
		respondServiceError(w, err, "Failed to update profile")
		return
	}

	profile, updated := h.profiles.UpdateProfile(ctx, userID, upd)
	if !updated {
		respondError(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	log.Info().Str("user_id", userID).Str("role", profile.Role.String()).Msg("Profile updated")

	if h.hub != nil {
		h.hub.UpdateViewer(models.ViewerOf(profile))
	}
	respondJSON(w, http.StatusOK, profile)
}

// AvatarUploadURL handles POST /api/v1/profile/avatar
func (h *ProfileHandler) AvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if h.avatars == nil {
		respondServiceError(w, services.ErrUploadsDisabled, "Failed to generate upload URL")
		return
	}

	var req services.AvatarUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.avatars.GetUploadURL(ctx, userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to generate upload URL")
		return
	}

	log.Info().Str("user_id", userID).Msg("Avatar upload URL generated")
	respondJSON(w, http.StatusOK, res)
}
