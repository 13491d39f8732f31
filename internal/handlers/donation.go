package handlers

import (
	"context"
	"net/http"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type donationService interface {
	Visible(viewer models.Viewer) []*models.Donation
	Get(id string) (*models.Donation, bool)
	Create(ctx context.Context, actor models.Viewer, input models.DonationInput) (*models.Donation, error)
	Accept(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error)
	StartPickup(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error)
	MarkDelivered(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error)
	ConfirmReceipt(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error)
}

type donationAction func(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error)

// DonationHandler handles donation requests
type DonationHandler struct {
	donations donationService
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(donations donationService) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// ListDonations handles GET /api/v1/donations. The list is filtered by the
// caller's role and optionally by ?status=.
func (h *DonationHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	list := h.donations.Visible(viewer)

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		filtered := list[:0]
		for _, d := range list {
			if d.Status == status {
				filtered = append(filtered, d)
			}
		}
		list = filtered
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"donations": list,
		"total":     len(list),
	})
}

// GetDonation handles GET /api/v1/donations/{donation_id}
func (h *DonationHandler) GetDonation(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	id := chi.URLParam(r, "donation_id")

	d, ok := h.donations.Get(id)
	if !ok || !services.VisibleTo(viewer, d) {
		respondServiceError(w, services.ErrDonationNotFound, "Failed to get donation")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// CreateDonation handles POST /api/v1/donations
func (h *DonationHandler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())

	var input models.DonationInput
	if !decodeJSON(w, r, &input) {
		return
	}

	d, err := h.donations.Create(r.Context(), viewer, input)
	if err != nil {
		respondServiceError(w, err, "Failed to create donation")
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

// AcceptDonation handles POST /api/v1/donations/{donation_id}/accept
func (h *DonationHandler) AcceptDonation(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "accept", h.donations.Accept)
}

// StartPickup handles POST /api/v1/donations/{donation_id}/pickup
func (h *DonationHandler) StartPickup(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "pickup", h.donations.StartPickup)
}

// MarkDelivered handles POST /api/v1/donations/{donation_id}/deliver
func (h *DonationHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "deliver", h.donations.MarkDelivered)
}

// ConfirmReceipt handles POST /api/v1/donations/{donation_id}/complete
func (h *DonationHandler) ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, "complete", h.donations.ConfirmReceipt)
}

func (h *DonationHandler) runAction(w http.ResponseWriter, r *http.Request, name string, action donationAction) {
	viewer := middleware.GetViewer(r.Context())
	id := chi.URLParam(r, "donation_id")
	if id == "" {
		respondError(w, "donation_id is required", http.StatusBadRequest)
		return
	}

	d, err := action(r.Context(), viewer, id)
	if err != nil {
		log.Warn().
			Err(err).
			Str("user_id", viewer.ID).
			Str("donation_id", id).
			Str("action", name).
			Msg("Donation action rejected")
		respondServiceError(w, err, "Failed to update donation")
		return
	}

	respondJSON(w, http.StatusOK, d)
}
