package handlers

import (
	"context"
	"net/http"

	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/stats"
)

type donationLister interface {
	List() []*models.Donation
}

type roleCounter interface {
	CountByRole(ctx context.Context) (map[models.Role]int, error)
}

// StatsHandler serves the aggregate views derived from the live list
type StatsHandler struct {
	donations donationLister
	users     roleCounter
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(donations donationLister, users roleCounter) *StatsHandler {
	return &StatsHandler{
		donations: donations,
		users:     users,
	}
}

// DistributionResponse holds the chart data for the analytics view
type DistributionResponse struct {
	FoodTypes []stats.Slice `json:"foodTypes"`
	Roles     []stats.Slice `json:"roles,omitempty"`
}

// Dashboard handles GET /api/v1/stats/dashboard
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	respondJSON(w, http.StatusOK, stats.NewDashboard(h.donations.List(), viewer))
}

// Me handles GET /api/v1/stats/me
func (h *StatsHandler) Me(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	respondJSON(w, http.StatusOK, stats.NewImpact(h.donations.List(), viewer))
}

// Distribution handles GET /api/v1/stats/distribution. Volunteers also get
// the user count per role.
func (h *StatsHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := middleware.GetViewer(ctx)

	res := DistributionResponse{
		FoodTypes: stats.FoodTypeDistributionFor(h.donations.List(), viewer),
	}
	if viewer.Role == models.RoleVolunteer && h.users != nil {
		counts, err := h.users.CountByRole(ctx)
		if err != nil {
			respondServiceError(w, err, "Failed to load role distribution")
			return
		}
		res.Roles = stats.RoleDistribution(counts)
	}

	respondJSON(w, http.StatusOK, res)
}

// FoodTypes handles GET /api/v1/food-types
func FoodTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"food_types": models.FoodTypes})
}
