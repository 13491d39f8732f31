package handlers

import (
	"net/http"

	"food-rescue-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterParams holds everything the HTTP API is built from. Metrics and DB
// are optional. TrustProxy makes client addresses come from X-Forwarded-For
// and X-Real-IP.
type RouterParams struct {
	Auth      *AuthHandler
	Profile   *ProfileHandler
	Donations *DonationHandler
	Stats     *StatsHandler
	WebSocket *WebSocketHandler

	Tokens   middleware.TokenValidator
	Profiles middleware.ProfileResolver
	DB       pinger
	Metrics  http.Handler

	TrustProxy bool
}

// NewRouter builds the chi router for the API.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	if p.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	if p.DB != nil {
		r.Get("/healthz", Healthz(p.DB))
	}
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", p.Auth.Register)
		r.Post("/auth/signin", p.Auth.SignIn)
		r.Post("/auth/confirm", p.Auth.Confirm)
		r.Get("/food-types", FoodTypes)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(p.Tokens))
			r.Post("/auth/signout", p.Auth.SignOut)
			r.Get("/auth/session", p.Auth.Session)

			r.Group(func(r chi.Router) {
				r.Use(middleware.ProfileMiddleware(p.Profiles))

				r.Get("/profile", p.Profile.GetProfile)
				r.Patch("/profile", p.Profile.UpdateProfile)
				r.Post("/profile/avatar", p.Profile.AvatarUploadURL)

				r.Get("/donations", p.Donations.ListDonations)
				r.Post("/donations", p.Donations.CreateDonation)
				r.Get("/donations/{donation_id}", p.Donations.GetDonation)
				r.Post("/donations/{donation_id}/accept", p.Donations.AcceptDonation)
				r.Post("/donations/{donation_id}/pickup", p.Donations.StartPickup)
				r.Post("/donations/{donation_id}/deliver", p.Donations.MarkDelivered)
				r.Post("/donations/{donation_id}/complete", p.Donations.ConfirmReceipt)

				r.Get("/stats/dashboard", p.Stats.Dashboard)
				r.Get("/stats/me", p.Stats.Me)
				r.Get("/stats/distribution", p.Stats.Distribution)
			})
		})
	})

	// WebSocket route
	r.Get("/ws", p.WebSocket.HandleWebSocket)

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
