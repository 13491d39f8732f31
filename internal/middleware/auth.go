package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	claimsKey  contextKey = "claims"
	profileKey contextKey = "profile"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*services.Claims, error)
}

// ProfileResolver maps an identity to its application profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, identity models.Identity) services.Resolution
}

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(r.Context(), parts[1])
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileMiddleware resolves the caller's profile. It must run after
// AuthMiddleware. A degraded profile is still attached so the request can
// proceed with defaults.
func ProfileMiddleware(resolver ProfileResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				respondError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			res := resolver.Resolve(r.Context(), claims.Identity)
			if res.Degraded() {
				log.Warn().Err(res.Reason).Str("user_id", claims.Identity.ID).Msg("Serving default profile")
			}

			ctx := context.WithValue(r.Context(), profileKey, res.Profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the validated token claims, or nil.
func GetClaims(ctx context.Context) *services.Claims {
	claims, _ := ctx.Value(claimsKey).(*services.Claims)
	return claims
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.Identity.ID
	}
	return ""
}

// GetProfile returns the caller's resolved profile, or nil.
func GetProfile(ctx context.Context) *models.UserProfile {
	profile, _ := ctx.Value(profileKey).(*models.UserProfile)
	return profile
}

// GetViewer returns the caller as a viewer for role filtering.
func GetViewer(ctx context.Context) models.Viewer {
	return models.ViewerOf(GetProfile(ctx))
}

// WithProfile attaches a profile to ctx.
func WithProfile(ctx context.Context, profile *models.UserProfile) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

// WithClaims attaches claims to ctx.
func WithClaims(ctx context.Context, claims *services.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
