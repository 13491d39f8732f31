package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-rescue-backend/internal/metrics"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/repository"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// profileStore is the subset of repository.UserRepository the resolver requires.
type profileStore interface {
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	Create(ctx context.Context, user *models.UserProfile) (*models.UserProfile, error)
	Update(ctx context.Context, id string, upd models.ProfileUpdate, at time.Time) (*models.UserProfile, error)
}

// Outcome says how a profile was resolved.
type Outcome string

const (
	// OutcomeFound means the profile already existed.
	OutcomeFound Outcome = "found"
	// OutcomeCreated means a default profile was created and stored.
	OutcomeCreated Outcome = "created"
	// OutcomeDegraded means storage failed and the profile was built from
	// the identity alone; it is not persisted.
	OutcomeDegraded Outcome = "degraded"
)

// Resolution is the result of resolving an identity to a profile.
type Resolution struct {
	Profile *models.UserProfile
	Outcome Outcome
	Reason  error
}

// Degraded reports whether the profile is a fallback that was not persisted.
func (r Resolution) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}

// ProfileResolver resolves authenticated identities to application profiles
// and caches them per identity.
type ProfileResolver struct {
	store   profileStore
	cache   *expirable.LRU[string, *models.UserProfile]
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewProfileResolver creates a new profile resolver
func NewProfileResolver(store profileStore, cacheSize int, cacheTTL time.Duration, m *metrics.Metrics) *ProfileResolver {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	return &ProfileResolver{
		store:   store,
		cache:   expirable.NewLRU[string, *models.UserProfile](cacheSize, nil, cacheTTL),
		metrics: m,
		now:     time.Now,
	}
}

// Resolve returns the profile for identity, creating a default one on first
// sign-in. It never fails: when storage is unavailable the result is a
// degraded profile built from the identity, which is not cached so the next
// call retries storage.
func (s *ProfileResolver) Resolve(ctx context.Context, identity models.Identity) Resolution {
	res := s.resolve(ctx, identity)
	s.metrics.ProfileResolved(string(res.Outcome))
	if res.Outcome != OutcomeDegraded {
		s.cache.Add(identity.ID, res.Profile)
	}
	res.Profile = cloneProfile(res.Profile)
	return res
}

func (s *ProfileResolver) resolve(ctx context.Context, identity models.Identity) Resolution {
	if cached, ok := s.cache.Get(identity.ID); ok {
		return Resolution{Profile: cached, Outcome: OutcomeFound}
	}

	profile, err := s.store.GetByID(ctx, identity.ID)
	if err == nil {
		return Resolution{Profile: withDisplayName(profile), Outcome: OutcomeFound}
	}

	fallback := s.defaultProfile(identity)
	if !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Str("user_id", identity.ID).Msg("Failed to fetch user profile")
		return Resolution{Profile: fallback, Outcome: OutcomeDegraded, Reason: err}
	}

	created, err := s.store.Create(ctx, fallback)
	if err == nil {
		log.Info().Str("user_id", identity.ID).Str("role", created.Role.String()).Msg("User profile created")
		return Resolution{Profile: withDisplayName(created), Outcome: OutcomeCreated}
	}

	if errors.Is(err, repository.ErrDuplicate) {
		// Another session created the row first.
		if existing, getErr := s.store.GetByID(ctx, identity.ID); getErr == nil {
			return Resolution{Profile: withDisplayName(existing), Outcome: OutcomeFound}
		}
	}

	log.Error().Err(err).Str("user_id", identity.ID).Msg("Profile creation error")
	return Resolution{Profile: fallback, Outcome: OutcomeDegraded, Reason: fmt.Errorf("create profile: %w", err)}
}

// UpdateProfile merges the provided fields into the stored profile. On
// failure the error is logged and the cached profile is returned unchanged
// with updated set to false.
func (s *ProfileResolver) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (profile *models.UserProfile, updated bool) {
	cached, _ := s.cache.Get(id)

	if upd.Role != nil && !upd.Role.IsValid() {
		log.Warn().Str("user_id", id).Str("role", upd.Role.String()).Msg("Ignoring profile update with unknown role")
		return cloneProfile(cached), false
	}
	if upd.IsEmpty() {
		return cloneProfile(cached), false
	}

	stored, err := s.store.Update(ctx, id, upd, s.now().UTC())
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("Error updating profile")
		return cloneProfile(cached), false
	}

	stored = withDisplayName(stored)
	s.cache.Add(id, stored)
	return cloneProfile(stored), true
}

// Invalidate drops the cached profile for id.
func (s *ProfileResolver) Invalidate(id string) {
	s.cache.Remove(id)
}

func (s *ProfileResolver) defaultProfile(identity models.Identity) *models.UserProfile {
	now := s.now().UTC()
	name := defaultFullName(identity)
	role, err := models.ParseRole(identity.Metadata.Role)
	if err != nil {
		role = models.DefaultRole
	}
	return &models.UserProfile{
		ID:          identity.ID,
		Email:       identity.Email,
		FullName:    name,
		DisplayName: name,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func defaultFullName(identity models.Identity) string {
	if name := strings.TrimSpace(identity.Metadata.FullName); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(identity.Email, "@"); local != "" {
		return local
	}
	return "User"
}

func withDisplayName(p *models.UserProfile) *models.UserProfile {
	if p != nil {
		p.DisplayName = p.FullName
	}
	return p
}

func cloneProfile(p *models.UserProfile) *models.UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
