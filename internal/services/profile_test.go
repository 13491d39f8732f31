package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"food-rescue-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(store *stubProfileStore) *ProfileResolver {
	r := NewProfileResolver(store, 16, time.Minute, nil)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestResolveCreatesProfileOnce(t *testing.T) {
	store := newStubProfileStore()
	r := newTestResolver(store)
	ctx := context.Background()
	id := models.Identity{
		ID:       "user-1",
		Email:    "amina@example.com",
		Metadata: models.IdentityMetadata{FullName: "Amina Khan", Role: "donor"},
	}

	first := r.Resolve(ctx, id)
	require.Equal(t, OutcomeCreated, first.Outcome)
	assert.NoError(t, first.Reason)
	assert.Equal(t, "Amina Khan", first.Profile.FullName)
	assert.Equal(t, "Amina Khan", first.Profile.DisplayName)
	assert.Equal(t, models.RoleDonor, first.Profile.Role)

	second := r.Resolve(ctx, id)
	assert.Equal(t, OutcomeFound, second.Outcome)
	assert.Equal(t, first.Profile.ID, second.Profile.ID)

	// a fresh resolver without the cache must hit the stored row
	third := newTestResolver(store).Resolve(ctx, id)
	assert.Equal(t, OutcomeFound, third.Outcome)
	assert.Equal(t, "Amina Khan", third.Profile.DisplayName)

	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 1, store.count())
}

func TestResolveDefaultName(t *testing.T) {
	tests := []struct {
		name     string
		identity models.Identity
		want     string
	}{
		{
			name:     "metadata name",
			identity: models.Identity{ID: "a", Email: "x@example.com", Metadata: models.IdentityMetadata{FullName: "Bilal"}},
			want:     "Bilal",
		},
		{
			name:     "email local part",
			identity: models.Identity{ID: "b", Email: "sara.ali@example.com"},
			want:     "sara.ali",
		},
		{
			name:     "no name or email",
			identity: models.Identity{ID: "c"},
			want:     "User",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestResolver(newStubProfileStore()).Resolve(context.Background(), tt.identity)
			require.Equal(t, OutcomeCreated, res.Outcome)
			assert.Equal(t, tt.want, res.Profile.FullName)
			assert.Equal(t, tt.want, res.Profile.DisplayName)
		})
	}
}

func TestResolveDefaultRole(t *testing.T) {
	for _, role := range []string{"", "admin", "Donor"} {
		res := newTestResolver(newStubProfileStore()).Resolve(context.Background(), models.Identity{
			ID:       "user-" + role,
			Email:    "r@example.com",
			Metadata: models.IdentityMetadata{Role: role},
		})
		assert.Equal(t, models.RoleRecipient, res.Profile.Role, "role %q", role)
	}

	res := newTestResolver(newStubProfileStore()).Resolve(context.Background(), models.Identity{
		ID:       "vol",
		Metadata: models.IdentityMetadata{Role: "volunteer"},
	})
	assert.Equal(t, models.RoleVolunteer, res.Profile.Role)
}

func TestResolveLookupFailureIsDegraded(t *testing.T) {
	store := newStubProfileStore()
	store.getErr = errors.New("connection refused")
	r := newTestResolver(store)
	id := models.Identity{ID: "user-1", Email: "omar@example.com"}

	res := r.Resolve(context.Background(), id)
	assert.True(t, res.Degraded())
	assert.ErrorIs(t, res.Reason, store.getErr)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "omar", res.Profile.FullName)
	assert.Equal(t, models.RoleRecipient, res.Profile.Role)
	assert.Equal(t, 0, store.createCalls)

	// degraded profiles are not cached
	store.getErr = nil
	res = r.Resolve(context.Background(), id)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, 2, store.getCalls)
}

func TestResolveCreateFailureIsDegraded(t *testing.T) {
	store := newStubProfileStore()
	store.createErr = errors.New("permission denied")

	res := newTestResolver(store).Resolve(context.Background(), models.Identity{
		ID:       "user-1",
		Email:    "hina@example.com",
		Metadata: models.IdentityMetadata{FullName: "Hina", Role: "volunteer"},
	})

	assert.Equal(t, OutcomeDegraded, res.Outcome)
	assert.ErrorIs(t, res.Reason, store.createErr)
	assert.Equal(t, "Hina", res.Profile.FullName)
	assert.Equal(t, models.RoleVolunteer, res.Profile.Role)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), res.Profile.CreatedAt)
	assert.Equal(t, 0, store.count())
}

// racingStore reports a missing row once, then finds the row another
// session inserted.
type racingStore struct {
	*stubProfileStore
	missed bool
}

func (s *racingStore) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	if !s.missed {
		s.missed = true
		_, err := s.stubProfileStore.GetByID(ctx, "missing")
		return nil, err
	}
	return s.stubProfileStore.GetByID(ctx, id)
}

func TestResolveDuplicateInsertReadsExisting(t *testing.T) {
	inner := newStubProfileStore()
	inner.put(&models.UserProfile{ID: "user-1", Email: "x@example.com", FullName: "First Writer", Role: models.RoleDonor})
	r := NewProfileResolver(&racingStore{stubProfileStore: inner}, 16, time.Minute, nil)

	res := r.Resolve(context.Background(), models.Identity{ID: "user-1", Email: "x@example.com"})
	assert.Equal(t, OutcomeFound, res.Outcome)
	assert.Equal(t, "First Writer", res.Profile.FullName)
	assert.Equal(t, models.RoleDonor, res.Profile.Role)
	assert.Equal(t, 1, inner.count())
}

func TestUpdateProfile(t *testing.T) {
	store := newStubProfileStore()
	r := newTestResolver(store)
	ctx := context.Background()
	res := r.Resolve(ctx, models.Identity{ID: "user-1", Email: "z@example.com"})
	require.Equal(t, OutcomeCreated, res.Outcome)

	volunteer := models.RoleVolunteer
	updated, ok := r.UpdateProfile(ctx, "user-1", models.ProfileUpdate{
		FullName:    models.StringPtr("Zain"),
		Role:        &volunteer,
		PhoneNumber: models.StringPtr("0300-1234567"),
	})
	require.True(t, ok)
	assert.Equal(t, "Zain", updated.FullName)
	assert.Equal(t, "Zain", updated.DisplayName)
	assert.Equal(t, models.RoleVolunteer, updated.Role)
	assert.Equal(t, "0300-1234567", *updated.PhoneNumber)

	calls := store.getCalls
	again := r.Resolve(ctx, models.Identity{ID: "user-1"})
	assert.Equal(t, "Zain", again.Profile.FullName)
	assert.Equal(t, calls, store.getCalls)
}

func TestUpdateProfileFailureKeepsCachedProfile(t *testing.T) {
	store := newStubProfileStore()
	r := newTestResolver(store)
	ctx := context.Background()
	r.Resolve(ctx, models.Identity{ID: "user-1", Email: "z@example.com"})

	store.updateErr = errors.New("timeout")
	profile, ok := r.UpdateProfile(ctx, "user-1", models.ProfileUpdate{FullName: models.StringPtr("Changed")})
	assert.False(t, ok)
	require.NotNil(t, profile)
	assert.Equal(t, "z", profile.FullName)

	bogus := models.Role("admin")
	profile, ok = r.UpdateProfile(ctx, "user-1", models.ProfileUpdate{Role: &bogus})
	assert.False(t, ok)
	assert.Equal(t, models.RoleRecipient, profile.Role)
}

func TestInvalidate(t *testing.T) {
	store := newStubProfileStore()
	r := newTestResolver(store)
	ctx := context.Background()
	id := models.Identity{ID: "user-1"}

	r.Resolve(ctx, id)
	r.Resolve(ctx, id)
	assert.Equal(t, 1, store.getCalls)

	r.Invalidate("user-1")

	res := r.Resolve(ctx, id)
	assert.Equal(t, OutcomeFound, res.Outcome)
	assert.Equal(t, 2, store.getCalls)
}
