package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole("volunteer")
	require.NoError(t, err)
	assert.Equal(t, RoleVolunteer, role)

	_, err = ParseRole("admin")
	assert.Error(t, err)
	assert.False(t, Role("").IsValid())
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("cancelled")
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusAccepted},
		StatusAccepted:   {StatusInProgress, StatusDelivered},
		StatusInProgress: {StatusDelivered},
		StatusDelivered:  {StatusCompleted},
		StatusCompleted:  {},
	}

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestNoTransitionReturnsToPending(t *testing.T) {
	for _, from := range Statuses() {
		assert.False(t, CanTransition(from, StatusPending), "%s -> pending", from)
	}
}

func TestDonationClone(t *testing.T) {
	d := &Donation{ID: "d1", VolunteerID: StringPtr("v1")}
	c := d.Clone()
	*c.VolunteerID = "v2"

	assert.Equal(t, "v1", *d.VolunteerID)
	assert.True(t, d.AssignedTo("v1"))
	assert.False(t, d.AssignedTo(""))
}

func TestDonationEqual(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	d := &Donation{ID: "d1", Status: StatusAccepted, VolunteerID: StringPtr("v1"), UpdatedAt: at}

	same := d.Clone()
	same.UpdatedAt = at.In(time.FixedZone("PKT", 5*60*60))
	assert.True(t, d.Equal(same))

	other := d.Clone()
	other.VolunteerID = StringPtr("v2")
	assert.False(t, d.Equal(other))

	other = d.Clone()
	other.VolunteerID = nil
	assert.False(t, d.Equal(other))

	other = d.Clone()
	other.UpdatedAt = at.Add(time.Microsecond)
	assert.False(t, d.Equal(other))

	assert.False(t, d.Equal(nil))
}
