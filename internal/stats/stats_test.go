package stats

import (
	"testing"

	"food-rescue-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func donation(id, donor string, status models.Status, volunteer, foodType string, qty int, weight string) *models.Donation {
	d := &models.Donation{
		ID:           id,
		DonorID:      donor,
		Status:       status,
		FoodType:     foodType,
		FoodQuantity: qty,
		FoodWeight:   weight,
	}
	if volunteer != "" {
		d.VolunteerID = models.StringPtr(volunteer)
		d.VolunteerName = models.StringPtr("Vol " + volunteer)
	}
	return d
}

func sampleList() []*models.Donation {
	return []*models.Donation{
		donation("d1", "donor-a", models.StatusPending, "", "Fruits", 3, "5kg"),
		donation("d2", "donor-a", models.StatusAccepted, "vol-1", "Dairy", 2, "2.5 lbs"),
		donation("d3", "donor-b", models.StatusDelivered, "vol-1", "Fruits", 4, "abc"),
		donation("d4", "donor-b", models.StatusCompleted, "vol-2", "Meat", 1, "10 kg"),
		donation("d5", "donor-c", models.StatusInProgress, "vol-2", "Bread", 6, " 1.5kg"),
	}
}

func TestParseWeight(t *testing.T) {
	cases := map[string]string{
		"5kg":     "5",
		"2.5 lbs": "2.5",
		"abc":     "0",
		"":        "0",
		"  7 kg":  "7",
		".5kg":    "0.5",
		"3.":      "3",
		"kg 5":    "0",
		"12.75":   "12.75",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseWeight(in).String(), "input %q", in)
	}
}

func TestTotalWeightIsArithmeticSum(t *testing.T) {
	list := []*models.Donation{
		{FoodWeight: "5kg"},
		{FoodWeight: "2.5 lbs"},
		{FoodWeight: "abc"},
	}
	assert.Equal(t, "7.5", TotalWeight(list).String())
}

func TestNewDashboardTotals(t *testing.T) {
	dash := NewDashboard(sampleList(), models.Viewer{})

	assert.Equal(t, 5, dash.TotalDonations)
	assert.Equal(t, float64(19), dash.TotalWeight)
	assert.Equal(t, 3, dash.TotalDonors)
	assert.Equal(t, 2, dash.TotalVolunteers)
	assert.Equal(t, 1, dash.PendingRequests)
	assert.Equal(t, 2, dash.CompletedDeliveries)
	assert.Equal(t, 1, dash.ByStatus[models.StatusInProgress])
	assert.Len(t, dash.ByStatus, len(models.Statuses()))
	assert.Nil(t, dash.Donor)
	assert.Nil(t, dash.Volunteer)
	assert.Nil(t, dash.Recipient)
}

func TestNewDashboardDonorBreakdown(t *testing.T) {
	dash := NewDashboard(sampleList(), models.Viewer{ID: "donor-a", Role: models.RoleDonor})

	require.NotNil(t, dash.Donor)
	assert.Equal(t, 2, dash.Donor.MyDonations)
	assert.Equal(t, float64(8), dash.Donor.MyTotalWeight)
	assert.Equal(t, 1, dash.Donor.MyPendingDonations)
	assert.Equal(t, 0, dash.Donor.MyCompletedDonations)
}

func TestNewDashboardVolunteerBreakdown(t *testing.T) {
	dash := NewDashboard(sampleList(), models.Viewer{ID: "vol-2", Role: models.RoleVolunteer})

	require.NotNil(t, dash.Volunteer)
	assert.Equal(t, 2, dash.Volunteer.MyAcceptedDonations)
	assert.Equal(t, 1, dash.Volunteer.AvailableDonations)
	assert.Equal(t, 1, dash.Volunteer.MyDeliveries)
	assert.Equal(t, 1, dash.Volunteer.MyPendingDeliveries)
}

func TestNewDashboardRecipientBreakdown(t *testing.T) {
	dash := NewDashboard(sampleList(), models.Viewer{ID: "r", Role: models.RoleRecipient})

	require.NotNil(t, dash.Recipient)
	assert.Equal(t, 3, dash.Recipient.AvailableFood)
	assert.Equal(t, 4.0, dash.Recipient.TotalAvailableWeight)
}

func TestNewImpact(t *testing.T) {
	list := sampleList()

	donor := NewImpact(list, models.Viewer{ID: "donor-b", Role: models.RoleDonor})
	assert.Equal(t, Impact{TotalDonatedWeight: 10, TotalDonatedItems: 5}, donor)

	vol := NewImpact(list, models.Viewer{ID: "vol-1", Role: models.RoleVolunteer})
	assert.Equal(t, Impact{TotalDonatedWeight: 3, TotalDonatedItems: 6, TotalDeliveries: 2}, vol)

	rec := NewImpact(list, models.Viewer{ID: "r", Role: models.RoleRecipient})
	assert.Equal(t, Impact{TotalReceivedItems: 12}, rec)

	assert.Equal(t, Impact{}, NewImpact(list, models.Viewer{}))
}

func TestFoodTypeDistribution(t *testing.T) {
	slices := FoodTypeDistribution(sampleList())

	require.Len(t, slices, 4)
	assert.Equal(t, Slice{Name: "Fruits", Value: 7, Color: "#ef4444"}, slices[0])
	assert.Equal(t, Slice{Name: "Dairy", Value: 2, Color: "#f97316"}, slices[1])
	assert.Equal(t, "Meat", slices[2].Name)
	assert.Equal(t, "Bread", slices[3].Name)
}

func TestFoodTypeDistributionFor(t *testing.T) {
	list := sampleList()

	donor := FoodTypeDistributionFor(list, models.Viewer{ID: "donor-a", Role: models.RoleDonor})
	assert.Len(t, donor, 2)

	vol := FoodTypeDistributionFor(list, models.Viewer{ID: "vol-2", Role: models.RoleVolunteer})
	require.Len(t, vol, 2)
	assert.Equal(t, "Meat", vol[0].Name)

	assert.Empty(t, FoodTypeDistributionFor(list, models.Viewer{}))
}

func TestRoleDistribution(t *testing.T) {
	slices := RoleDistribution(map[models.Role]int{
		models.RoleVolunteer: 4,
		models.RoleDonor:     2,
	})

	require.Len(t, slices, 2)
	assert.Equal(t, Slice{Name: "Donors", Value: 2, Color: "#fbbf24"}, slices[0])
	assert.Equal(t, Slice{Name: "Volunteers", Value: 4, Color: "#06b6d4"}, slices[1])
}
