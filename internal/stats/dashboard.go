package stats

import (
	"food-rescue-backend/internal/models"
)

// Dashboard is the stats panel shown above the donation table.
type Dashboard struct {
	TotalDonations      int                   `json:"totalDonations"`
	TotalWeight         float64               `json:"totalWeight"`
	TotalVolunteers     int                   `json:"totalVolunteers"`
	TotalDonors         int                   `json:"totalDonors"`
	PendingRequests     int                   `json:"pendingRequests"`
	CompletedDeliveries int                   `json:"completedDeliveries"`
	ByStatus            map[models.Status]int `json:"byStatus"`

	Donor     *DonorBreakdown     `json:"donor,omitempty"`
	Volunteer *VolunteerBreakdown `json:"volunteer,omitempty"`
	Recipient *RecipientBreakdown `json:"recipient,omitempty"`
}

// DonorBreakdown covers the donations a donor created.
type DonorBreakdown struct {
	MyDonations          int     `json:"myDonations"`
	MyTotalWeight        float64 `json:"myTotalWeight"`
	MyPendingDonations   int     `json:"myPendingDonations"`
	MyCompletedDonations int     `json:"myCompletedDonations"`
}

// VolunteerBreakdown covers open donations and the volunteer's assignments.
type VolunteerBreakdown struct {
	MyAcceptedDonations int `json:"myAcceptedDonations"`
	AvailableDonations  int `json:"availableDonations"`
	MyDeliveries        int `json:"myDeliveries"`
	MyPendingDeliveries int `json:"myPendingDeliveries"`
}

// RecipientBreakdown covers food on its way to or at recipients.
type RecipientBreakdown struct {
	AvailableFood        int     `json:"availableFood"`
	TotalAvailableWeight float64 `json:"totalAvailableWeight"`
}

// NewDashboard computes the dashboard over the whole list plus the
// breakdown for the viewer's role.
func NewDashboard(list []*models.Donation, viewer models.Viewer) Dashboard {
	dash := Dashboard{
		TotalDonations:      len(list),
		TotalWeight:         roundedFloat(TotalWeight(list)),
		TotalVolunteers:     DistinctVolunteers(list),
		TotalDonors:         DistinctDonors(list),
		PendingRequests:     CountStatus(list, models.StatusPending),
		CompletedDeliveries: CountStatus(list, models.StatusDelivered, models.StatusCompleted),
		ByStatus:            ByStatus(list),
	}

	switch viewer.Role {
	case models.RoleDonor:
		mine := Filter(list, func(d *models.Donation) bool { return d.DonorID == viewer.ID })
		dash.Donor = &DonorBreakdown{
			MyDonations:          len(mine),
			MyTotalWeight:        roundedFloat(TotalWeight(mine)),
			MyPendingDonations:   CountStatus(mine, models.StatusPending),
			MyCompletedDonations: CountStatus(mine, models.StatusDelivered, models.StatusCompleted),
		}
	case models.RoleVolunteer:
		mine := Filter(list, func(d *models.Donation) bool { return d.AssignedTo(viewer.ID) })
		dash.Volunteer = &VolunteerBreakdown{
			MyAcceptedDonations: len(mine),
			AvailableDonations:  CountStatus(list, models.StatusPending),
			MyDeliveries:        CountStatus(mine, models.StatusDelivered, models.StatusCompleted),
			MyPendingDeliveries: CountStatus(mine, models.StatusAccepted, models.StatusInProgress),
		}
	case models.RoleRecipient:
		available := Filter(list, availableToRecipients)
		dash.Recipient = &RecipientBreakdown{
			AvailableFood:        len(available),
			TotalAvailableWeight: TotalWeight(available).InexactFloat64(),
		}
	}

	return dash
}

// Impact is the per-user summary shown on the profile page.
type Impact struct {
	TotalDonatedWeight float64 `json:"totalDonatedWeight"`
	TotalDonatedItems  int     `json:"totalDonatedItems"`
	TotalDeliveries    int     `json:"totalDeliveries"`
	TotalReceivedItems int     `json:"totalReceivedItems"`
}

// NewImpact computes the profile summary for the viewer's role.
func NewImpact(list []*models.Donation, viewer models.Viewer) Impact {
	switch viewer.Role {
	case models.RoleDonor:
		mine := Filter(list, func(d *models.Donation) bool { return d.DonorID == viewer.ID })
		return Impact{
			TotalDonatedWeight: roundedFloat(TotalWeight(mine)),
			TotalDonatedItems:  TotalQuantity(mine),
		}
	case models.RoleVolunteer:
		mine := Filter(list, func(d *models.Donation) bool { return d.AssignedTo(viewer.ID) })
		return Impact{
			TotalDonatedWeight: roundedFloat(TotalWeight(mine)),
			TotalDonatedItems:  TotalQuantity(mine),
			TotalDeliveries:    len(mine),
		}
	case models.RoleRecipient:
		return Impact{
			TotalReceivedItems: TotalQuantity(Filter(list, availableToRecipients)),
		}
	default:
		return Impact{}
	}
}

// availableToRecipients matches food that a volunteer has picked up for
// recipients but that has not been confirmed as received yet.
func availableToRecipients(d *models.Donation) bool {
	switch d.Status {
	case models.StatusAccepted, models.StatusInProgress, models.StatusDelivered:
		return true
	case models.StatusPending, models.StatusCompleted:
		return false
	default:
		return false
	}
}
