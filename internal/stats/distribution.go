package stats

import (
	"strings"

	"food-rescue-backend/internal/models"
)

var palette = []string{"#ef4444", "#f97316", "#eab308", "#22c55e", "#3b82f6", "#8b5cf6", "#ec4899"}

var roleColors = map[models.Role]string{
	models.RoleDonor:     "#fbbf24",
	models.RoleVolunteer: "#06b6d4",
	models.RoleRecipient: "#f87171",
}

// Slice is one segment of a distribution chart.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// FoodTypeDistribution groups donations by food type, summing quantities.
// Slices keep the order in which each food type first appears.
func FoodTypeDistribution(list []*models.Donation) []Slice {
	index := make(map[string]int)
	slices := []Slice{}
	for _, d := range list {
		i, ok := index[d.FoodType]
		if !ok {
			i = len(slices)
			index[d.FoodType] = i
			slices = append(slices, Slice{Name: d.FoodType, Color: palette[i%len(palette)]})
		}
		slices[i].Value += d.FoodQuantity
	}
	return slices
}

// FoodTypeDistributionFor selects the donations relevant to the viewer before
// grouping them: donors see their own, volunteers their assignments and
// recipients what is available to them.
func FoodTypeDistributionFor(list []*models.Donation, viewer models.Viewer) []Slice {
	switch viewer.Role {
	case models.RoleDonor:
		return FoodTypeDistribution(Filter(list, func(d *models.Donation) bool { return d.DonorID == viewer.ID }))
	case models.RoleVolunteer:
		return FoodTypeDistribution(Filter(list, func(d *models.Donation) bool { return d.AssignedTo(viewer.ID) }))
	case models.RoleRecipient:
		return FoodTypeDistribution(Filter(list, availableToRecipients))
	default:
		return []Slice{}
	}
}

// RoleDistribution renders user counts per role, e.g. "Donors".
func RoleDistribution(counts map[models.Role]int) []Slice {
	slices := []Slice{}
	for _, role := range models.Roles() {
		n, ok := counts[role]
		if !ok {
			continue
		}
		slices = append(slices, Slice{
			Name:  pluralLabel(role),
			Value: n,
			Color: roleColors[role],
		})
	}
	return slices
}

func pluralLabel(role models.Role) string {
	s := role.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "s"
}
