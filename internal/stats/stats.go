// Package stats derives dashboard and profile aggregates from a donation list.
// Every function is pure: the result depends only on its arguments.
package stats

import (
	"regexp"
	"strings"

	"food-rescue-backend/internal/models"

	"github.com/shopspring/decimal"
)

var leadingNumber = regexp.MustCompile(`^\s*(\d+(?:\.\d*)?|\.\d+)`)

// ParseWeight returns the leading decimal number of a free-text weight such
// as "5kg" or "2.5 lbs". Units are ignored; text without a leading number
// counts as zero.
func ParseWeight(s string) decimal.Decimal {
	m := leadingNumber.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(m[1], "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// TotalWeight sums the parsed weights of the given donations.
func TotalWeight(list []*models.Donation) decimal.Decimal {
	total := decimal.Zero
	for _, d := range list {
		total = total.Add(ParseWeight(d.FoodWeight))
	}
	return total
}

// TotalQuantity sums food quantities.
func TotalQuantity(list []*models.Donation) int {
	total := 0
	for _, d := range list {
		total += d.FoodQuantity
	}
	return total
}

// Filter returns the donations matching pred, preserving order.
func Filter(list []*models.Donation, pred func(*models.Donation) bool) []*models.Donation {
	out := make([]*models.Donation, 0, len(list))
	for _, d := range list {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}

// CountStatus counts donations in any of the given statuses.
func CountStatus(list []*models.Donation, statuses ...models.Status) int {
	n := 0
	for _, d := range list {
		for _, s := range statuses {
			if d.Status == s {
				n++
				break
			}
		}
	}
	return n
}

// ByStatus counts donations per status. Every known status is present.
func ByStatus(list []*models.Donation) map[models.Status]int {
	counts := make(map[models.Status]int, len(models.Statuses()))
	for _, s := range models.Statuses() {
		counts[s] = 0
	}
	for _, d := range list {
		counts[d.Status]++
	}
	return counts
}

// DistinctDonors counts distinct donor ids.
func DistinctDonors(list []*models.Donation) int {
	seen := make(map[string]struct{})
	for _, d := range list {
		seen[d.DonorID] = struct{}{}
	}
	return len(seen)
}

// DistinctVolunteers counts distinct assigned volunteer ids.
func DistinctVolunteers(list []*models.Donation) int {
	seen := make(map[string]struct{})
	for _, d := range list {
		if d.VolunteerID != nil && *d.VolunteerID != "" {
			seen[*d.VolunteerID] = struct{}{}
		}
	}
	return len(seen)
}

func roundedFloat(d decimal.Decimal) float64 {
	return d.Round(0).InexactFloat64()
}
