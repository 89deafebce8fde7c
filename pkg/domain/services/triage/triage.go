// Package triage orders blood requests for fulfillment priority.
package triage

import (
	"sort"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
)

// Order returns the requests sorted for triage: Critical before Urgent
// before Normal, earliest needed-by date within an urgency level. The sort
// is stable, so requests tied on both keys keep their input order. The input
// slice is not modified.
func Order(requests []entities.BloodRequest) []entities.BloodRequest {
	ordered := make([]entities.BloodRequest, len(requests))
	copy(ordered, requests)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Urgency != ordered[j].Urgency {
			return ordered[i].Urgency > ordered[j].Urgency
		}
		return ordered[i].NeededBy.Before(ordered[j].NeededBy)
	})

	return ordered
}
