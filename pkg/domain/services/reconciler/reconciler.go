// Package reconciler computes whether the blood bank's current stock can
// satisfy a blood request, component by component.
//
// Reconcile is a pure function over in-memory data: it performs no I/O,
// mutates neither input, and is deterministic. Callers fetch the request and
// the stock catalog themselves and pass both in.
package reconciler

import (
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/shopspring/decimal"
)

// Reconcile produces one ReconciliationRow per component requirement, in the
// request's component order. For each requirement it sums the volume of
// catalog units matching both the requirement's component type and the
// request's blood type, and records the nearest expiry date among the
// matching units (nil when none match).
//
// The catalog need not be pre-filtered; units of other blood or component
// types are ignored. A requirement with zero or negative volume is trivially
// sufficient. AllSufficient is the AND over all rows and is vacuously true
// for a request with no components.
//
// Duplicate component types in the request produce independent rows, each
// summing the same catalog subset. Consumption-accounted fulfillability is
// the allocator's concern, not this function's.
func Reconcile(request entities.BloodRequest, catalog []entities.BloodStockUnit) entities.ReconciliationReport {
	report := entities.ReconciliationReport{
		Rows:          make([]entities.ReconciliationRow, 0, len(request.Components)),
		AllSufficient: true,
	}

	for _, req := range request.Components {
		row := reconcileComponent(req, request.BloodType, catalog)
		report.Rows = append(report.Rows, row)
		report.AllSufficient = report.AllSufficient && row.Sufficient
	}

	return report
}

// reconcileComponent computes the availability row for a single requirement
func reconcileComponent(req entities.ComponentRequirement, bloodType entities.BloodType, catalog []entities.BloodStockUnit) entities.ReconciliationRow {
	total := decimal.Zero
	var nearest *time.Time

	for _, unit := range catalog {
		if !unit.Matches(req.ComponentType, bloodType) {
			continue
		}
		total = total.Add(unit.Volume)
		if nearest == nil || unit.ExpiryDate.Before(*nearest) {
			expiry := unit.ExpiryDate
			nearest = &expiry
		}
	}

	return entities.ReconciliationRow{
		ComponentType:  req.ComponentType,
		RequiredVolume: req.Volume,
		TotalAvailable: total,
		NearestExpiry:  nearest,
		Sufficient:     total.GreaterThanOrEqual(req.Volume),
	}
}
