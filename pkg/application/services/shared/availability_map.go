package shared

import (
	"fmt"
	"strings"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/shopspring/decimal"
)

// Availability holds the stock position for one blood type / component type
// pair
type Availability struct {
	RequiredVolume  decimal.Decimal
	AvailableVolume decimal.Decimal
	Sufficient      bool
}

// AvailabilityMap indexes stock positions by blood type and component type
type AvailabilityMap map[string]*Availability

// NewAvailabilityMap creates a new empty availability map
func NewAvailabilityMap() AvailabilityMap {
	return make(AvailabilityMap)
}

// NewAvailabilityMapFromReport builds an availability map from a
// reconciliation report. Rows with the same component type are merged by
// summing both required and available volumes; the merged pair counts as
// sufficient only when the summed availability covers the summed requirement.
func NewAvailabilityMapFromReport(bloodType entities.BloodType, report entities.ReconciliationReport) AvailabilityMap {
	am := NewAvailabilityMap()
	for _, row := range report.Rows {
		key := am.makeKey(bloodType, row.ComponentType)
		entry, exists := am[key]
		if !exists {
			entry = &Availability{
				RequiredVolume:  decimal.Zero,
				AvailableVolume: row.TotalAvailable,
			}
			am[key] = entry
		}
		entry.RequiredVolume = entry.RequiredVolume.Add(row.RequiredVolume)
		entry.Sufficient = entry.AvailableVolume.GreaterThanOrEqual(entry.RequiredVolume)
	}
	return am
}

// Get retrieves the availability for a blood type and component type
func (am AvailabilityMap) Get(bloodType entities.BloodType, componentType entities.ComponentType) *Availability {
	return am[am.makeKey(bloodType, componentType)]
}

// Set stores the availability for a blood type and component type
func (am AvailabilityMap) Set(bloodType entities.BloodType, componentType entities.ComponentType, a *Availability) {
	am[am.makeKey(bloodType, componentType)] = a
}

// Has checks whether an entry exists for a blood type and component type
func (am AvailabilityMap) Has(bloodType entities.BloodType, componentType entities.ComponentType) bool {
	_, exists := am[am.makeKey(bloodType, componentType)]
	return exists
}

// Size returns the number of entries stored
func (am AvailabilityMap) Size() int {
	return len(am)
}

// BloodTypes returns all blood types that have at least one entry
func (am AvailabilityMap) BloodTypes() []entities.BloodType {
	seen := make(map[entities.BloodType]bool)
	for key := range am {
		if bloodType, _, ok := am.parseKey(key); ok {
			seen[bloodType] = true
		}
	}

	var bloodTypes []entities.BloodType
	for bt := range seen {
		bloodTypes = append(bloodTypes, bt)
	}
	return bloodTypes
}

// TotalRequired returns the summed required volume across all entries
func (am AvailabilityMap) TotalRequired() decimal.Decimal {
	total := decimal.Zero
	for _, a := range am {
		total = total.Add(a.RequiredVolume)
	}
	return total
}

// TotalAvailable returns the summed available volume across all entries
func (am AvailabilityMap) TotalAvailable() decimal.Decimal {
	total := decimal.Zero
	for _, a := range am {
		total = total.Add(a.AvailableVolume)
	}
	return total
}

// CoverageRatio returns available/required across all entries, capped at 1.0,
// or 0.0 when nothing is required
func (am AvailabilityMap) CoverageRatio() float64 {
	required := am.TotalRequired()
	if required.IsZero() {
		return 0.0
	}
	ratio, _ := am.TotalAvailable().Div(required).Float64()
	if ratio > 1.0 {
		return 1.0
	}
	return ratio
}

// makeKey creates a consistent key for blood type and component type
func (am AvailabilityMap) makeKey(bloodType entities.BloodType, componentType entities.ComponentType) string {
	return fmt.Sprintf("%s|%s", bloodType, componentType)
}

// parseKey splits a key back into its blood type and component type
func (am AvailabilityMap) parseKey(key string) (entities.BloodType, entities.ComponentType, bool) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	bloodType, err := entities.ParseBloodType(parts[0])
	if err != nil {
		return 0, 0, false
	}
	componentType, err := entities.ParseComponentType(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return bloodType, componentType, true
}
