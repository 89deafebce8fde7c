package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitDraw represents volume drawn from a specific stock unit
type UnitDraw struct {
	UnitID     uuid.UUID       `json:"unit_id"`
	Volume     decimal.Decimal `json:"volume"`
	FullyDrawn bool            `json:"fully_drawn"`
}

// AllocationLine represents the allocation outcome for a single component
// requirement
type AllocationLine struct {
	ComponentType   ComponentType   `json:"component_type"`
	RequiredVolume  decimal.Decimal `json:"required_volume"`
	AllocatedVolume decimal.Decimal `json:"allocated_volume"`
	Shortfall       decimal.Decimal `json:"shortfall"`
	Draws           []UnitDraw      `json:"draws"`
}

// AllocationResult represents a consumption-accounted allocation plan for a
// blood request. Unlike a ReconciliationReport, volume drawn for one line is
// never counted again for a later line.
type AllocationResult struct {
	RequestID uuid.UUID        `json:"request_id"`
	Lines     []AllocationLine `json:"lines"`
	Fulfilled bool             `json:"fulfilled"`
}

// TotalAllocated returns the volume drawn across all lines
func (r AllocationResult) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.AllocatedVolume)
	}
	return total
}
