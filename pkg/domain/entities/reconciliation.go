package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationRow represents the availability breakdown for a single
// component requirement
type ReconciliationRow struct {
	ComponentType  ComponentType   `json:"component_type"`
	RequiredVolume decimal.Decimal `json:"required_volume"`
	TotalAvailable decimal.Decimal `json:"total_available"`
	NearestExpiry  *time.Time      `json:"nearest_expiry,omitempty"`
	Sufficient     bool            `json:"sufficient"`
}

// ReconciliationReport represents the full availability check for a blood
// request. Rows mirror the request's component order. AllSufficient is the
// AND over all rows and is vacuously true when Rows is empty; callers that
// need to distinguish "nothing to check" from "everything satisfied" must
// inspect Rows.
type ReconciliationReport struct {
	Rows          []ReconciliationRow `json:"rows"`
	AllSufficient bool                `json:"all_sufficient"`
}
