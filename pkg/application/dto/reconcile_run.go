package dto

import (
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
)

// ReconcileRun contains the complete output of a batch reconciliation run
// over a stock catalog
type ReconcileRun struct {
	Request    entities.BloodRequest         `json:"request"`
	Report     entities.ReconciliationReport `json:"report"`
	Allocation *entities.AllocationResult    `json:"allocation,omitempty"`
	Elapsed    time.Duration                 `json:"elapsed_ns"`
}
