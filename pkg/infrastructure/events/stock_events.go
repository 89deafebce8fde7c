package events

import (
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/google/uuid"
)

// StockReceivedData records the intake of a new stock unit
type StockReceivedData struct {
	Unit entities.BloodStockUnit `json:"unit"`
}

// StockAllocatedData records a committed allocation
type StockAllocatedData struct {
	Result entities.AllocationResult `json:"result"`
}

// StockDiscardedData records units discarded as expired
type StockDiscardedData struct {
	UnitIDs []uuid.UUID `json:"unit_ids,omitempty"`
	Count   int         `json:"count"`
	AsOf    time.Time   `json:"as_of"`
}

// RequestCreatedData records a newly authored blood request
type RequestCreatedData struct {
	Request entities.BloodRequest `json:"request"`
}
