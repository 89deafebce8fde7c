package repositories

import (
	"context"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/google/uuid"
)

// StockRepository provides access to the blood bank's stock catalog
type StockRepository interface {
	// GetCatalog returns available units of the given blood type, across all
	// component types, ordered by expiry date
	GetCatalog(ctx context.Context, bloodType entities.BloodType) ([]entities.BloodStockUnit, error)

	// GetAvailableUnits returns available units matching both type filters,
	// ordered by expiry date
	GetAvailableUnits(ctx context.Context, bloodType entities.BloodType, componentType entities.ComponentType) ([]entities.BloodStockUnit, error)

	// GetUnit returns a single unit by ID
	GetUnit(ctx context.Context, id uuid.UUID) (*entities.BloodStockUnit, error)

	// SaveUnit stores a new stock unit
	SaveUnit(ctx context.Context, unit *entities.BloodStockUnit) error

	// LoadUnits bulk-loads stock units
	LoadUnits(ctx context.Context, units []*entities.BloodStockUnit) error

	// AllUnits returns every unit regardless of status
	AllUnits(ctx context.Context) ([]entities.BloodStockUnit, error)

	// CommitAllocation applies an allocation plan: fully drawn units become
	// Reserved, partially drawn units have their volume reduced
	CommitAllocation(ctx context.Context, result *entities.AllocationResult) error

	// ExpireUnits marks available units expired as of asOf as Discarded and
	// returns how many were discarded
	ExpireUnits(ctx context.Context, asOf time.Time) (int, error)
}
