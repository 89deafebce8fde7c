package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/repositories"
	"github.com/google/uuid"
)

// StockRepository provides in-memory stock storage
type StockRepository struct {
	mutex sync.RWMutex
	units []entities.BloodStockUnit
}

// NewStockRepository creates a new in-memory stock repository
func NewStockRepository() *StockRepository {
	return &StockRepository{}
}

// Verify interface compliance
var _ repositories.StockRepository = (*StockRepository)(nil)

// SaveUnit stores a new stock unit
func (r *StockRepository) SaveUnit(ctx context.Context, unit *entities.BloodStockUnit) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.units = append(r.units, *unit)
	return nil
}

// LoadUnits bulk-loads stock units
func (r *StockRepository) LoadUnits(ctx context.Context, units []*entities.BloodStockUnit) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, unit := range units {
		r.units = append(r.units, *unit)
	}
	return nil
}

// GetUnit returns a single unit by ID
func (r *StockRepository) GetUnit(ctx context.Context, id uuid.UUID) (*entities.BloodStockUnit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for i := range r.units {
		if r.units[i].ID == id {
			unit := r.units[i]
			return &unit, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// GetCatalog returns available units of the given blood type, across all
// component types, ordered by expiry date
func (r *StockRepository) GetCatalog(ctx context.Context, bloodType entities.BloodType) ([]entities.BloodStockUnit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var catalog []entities.BloodStockUnit
	for _, unit := range r.units {
		if unit.BloodType == bloodType && unit.Status == entities.Available {
			catalog = append(catalog, unit)
		}
	}
	sortByExpiry(catalog)

	return catalog, nil
}

// GetAvailableUnits returns available units matching both type filters,
// ordered by expiry date
func (r *StockRepository) GetAvailableUnits(ctx context.Context, bloodType entities.BloodType, componentType entities.ComponentType) ([]entities.BloodStockUnit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var matching []entities.BloodStockUnit
	for _, unit := range r.units {
		if unit.Matches(componentType, bloodType) && unit.Status == entities.Available {
			matching = append(matching, unit)
		}
	}
	sortByExpiry(matching)

	return matching, nil
}

// AllUnits returns every unit regardless of status
func (r *StockRepository) AllUnits(ctx context.Context) ([]entities.BloodStockUnit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	units := make([]entities.BloodStockUnit, len(r.units))
	copy(units, r.units)
	return units, nil
}

// CommitAllocation applies an allocation plan: fully drawn units become
// Reserved, partially drawn units have their volume reduced
func (r *StockRepository) CommitAllocation(ctx context.Context, result *entities.AllocationResult) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, line := range result.Lines {
		for _, draw := range line.Draws {
			unit := r.findLocked(draw.UnitID)
			if unit == nil {
				return repositories.ErrNotFound
			}
			unit.Volume = unit.Volume.Sub(draw.Volume)
			if unit.Volume.Sign() <= 0 {
				unit.Status = entities.Reserved
			}
		}
	}
	return nil
}

// ExpireUnits marks available units expired as of asOf as Discarded and
// returns how many were discarded
func (r *StockRepository) ExpireUnits(ctx context.Context, asOf time.Time) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	count := 0
	for i := range r.units {
		if r.units[i].Status == entities.Available && r.units[i].Expired(asOf) {
			r.units[i].Status = entities.Discarded
			count++
		}
	}
	return count, nil
}

func (r *StockRepository) findLocked(id uuid.UUID) *entities.BloodStockUnit {
	for i := range r.units {
		if r.units[i].ID == id {
			return &r.units[i]
		}
	}
	return nil
}

func sortByExpiry(units []entities.BloodStockUnit) {
	sort.Slice(units, func(i, j int) bool {
		return units[i].ExpiryDate.Before(units[j].ExpiryDate)
	})
}
