package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/repositories"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/events"
)

// ExpiryService reports on and discards expiring stock
type ExpiryService struct {
	log events.Log
}

// NewExpiryService creates an expiry service. log may be nil.
func NewExpiryService(log events.Log) *ExpiryService {
	return &ExpiryService{log: log}
}

// ExpiringUnits returns available units whose expiry date falls on or before
// asOf+within, soonest first
func (s *ExpiryService) ExpiringUnits(
	ctx context.Context,
	asOf time.Time,
	within time.Duration,
	stockRepo repositories.StockRepository,
) ([]entities.BloodStockUnit, error) {
	all, err := stockRepo.AllUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock units: %w", err)
	}

	horizon := asOf.Add(within)
	var expiring []entities.BloodStockUnit
	for _, unit := range all {
		if unit.Status != entities.Available {
			continue
		}
		if !unit.ExpiryDate.After(horizon) {
			expiring = append(expiring, unit)
		}
	}

	sort.Slice(expiring, func(i, j int) bool {
		return expiring[i].ExpiryDate.Before(expiring[j].ExpiryDate)
	})

	return expiring, nil
}

// DiscardExpired marks every available unit expired as of asOf as Discarded
// and returns how many were discarded
func (s *ExpiryService) DiscardExpired(
	ctx context.Context,
	asOf time.Time,
	stockRepo repositories.StockRepository,
) (int, error) {
	count, err := stockRepo.ExpireUnits(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to discard expired units: %w", err)
	}

	if s.log != nil && count > 0 {
		s.log.Append(events.Event{
			Type:     events.StockDiscarded,
			StreamID: "expiry",
			At:       asOf,
			Data:     events.StockDiscardedData{Count: count, AsOf: asOf},
		})
	}

	return count, nil
}
