package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/repositories"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnfulfillable is returned when an allocation cannot cover every
// component requirement of a request
var ErrUnfulfillable = errors.New("request cannot be fulfilled from current stock")

// AllocationService plans and commits stock allocations for blood requests.
//
// Unlike the reconciler, allocation is consumption-accounted: volume drawn
// for one requirement is never counted again for a later requirement, so two
// requirements for the same component type cannot both claim the same unit.
type AllocationService struct {
	log events.Log
}

// NewAllocationService creates an allocation service. log may be nil when no
// audit trail is wanted.
func NewAllocationService(log events.Log) *AllocationService {
	return &AllocationService{log: log}
}

// Plan computes a FEFO (first expiry, first out) allocation of the catalog
// against the request's components, in component order. Only Available,
// unexpired units matching both the component type and the request's blood
// type are drawn from. Units may be split across draws. Ties on expiry date
// break by unit ID so the plan is deterministic.
//
// Plan never mutates the catalog; it works on scratch copies of the
// remaining volumes.
func (s *AllocationService) Plan(request entities.BloodRequest, catalog []entities.BloodStockUnit, asOf time.Time) *entities.AllocationResult {
	// Scratch remaining volume per catalog unit, shared across requirements
	remaining := make([]decimal.Decimal, len(catalog))
	for i, unit := range catalog {
		remaining[i] = unit.Volume
	}

	// FEFO order over the whole catalog, computed once
	order := make([]int, len(catalog))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ua, ub := catalog[order[a]], catalog[order[b]]
		if !ua.ExpiryDate.Equal(ub.ExpiryDate) {
			return ua.ExpiryDate.Before(ub.ExpiryDate)
		}
		return ua.ID.String() < ub.ID.String()
	})

	result := &entities.AllocationResult{
		RequestID: request.ID,
		Lines:     make([]entities.AllocationLine, 0, len(request.Components)),
		Fulfilled: true,
	}

	for _, req := range request.Components {
		line := entities.AllocationLine{
			ComponentType:  req.ComponentType,
			RequiredVolume: req.Volume,
			Draws:          []entities.UnitDraw{},
		}
		needed := req.Volume

		for _, i := range order {
			if needed.Sign() <= 0 {
				break
			}
			unit := catalog[i]
			if unit.Status != entities.Available || unit.Expired(asOf) {
				continue
			}
			if !unit.Matches(req.ComponentType, request.BloodType) {
				continue
			}
			if remaining[i].Sign() <= 0 {
				continue
			}

			draw := decimal.Min(needed, remaining[i])
			remaining[i] = remaining[i].Sub(draw)
			needed = needed.Sub(draw)

			line.Draws = append(line.Draws, entities.UnitDraw{
				UnitID:     unit.ID,
				Volume:     draw,
				FullyDrawn: remaining[i].IsZero(),
			})
		}

		line.AllocatedVolume = req.Volume.Sub(decimal.Max(needed, decimal.Zero))
		line.Shortfall = decimal.Max(needed, decimal.Zero)
		if line.Shortfall.Sign() > 0 {
			result.Fulfilled = false
		}

		result.Lines = append(result.Lines, line)
	}

	return result
}

// PlanForRequest loads the request and its catalog and plans an allocation
func (s *AllocationService) PlanForRequest(
	ctx context.Context,
	requestID uuid.UUID,
	asOf time.Time,
	requestRepo repositories.RequestRepository,
	stockRepo repositories.StockRepository,
) (*entities.AllocationResult, error) {
	request, err := requestRepo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request %s: %w", requestID, err)
	}

	catalog, err := stockRepo.GetCatalog(ctx, request.BloodType)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock catalog for %s: %w", request.BloodType, err)
	}

	return s.Plan(*request, catalog, asOf), nil
}

// Commit plans an allocation and, when the plan covers every requirement,
// applies it to the stock repository: fully drawn units become Reserved and
// partially drawn units have their volume reduced. Returns ErrUnfulfillable
// without touching stock when the plan falls short.
func (s *AllocationService) Commit(
	ctx context.Context,
	requestID uuid.UUID,
	asOf time.Time,
	requestRepo repositories.RequestRepository,
	stockRepo repositories.StockRepository,
) (*entities.AllocationResult, error) {
	result, err := s.PlanForRequest(ctx, requestID, asOf, requestRepo, stockRepo)
	if err != nil {
		return nil, err
	}

	if !result.Fulfilled {
		return result, ErrUnfulfillable
	}

	if err := stockRepo.CommitAllocation(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to commit allocation for request %s: %w", requestID, err)
	}

	if s.log != nil {
		s.log.Append(events.Event{
			Type:     events.StockAllocated,
			StreamID: requestID.String(),
			At:       asOf,
			Data:     events.StockAllocatedData{Result: *result},
		})
	}

	return result, nil
}
