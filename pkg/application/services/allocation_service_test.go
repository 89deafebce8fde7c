package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/events"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/repositories/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var asOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func stockUnit(t *testing.T, ct entities.ComponentType, bt entities.BloodType, volume int64, expiry time.Time) *entities.BloodStockUnit {
	t.Helper()
	unit, err := entities.NewBloodStockUnit(ct, bt, decimal.NewFromInt(volume), expiry)
	if err != nil {
		t.Fatalf("Failed to create unit: %v", err)
	}
	return unit
}

func bloodRequest(t *testing.T, bt entities.BloodType, components ...entities.ComponentRequirement) *entities.BloodRequest {
	t.Helper()
	request, err := entities.NewBloodRequest(bt, entities.Urgent, asOf.AddDate(0, 0, 7), components)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	return request
}

func need(ct entities.ComponentType, volume int64) entities.ComponentRequirement {
	return entities.ComponentRequirement{ComponentType: ct, Volume: decimal.NewFromInt(volume)}
}

func TestAllocationService_PlanDrawsEarliestExpiryFirst(t *testing.T) {
	svc := NewAllocationService(nil)

	late := *stockUnit(t, entities.Plasma, entities.APositive, 300, asOf.AddDate(0, 2, 0))
	early := *stockUnit(t, entities.Plasma, entities.APositive, 100, asOf.AddDate(0, 1, 0))
	catalog := []entities.BloodStockUnit{late, early}

	request := bloodRequest(t, entities.APositive, need(entities.Plasma, 150))
	result := svc.Plan(*request, catalog, asOf)

	if !result.Fulfilled {
		t.Fatal("Expected plan to be fulfilled")
	}
	line := result.Lines[0]
	if len(line.Draws) != 2 {
		t.Fatalf("Expected 2 draws, got %d", len(line.Draws))
	}
	if line.Draws[0].UnitID != early.ID {
		t.Error("Expected the earlier-expiring unit to be drawn first")
	}
	if !line.Draws[0].Volume.Equal(decimal.NewFromInt(100)) || !line.Draws[0].FullyDrawn {
		t.Errorf("Expected first draw to empty the early unit, got %s", line.Draws[0].Volume)
	}
	if !line.Draws[1].Volume.Equal(decimal.NewFromInt(50)) || line.Draws[1].FullyDrawn {
		t.Errorf("Expected second draw of 50 from the late unit, got %s", line.Draws[1].Volume)
	}
}

func TestAllocationService_PlanSkipsExpiredAndNonAvailable(t *testing.T) {
	svc := NewAllocationService(nil)

	expired := *stockUnit(t, entities.Plasma, entities.APositive, 500, asOf.AddDate(0, 0, -1))
	reserved := *stockUnit(t, entities.Plasma, entities.APositive, 500, asOf.AddDate(0, 1, 0))
	reserved.Status = entities.Reserved
	usable := *stockUnit(t, entities.Plasma, entities.APositive, 120, asOf.AddDate(0, 1, 0))
	catalog := []entities.BloodStockUnit{expired, reserved, usable}

	request := bloodRequest(t, entities.APositive, need(entities.Plasma, 200))
	result := svc.Plan(*request, catalog, asOf)

	if result.Fulfilled {
		t.Error("Expected shortfall when only 120ml is usable")
	}
	line := result.Lines[0]
	if !line.AllocatedVolume.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected 120 allocated, got %s", line.AllocatedVolume)
	}
	if !line.Shortfall.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected shortfall 80, got %s", line.Shortfall)
	}
	if len(line.Draws) != 1 || line.Draws[0].UnitID != usable.ID {
		t.Error("Expected a single draw from the usable unit")
	}
}

func TestAllocationService_PlanNeverDoubleCounts(t *testing.T) {
	svc := NewAllocationService(nil)

	catalog := []entities.BloodStockUnit{
		*stockUnit(t, entities.Plasma, entities.APositive, 200, asOf.AddDate(0, 1, 0)),
	}

	// Two requirements for the same component against a single 200ml unit:
	// the reconciler reports both rows sufficient, the allocator must not.
	request := bloodRequest(t, entities.APositive,
		need(entities.Plasma, 150),
		need(entities.Plasma, 150),
	)
	result := svc.Plan(*request, catalog, asOf)

	if result.Fulfilled {
		t.Error("Expected plan to be unfulfilled")
	}
	if !result.Lines[0].AllocatedVolume.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected first line fully allocated, got %s", result.Lines[0].AllocatedVolume)
	}
	if !result.Lines[1].AllocatedVolume.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected second line to get the remaining 50, got %s", result.Lines[1].AllocatedVolume)
	}
	if !result.Lines[1].Shortfall.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected second line shortfall 100, got %s", result.Lines[1].Shortfall)
	}
	if !result.TotalAllocated().Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected total allocated 200, got %s", result.TotalAllocated())
	}
}

func TestAllocationService_PlanEmptyComponentsVacuouslyFulfilled(t *testing.T) {
	svc := NewAllocationService(nil)

	request := bloodRequest(t, entities.APositive)
	result := svc.Plan(*request, nil, asOf)

	if !result.Fulfilled {
		t.Error("Expected vacuous fulfillment for empty component list")
	}
	if len(result.Lines) != 0 {
		t.Errorf("Expected no lines, got %d", len(result.Lines))
	}
}

func TestAllocationService_PlanDoesNotMutateCatalog(t *testing.T) {
	svc := NewAllocationService(nil)

	catalog := []entities.BloodStockUnit{
		*stockUnit(t, entities.Plasma, entities.APositive, 200, asOf.AddDate(0, 1, 0)),
	}
	request := bloodRequest(t, entities.APositive, need(entities.Plasma, 150))

	svc.Plan(*request, catalog, asOf)

	if !catalog[0].Volume.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected catalog volume unchanged, got %s", catalog[0].Volume)
	}
	if catalog[0].Status != entities.Available {
		t.Errorf("Expected catalog status unchanged, got %v", catalog[0].Status)
	}
}

func TestAllocationService_CommitAppliesDrawsAndLogs(t *testing.T) {
	ctx := context.Background()
	log := events.NewMemoryLog()
	svc := NewAllocationService(log)

	stockRepo := memory.NewStockRepository()
	requestRepo := memory.NewRequestRepository()

	unit := stockUnit(t, entities.Plasma, entities.APositive, 300, asOf.AddDate(0, 1, 0))
	if err := stockRepo.SaveUnit(ctx, unit); err != nil {
		t.Fatalf("SaveUnit failed: %v", err)
	}

	request := bloodRequest(t, entities.APositive, need(entities.Plasma, 200))
	if err := requestRepo.SaveRequest(ctx, request); err != nil {
		t.Fatalf("SaveRequest failed: %v", err)
	}

	result, err := svc.Commit(ctx, request.ID, asOf, requestRepo, stockRepo)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if !result.Fulfilled {
		t.Error("Expected fulfilled result")
	}

	got, _ := stockRepo.GetUnit(ctx, unit.ID)
	if !got.Volume.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected 100ml left in the unit, got %s", got.Volume)
	}

	stream := log.Stream(request.ID.String())
	if len(stream) != 1 || stream[0].Type != events.StockAllocated {
		t.Errorf("Expected one StockAllocated event, got %+v", stream)
	}
}

func TestAllocationService_CommitUnfulfillableLeavesStockUntouched(t *testing.T) {
	ctx := context.Background()
	svc := NewAllocationService(nil)

	stockRepo := memory.NewStockRepository()
	requestRepo := memory.NewRequestRepository()

	unit := stockUnit(t, entities.Plasma, entities.APositive, 100, asOf.AddDate(0, 1, 0))
	if err := stockRepo.SaveUnit(ctx, unit); err != nil {
		t.Fatalf("SaveUnit failed: %v", err)
	}

	request := bloodRequest(t, entities.APositive, need(entities.Plasma, 500))
	if err := requestRepo.SaveRequest(ctx, request); err != nil {
		t.Fatalf("SaveRequest failed: %v", err)
	}

	result, err := svc.Commit(ctx, request.ID, asOf, requestRepo, stockRepo)
	if !errors.Is(err, ErrUnfulfillable) {
		t.Fatalf("Expected ErrUnfulfillable, got %v", err)
	}
	if result == nil || result.Fulfilled {
		t.Error("Expected the unfulfilled plan to be returned alongside the error")
	}

	got, _ := stockRepo.GetUnit(ctx, unit.ID)
	if !got.Volume.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected stock untouched, got %s", got.Volume)
	}
}

func TestAllocationService_CommitUnknownRequest(t *testing.T) {
	ctx := context.Background()
	svc := NewAllocationService(nil)

	_, err := svc.Commit(ctx, uuid.New(), asOf, memory.NewRequestRepository(), memory.NewStockRepository())
	if err == nil {
		t.Error("Expected error for unknown request")
	}
}
