package main

import (
	"fmt"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/application/services"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/services/reconciler"
	"github.com/shopspring/decimal"
)

func main() {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// An urgent request for A+ plasma and red blood cells
	request, err := entities.NewBloodRequest(
		entities.APositive,
		entities.Urgent,
		now.Add(48*time.Hour),
		[]entities.ComponentRequirement{
			{ComponentType: entities.Plasma, Volume: decimal.NewFromInt(300)},
			{ComponentType: entities.RedBloodCells, Volume: decimal.NewFromInt(450)},
		},
	)
	if err != nil {
		fmt.Printf("❌ Invalid request: %v\n", err)
		return
	}

	// The A+ stock catalog on hand
	catalog := buildCatalog(now)

	fmt.Println("🩸 Reconciling urgent A+ request...")
	fmt.Printf("Needed by: %s\n\n", request.NeededBy.Format("2006-01-02"))

	report := reconciler.Reconcile(*request, catalog)

	fmt.Println("📊 Reconciliation Report:")
	for _, row := range report.Rows {
		status := "⚠️  insufficient"
		if row.Sufficient {
			status = "✅ sufficient"
		}
		expiry := "none"
		if row.NearestExpiry != nil {
			expiry = row.NearestExpiry.Format("2006-01-02")
		}
		fmt.Printf("  %s: need %s ml, have %s ml (nearest expiry %s) %s\n",
			row.ComponentType, row.RequiredVolume, row.TotalAvailable, expiry, status)
	}
	fmt.Println()

	if !report.AllSufficient {
		fmt.Println("🚨 Stock cannot cover this request")
		return
	}

	// Plan concrete unit draws, earliest expiry first
	allocator := services.NewAllocationService(nil)
	plan := allocator.Plan(*request, catalog, now)

	fmt.Println("📦 Planned Draws (first expiry first):")
	for _, line := range plan.Lines {
		for _, draw := range line.Draws {
			fmt.Printf("  %s: %s ml from unit %s\n", line.ComponentType, draw.Volume, draw.UnitID)
		}
	}
	fmt.Printf("\nTotal allocated: %s ml\n", plan.TotalAllocated())
	fmt.Println("✅ Reconciliation complete!")
}

func buildCatalog(now time.Time) []entities.BloodStockUnit {
	mustUnit := func(ct entities.ComponentType, volume int64, expiresIn time.Duration) entities.BloodStockUnit {
		unit, err := entities.NewBloodStockUnit(ct, entities.APositive, decimal.NewFromInt(volume), now.Add(expiresIn))
		if err != nil {
			panic(err)
		}
		return *unit
	}

	return []entities.BloodStockUnit{
		mustUnit(entities.Plasma, 200, 10*24*time.Hour),
		mustUnit(entities.Plasma, 150, 3*24*time.Hour),
		mustUnit(entities.RedBloodCells, 450, 20*24*time.Hour),
		mustUnit(entities.Platelets, 50, 2*24*time.Hour),
	}
}
