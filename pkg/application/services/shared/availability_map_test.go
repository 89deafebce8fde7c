package shared

import (
	"testing"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/shopspring/decimal"
)

func TestAvailabilityMap_BasicOperations(t *testing.T) {
	am := NewAvailabilityMap()
	if am.Size() != 0 {
		t.Errorf("Expected empty map, got size %d", am.Size())
	}

	entry := &Availability{
		RequiredVolume:  decimal.NewFromInt(250),
		AvailableVolume: decimal.NewFromInt(300),
		Sufficient:      true,
	}
	am.Set(entities.APositive, entities.Plasma, entry)

	retrieved := am.Get(entities.APositive, entities.Plasma)
	if retrieved == nil {
		t.Fatal("Expected to find availability entry")
	}
	if !retrieved.AvailableVolume.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected available 300, got %s", retrieved.AvailableVolume)
	}

	if !am.Has(entities.APositive, entities.Plasma) {
		t.Error("Expected Has to return true")
	}
	if am.Has(entities.ONegative, entities.Plasma) {
		t.Error("Expected Has to return false for absent pair")
	}
}

func TestAvailabilityMap_FromReport(t *testing.T) {
	report := entities.ReconciliationReport{
		Rows: []entities.ReconciliationRow{
			{
				ComponentType:  entities.Plasma,
				RequiredVolume: decimal.NewFromInt(150),
				TotalAvailable: decimal.NewFromInt(200),
				Sufficient:     true,
			},
			{
				ComponentType:  entities.Platelets,
				RequiredVolume: decimal.NewFromInt(100),
				TotalAvailable: decimal.NewFromInt(50),
				Sufficient:     false,
			},
		},
	}

	am := NewAvailabilityMapFromReport(entities.APositive, report)

	if am.Size() != 2 {
		t.Errorf("Expected 2 entries, got %d", am.Size())
	}
	if !am.TotalRequired().Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected total required 250, got %s", am.TotalRequired())
	}
	if !am.TotalAvailable().Equal(decimal.NewFromInt(250)) {
		t.Errorf("Expected total available 250, got %s", am.TotalAvailable())
	}

	bloodTypes := am.BloodTypes()
	if len(bloodTypes) != 1 || bloodTypes[0] != entities.APositive {
		t.Errorf("Expected blood types [A+], got %v", bloodTypes)
	}
}

func TestAvailabilityMap_FromReportMergesDuplicateComponents(t *testing.T) {
	// Two rows for the same component each see 200 available; merged they
	// require 300 against the same 200.
	report := entities.ReconciliationReport{
		Rows: []entities.ReconciliationRow{
			{
				ComponentType:  entities.Plasma,
				RequiredVolume: decimal.NewFromInt(150),
				TotalAvailable: decimal.NewFromInt(200),
				Sufficient:     true,
			},
			{
				ComponentType:  entities.Plasma,
				RequiredVolume: decimal.NewFromInt(150),
				TotalAvailable: decimal.NewFromInt(200),
				Sufficient:     true,
			},
		},
	}

	am := NewAvailabilityMapFromReport(entities.APositive, report)

	if am.Size() != 1 {
		t.Fatalf("Expected merged entry, got %d entries", am.Size())
	}
	entry := am.Get(entities.APositive, entities.Plasma)
	if !entry.RequiredVolume.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected merged requirement 300, got %s", entry.RequiredVolume)
	}
	if !entry.AvailableVolume.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected availability 200 counted once, got %s", entry.AvailableVolume)
	}
	if entry.Sufficient {
		t.Error("Expected merged entry to be insufficient")
	}
}

func TestAvailabilityMap_CoverageRatio(t *testing.T) {
	am := NewAvailabilityMap()

	if am.CoverageRatio() != 0.0 {
		t.Errorf("Expected 0.0 for empty map, got %f", am.CoverageRatio())
	}

	am.Set(entities.OPositive, entities.WholeBlood, &Availability{
		RequiredVolume:  decimal.NewFromInt(400),
		AvailableVolume: decimal.NewFromInt(100),
	})

	ratio := am.CoverageRatio()
	if ratio < 0.249 || ratio > 0.251 {
		t.Errorf("Expected coverage ~0.25, got %f", ratio)
	}

	am.Set(entities.OPositive, entities.Plasma, &Availability{
		RequiredVolume:  decimal.NewFromInt(100),
		AvailableVolume: decimal.NewFromInt(900),
	})

	if am.CoverageRatio() != 1.0 {
		t.Errorf("Expected coverage capped at 1.0, got %f", am.CoverageRatio())
	}
}
