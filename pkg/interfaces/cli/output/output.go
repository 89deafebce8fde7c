package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/application/dto"
	"github.com/Blood-Donation-Software/bloodstock/pkg/application/services/shared"
)

// Config holds configuration for output generation
type Config struct {
	Format     string
	OutputDir  string
	Verbose    bool
	RunTime    time.Duration
	InputFiles map[string]string
}

// Generate creates output in the specified format
func Generate(runs []dto.ReconcileRun, config Config) error {
	switch config.Format {
	case "text":
		return generateTextOutput(runs, config)
	case "json":
		return generateJSONOutput(runs, config)
	case "csv":
		return generateCSVOutput(runs, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(runs []dto.ReconcileRun, config Config) error {
	fmt.Printf("🩸 Stock Reconciliation Summary\n")
	fmt.Printf("===============================\n\n")

	fmt.Printf("Requests: %d\n", len(runs))
	fmt.Printf("Run Time: %v\n\n", config.RunTime)

	for _, run := range runs {
		status := "⚠️  INSUFFICIENT"
		if run.Report.AllSufficient {
			status = "✅ SUFFICIENT"
		}
		fmt.Printf("📋 Request %s  [%s %s, needed by %s]  %s\n",
			run.Request.ID,
			run.Request.BloodType,
			run.Request.Urgency,
			run.Request.NeededBy.Format("2006-01-02"),
			status)

		fmt.Printf("%-18s %-12s %-12s %-14s %-10s\n",
			"Component", "Required", "Available", "Nearest Expiry", "Sufficient")
		fmt.Printf("%-18s %-12s %-12s %-14s %-10s\n",
			"------------------", "------------", "------------", "--------------", "----------")

		for _, row := range run.Report.Rows {
			expiry := "-"
			if row.NearestExpiry != nil {
				expiry = row.NearestExpiry.Format("2006-01-02")
			}
			fmt.Printf("%-18s %-12s %-12s %-14s %-10t\n",
				row.ComponentType,
				row.RequiredVolume,
				row.TotalAvailable,
				expiry,
				row.Sufficient)
		}

		availability := shared.NewAvailabilityMapFromReport(run.Request.BloodType, run.Report)
		fmt.Printf("Coverage: %.0f%%\n", availability.CoverageRatio()*100)

		if run.Allocation != nil {
			fmt.Printf("\n📦 Planned Draws:\n")
			for _, line := range run.Allocation.Lines {
				for _, draw := range line.Draws {
					fmt.Printf("  %s: %s ml from unit %s\n",
						line.ComponentType, draw.Volume, draw.UnitID)
				}
				if line.Shortfall.Sign() > 0 {
					fmt.Printf("  %s: short by %s ml\n", line.ComponentType, line.Shortfall)
				}
			}
		}
		fmt.Println()
	}

	if config.OutputDir != "" {
		if err := writeTextFile(runs, config); err != nil {
			return err
		}
	}

	return nil
}

func writeTextFile(runs []dto.ReconcileRun, config Config) error {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "reconciliation.json")
	jsonData, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	if config.Verbose {
		fmt.Printf("💾 Results saved to: %s\n", filename)
	}
	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(runs []dto.ReconcileRun, config Config) error {
	jsonData, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Println(string(jsonData))
		return nil
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "reconciliation.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	if config.Verbose {
		fmt.Printf("💾 JSON results saved to: %s\n", filename)
	}

	return nil
}

// generateCSVOutput creates CSV output
func generateCSVOutput(runs []dto.ReconcileRun, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rowsFile := filepath.Join(config.OutputDir, "reconciliation_rows.csv")
	if err := writeRowsCSV(runs, rowsFile); err != nil {
		return fmt.Errorf("failed to write reconciliation rows CSV: %w", err)
	}

	drawsFile := filepath.Join(config.OutputDir, "allocation_draws.csv")
	if err := writeDrawsCSV(runs, drawsFile); err != nil {
		return fmt.Errorf("failed to write allocation draws CSV: %w", err)
	}

	if config.Verbose {
		fmt.Printf("💾 CSV results saved to:\n")
		fmt.Printf("  Reconciliation Rows: %s\n", rowsFile)
		fmt.Printf("  Allocation Draws: %s\n", drawsFile)
	}

	return nil
}

func writeRowsCSV(runs []dto.ReconcileRun, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"request_id", "blood_type", "component_type",
		"required_volume", "total_available", "nearest_expiry", "sufficient",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, run := range runs {
		for _, row := range run.Report.Rows {
			expiry := ""
			if row.NearestExpiry != nil {
				expiry = row.NearestExpiry.Format("2006-01-02")
			}
			record := []string{
				run.Request.ID.String(),
				run.Request.BloodType.String(),
				row.ComponentType.String(),
				row.RequiredVolume.String(),
				row.TotalAvailable.String(),
				expiry,
				fmt.Sprintf("%t", row.Sufficient),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}

	return w.Error()
}

func writeDrawsCSV(runs []dto.ReconcileRun, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"request_id", "component_type", "unit_id", "volume", "fully_drawn"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, run := range runs {
		if run.Allocation == nil {
			continue
		}
		for _, line := range run.Allocation.Lines {
			for _, draw := range line.Draws {
				record := []string{
					run.Request.ID.String(),
					line.ComponentType.String(),
					draw.UnitID.String(),
					draw.Volume.String(),
					fmt.Sprintf("%t", draw.FullyDrawn),
				}
				if err := w.Write(record); err != nil {
					return err
				}
			}
		}
	}

	return w.Error()
}
