package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/application/dto"
	"github.com/Blood-Donation-Software/bloodstock/pkg/application/services"
	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/entities"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/events"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/repositories/csv"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/repositories/memory"
	"github.com/Blood-Donation-Software/bloodstock/pkg/interfaces/cli/output"
	"github.com/google/uuid"
)

// ErrInsufficientStock signals that at least one request could not be covered
// by the loaded stock. The CLI maps it to a non-zero exit code.
var ErrInsufficientStock = errors.New("insufficient stock for one or more requests")

// Config holds configuration for the reconcile command
type Config struct {
	StockFile    string
	RequestsFile string
	OutputDir    string
	Format       string
	Verbose      bool
	Allocate     bool
	Commit       bool
	AsOf         string
}

// ReconcileCommand runs batch reconciliation of requests against a stock
// catalog loaded from CSV files
type ReconcileCommand struct {
	config Config
}

// NewReconcileCommand creates a new reconcile command with the given configuration
func NewReconcileCommand(config Config) *ReconcileCommand {
	return &ReconcileCommand{
		config: config,
	}
}

// Execute runs the reconcile command
func (c *ReconcileCommand) Execute(ctx context.Context) error {
	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	asOf, err := c.resolveAsOf()
	if err != nil {
		return err
	}

	if c.config.Verbose {
		fmt.Println("📂 Loading data from CSV files...")
	}

	csvLoader := csv.NewLoader()

	units, err := csvLoader.LoadStockUnits(c.config.StockFile)
	if err != nil {
		return fmt.Errorf("error loading stock units: %w", err)
	}

	requests, err := csvLoader.LoadRequests(c.config.RequestsFile)
	if err != nil {
		return fmt.Errorf("error loading requests: %w", err)
	}

	if c.config.Verbose {
		fmt.Printf("✅ Data loaded successfully:\n")
		fmt.Printf("  Stock Units: %d\n", len(units))
		fmt.Printf("  Requests: %d\n", len(requests))
		fmt.Println()
	}

	stockRepo := memory.NewStockRepository()
	if err := stockRepo.LoadUnits(ctx, units); err != nil {
		return fmt.Errorf("failed to load stock units into repository: %w", err)
	}

	requestRepo := memory.NewRequestRepository()
	for _, request := range requests {
		if err := requestRepo.SaveRequest(ctx, request); err != nil {
			return fmt.Errorf("failed to load request %s into repository: %w", request.ID, err)
		}
	}

	log := events.NewMemoryLog()
	reconService := services.NewReconciliationService()
	allocService := services.NewAllocationService(log)

	// Process in triage order so urgent requests draw stock first
	pending, err := requestRepo.PendingRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending requests: %w", err)
	}

	if c.config.Verbose {
		fmt.Println("🔄 Reconciling requests against stock...")
	}

	startTime := time.Now()
	runs := make([]dto.ReconcileRun, 0, len(pending))
	allSufficient := true

	for _, request := range pending {
		runStart := time.Now()

		_, report, err := reconService.ReconcileRequest(ctx, request.ID, requestRepo, stockRepo)
		if err != nil {
			return fmt.Errorf("error reconciling request %s: %w", request.ID, err)
		}

		run := dto.ReconcileRun{
			Request: request,
			Report:  *report,
		}

		if c.config.Allocate || c.config.Commit {
			run.Allocation, err = c.allocate(ctx, allocService, request.ID, asOf, requestRepo, stockRepo)
			if err != nil {
				return err
			}
		}

		run.Elapsed = time.Since(runStart)
		runs = append(runs, run)

		if !report.AllSufficient {
			allSufficient = false
		}
	}
	runTime := time.Since(startTime)

	if c.config.Verbose {
		fmt.Printf("✅ Reconciliation completed in %v\n\n", runTime)
	}

	outputConfig := output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		RunTime:   runTime,
		InputFiles: map[string]string{
			"Stock":    c.config.StockFile,
			"Requests": c.config.RequestsFile,
		},
	}

	if err := output.Generate(runs, outputConfig); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		fmt.Println("🏁 Reconciliation complete!")
	}

	if !allSufficient {
		return ErrInsufficientStock
	}
	return nil
}

func (c *ReconcileCommand) allocate(
	ctx context.Context,
	allocService *services.AllocationService,
	requestID uuid.UUID,
	asOf time.Time,
	requestRepo *memory.RequestRepository,
	stockRepo *memory.StockRepository,
) (*entities.AllocationResult, error) {
	if c.config.Commit {
		result, err := allocService.Commit(ctx, requestID, asOf, requestRepo, stockRepo)
		if errors.Is(err, services.ErrUnfulfillable) {
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error committing allocation for request %s: %w", requestID, err)
		}
		return result, nil
	}

	result, err := allocService.PlanForRequest(ctx, requestID, asOf, requestRepo, stockRepo)
	if err != nil {
		return nil, fmt.Errorf("error planning allocation for request %s: %w", requestID, err)
	}
	return result, nil
}

func (c *ReconcileCommand) validateInputs() error {
	if c.config.StockFile == "" {
		return fmt.Errorf("stock file is required")
	}
	if c.config.RequestsFile == "" {
		return fmt.Errorf("requests file is required")
	}
	if _, err := os.Stat(c.config.StockFile); err != nil {
		return fmt.Errorf("stock file not found: %s", c.config.StockFile)
	}
	if _, err := os.Stat(c.config.RequestsFile); err != nil {
		return fmt.Errorf("requests file not found: %s", c.config.RequestsFile)
	}

	switch c.config.Format {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("invalid format: %s (must be text, json, or csv)", c.config.Format)
	}

	return nil
}

func (c *ReconcileCommand) resolveAsOf() (time.Time, error) {
	if c.config.AsOf == "" {
		return time.Now(), nil
	}
	asOf, err := time.Parse("2006-01-02", c.config.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as-of date %q (want YYYY-MM-DD): %w", c.config.AsOf, err)
	}
	return asOf, nil
}
