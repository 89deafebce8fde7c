package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Blood-Donation-Software/bloodstock/pkg/interfaces/cli/commands"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool

	// reconcile flags
	stockFile    string
	requestsFile string
	outputDir    string
	format       string
	commit       bool
	asOf         string

	// serve flags
	configFile string
	listenAddr string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bloodstock",
	Short: "Blood bank stock reconciliation and allocation",
	Long: `bloodstock reconciles blood requests against the available stock catalog.

Each request names a blood type and a set of component requirements (whole
blood, red blood cells, plasma, platelets). Reconciliation reports, for each
requirement, the total matching volume on hand, the nearest expiry date, and
whether stock covers the requirement. Allocation plans concrete unit draws
in first-expiry-first-out order.`,
}

// reconcileCmd runs batch reconciliation from CSV files
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile requests against stock loaded from CSV files",
	Long: `Loads a stock catalog and a set of blood requests from CSV files and
reconciles each request in triage order (most urgent first, then earliest
needed-by date).

Exits non-zero when any request cannot be covered by the loaded stock.

Example:
  bloodstock reconcile --stock stock.csv --requests requests.csv --format text`,
	RunE: runReconcile,
}

// allocateCmd plans unit draws on top of reconciliation
var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Reconcile and plan first-expiry-first-out unit draws",
	Long: `Runs reconciliation and additionally plans which stock units each request
would draw from, earliest expiry first. With --commit the draws are applied
to the in-memory catalog so later requests see the reduced stock.

Example:
  bloodstock allocate --stock stock.csv --requests requests.csv --commit`,
	RunE: runAllocate,
}

// serveCmd runs the HTTP API server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the JSON HTTP API backed by the configured database driver
(sqlite or memory). Configuration is read from a YAML file and can be
overridden with BLOODSTOCK_* environment variables.

Example:
  bloodstock serve --config bloodstock.yaml --listen :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	for _, cmd := range []*cobra.Command{reconcileCmd, allocateCmd} {
		cmd.Flags().StringVar(&stockFile, "stock", "", "Stock catalog CSV file (required)")
		cmd.Flags().StringVar(&requestsFile, "requests", "", "Blood requests CSV file (required)")
		cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory")
		cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, or csv")
		cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date for expiry checks (YYYY-MM-DD, default today)")
	}
	allocateCmd.Flags().BoolVar(&commit, "commit", false, "Apply planned draws to the catalog")

	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(allocateCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, commands.ErrInsufficientStock) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	return execReconcile(cmd.Context(), false)
}

func runAllocate(cmd *cobra.Command, args []string) error {
	return execReconcile(cmd.Context(), true)
}

func execReconcile(ctx context.Context, withAllocation bool) error {
	command := commands.NewReconcileCommand(commands.Config{
		StockFile:    stockFile,
		RequestsFile: requestsFile,
		OutputDir:    outputDir,
		Format:       format,
		Verbose:      verbose,
		Allocate:     withAllocation,
		Commit:       commit,
		AsOf:         asOf,
	})
	return command.Execute(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := commands.NewServeCommand(commands.ServeConfig{
		ConfigFile: configFile,
		ListenAddr: listenAddr,
	})
	return command.Execute(ctx)
}
