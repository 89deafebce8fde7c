package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Blood-Donation-Software/bloodstock/pkg/domain/repositories"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/config"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/events"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/repositories/memory"
	"github.com/Blood-Donation-Software/bloodstock/pkg/infrastructure/repositories/sqlite"
	"github.com/Blood-Donation-Software/bloodstock/pkg/interfaces/httpapi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	ConfigFile string
	ListenAddr string
}

// ServeCommand runs the HTTP API server
type ServeCommand struct {
	config ServeConfig
}

// NewServeCommand creates a new serve command with the given configuration
func NewServeCommand(config ServeConfig) *ServeCommand {
	return &ServeCommand{
		config: config,
	}
}

// Execute runs the HTTP server until ctx is cancelled
func (c *ServeCommand) Execute(ctx context.Context) error {
	cfg, err := config.Load(c.config.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.config.ListenAddr != "" {
		cfg.Server.ListenAddr = c.config.ListenAddr
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	stockRepo, requestRepo, cleanup, err := openRepositories(cfg.Database)
	if err != nil {
		return err
	}
	defer cleanup()

	server := httpapi.New(stockRepo, requestRepo, events.NewMemoryLog(), logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      server,
		ReadTimeout:  parseDuration(cfg.Server.ReadTimeout, 10*time.Second),
		WriteTimeout: parseDuration(cfg.Server.WriteTimeout, 30*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Server.ListenAddr),
			zap.String("driver", cfg.Database.Driver))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		parseDuration(cfg.Server.ShutdownTimeout, 15*time.Second),
	)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

func openRepositories(cfg config.DatabaseConfig) (repositories.StockRepository, repositories.RequestRepository, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
		}
		return store, store, func() { store.Close() }, nil
	case "memory":
		return memory.NewStockRepository(), memory.NewRequestRepository(), func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// parseDuration tolerates bad config values by falling back to a default
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
