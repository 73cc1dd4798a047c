package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/c2tools/sanctions/internal/database"
	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/c2tools/sanctions/internal/setup/telemetry"
	"go.uber.org/zap"
)

// App bundles the dependencies shared by every command.
type App struct {
	Config     *config.Config     // Application configuration
	ConfigPath string             // Config file the settings came from
	Logger     *zap.Logger        // Main application logger
	DBLogger   *zap.Logger        // Database-specific logger
	DB         database.Client    // Database connection
	LogManager *telemetry.Manager // Log management system
}

// InitializeApp loads the configuration, starts logging and opens the
// database. An empty configPath searches the standard config locations.
func InitializeApp(ctx context.Context, configPath, logDir, component string) (*App, error) {
	cfg, usedPath, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(logDir, &cfg.Debug, component)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		_ = logManager.Close()
		return nil, err
	}

	logger.Info("Loaded configuration",
		zap.String("path", usedPath),
		zap.String("backend", string(cfg.Database.Type)))

	db, err := database.NewConnection(ctx, &cfg.Database, dbLogger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		_ = logManager.Close()

		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &App{
		Config:     cfg,
		ConfigPath: usedPath,
		Logger:     logger,
		DBLogger:   dbLogger.Named("database"),
		DB:         db,
		LogManager: logManager,
	}, nil
}

// Cleanup shuts down every component in reverse initialization order.
// Failures are logged so later components still get their cleanup attempt.
func (s *App) Cleanup() {
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	if err := s.LogManager.Close(); err != nil {
		log.Printf("Failed to close log files: %v", err)
	}
}
