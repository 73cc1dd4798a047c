package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/c2tools/sanctions/internal/setup/telemetry/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sessionLayout names each per-run log directory.
const sessionLayout = "2006-01-02_15-04-05"

// Manager handles the creation of log files for one run of a component.
// Each run writes into its own timestamped session directory and only the
// most recent sessions are retained.
type Manager struct {
	instanceID        string
	componentName     string
	currentSessionDir string
	logDir            string
	level             string
	maxLogsToKeep     int
	maxLogLines       int
	mu                sync.Mutex
	rotators          []*logger.LogRotator
}

// NewManager creates a new Manager instance for the named component.
func NewManager(logDir string, debugCfg *config.Debug, componentName string) *Manager {
	return &Manager{
		instanceID:    uuid.New().String(),
		componentName: componentName,
		logDir:        logDir,
		level:         debugCfg.LogLevel,
		maxLogsToKeep: debugCfg.MaxLogsToKeep,
		maxLogLines:   debugCfg.MaxLogLines,
	}
}

// GetLoggers initializes the main and database loggers.
// Returns separate loggers for main application and database logging.
func (lm *Manager) GetLoggers() (*zap.Logger, *zap.Logger, error) {
	if err := lm.setupLogDirectories(); err != nil {
		return nil, nil, err
	}

	mainLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "main.log"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize main logger: %w", err)
	}

	dbLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "database.log"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database logger: %w", err)
	}

	fields := []zap.Field{
		zap.String("component", lm.componentName),
		zap.String("instance_id", lm.instanceID),
	}

	return mainLogger.With(fields...), dbLogger.With(fields...), nil
}

// GetCurrentSessionDir returns the session directory of this run.
func (lm *Manager) GetCurrentSessionDir() string {
	return lm.currentSessionDir
}

// GetInstanceID returns the unique identifier for this run.
func (lm *Manager) GetInstanceID() string {
	return lm.instanceID
}

// Close releases every log file opened by this manager.
func (lm *Manager) Close() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var firstErr error
	for _, rotator := range lm.rotators {
		if err := rotator.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	lm.rotators = nil

	return firstErr
}

// setupLogDirectories ensures the base directory exists, rotates old
// sessions and creates the session directory for this run.
func (lm *Manager) setupLogDirectories() error {
	if err := os.MkdirAll(lm.logDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Leave room for the session about to be created
	if err := lm.rotateLogSessions(max(lm.maxLogsToKeep-1, 0)); err != nil {
		return fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	name := fmt.Sprintf("%s_%s", time.Now().Format(sessionLayout), lm.componentName)
	lm.currentSessionDir = filepath.Join(lm.logDir, name)

	if err := os.MkdirAll(lm.currentSessionDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return nil
}

// initLogger creates a zap logger writing to a line-capped file. Errors are
// also recorded as OpenTelemetry spans.
func (lm *Manager) initLogger(path string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(lm.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	rotator := logger.NewLogRotator(file, lm.maxLogLines, path)

	lm.mu.Lock()
	lm.rotators = append(lm.rotators, rotator)
	lm.mu.Unlock()

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	fileCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zapLevel,
	)

	return zap.New(
		zapcore.NewTee(fileCore, NewCore(zapLevel)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// rotateLogSessions removes the oldest session directories until at most
// keep remain.
func (lm *Manager) rotateLogSessions(keep int) error {
	sessions, err := filepath.Glob(filepath.Join(lm.logDir, "*"))
	if err != nil {
		return err
	}

	if len(sessions) <= keep {
		return nil
	}

	modTimes := make(map[string]time.Time, len(sessions))
	for _, session := range sessions {
		info, err := os.Stat(session)
		if err != nil {
			return err
		}
		modTimes[session] = info.ModTime()
	}

	// Oldest first; names break ties since they start with a timestamp
	sort.Slice(sessions, func(i, j int) bool {
		ti, tj := modTimes[sessions[i]], modTimes[sessions[j]]
		if ti.Equal(tj) {
			return sessions[i] < sessions[j]
		}
		return ti.Before(tj)
	})

	for _, session := range sessions[:len(sessions)-keep] {
		if err := os.RemoveAll(session); err != nil {
			return err
		}
	}

	return nil
}
