package telemetry_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c2tools/sanctions/internal/setup/config"
	"github.com/c2tools/sanctions/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetLoggers(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	manager := telemetry.NewManager(logDir, &config.Debug{
		LogLevel:      "info",
		MaxLogsToKeep: 5,
		MaxLogLines:   100,
	}, "cli")
	t.Cleanup(func() { _ = manager.Close() })

	mainLogger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)

	mainLogger.Info("hello from main")
	dbLogger.Debug("filtered by level")
	dbLogger.Warn("hello from database")
	_ = mainLogger.Sync()
	_ = dbLogger.Sync()

	sessionDir := manager.GetCurrentSessionDir()
	assert.True(t, strings.HasSuffix(sessionDir, "_cli"))
	assert.NotEmpty(t, manager.GetInstanceID())

	mainLog, err := os.ReadFile(filepath.Join(sessionDir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(mainLog), "hello from main")
	assert.Contains(t, string(mainLog), manager.GetInstanceID())

	dbLog, err := os.ReadFile(filepath.Join(sessionDir, "database.log"))
	require.NoError(t, err)
	assert.Contains(t, string(dbLog), "hello from database")
	assert.NotContains(t, string(dbLog), "filtered by level")
}

func TestManager_RotatesSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"a", "b", "c"} {
		dir := filepath.Join(logDir, name)
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, os.Chtimes(dir, old, old))
		old = old.Add(time.Minute)
	}

	manager := telemetry.NewManager(logDir, &config.Debug{
		LogLevel:      "info",
		MaxLogsToKeep: 2,
		MaxLogLines:   100,
	}, "cli")
	t.Cleanup(func() { _ = manager.Close() })

	_, _, err := manager.GetLoggers()
	require.NoError(t, err)

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := []string{entries[0].Name(), entries[1].Name()}
	assert.Contains(t, names, "c")
	assert.Contains(t, names, filepath.Base(manager.GetCurrentSessionDir()))
}

func TestManager_InvalidLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(t.TempDir(), &config.Debug{
		LogLevel:      "loud",
		MaxLogsToKeep: 1,
		MaxLogLines:   10,
	}, "cli")

	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}
