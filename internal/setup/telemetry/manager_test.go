package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalyx/affiliates/internal/setup/config"
	"github.com/robalyx/affiliates/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetLoggers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lm := telemetry.NewManager("sync", &config.Debug{
		LogLevel:      "info",
		LogDir:        dir,
		MaxLogsToKeep: 5,
		MaxLogLines:   100,
	}, false)

	mainLogger, dbLogger, err := lm.GetLoggers()
	require.NoError(t, err)

	mainLogger.Info("hello main")
	dbLogger.Debug("below level")
	require.NoError(t, lm.Stop())

	sessionDir := lm.GetCurrentSessionDir()
	assert.Equal(t, dir, filepath.Dir(sessionDir))
	assert.Contains(t, filepath.Base(sessionDir), "_sync_")
	assert.NotEmpty(t, lm.GetInstanceID())

	data, err := os.ReadFile(filepath.Join(sessionDir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello main")

	data, err = os.ReadFile(filepath.Join(sessionDir, "database.log"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestManager_InvalidLevel(t *testing.T) {
	t.Parallel()

	lm := telemetry.NewManager("sync", &config.Debug{LogLevel: "loud", LogDir: t.TempDir()}, false)

	_, _, err := lm.GetLoggers()
	require.Error(t, err)
}

func TestManager_RotatesSessions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	for i, name := range []string{"old", "middle", "new"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.Mkdir(path, 0o755))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	lm := telemetry.NewManager("sync", &config.Debug{LogLevel: "info", LogDir: dir, MaxLogsToKeep: 3}, false)
	_, _, err := lm.GetLoggers()
	require.NoError(t, err)
	require.NoError(t, lm.Stop())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	assert.Len(t, names, 3)
	assert.NotContains(t, names, "old")
	assert.Contains(t, names, "middle")
	assert.Contains(t, names, "new")
}
