package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ModeAll, cfg.Mode)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 5, cfg.Worker.MaxAttempts)
	require.Equal(t, 2*time.Second, cfg.Worker.BackoffBase)
	require.Equal(t, 4, cfg.Worker.Concurrency[jobs.KindQuestionSubmission])
	require.True(t, cfg.RunsAPI())
	require.True(t, cfg.RunsWorker())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("APP_MODE", "worker")
	t.Setenv("JOB_MAX_ATTEMPTS", "3")
	t.Setenv("JOB_BACKOFF_BASE", "250ms")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ModeWorker, cfg.Mode)
	require.False(t, cfg.RunsAPI())
	require.Equal(t, 3, cfg.Worker.MaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.Worker.BackoffBase)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	raw := []byte("http:\n  addr: \":9090\"\nworker:\n  concurrency:\n    streak_progress: 7\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), raw, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, 7, cfg.Worker.Concurrency[jobs.KindStreakProgress])
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("APP_MODE", "batch")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("APP_MODE", "api")
	t.Setenv("DB_DRIVER", "sqlite")
	_, err = LoadConfig()
	require.Error(t, err)
}
