package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10.0, cfg.GridSize)
	assert.Equal(t, 30*time.Second, cfg.SaveInterval)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GRID_SIZE", "25")
	t.Setenv("SAVE_INTERVAL", "5s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", "https://plan.example.com, http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 25.0, cfg.GridSize)
	assert.Equal(t, 5*time.Second, cfg.SaveInterval)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, []string{"https://plan.example.com", "http://localhost:5173"}, cfg.Origins())
	assert.Equal(t, []string{"plan.example.com", "localhost:5173"}, cfg.OriginPatterns())
}

func TestLoadRejectsBadValue(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
}

func TestSlogLevelFallback(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
