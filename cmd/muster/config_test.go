package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "./data/muster.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Workflow.StrictSteps)
	assert.Equal(t, 60*time.Second, cfg.Workflow.ExecutionTimeout)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, int64(64), cfg.Events.Buffer)
	assert.Empty(t, cfg.Seed.TemplatesFile)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  shutdown_timeout: 15s

database:
  dsn: "/tmp/test.db"

log:
  level: "debug"
  format: "text"

workflow:
  strict_steps: true
  execution_timeout: 5s

events:
  enabled: false
  buffer: 8

seed:
  templates_file: "/etc/muster/templates.yaml"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Workflow.StrictSteps)
	assert.Equal(t, 5*time.Second, cfg.Workflow.ExecutionTimeout)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, int64(8), cfg.Events.Buffer)
	assert.Equal(t, "/etc/muster/templates.yaml", cfg.Seed.TemplatesFile)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("MUSTER_SERVER_HOST", "192.168.1.1")
	t.Setenv("MUSTER_SERVER_PORT", "3000")
	t.Setenv("MUSTER_DATABASE_DSN", "/custom/path.db")
	t.Setenv("MUSTER_LOG_LEVEL", "warn")
	t.Setenv("MUSTER_WORKFLOW_STRICT_STEPS", "true")
	t.Setenv("MUSTER_WORKFLOW_EXECUTION_TIMEOUT", "2m")
	t.Setenv("MUSTER_EVENTS_ENABLED", "false")
	t.Setenv("MUSTER_SEED_TEMPLATES_FILE", "/seed.yaml")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Workflow.StrictSteps)
	assert.Equal(t, 2*time.Minute, cfg.Workflow.ExecutionTimeout)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "/seed.yaml", cfg.Seed.TemplatesFile)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("server:\n  port: 9000\n"), 0644))
	t.Setenv("MUSTER_SERVER_PORT", "9100")

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestLoadConfig_NegativeTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("MUSTER_WORKFLOW_EXECUTION_TIMEOUT", "-1s")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level  string
		format string
	}{
		{"debug", "json"},
		{"info", "text"},
		{"warn", "json"},
		{"error", "json"},
		{"invalid", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger := SetupLogger(&Config{Log: LogConfig{Level: tt.level, Format: tt.format}})
			assert.NotNil(t, logger)
		})
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
	}

	assert.Equal(t, "localhost:8080", cfg.Server.Address())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"MUSTER_SERVER_HOST",
		"MUSTER_SERVER_PORT",
		"MUSTER_DATABASE_DSN",
		"MUSTER_LOG_LEVEL",
		"MUSTER_LOG_FORMAT",
		"MUSTER_WORKFLOW_STRICT_STEPS",
		"MUSTER_WORKFLOW_EXECUTION_TIMEOUT",
		"MUSTER_EVENTS_ENABLED",
		"MUSTER_EVENTS_BUFFER",
		"MUSTER_SEED_TEMPLATES_FILE",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
