package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, 50, cfg.Workflow.NodeVisitLimit)
	assert.Equal(t, 1000, cfg.Workflow.MaxSteps)
	assert.Equal(t, "final_analysis.ipynb", cfg.Workflow.NotebookPath)
	assert.Equal(t, "/home/user", cfg.Workflow.Cwd)
	assert.Contains(t, cfg.Workflow.ArtifactExtensions, ".csv")
	assert.Contains(t, cfg.Workflow.ArtifactExtensions, ".ipynb")
	assert.Equal(t, time.Minute, cfg.ShellTimeout())
	assert.Equal(t, time.Hour, cfg.RedisTTL())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  provider: ollama
  model: qwen2.5:14b
  base_url: http://localhost:11434
roles:
  supervisor:
    model: qwen2.5:32b
workflow:
  node_visit_limit: 10
  shell_timeout_seconds: 120
log:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, "qwen2.5:14b", cfg.Model.Model)
	assert.Equal(t, 10, cfg.Workflow.NodeVisitLimit)
	assert.Equal(t, 2*time.Minute, cfg.ShellTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 1000, cfg.Workflow.MaxSteps)
	assert.Equal(t, "final_analysis.ipynb", cfg.Workflow.NotebookPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadAppliesEnvSecrets(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "sk-model")
	t.Setenv("SANDBOX_API_KEY", "sk-sandbox")
	t.Setenv("SANDBOX_URL", "https://gateway.example.com")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  provider: openai\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-model", cfg.Model.APIKey)
	assert.Equal(t, "sk-sandbox", cfg.Sandbox.APIKey)
	assert.Equal(t, "https://gateway.example.com", cfg.Sandbox.BaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestApplyEnvOnDefaults(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "sk-model")
	t.Setenv("SANDBOX_URL", "https://gateway.example.com")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "sk-model", cfg.Model.APIKey)
	assert.Equal(t, "https://gateway.example.com", cfg.Sandbox.BaseURL)
}

func TestRoleModel(t *testing.T) {
	cfg := Default()
	cfg.Model.Model = "default-model"
	cfg.Roles = map[string]RoleConfig{
		"supervisor": {Model: "big-model"},
		"cleaner":    {},
	}

	assert.Equal(t, "big-model", cfg.RoleModel("supervisor"))
	assert.Equal(t, "default-model", cfg.RoleModel("cleaner"), "empty override falls back")
	assert.Equal(t, "default-model", cfg.RoleModel("eda"))
}
