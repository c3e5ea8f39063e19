package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RoleConfig binds one specialist role to its prompt and model selection.
// The prompt text itself lives in internal/prompts; a non-empty Model here
// overrides the default model for that role.
type RoleConfig struct {
	Model string `yaml:"model"`
}

// ModelConfig selects the chat-model provider and its connection settings.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // openai, ollama, deepseek, ark
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	APIKey      string  `yaml:"-"` // from MODEL_API_KEY, never from file
}

// SandboxConfig holds the remote execution environment connection settings.
type SandboxConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIKey         string `yaml:"-"` // from SANDBOX_API_KEY
}

// WorkflowConfig bounds the orchestration loop.
type WorkflowConfig struct {
	NodeVisitLimit      int      `yaml:"node_visit_limit"`
	MaxSteps            int      `yaml:"max_steps"`
	ShellTimeoutSeconds int      `yaml:"shell_timeout_seconds"`
	ArtifactExtensions  []string `yaml:"artifact_extensions"`
	NotebookPath        string   `yaml:"notebook_path"`
	ArtifactDir         string   `yaml:"artifact_dir"`
	Cwd                 string   `yaml:"cwd"`
}

// RedisConfig holds the optional session snapshot store settings.
type RedisConfig struct {
	URL        string `yaml:"-"` // from REDIS_URL
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or console
	Output     string `yaml:"output"` // stdout, stderr, file
	FilePath   string `yaml:"file_path"`
	TimeFormat string `yaml:"time_format"`
}

// Config is the full application configuration.
type Config struct {
	Model    ModelConfig           `yaml:"model"`
	Roles    map[string]RoleConfig `yaml:"roles"`
	Sandbox  SandboxConfig         `yaml:"sandbox"`
	Workflow WorkflowConfig        `yaml:"workflow"`
	Redis    RedisConfig           `yaml:"redis"`
	Log      LogConfig             `yaml:"log"`
}

// Load reads configuration from a YAML file, applies defaults, and overlays
// secrets from the environment.
func Load(filepath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// Default returns the configuration used when no config file overrides it.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "openai",
			Model:       "openai/gpt-4o-mini",
			BaseURL:     "https://openrouter.ai/api/v1",
			MaxTokens:   2048,
			Temperature: 0.0,
		},
		Roles: map[string]RoleConfig{},
		Sandbox: SandboxConfig{
			TimeoutSeconds: 3600,
		},
		Workflow: WorkflowConfig{
			NodeVisitLimit:      50,
			MaxSteps:            1000,
			ShellTimeoutSeconds: 60,
			ArtifactExtensions: []string{
				".csv", ".xlsx", ".json", ".png", ".jpg", ".pdf", ".pkl", ".ipynb",
			},
			NotebookPath: "final_analysis.ipynb",
			ArtifactDir:  "artifacts",
			Cwd:          "/home/user",
		},
		Redis: RedisConfig{
			TTLSeconds: 3600,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			FilePath:   "logs/app.log",
			TimeFormat: "rfc3339",
		},
	}
}

// ApplyEnv overlays secrets and connection settings from the environment.
// Load calls it after parsing; callers running without a config file apply it
// on top of Default directly.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MODEL_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("SANDBOX_API_KEY"); v != "" {
		c.Sandbox.APIKey = v
	}
	if v := os.Getenv("SANDBOX_URL"); v != "" {
		c.Sandbox.BaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
}

// RoleModel resolves the model name for a role, falling back to the default.
func (c *Config) RoleModel(role string) string {
	if rc, ok := c.Roles[role]; ok && rc.Model != "" {
		return rc.Model
	}
	return c.Model.Model
}

// ShellTimeout returns the per-call shell command timeout.
func (c *Config) ShellTimeout() time.Duration {
	return time.Duration(c.Workflow.ShellTimeoutSeconds) * time.Second
}

// RedisTTL returns the session snapshot TTL.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
