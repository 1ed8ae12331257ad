package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "some_user", cfg.Contact.Name)
	assert.Equal(t, "Yui", cfg.Agent.Name)
	assert.Equal(t, DefaultModel, cfg.Agent.Model)
	assert.Equal(t, 1500, cfg.Agent.SummaryMaxTokens)
	assert.Equal(t, 50, cfg.Agent.HistoryLimit)
	assert.Equal(t, 10, cfg.Agent.MaxPasses)
	assert.Equal(t, 10, cfg.Display.Backlog)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "warn", cfg.Logging.ConsoleLevel)
	assert.Equal(t, "claude", cfg.Models.Default)
	require.Contains(t, cfg.Models.Providers, "claude")
	assert.Equal(t, "anthropic-messages", cfg.Models.Providers["claude"].API)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "some_user", cfg.Contact.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
contact:
  name: ada
agent:
  maxPasses: 4
  timezone: Europe/Berlin
  fallbacks:
    - llama3
models:
  default: openai
  providers:
    openai:
      api: openai-completions
      baseUrl: https://api.openai.com/v1
      apiKey: sk-test
      models:
        - id: gpt-4o
    local:
      api: ollama
      baseUrl: http://localhost:11434
      models:
        - id: llama3
logging:
  level: debug
  consoleStyle: json
hooks:
  factRemembered:
    - command: notify-send fact
      timeout: 500
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ada", cfg.Contact.Name)
	assert.Equal(t, 4, cfg.Agent.MaxPasses)
	assert.Equal(t, "Europe/Berlin", cfg.Agent.Timezone)
	assert.Equal(t, []string{"llama3"}, cfg.Agent.Fallbacks)
	assert.Equal(t, "gpt-4o", cfg.Agent.Model, "model defaults to the default provider's first model")
	assert.Equal(t, 50, cfg.Agent.HistoryLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)

	require.Len(t, cfg.Models.Providers, 2)
	assert.NotContains(t, cfg.Models.Providers, "claude")
	assert.Equal(t, "sk-test", cfg.Models.Providers["openai"].APIKey)

	require.Len(t, cfg.Hooks.FactRemembered, 1)
	assert.Equal(t, 500, cfg.Hooks.FactRemembered[0].Timeout)
}

func TestLoadSingleProviderBecomesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
models:
  providers:
    local:
      api: ollama
      models:
        - id: llama3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Models.Default)
	assert.Equal(t, "llama3", cfg.Agent.Model)
	assert.Empty(t, Validate(&cfg))
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")

	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("YUI_LOG_LEVEL", "TRACE")
	t.Setenv("YUI_CONTACT", "grace")
	t.Setenv("YUI_MODEL", "claude-3-haiku-20240307")
	t.Setenv("YUI_DB_PATH", "/tmp/yui-test.db")
	t.Setenv("YUI_MAX_PASSES", "3")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "grace", cfg.Contact.Name)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.Agent.Model)
	assert.Equal(t, "/tmp/yui-test.db", cfg.Store.Path)
	assert.Equal(t, 3, cfg.Agent.MaxPasses)
}

func TestLoadExpandsAPIKey(t *testing.T) {
	t.Setenv("CLAUDE_API_KEY", "sk-ant-from-env")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-from-env", cfg.Models.Providers["claude"].APIKey)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("YUI_TEST_TOKEN", "abc")
	assert.Equal(t, "Bearer abc", expandEnvVars("Bearer ${YUI_TEST_TOKEN}"))
	assert.Equal(t, "${YUI_TEST_UNSET_VAR}", expandEnvVars("${YUI_TEST_UNSET_VAR}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"agent.model", []string{"agent", "model"}, false},
		{"models.providers.claude", []string{"models", "providers", "claude"}, false},
		{"", nil, true},
		{"a..b", nil, true},
		{"__proto__.x", nil, true},
		{"x.constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGetSetValueAtPath(t *testing.T) {
	root := map[string]any{
		"agent": map[string]any{
			"maxPasses": 10,
		},
	}

	val, ok := GetValueAtPath(root, []string{"agent", "maxPasses"})
	assert.True(t, ok)
	assert.Equal(t, 10, val)

	_, ok = GetValueAtPath(root, []string{"agent", "missing"})
	assert.False(t, ok)

	SetValueAtPath(root, []string{"agent", "maxPasses"}, 3)
	val, ok = GetValueAtPath(root, []string{"agent", "maxPasses"})
	assert.True(t, ok)
	assert.Equal(t, 3, val)

	SetValueAtPath(root, []string{"models", "providers", "local"}, "ollama")
	val, ok = GetValueAtPath(root, []string{"models", "providers", "local"})
	assert.True(t, ok)
	assert.Equal(t, "ollama", val)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"agent": map[string]any{
			"model":     "gpt-4o",
			"maxPasses": 10,
		},
	}

	ok := UnsetValueAtPath(root, []string{"agent", "model"})
	assert.True(t, ok)

	_, exists := GetValueAtPath(root, []string{"agent", "model"})
	assert.False(t, exists)

	val, exists := GetValueAtPath(root, []string{"agent", "maxPasses"})
	assert.True(t, exists)
	assert.Equal(t, 10, val)

	ok = UnsetValueAtPath(root, []string{"agent", "nonexistent"})
	assert.False(t, ok)
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw := map[string]any{
		"contact": map[string]any{
			"name": "ada",
		},
	}

	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)

	val, ok := GetValueAtPath(loaded, []string{"contact", "name"})
	assert.True(t, ok)
	assert.Equal(t, "ada", val)
}

func TestLoadRawEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.NotNil(t, raw)
	assert.Empty(t, raw)
}
