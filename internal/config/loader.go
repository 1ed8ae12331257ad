package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so API keys can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	for name, provider := range cfg.Models.Providers {
		provider.APIKey = expandEnvVars(provider.APIKey)
		provider.BaseURL = expandEnvVars(provider.BaseURL)
		for k, v := range provider.Headers {
			provider.Headers[k] = expandEnvVars(v)
		}
		cfg.Models.Providers[name] = provider
	}
	for _, hooks := range cfg.Hooks.all() {
		for i := range hooks {
			hooks[i].Command = expandEnvVars(hooks[i].Command)
		}
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			expandSensitiveFields(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	// A providers block in the file replaces the built-in one rather than merging into it.
	cfg.Models.Providers = nil
	cfg.Agent.Model = ""
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file, creating its
// directory if needed.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Contact.Name == "" {
		cfg.Contact.Name = d.Contact.Name
	}
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = d.Agent.Name
	}
	if cfg.Agent.MaxTokens == 0 {
		cfg.Agent.MaxTokens = d.Agent.MaxTokens
	}
	if cfg.Agent.SummaryMaxTokens == 0 {
		cfg.Agent.SummaryMaxTokens = d.Agent.SummaryMaxTokens
	}
	if cfg.Agent.HistoryLimit == 0 {
		cfg.Agent.HistoryLimit = d.Agent.HistoryLimit
	}
	if cfg.Agent.MaxPasses == 0 {
		cfg.Agent.MaxPasses = d.Agent.MaxPasses
	}
	if len(cfg.Models.Providers) == 0 {
		cfg.Models.Providers = defaultProviders()
	}
	if _, ok := cfg.Models.Providers[cfg.Models.Default]; !ok && len(cfg.Models.Providers) == 1 {
		for name := range cfg.Models.Providers {
			cfg.Models.Default = name
		}
	}
	if cfg.Agent.Model == "" {
		if p, ok := cfg.Models.Providers[cfg.Models.Default]; ok && len(p.Models) > 0 {
			cfg.Agent.Model = p.Models[0].ID
		}
	}
	if cfg.Display.Width == 0 {
		cfg.Display.Width = d.Display.Width
	}
	if cfg.Display.Backlog == 0 {
		cfg.Display.Backlog = d.Display.Backlog
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.ConsoleLevel == "" {
		cfg.Logging.ConsoleLevel = d.Logging.ConsoleLevel
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = d.Logging.ConsoleStyle
	}
}

// applyEnvOverrides reads YUI_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("YUI_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("YUI_MODEL"); v != "" {
		cfg.Agent.Model = v
	}
	if v := os.Getenv("YUI_CONTACT"); v != "" {
		cfg.Contact.Name = v
	}
	if v := os.Getenv("YUI_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("YUI_TIMEZONE"); v != "" {
		cfg.Agent.Timezone = v
	}
	if v := os.Getenv("YUI_MAX_PASSES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Agent.MaxPasses = n
		}
	}
}

func (h HooksConfig) all() [][]HookEntry {
	return [][]HookEntry{h.MessageReceived, h.MessageSending, h.FactRemembered, h.TopicChanged, h.TurnCompleted}
}
