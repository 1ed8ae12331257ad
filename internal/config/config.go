package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default model values used when no providers are configured.
const (
	DefaultProvider = "claude"
	DefaultModel    = "claude-3-5-sonnet-20240620"
	DefaultContact  = "some_user"
	DefaultAgent    = "Yui"
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{
		Contact: ContactConfig{
			Name: DefaultContact,
		},
		Agent: AgentConfig{
			Name:             DefaultAgent,
			Model:            DefaultModel,
			MaxTokens:        1024,
			SummaryMaxTokens: 1500,
			HistoryLimit:     50,
			MaxPasses:        10,
		},
		Models: ModelsConfig{
			Default: DefaultProvider,
		},
		Display: DisplayConfig{
			Width:   80,
			Backlog: 10,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleLevel: "warn",
			ConsoleStyle: "pretty",
		},
	}
	cfg.Models.Providers = defaultProviders()
	return cfg
}

func defaultProviders() map[string]ModelProviderEntry {
	return map[string]ModelProviderEntry{
		DefaultProvider: {
			API:    "anthropic-messages",
			APIKey: "${CLAUDE_API_KEY}",
			Models: []ModelDefinitionEntry{
				{ID: DefaultModel, Name: "Claude 3.5 Sonnet"},
			},
		},
	}
}
