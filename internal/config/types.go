package config

// Config is the root configuration for Yui.
type Config struct {
	Contact ContactConfig `yaml:"contact,omitempty"`
	Agent   AgentConfig   `yaml:"agent,omitempty"`
	Models  ModelsConfig  `yaml:"models,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Display DisplayConfig `yaml:"display,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Hooks   HooksConfig   `yaml:"hooks,omitempty"`
	Dev     DevConfig     `yaml:"dev,omitempty"`
}

// ContactConfig identifies the person Yui is talking to.
type ContactConfig struct {
	Name string `yaml:"name,omitempty"`
}

// AgentConfig controls the turn loop and prompt assembly.
type AgentConfig struct {
	Name             string   `yaml:"name,omitempty"`
	Model            string   `yaml:"model,omitempty"`     // model id or alias; empty uses the registry fallback
	Fallbacks        []string `yaml:"fallbacks,omitempty"` // tried in order on retryable provider errors
	MaxTokens        int      `yaml:"maxTokens,omitempty"`
	SummaryMaxTokens int      `yaml:"summaryMaxTokens,omitempty"`
	Temperature      *float64 `yaml:"temperature,omitempty"`
	HistoryLimit     int      `yaml:"historyLimit,omitempty"` // messages replayed per completion
	MaxPasses        int      `yaml:"maxPasses,omitempty"`    // completions per user turn
	Timezone         string   `yaml:"timezone,omitempty"`     // IANA name; empty = local
	ExtraPrompt      string   `yaml:"extraPrompt,omitempty"`
}

// ModelsConfig defines model providers and their models.
type ModelsConfig struct {
	Default   string                        `yaml:"default,omitempty"` // provider used when a model is not registered
	Providers map[string]ModelProviderEntry `yaml:"providers,omitempty"`
}

// ModelProviderEntry defines a model provider.
type ModelProviderEntry struct {
	BaseURL string                 `yaml:"baseUrl,omitempty"`
	APIKey  string                 `yaml:"apiKey,omitempty"`
	API     string                 `yaml:"api,omitempty"` // "anthropic-messages" | "openai-completions" | "ollama"
	Headers map[string]string      `yaml:"headers,omitempty"`
	Models  []ModelDefinitionEntry `yaml:"models,omitempty"`
}

// ModelDefinitionEntry defines a single model.
type ModelDefinitionEntry struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name,omitempty"`
	MaxTokens int    `yaml:"maxTokens,omitempty"`
}

// StoreConfig controls persistence.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // sqlite file; empty = <home>/data/yui.db
}

// DisplayConfig controls the terminal presentation.
type DisplayConfig struct {
	Width     int  `yaml:"width,omitempty"`
	Backlog   int  `yaml:"backlog,omitempty"`   // messages replayed when a chat starts
	ShowTools bool `yaml:"showTools,omitempty"` // print a notice when a fact is remembered or the topic changes
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleLevel string `yaml:"consoleLevel,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json" | "off"
}

// HooksConfig defines event hooks.
type HooksConfig struct {
	MessageReceived []HookEntry `yaml:"messageReceived,omitempty"`
	MessageSending  []HookEntry `yaml:"messageSending,omitempty"`
	FactRemembered  []HookEntry `yaml:"factRemembered,omitempty"`
	TopicChanged    []HookEntry `yaml:"topicChanged,omitempty"`
	TurnCompleted   []HookEntry `yaml:"turnCompleted,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}

// DevConfig holds developer conveniences.
type DevConfig struct {
	AutoRestart bool `yaml:"autoRestart,omitempty"`
}
