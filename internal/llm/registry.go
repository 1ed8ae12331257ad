package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/soyeahso/yui/internal/config"
	"github.com/soyeahso/yui/internal/logging"
)

// ProviderError is returned when an LLM provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP-like status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry manages LLM provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Debug().Str("provider", name).Str("client", client.Name()).Msg("registered LLM provider")
}

// Alias maps a model name/alias to a provider.
// e.g., Alias("claude-3-5-sonnet-20240620", "claude") routes that model to the "claude" provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Direct provider name match
	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	// Alias lookup
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	// Fallback
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no LLM provider for model %q", model)
}

// ResolveModel is Resolve plus the model id to put on the request: a bare
// provider name maps to "" so the client uses its own default model.
func (r *Registry) ResolveModel(model string) (Client, string, error) {
	client, err := r.Resolve(model)
	if err != nil {
		return nil, "", err
	}
	r.mu.RLock()
	_, isProvider := r.clients[model]
	r.mu.RUnlock()
	if isProvider {
		return client, "", nil
	}
	return client, model, nil
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds a Registry from the configured providers. Each
// provider gets one client; each of its model ids becomes an alias for it.
// The default provider is the fallback for models nobody claims.
func NewRegistryFromConfig(cfg config.ModelsConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := cfg.Providers[name]
		client, err := newProviderClient(name, p)
		if err != nil {
			return nil, err
		}
		reg.Register(name, client)
		for _, m := range p.Models {
			reg.Alias(m.ID, name)
		}
	}

	if cfg.Default != "" {
		if _, ok := cfg.Providers[cfg.Default]; !ok {
			return nil, fmt.Errorf("default provider %q is not configured", cfg.Default)
		}
		reg.SetFallback(cfg.Default)
	}
	return reg, nil
}

// newProviderClient constructs the client for one provider entry.
func newProviderClient(name string, p config.ModelProviderEntry) (Client, error) {
	var model string
	if len(p.Models) > 0 {
		model = p.Models[0].ID
	}

	switch strings.ToLower(p.API) {
	case "anthropic-messages":
		return NewClaudeAPIClient(p.APIKey, model, p.BaseURL, p.Headers), nil
	case "openai-completions":
		return NewOpenAIClient(name, p.APIKey, model, p.BaseURL, p.Headers), nil
	case "ollama":
		return NewOllamaAPIClient(p.BaseURL, model), nil
	default:
		return nil, fmt.Errorf("provider %q: unsupported api %q", name, p.API)
	}
}
