package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// ProviderAPIs lists the provider wire formats the registry can build clients for.
var ProviderAPIs = []string{"anthropic-messages", "openai-completions", "ollama"}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if strings.TrimSpace(cfg.Contact.Name) == "" {
		issues = append(issues, ValidationIssue{
			Path:    "contact.name",
			Message: "contact name is required",
		})
	}

	// Agent validation
	if cfg.Agent.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxTokens",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Agent.MaxTokens),
		})
	}
	if cfg.Agent.SummaryMaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.summaryMaxTokens",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Agent.SummaryMaxTokens),
		})
	}
	if cfg.Agent.HistoryLimit < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.historyLimit",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Agent.HistoryLimit),
		})
	}
	if cfg.Agent.MaxPasses < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxPasses",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Agent.MaxPasses),
		})
	}
	if t := cfg.Agent.Temperature; t != nil && (*t < 0 || *t > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "agent.temperature",
			Message: fmt.Sprintf("must be 0-2, got %g", *t),
		})
	}
	if cfg.Agent.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Agent.Timezone); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "agent.timezone",
				Message: fmt.Sprintf("unknown time zone %q", cfg.Agent.Timezone),
			})
		}
	}

	// Model provider validation
	for name, p := range cfg.Models.Providers {
		if !slices.Contains(ProviderAPIs, p.API) {
			issues = append(issues, ValidationIssue{
				Path:    "models.providers." + name + ".api",
				Message: fmt.Sprintf("must be one of %v, got %q", ProviderAPIs, p.API),
			})
		}
		for i, m := range p.Models {
			if m.ID == "" {
				issues = append(issues, ValidationIssue{
					Path:    fmt.Sprintf("models.providers.%s.models[%d].id", name, i),
					Message: "model id is required",
				})
			}
		}
	}
	if cfg.Models.Default != "" && len(cfg.Models.Providers) > 0 {
		if _, ok := cfg.Models.Providers[cfg.Models.Default]; !ok {
			issues = append(issues, ValidationIssue{
				Path:    "models.default",
				Message: fmt.Sprintf("provider %q is not configured", cfg.Models.Default),
			})
		}
	}

	// Display validation
	if cfg.Display.Width < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "display.width",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Display.Width),
		})
	}
	if cfg.Display.Backlog < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "display.backlog",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Display.Backlog),
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	if cfg.Logging.ConsoleLevel != "" && !slices.Contains(validLogLevels, cfg.Logging.ConsoleLevel) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleLevel",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.ConsoleLevel),
		})
	}

	validConsoleStyles := []string{"pretty", "json", "off"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// Hooks validation
	hookSets := map[string][]HookEntry{
		"hooks.messageReceived": cfg.Hooks.MessageReceived,
		"hooks.messageSending":  cfg.Hooks.MessageSending,
		"hooks.factRemembered":  cfg.Hooks.FactRemembered,
		"hooks.topicChanged":    cfg.Hooks.TopicChanged,
		"hooks.turnCompleted":   cfg.Hooks.TurnCompleted,
	}
	for path, entries := range hookSets {
		for i, h := range entries {
			if strings.TrimSpace(h.Command) == "" {
				issues = append(issues, ValidationIssue{
					Path:    fmt.Sprintf("%s[%d].command", path, i),
					Message: "command is required",
				})
			}
			if h.Timeout < 0 {
				issues = append(issues, ValidationIssue{
					Path:    fmt.Sprintf("%s[%d].timeout", path, i),
					Message: fmt.Sprintf("must be positive, got %d", h.Timeout),
				})
			}
		}
	}

	return issues
}
