package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/soyeahso/yui/internal/llm"
	"github.com/soyeahso/yui/internal/logging"
)

// FailoverClient wraps an LLM registry to try fallback providers on failure.
// It satisfies llm.Client, so the runner and summarizer never see the registry.
type FailoverClient struct {
	registry *llm.Registry
	models   []string
	log      *logging.Logger
}

// NewFailoverClient creates a client that tries the primary model first,
// then falls back through the list on retryable errors (401, 429, 5xx).
// An empty primary resolves to the registry's fallback provider.
func NewFailoverClient(registry *llm.Registry, primary string, fallbacks []string, log *logging.Logger) *FailoverClient {
	models := []string{primary}
	for _, m := range fallbacks {
		if m != "" && m != primary {
			models = append(models, m)
		}
	}
	return &FailoverClient{
		registry: registry,
		models:   models,
		log:      log.Sub("failover"),
	}
}

// Name returns the client name.
func (f *FailoverClient) Name() string { return "failover" }

// Complete tries the primary provider, falling back on retryable errors.
// A model named in the request is tried before the primary. The request's
// Model is replaced by each candidate's resolved model in turn.
func (f *FailoverClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var lastErr error
	for _, model := range f.candidates(req.Model) {
		client, resolved, err := f.registry.ResolveModel(model)
		if err != nil {
			f.log.Debug().Str("model", model).Err(err).Msg("no provider for model, skipping")
			lastErr = err
			continue
		}

		req.Model = resolved
		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}

		if isRetryable(err) {
			f.log.Warn().
				Str("model", model).
				Str("provider", client.Name()).
				Err(err).
				Msg("retryable error, trying next provider")
			continue
		}

		// not worth trying another provider
		return nil, err
	}

	return nil, lastErr
}

// candidates returns the models to try, requested first, without repeats.
func (f *FailoverClient) candidates(requested string) []string {
	if requested == "" || requested == f.models[0] {
		return f.models
	}
	out := []string{requested}
	for _, m := range f.models {
		if m != requested {
			out = append(out, m)
		}
	}
	return out
}

// isRetryable checks if the error suggests trying another provider.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case 401, 403, 429, 500, 502, 503, 529:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout")
}
