package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/yui/internal/agent"
	"github.com/soyeahso/yui/internal/domain"
	"github.com/soyeahso/yui/internal/hooks"
	"github.com/soyeahso/yui/internal/llm"
	"github.com/soyeahso/yui/internal/store"
)

var _ agent.Store = (*store.ChatStore)(nil)

// app is the wiring shared by the commands that talk to the model or the store.
type app struct {
	db      *store.DB        // nil when ephemeral
	chats   *store.ChatStore // nil when ephemeral
	store   agent.Store
	contact *domain.Contact
}

// openApp opens the configured database, or an in-memory store when
// ephemeral, and loads the contact.
func openApp(ephemeral bool) (*app, error) {
	a := &app{}
	if ephemeral {
		a.store = agent.NewMemoryStore()
	} else {
		db, err := store.Open(paths.DatabasePath(cfg.Store), log)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.db = db
		a.chats = store.NewChatStore(db)
		a.store = a.chats
	}

	contact, err := a.store.GetOrCreateContact(cfg.Contact.Name)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load contact: %w", err)
	}
	a.contact = contact
	return a, nil
}

// Close releases the database.
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// client builds the completion client for model, falling back through
// agent.fallbacks on retryable provider errors. An empty model resolves to
// the default provider.
func (a *app) client(model string) (llm.Client, error) {
	registry, err := llm.NewRegistryFromConfig(cfg.Models, log)
	if err != nil {
		return nil, err
	}
	return agent.NewFailoverClient(registry, model, cfg.Agent.Fallbacks, log), nil
}

func (a *app) summarizer(client llm.Client, model string) *agent.Summarizer {
	return agent.NewSummarizer(agent.SummarizerConfig{
		AgentName: cfg.Agent.Name,
		Model:     model,
		MaxTokens: cfg.Agent.SummaryMaxTokens,
	}, client, a.store, log)
}

// backfill summarizes closed conversations left without a summary.
func (a *app) backfill(ctx context.Context, s *agent.Summarizer) (int, error) {
	start := time.Now()
	n, err := s.Backfill(ctx, a.contact.ID)
	if n > 0 {
		log.Info().Int("count", n).Dur("duration", time.Since(start)).Msg("conversations summarized")
	}
	return n, err
}

// newHooks returns a manager with the shell-command hooks from config.
func newHooks() *hooks.Manager {
	hm := hooks.NewManager(log)
	if n := hooks.RegisterConfig(hm, cfg.Hooks); n > 0 {
		log.Debug().Int("count", n).Msg("command hooks registered")
	}
	return hm
}

func location() (*time.Location, error) {
	if cfg.Agent.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(cfg.Agent.Timezone)
	if err != nil {
		return nil, fmt.Errorf("agent.timezone: %w", err)
	}
	return loc, nil
}
