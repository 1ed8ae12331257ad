package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/yui/internal/domain"
	"github.com/soyeahso/yui/internal/hooks"
	"github.com/soyeahso/yui/internal/llm"
	"github.com/soyeahso/yui/internal/logging"
)

// ErrMissingArgument is returned when a tool call lacks a required input.
var ErrMissingArgument = errors.New("missing required tool argument")

// Tool names understood by the agent.
const (
	ToolRememberFact     = "remember_fact"
	ToolTopicChanged     = "topic_changed"
	ToolRequiresFollowUp = "requires_follow_up"
)

// Turn is the state shared by the runner and the tools during one user turn.
type Turn struct {
	Contact domain.Contact

	// Conversation is the current conversation. topic_changed replaces it.
	Conversation domain.Conversation

	// Trigger is the user message that started the turn.
	Trigger domain.Message

	// FollowUp asks the runner for another pass before yielding to the user.
	FollowUp bool
}

// Tool is a capability the model can invoke during a turn.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// InputSchema returns the JSON Schema for the tool's input.
	InputSchema() string

	// Handle performs the tool's side effect and returns the content of the
	// paired result record.
	Handle(ctx context.Context, call domain.ToolUse, turn *Turn) (string, error)
}

// ToolRegistry holds available tools in registration order.
type ToolRegistry struct {
	tools map[string]Tool
	order []string
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any tool with the same name.
func (r *ToolRegistry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns LLM-ready tool definitions for all registered tools.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

// DefaultTools returns the registry with remember_fact, topic_changed and
// requires_follow_up.
func DefaultTools(store Store, summarizer *Summarizer, hm *hooks.Manager, log *logging.Logger) *ToolRegistry {
	r := NewToolRegistry()
	r.Register(&RememberFactTool{store: store, hooks: hm, log: log.Sub("tool.remember_fact")})
	r.Register(&TopicChangedTool{store: store, summarizer: summarizer, hooks: hm, log: log.Sub("tool.topic_changed")})
	r.Register(FollowUpTool{})
	return r
}

// RememberFactTool appends a fact about the contact.
type RememberFactTool struct {
	store Store
	hooks *hooks.Manager
	log   *logging.Logger
}

func (t *RememberFactTool) Name() string { return ToolRememberFact }

func (t *RememberFactTool) Description() string {
	return "Remember a critical fact about the user. Use this sparingly, as there is a limit on how many facts you can remember. This should be used for critical information that the user has shared about themselves that is constant or invariant only."
}

func (t *RememberFactTool) InputSchema() string {
	return `{"type":"object","properties":{"fact":{"type":"string","description":"The fact to remember"}},"required":["fact"]}`
}

// Handle stores the fact and echoes it as the result. Facts are not deduplicated.
func (t *RememberFactTool) Handle(ctx context.Context, call domain.ToolUse, turn *Turn) (string, error) {
	raw, _ := call.Input["fact"].(string)
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: fact", ErrMissingArgument)
	}

	fact := domain.NewFact(turn.Contact.ID, text)
	if err := t.store.CreateFact(fact); err != nil {
		return "", fmt.Errorf("create fact: %w", err)
	}

	t.log.Info().Str("contact", turn.Contact.Name).Str("fact", text).Msg("fact remembered")
	t.hooks.Emit(ctx, hooks.EventFactRemembered, map[string]any{
		"contact": turn.Contact.Name,
		"factId":  fact.ID,
		"fact":    text,
	})
	return text, nil
}

// TopicChangedTool closes the current conversation and opens a new one.
type TopicChangedTool struct {
	store      Store
	summarizer *Summarizer
	hooks      *hooks.Manager
	log        *logging.Logger
}

func (t *TopicChangedTool) Name() string { return ToolTopicChanged }

func (t *TopicChangedTool) Description() string {
	return "The topic of the conversation has changed. This should be only at a natural break in the conversation, when the user has changed the topic of the conversation, or when you have lost track of the topic."
}

func (t *TopicChangedTool) InputSchema() string { return `{"type":"object"}` }

// Handle closes turn.Conversation, opens its successor and moves the turn's
// trigger message into it before the closed conversation is summarized, so the
// summary covers only what was said before the topic changed. Each step is
// durable before the next starts. A failed summary is logged and left for
// Summarizer.Backfill.
func (t *TopicChangedTool) Handle(ctx context.Context, _ domain.ToolUse, turn *Turn) (string, error) {
	prev := turn.Conversation
	prev.Close(time.Now())
	if err := t.store.UpdateConversation(prev); err != nil {
		return "", fmt.Errorf("close conversation: %w", err)
	}

	next, err := t.store.CreateConversation(turn.Contact.ID)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	turn.Conversation = *next

	trigger := turn.Trigger
	trigger.ConversationID = next.ID
	if err := t.store.UpdateMessage(trigger); err != nil {
		return "", fmt.Errorf("reassign message: %w", err)
	}
	turn.Trigger = trigger

	summary, err := t.summarizer.Summarize(ctx, prev)
	switch {
	case err != nil:
		t.log.Warn().Err(err).Str("conversation", prev.ID).Msg("summary failed, leaving it for backfill")
	case summary != "":
		prev.Summary = summary
		if err := t.store.UpdateConversation(prev); err != nil {
			return "", fmt.Errorf("store summary: %w", err)
		}
	}

	t.log.Info().
		Str("closed", prev.ID).
		Str("opened", next.ID).
		Bool("summarized", prev.HasSummary()).
		Msg("topic changed")
	t.hooks.Emit(ctx, hooks.EventTopicChanged, map[string]any{
		"contact":      turn.Contact.Name,
		"closed":       prev.ID,
		"conversation": next.ID,
		"summary":      prev.Summary,
	})
	return "", nil
}

// FollowUpTool asks for one more model pass before control returns to the user.
type FollowUpTool struct{}

func (FollowUpTool) Name() string { return ToolRequiresFollowUp }

func (FollowUpTool) Description() string {
	return "Use this when you want to send another message right after this one, without waiting for the user to reply. Split longer thoughts into several short messages, like texting."
}

func (FollowUpTool) InputSchema() string { return `{"type":"object"}` }

func (FollowUpTool) Handle(_ context.Context, _ domain.ToolUse, turn *Turn) (string, error) {
	turn.FollowUp = true
	return "", nil
}
