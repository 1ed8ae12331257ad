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

// ErrPassLimit is returned when a turn reaches the pass limit without the
// model producing a reply that ends it.
var ErrPassLimit = errors.New("agent: pass limit reached")

const (
	defaultHistoryLimit = 50
	defaultMaxPasses    = 10
)

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	AgentName    string
	Model        string
	MaxTokens    int
	Temperature  *float64
	HistoryLimit int // messages replayed per completion; default 50
	MaxPasses    int // completions per turn; default 10
	Location     *time.Location
	ExtraPrompt  string
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	// Conversation is the current conversation once the turn ends.
	Conversation domain.Conversation `json:"conversation"`

	// Replies are the assistant chat messages persisted during the turn.
	Replies []domain.Message `json:"replies"`

	Passes   int           `json:"passes"`
	Usage    llm.Usage     `json:"usage"`
	Duration time.Duration `json:"duration"`
}

// Runner is the agent orchestration loop.
// It persists the user's message, calls the model until it has said something
// and asked for nothing more, and carries out the tools the model invokes.
// A Runner must not run concurrent turns for the same contact.
type Runner struct {
	cfg       RunnerConfig
	client    llm.Client
	store     Store
	tools     *ToolRegistry
	presenter Presenter
	hooks     *hooks.Manager
	log       *logging.Logger
}

// NewRunner creates an agent runner. presenter and hm may be nil.
func NewRunner(
	cfg RunnerConfig,
	client llm.Client,
	store Store,
	tools *ToolRegistry,
	presenter Presenter,
	hm *hooks.Manager,
	log *logging.Logger,
) *Runner {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = defaultMaxPasses
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Runner{
		cfg:       cfg,
		client:    client,
		store:     store,
		tools:     tools,
		presenter: presenter,
		hooks:     hm,
		log:       log.Sub("agent"),
	}
}

// RunTurn handles one user utterance. It returns once the model has produced
// at least one reply and requested no follow-up in the same pass. On error the
// turn stops where it is; everything persisted so far stays valid.
func (r *Runner) RunTurn(ctx context.Context, contact domain.Contact, text string) (*TurnResult, error) {
	start := time.Now()

	conv, err := r.currentConversation(contact.ID)
	if err != nil {
		return nil, err
	}

	user := domain.NewChatMessage(domain.RoleUser, text, contact.ID, conv.ID)
	if err := r.store.CreateMessage(user); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	r.present(user)
	r.hooks.Emit(ctx, hooks.EventMessageReceived, map[string]any{
		"contact":      contact.Name,
		"conversation": conv.ID,
		"content":      text,
	})

	r.log.Info().
		Str("contact", contact.Name).
		Str("conversation", conv.ID).
		Msg("processing message")

	turn := &Turn{Contact: contact, Conversation: *conv, Trigger: user}
	result := &TurnResult{}

	hasText := false
	for !hasText || turn.FollowUp {
		if result.Passes >= r.cfg.MaxPasses {
			result.Conversation = turn.Conversation
			return result, fmt.Errorf("%w after %d passes", ErrPassLimit, result.Passes)
		}
		result.Passes++
		turn.FollowUp = false

		resp, err := r.complete(ctx, turn)
		if err != nil {
			return nil, err
		}
		result.Usage.Add(resp.Usage)

		r.log.Debug().
			Int("pass", result.Passes).
			Int("blocks", len(resp.Content)).
			Int("toolCalls", len(resp.ToolCalls())).
			Str("stopReason", resp.StopReason).
			Msg("completion received")

		for _, block := range resp.Content {
			switch block.Type {
			case llm.BlockText:
				reply, ok, err := r.reply(ctx, turn, block.Text)
				if err != nil {
					return nil, err
				}
				if ok {
					hasText = true
					result.Replies = append(result.Replies, reply)
				}
			case llm.BlockToolUse:
				if err := r.dispatch(ctx, turn, block); err != nil {
					return nil, err
				}
			}
		}
	}

	result.Conversation = turn.Conversation
	result.Duration = time.Since(start)

	r.log.Info().
		Str("contact", contact.Name).
		Int("passes", result.Passes).
		Int("replies", len(result.Replies)).
		Int("inputTokens", result.Usage.InputTokens).
		Int("outputTokens", result.Usage.OutputTokens).
		Dur("duration", result.Duration).
		Msg("turn completed")
	r.hooks.Emit(ctx, hooks.EventTurnCompleted, map[string]any{
		"contact":      contact.Name,
		"conversation": turn.Conversation.ID,
		"passes":       result.Passes,
		"replies":      len(result.Replies),
	})

	return result, nil
}

// currentConversation looks up the open conversation, opening one if an
// earlier run was interrupted between closing and opening.
func (r *Runner) currentConversation(contactID string) (*domain.Conversation, error) {
	conv, err := r.store.CurrentConversation(contactID)
	if err != nil {
		return nil, fmt.Errorf("current conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}
	r.log.Warn().Str("contact", contactID).Msg("no open conversation, starting one")
	conv, err = r.store.CreateConversation(contactID)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// history returns the replay window, oldest first, opening on a user chat
// message. When the newest HistoryLimit records hold no user chat message,
// as after a pass with many tool calls, the window is widened until one is
// included.
func (r *Runner) history(contactID string) ([]domain.Message, error) {
	limit := r.cfg.HistoryLimit
	for {
		stored, err := r.store.GetMessages(contactID, limit)
		if err != nil {
			return nil, err
		}
		window := trimToUserChat(chronological(stored))
		if len(window) > 0 || len(stored) < limit {
			return window, nil
		}
		limit *= 2
	}
}

// complete builds the request from stored state and calls the model.
func (r *Runner) complete(ctx context.Context, turn *Turn) (*llm.CompletionResponse, error) {
	history, err := r.history(turn.Contact.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	facts, err := r.store.GetFacts(turn.Contact.ID)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	convs, err := r.store.GetConversations(turn.Contact.ID)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	system := BuildSystemPrompt(PromptConfig{
		AgentName:     r.cfg.AgentName,
		Facts:         facts,
		Conversations: convs,
		Now:           time.Now(),
		Location:      r.cfg.Location,
		ExtraPrompt:   r.cfg.ExtraPrompt,
	})

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Model:       r.cfg.Model,
		System:      system,
		Messages:    transcript(history),
		Tools:       r.tools.Definitions(),
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	return resp, nil
}

// reply persists and presents one text block. Blank text is dropped and
// reported as not ok.
func (r *Runner) reply(ctx context.Context, turn *Turn, text string) (domain.Message, bool, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, false, nil
	}

	msg := domain.NewChatMessage(domain.RoleAssistant, text, turn.Contact.ID, turn.Conversation.ID)
	if err := r.store.CreateMessage(msg); err != nil {
		return domain.Message{}, false, fmt.Errorf("persist reply: %w", err)
	}
	r.present(msg)
	r.hooks.Emit(ctx, hooks.EventMessageSending, map[string]any{
		"contact":      turn.Contact.Name,
		"conversation": turn.Conversation.ID,
		"content":      text,
	})
	return msg, true, nil
}

// dispatch runs a tool call and persists the call with its result. The call
// record belongs to the conversation current before the tool ran, the result
// to the one current after. Unknown tools are skipped.
func (r *Runner) dispatch(ctx context.Context, turn *Turn, block llm.ContentBlock) error {
	tool, ok := r.tools.Get(block.Name)
	if !ok {
		r.log.Warn().Str("tool", block.Name).Str("id", block.ID).Msg("ignoring unknown tool")
		return nil
	}

	use := domain.ToolUse{ID: block.ID, Name: block.Name, Input: block.Input}
	if use.Input == nil {
		use.Input = map[string]any{}
	}
	before := turn.Conversation.ID

	r.log.Debug().Str("tool", use.Name).Str("id", use.ID).Msg("executing tool")
	content, err := tool.Handle(ctx, use, turn)
	if err != nil {
		return fmt.Errorf("tool %s: %w", use.Name, err)
	}

	call := domain.NewToolUseMessage(domain.RoleAssistant, "", use, turn.Contact.ID, before)
	result := domain.ToolResult(call, content, turn.Conversation.ID)
	if err := r.store.CreateMessages([]domain.Message{call, result}); err != nil {
		return fmt.Errorf("persist tool call: %w", err)
	}
	return nil
}

func (r *Runner) present(msg domain.Message) {
	if r.presenter != nil {
		r.presenter.Present(msg.Role, msg.Timestamp, msg.Content)
	}
}
