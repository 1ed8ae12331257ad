package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/yui/internal/domain"
	"github.com/soyeahso/yui/internal/llm"
	"github.com/soyeahso/yui/internal/logging"
)

// SummarizerConfig configures conversation summaries.
type SummarizerConfig struct {
	AgentName string
	Model     string
	MaxTokens int // default 1500
}

// Summarizer condenses a finished conversation into one or two sentences
// written from the agent's perspective.
type Summarizer struct {
	cfg    SummarizerConfig
	client llm.Client
	store  Store
	log    *logging.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(cfg SummarizerConfig, client llm.Client, store Store, log *logging.Logger) *Summarizer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	return &Summarizer{cfg: cfg, client: client, store: store, log: log.Sub("summarizer")}
}

// Summarize returns a summary of the conversation's chat messages. Tool
// records are left out. A conversation with no chat messages summarizes to
// "" without a model call.
func (s *Summarizer) Summarize(ctx context.Context, conv domain.Conversation) (string, error) {
	stored, err := s.store.GetMessagesForConversation(conv.ID)
	if err != nil {
		return "", fmt.Errorf("load conversation: %w", err)
	}

	var chat []domain.Message
	for _, m := range chronological(stored) {
		if m.IsChat() {
			chat = append(chat, m)
		}
	}
	chat = trimToUserChat(chat)
	if len(chat) == 0 {
		return "", nil
	}

	msgs := append(transcript(chat), llm.Message{
		Role:    llm.RoleUser,
		Content: []llm.ContentBlock{llm.TextBlock(summaryInstruction)},
	})

	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		Model:     s.cfg.Model,
		System:    summaryPrompt(s.cfg.AgentName),
		Messages:  msgs,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	summary := strings.TrimSpace(resp.Text())
	s.log.Debug().
		Str("conversation", conv.ID).
		Int("messages", len(chat)).
		Int("outputTokens", resp.Usage.OutputTokens).
		Msg("conversation summarized")
	return summary, nil
}

// Backfill summarizes the contact's closed conversations that have no
// summary yet, oldest first, and returns how many it filled in.
func (s *Summarizer) Backfill(ctx context.Context, contactID string) (int, error) {
	convs, err := s.store.GetConversations(contactID)
	if err != nil {
		return 0, fmt.Errorf("load conversations: %w", err)
	}

	n := 0
	for i := len(convs) - 1; i >= 0; i-- {
		conv := convs[i]
		if conv.IsOpen() || conv.HasSummary() {
			continue
		}
		summary, err := s.Summarize(ctx, conv)
		if err != nil {
			return n, fmt.Errorf("summarize %s: %w", conv.ID, err)
		}
		if summary == "" {
			continue
		}
		conv.Summary = summary
		if err := s.store.UpdateConversation(conv); err != nil {
			return n, fmt.Errorf("store summary: %w", err)
		}
		n++
	}
	if n > 0 {
		s.log.Info().Int("conversations", n).Msg("backfilled summaries")
	}
	return n, nil
}
