package agent

import (
	"context"
	"testing"
	"time"

	"github.com/soyeahso/yui/internal/domain"
	"github.com/soyeahso/yui/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedConversation stores the given chat lines, alternating user and
// assistant, one second apart.
func seedConversation(t *testing.T, store *MemoryStore, conv domain.Conversation, lines ...string) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i, line := range lines {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		m := domain.NewChatMessage(role, line, conv.ContactID, conv.ID)
		m.Timestamp = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.CreateMessage(m))
	}
}

func TestSummarize(t *testing.T) {
	store := NewMemoryStore()
	contact, err := store.GetOrCreateContact("some_user")
	require.NoError(t, err)
	conv, err := store.CurrentConversation(contact.ID)
	require.NoError(t, err)

	seedConversation(t, store, *conv, "hi", "hey!")
	call := domain.NewToolUseMessage(domain.RoleAssistant, "", domain.ToolUse{ID: "t1", Name: ToolRequiresFollowUp}, contact.ID, conv.ID)
	require.NoError(t, store.CreateMessages([]domain.Message{call, domain.ToolResult(call, "", conv.ID)}))

	client := llm.NewScriptedClient([]llm.ContentBlock{llm.TextBlock("\nwe said hello.\n")})
	s := NewSummarizer(SummarizerConfig{AgentName: "Yui", Model: "m"}, client, store, silentLog())

	summary, err := s.Summarize(context.Background(), *conv)
	require.NoError(t, err)
	assert.Equal(t, "we said hello.", summary)

	req := client.Requests()[0]
	assert.Equal(t, "m", req.Model)
	assert.Equal(t, 1500, req.MaxTokens)
	assert.Empty(t, req.Tools)
	assert.Contains(t, req.System, "you are Yui")
	assert.Contains(t, req.System, summaryInstruction)

	require.Len(t, req.Messages, 3, "tool records are excluded")
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, req.Messages[1].Role)
	assert.Equal(t, llm.RoleUser, req.Messages[2].Role)
	assert.Equal(t, summaryInstruction, req.Messages[2].Content[0].Text)
}

func TestSummarize_EmptyConversation(t *testing.T) {
	store := NewMemoryStore()
	contact, err := store.GetOrCreateContact("some_user")
	require.NoError(t, err)
	conv, err := store.CurrentConversation(contact.ID)
	require.NoError(t, err)

	client := llm.NewScriptedClient()
	s := NewSummarizer(SummarizerConfig{}, client, store, silentLog())

	summary, err := s.Summarize(context.Background(), *conv)
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.Empty(t, client.Requests())
}

func TestSummarize_CompletionError(t *testing.T) {
	store := NewMemoryStore()
	contact, _ := store.GetOrCreateContact("some_user")
	conv, _ := store.CurrentConversation(contact.ID)
	seedConversation(t, store, *conv, "hi")

	s := NewSummarizer(SummarizerConfig{}, llm.NewScriptedClient(), store, silentLog())
	_, err := s.Summarize(context.Background(), *conv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion")
}

func TestBackfill(t *testing.T) {
	store := NewMemoryStore()
	contact, err := store.GetOrCreateContact("some_user")
	require.NoError(t, err)

	first, _ := store.CurrentConversation(contact.ID)
	seedConversation(t, store, *first, "first topic", "ok")

	second, err := store.CreateConversation(contact.ID)
	require.NoError(t, err)
	seedConversation(t, store, *second, "second topic", "sure")

	third, err := store.CreateConversation(contact.ID) // stays open
	require.NoError(t, err)
	seedConversation(t, store, *third, "current topic")

	// second already has a summary
	convs, _ := store.GetConversations(contact.ID)
	done := convs[1]
	done.Summary = "already summarized"
	require.NoError(t, store.UpdateConversation(done))

	client := llm.NewScriptedClient([]llm.ContentBlock{llm.TextBlock("about the first topic")})
	s := NewSummarizer(SummarizerConfig{}, client, store, silentLog())

	n, err := s.Backfill(context.Background(), contact.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, client.Requests(), 1)

	convs, _ = store.GetConversations(contact.ID)
	require.Len(t, convs, 3)
	assert.Empty(t, convs[0].Summary, "open conversation is not summarized")
	assert.Equal(t, "already summarized", convs[1].Summary)
	assert.Equal(t, "about the first topic", convs[2].Summary)

	// nothing left to do
	n, err = s.Backfill(context.Background(), contact.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBackfill_StopsOnError(t *testing.T) {
	store := NewMemoryStore()
	contact, _ := store.GetOrCreateContact("some_user")
	first, _ := store.CurrentConversation(contact.ID)
	seedConversation(t, store, *first, "hello")
	_, err := store.CreateConversation(contact.ID)
	require.NoError(t, err)

	s := NewSummarizer(SummarizerConfig{}, llm.NewScriptedClient(), store, silentLog())
	n, err := s.Backfill(context.Background(), contact.ID)
	assert.Error(t, err)
	assert.Zero(t, n)
}
