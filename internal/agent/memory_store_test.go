package agent

import (
	"testing"
	"time"

	"github.com/soyeahso/yui/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetOrCreateContact(t *testing.T) {
	store := NewMemoryStore()

	c1, err := store.GetOrCreateContact("some_user")
	require.NoError(t, err)
	assert.NotEmpty(t, c1.ID)

	c2, err := store.GetOrCreateContact("some_user")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)

	c3, err := store.GetOrCreateContact("someone_else")
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c3.ID)

	convs, err := store.GetConversations(c1.ID)
	require.NoError(t, err)
	assert.Len(t, convs, 1, "one open conversation, not one per call")
	assert.True(t, convs[0].IsOpen())
}

func TestMemoryStore_CreateConversationClosesOpen(t *testing.T) {
	store := NewMemoryStore()
	contact, _ := store.GetOrCreateContact("some_user")
	first, _ := store.CurrentConversation(contact.ID)

	second, err := store.CreateConversation(contact.ID)
	require.NoError(t, err)

	current, err := store.CurrentConversation(contact.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	convs, _ := store.GetConversations(contact.ID)
	require.Len(t, convs, 2)
	assert.Equal(t, second.ID, convs[0].ID, "newest first")
	assert.Equal(t, first.ID, convs[1].ID)
	assert.NotNil(t, convs[1].EndTime)
}

func TestMemoryStore_UpdateConversation(t *testing.T) {
	store := NewMemoryStore()
	contact, _ := store.GetOrCreateContact("some_user")
	first, _ := store.CurrentConversation(contact.ID)
	_, err := store.CreateConversation(contact.ID)
	require.NoError(t, err)

	closed := *first
	closed.Close(time.Now())
	closed.Summary = "a chat"
	require.NoError(t, store.UpdateConversation(closed))

	// reopening while another is open is refused
	reopened := closed
	reopened.EndTime = nil
	assert.Error(t, store.UpdateConversation(reopened))

	err = store.UpdateConversation(domain.Conversation{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_MessagesOrder(t *testing.T) {
	store := NewMemoryStore()
	contact, _ := store.GetOrCreateContact("some_user")
	conv, _ := store.CurrentConversation(contact.ID)

	ts := time.Now()
	mk := func(content string, at time.Time) domain.Message {
		m := domain.NewChatMessage(domain.RoleUser, content, contact.ID, conv.ID)
		m.Timestamp = at
		return m
	}
	require.NoError(t, store.CreateMessages([]domain.Message{
		mk("b", ts),
		mk("c", ts), // same instant, inserted later
		mk("a", ts.Add(-time.Second)),
		mk("d", ts.Add(time.Second)),
	}))

	msgs, err := store.GetMessages(contact.ID, 0)
	require.NoError(t, err)
	var order []string
	for _, m := range msgs {
		order = append(order, m.Content)
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, order)

	limited, err := store.GetMessages(contact.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "d", limited[0].Content)
}

func TestMemoryStore_CreateMessagesAllOrNothing(t *testing.T) {
	store := NewMemoryStore()
	contact, _ := store.GetOrCreateContact("some_user")
	conv, _ := store.CurrentConversation(contact.ID)

	good := domain.NewChatMessage(domain.RoleUser, "ok", contact.ID, conv.ID)
	bad := domain.NewChatMessage(domain.RoleUser, "lost", contact.ID, "no-such-conversation")

	err := store.CreateMessages([]domain.Message{good, bad})
	assert.ErrorIs(t, err, ErrNoConversation)

	msgs, _ := store.GetMessages(contact.ID, 0)
	assert.Empty(t, msgs)
}

func TestMemoryStore_UpdateMessage(t *testing.T) {
	store := NewMemoryStore()
	contact, _ := store.GetOrCreateContact("some_user")
	first, _ := store.CurrentConversation(contact.ID)

	msg := domain.NewChatMessage(domain.RoleUser, "new topic", contact.ID, first.ID)
	require.NoError(t, store.CreateMessage(msg))

	second, err := store.CreateConversation(contact.ID)
	require.NoError(t, err)
	msg.ConversationID = second.ID
	require.NoError(t, store.UpdateMessage(msg))

	inFirst, _ := store.GetMessagesForConversation(first.ID)
	inSecond, _ := store.GetMessagesForConversation(second.ID)
	assert.Empty(t, inFirst)
	require.Len(t, inSecond, 1)
	assert.Equal(t, msg.ID, inSecond[0].ID)

	missing := domain.NewChatMessage(domain.RoleUser, "x", contact.ID, second.ID)
	assert.ErrorIs(t, store.UpdateMessage(missing), ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	contact, _ := store.GetOrCreateContact("some_user")
	conv, _ := store.CurrentConversation(contact.ID)

	call := domain.NewToolUseMessage(domain.RoleAssistant, "", domain.ToolUse{ID: "t1", Name: "x"}, contact.ID, conv.ID)
	require.NoError(t, store.CreateMessage(call))

	msgs, _ := store.GetMessages(contact.ID, 0)
	msgs[0].ToolUse.Name = "mutated"

	again, _ := store.GetMessages(contact.ID, 0)
	assert.Equal(t, "x", again[0].ToolUse.Name)
}

func TestMemoryStore_Facts(t *testing.T) {
	store := NewMemoryStore()
	a, _ := store.GetOrCreateContact("a")
	b, _ := store.GetOrCreateContact("b")

	require.NoError(t, store.CreateFact(domain.NewFact(a.ID, "likes tea")))
	require.NoError(t, store.CreateFact(domain.NewFact(a.ID, "likes tea")))
	require.NoError(t, store.CreateFact(domain.NewFact(b.ID, "likes coffee")))

	facts, err := store.GetFacts(a.ID)
	require.NoError(t, err)
	assert.Len(t, facts, 2)
}
