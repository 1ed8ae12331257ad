package agent

import (
	"time"

	"github.com/soyeahso/yui/internal/domain"
)

// Store is the persistence the agent needs. Implementations must keep a
// contact's messages in timestamp order, breaking ties by insertion order,
// and must allow at most one open conversation per contact.
type Store interface {
	// GetOrCreateContact returns the named contact and ensures it has an open conversation.
	GetOrCreateContact(name string) (*domain.Contact, error)

	// CurrentConversation returns the open conversation, or nil if none is open.
	CurrentConversation(contactID string) (*domain.Conversation, error)

	// CreateConversation closes any open conversation and opens a new one.
	CreateConversation(contactID string) (*domain.Conversation, error)

	// UpdateConversation writes end time and summary.
	UpdateConversation(conv domain.Conversation) error

	// GetConversations returns the contact's conversations, newest first.
	GetConversations(contactID string) ([]domain.Conversation, error)

	CreateMessage(msg domain.Message) error

	// CreateMessages persists msgs in order, all or nothing.
	CreateMessages(msgs []domain.Message) error

	// UpdateMessage rewrites a message's conversation and content.
	UpdateMessage(msg domain.Message) error

	// GetMessages returns up to limit recent messages, newest first. limit <= 0 means all.
	GetMessages(contactID string, limit int) ([]domain.Message, error)

	// GetMessagesForConversation returns a conversation's messages, newest first.
	GetMessagesForConversation(conversationID string) ([]domain.Message, error)

	CreateFact(fact domain.Fact) error
	GetFacts(contactID string) ([]domain.Fact, error)
}

// Presenter shows a message to the user.
type Presenter interface {
	Present(role domain.Role, timestamp time.Time, text string)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(role domain.Role, timestamp time.Time, text string)

// Present calls f.
func (f PresenterFunc) Present(role domain.Role, timestamp time.Time, text string) {
	f(role, timestamp, text)
}
