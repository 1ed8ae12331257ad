package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/yui/internal/domain"
)

var (
	// ErrNotFound is returned by MemoryStore for an unknown id.
	ErrNotFound = errors.New("agent: not found")

	// ErrNoConversation is returned by MemoryStore when a message names a
	// conversation that does not exist.
	ErrNoConversation = errors.New("agent: no such conversation")
)

// MemoryStore is an in-memory Store implementation, used for ephemeral chats
// and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	contacts      map[string]*domain.Contact // name → contact
	conversations []*domain.Conversation     // creation order
	messages      []domain.Message           // insertion order
	facts         []domain.Fact
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contacts: make(map[string]*domain.Contact)}
}

func (s *MemoryStore) GetOrCreateContact(name string) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[name]
	if !ok {
		contact := domain.NewContact(name)
		c = &contact
		s.contacts[name] = c
	}
	if s.openConversation(c.ID) == nil {
		conv := domain.NewConversation(c.ID)
		s.conversations = append(s.conversations, &conv)
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) CurrentConversation(contactID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if conv := s.openConversation(contactID); conv != nil {
		out := *conv
		return &out, nil
	}
	return nil, nil
}

func (s *MemoryStore) CreateConversation(contactID string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := domain.NewConversation(contactID)
	if open := s.openConversation(contactID); open != nil {
		open.Close(conv.StartTime)
	}
	s.conversations = append(s.conversations, &conv)
	out := conv
	return &out, nil
}

func (s *MemoryStore) UpdateConversation(conv domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.conversations {
		if c.ID != conv.ID {
			continue
		}
		if conv.EndTime == nil {
			if open := s.openConversation(c.ContactID); open != nil && open.ID != c.ID {
				return fmt.Errorf("reopen conversation %s: contact already has an open conversation", c.ID)
			}
		}
		c.EndTime = conv.EndTime
		c.Summary = conv.Summary
		return nil
	}
	return fmt.Errorf("conversation %s: %w", conv.ID, ErrNotFound)
}

func (s *MemoryStore) GetConversations(contactID string) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Conversation
	for i := len(s.conversations) - 1; i >= 0; i-- {
		if c := s.conversations[i]; c.ContactID == contactID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateMessage(msg domain.Message) error {
	return s.CreateMessages([]domain.Message{msg})
}

func (s *MemoryStore) CreateMessages(msgs []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		if s.conversation(m.ConversationID) == nil {
			return fmt.Errorf("message %s: %w", m.ID, ErrNoConversation)
		}
	}
	for _, m := range msgs {
		s.messages = append(s.messages, copyMessage(m))
	}
	return nil
}

func (s *MemoryStore) UpdateMessage(msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conversation(msg.ConversationID) == nil {
		return fmt.Errorf("message %s: %w", msg.ID, ErrNoConversation)
	}
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			s.messages[i].ConversationID = msg.ConversationID
			s.messages[i].Content = msg.Content
			return nil
		}
	}
	return fmt.Errorf("message %s: %w", msg.ID, ErrNotFound)
}

func (s *MemoryStore) GetMessages(contactID string, limit int) ([]domain.Message, error) {
	return s.selectMessages(func(m domain.Message) bool { return m.ContactID == contactID }, limit), nil
}

func (s *MemoryStore) GetMessagesForConversation(conversationID string) ([]domain.Message, error) {
	return s.selectMessages(func(m domain.Message) bool { return m.ConversationID == conversationID }, 0), nil
}

func (s *MemoryStore) CreateFact(fact domain.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}
	s.facts = append(s.facts, fact)
	return nil
}

func (s *MemoryStore) GetFacts(contactID string) ([]domain.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Fact
	for _, f := range s.facts {
		if f.ContactID == contactID {
			out = append(out, f)
		}
	}
	return out, nil
}

// selectMessages returns matching messages newest first: by timestamp, then
// by reverse insertion order.
func (s *MemoryStore) selectMessages(match func(domain.Message) bool, limit int) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Message
	for _, m := range s.messages {
		if match(m) {
			out = append(out, copyMessage(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) openConversation(contactID string) *domain.Conversation {
	for i := len(s.conversations) - 1; i >= 0; i-- {
		if c := s.conversations[i]; c.ContactID == contactID && c.IsOpen() {
			return c
		}
	}
	return nil
}

func (s *MemoryStore) conversation(id string) *domain.Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func copyMessage(m domain.Message) domain.Message {
	if m.ToolUse != nil {
		use := *m.ToolUse
		m.ToolUse = &use
	}
	return m
}
