package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a bounded topic segment of a contact's history.
type Conversation struct {
	ID        string     `json:"id"`
	ContactID string     `json:"contactId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Summary   string     `json:"summary,omitempty"`
}

// NewConversation opens a conversation for the contact starting now.
func NewConversation(contactID string) Conversation {
	return Conversation{
		ID:        uuid.NewString(),
		ContactID: contactID,
		StartTime: time.Now(),
	}
}

// IsOpen reports whether the conversation has not been closed.
func (c Conversation) IsOpen() bool { return c.EndTime == nil }

// Close marks the conversation ended at t.
func (c *Conversation) Close(t time.Time) {
	c.EndTime = &t
}

// HasSummary reports whether a summary has been recorded.
func (c Conversation) HasSummary() bool { return c.Summary != "" }
