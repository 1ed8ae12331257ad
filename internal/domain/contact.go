package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is the person Yui talks to. Every conversation, message and fact
// belongs to exactly one contact.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewContact creates a contact with a fresh id.
func NewContact(name string) Contact {
	return Contact{ID: uuid.NewString(), Name: name, CreatedAt: time.Now()}
}

// Fact is a durable piece of knowledge about a contact. Facts are append-only.
type Fact struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contactId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewFact creates a fact for the contact.
func NewFact(contactID, content string) Fact {
	return Fact{ID: uuid.NewString(), ContactID: contactID, Content: content, CreatedAt: time.Now()}
}
