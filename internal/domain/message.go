package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType classifies a stored message.
type MessageType string

const (
	MessageTypeChat    MessageType = "chat"
	MessageTypeToolUse MessageType = "tool_use"
)

// ToolUse is the payload of a tool_use message. On an assistant message it is
// the model's invocation; on a user message it is the paired result record.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// Message is one stored item of a contact's history.
// A message is a tool_use message exactly when ToolUse is non-nil.
type Message struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	ToolUse        *ToolUse  `json:"toolUse,omitempty"`
	ConversationID string    `json:"conversationId"`
	ContactID      string    `json:"contactId"`
}

// Type reports whether m is a chat or a tool_use message.
func (m Message) Type() MessageType {
	if m.ToolUse != nil {
		return MessageTypeToolUse
	}
	return MessageTypeChat
}

// IsChat reports whether m is a plain chat message.
func (m Message) IsChat() bool { return m.ToolUse == nil }

// NewChatMessage creates a chat message stamped with the current time.
func NewChatMessage(role Role, content, contactID, conversationID string) Message {
	return Message{
		ID:             uuid.NewString(),
		Timestamp:      time.Now(),
		Role:           role,
		Content:        content,
		ConversationID: conversationID,
		ContactID:      contactID,
	}
}

// NewToolUseMessage creates a tool_use message stamped with the current time.
func NewToolUseMessage(role Role, content string, use ToolUse, contactID, conversationID string) Message {
	m := NewChatMessage(role, content, contactID, conversationID)
	m.ToolUse = &use
	return m
}

// ToolResult builds the user-role record that pairs with an assistant tool
// call: same tool_use id, name and input, carrying the tool's result as content.
func ToolResult(call Message, content, conversationID string) Message {
	use := *call.ToolUse
	return NewToolUseMessage(RoleUser, content, use, call.ContactID, conversationID)
}
