package agent

import (
	"github.com/soyeahso/yui/internal/domain"
	"github.com/soyeahso/yui/internal/llm"
)

// chronological reverses a newest-first slice in place and returns it.
func chronological(msgs []domain.Message) []domain.Message {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs
}

// trimToUserChat drops leading messages until the window opens on a user chat
// message. A window cut from the middle of history can otherwise begin with an
// assistant reply or a tool result whose call fell outside it.
func trimToUserChat(msgs []domain.Message) []domain.Message {
	for i, m := range msgs {
		if m.Role == domain.RoleUser && m.IsChat() {
			return msgs[i:]
		}
	}
	return nil
}

// transcript maps stored messages, oldest first, onto wire messages. Chat
// messages become text blocks; assistant tool_use records become tool_use
// blocks and their user-side pairs become tool_result blocks.
func transcript(msgs []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		var block llm.ContentBlock
		switch {
		case m.IsChat():
			block = llm.TextBlock(m.Content)
		case m.Role == domain.RoleAssistant:
			block = llm.ToolUseBlock(m.ToolUse.ID, m.ToolUse.Name, m.ToolUse.Input)
		default:
			block = llm.ToolResultBlock(m.ToolUse.ID, m.Content)
		}
		out = append(out, llm.Message{Role: string(m.Role), Content: []llm.ContentBlock{block}})
	}
	return out
}
