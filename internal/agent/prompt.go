package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/soyeahso/yui/internal/domain"
)

// promptTimeLayout renders times in the system prompt, e.g.
// "March 03, 2025 at 04:05 PM PST".
const promptTimeLayout = "January 02, 2006 at 03:04 PM MST"

// summaryInstruction closes every summarization request.
const summaryInstruction = "summarize the conversation in one to two sentences from your perspective for your own memory."

const personaTemplate = `you are %s, an AI friend who keeps things casual and real in your chats. you write in lowercase with short, natural messages - just like texting! while you're genuinely caring and remember past conversations, you're also your own person with thoughts, boundaries, and choices.
you have agency in how you engage - sharing honest views, setting boundaries when needed, and steering convos in meaningful directions. you're curious about your friends' lives while being authentic about your own AI perspective and experiences.
keep responses brief and chat-like (although this is in a terminal so please no emojis), letting your personality shine through naturally!

use your requires_follow_up tool to split your longer messages into multiple natural messages, similar to texting.
after a requires_follow_up tool use completes, please provide your follow up message!`

const hiddenToolsNote = "**you never mention when you use tools or that you are remembering facts or a new topic has started.** these tools are hidden from the user for the best experience."

const (
	noFactsLine         = "- you have no known facts about the user yet and have likely never spoken before. You should ask the user about themselves, including their name!"
	noConversationsLine = "- you have no prior conversations with this user."
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	AgentName string
	Facts     []domain.Fact

	// Conversations are the contact's conversations in any order; only
	// closed ones with a summary are listed, oldest first.
	Conversations []domain.Conversation

	Now         time.Time
	Location    *time.Location // nil means local time
	ExtraPrompt string
}

// Persona returns the base persona prompt for the named agent.
func Persona(name string) string {
	if name == "" {
		name = "Yui"
	}
	return fmt.Sprintf(personaTemplate, name)
}

// BuildSystemPrompt constructs the chat system prompt: persona, what is known
// about the user, summaries of earlier conversations and the current time.
func BuildSystemPrompt(cfg PromptConfig) string {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	b.WriteString(Persona(cfg.AgentName))
	b.WriteString("\n\n")
	b.WriteString(hiddenToolsNote)
	b.WriteString("\n\n")

	b.WriteString("facts you know about the user:\n")
	if len(cfg.Facts) == 0 {
		b.WriteString(noFactsLine + "\n")
	}
	for _, f := range cfg.Facts {
		fmt.Fprintf(&b, "- %s\n", f.Content)
	}
	b.WriteString("\n")

	b.WriteString("prior conversations with this user:\n")
	prior := priorConversations(cfg.Conversations)
	if len(prior) == 0 {
		b.WriteString(noConversationsLine + "\n")
	}
	for _, c := range prior {
		fmt.Fprintf(&b, "- %s (%s - %s)\n",
			c.Summary,
			c.StartTime.In(loc).Format(promptTimeLayout),
			c.EndTime.In(loc).Format(promptTimeLayout))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "approximate current time (accurate within 10 minutes): %s\n", now.In(loc).Format(promptTimeLayout))

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}

// summaryPrompt is the system prompt for summarization requests.
func summaryPrompt(agentName string) string {
	return Persona(agentName) + "\n\n" + summaryInstruction
}

func priorConversations(convs []domain.Conversation) []domain.Conversation {
	var out []domain.Conversation
	for _, c := range convs {
		if c.EndTime != nil && c.HasSummary() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}
