package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/yui/internal/agent"
	"github.com/soyeahso/yui/internal/console"
	"github.com/soyeahso/yui/internal/domain"
	"github.com/soyeahso/yui/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the command tree with a fresh YUI_HOME and returns stdout.
func runCLI(t *testing.T, home, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("YUI_HOME", home)

	if args == nil {
		args = []string{} // nil makes cobra read os.Args
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "yui "))
}

func TestConfigSetGetUnset(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "", "config", "set", "agent.name", "Mio")
	require.NoError(t, err)
	assert.Equal(t, "Set agent.name = Mio\n", out)

	out, err = runCLI(t, home, "", "config", "set", "display.backlog", "3")
	require.NoError(t, err)
	assert.Equal(t, "Set display.backlog = 3\n", out)

	out, err = runCLI(t, home, "", "config", "get", "agent.name")
	require.NoError(t, err)
	assert.Equal(t, "Mio\n", out)

	out, err = runCLI(t, home, "", "config", "get", "display")
	require.NoError(t, err)
	assert.Equal(t, "backlog: 3\n", out)

	_, err = runCLI(t, home, "", "config", "unset", "agent.name")
	require.NoError(t, err)
	_, err = runCLI(t, home, "", "config", "get", "agent.name")
	assert.ErrorContains(t, err, "not found")

	out, err = runCLI(t, home, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml")+"\n", out)
}

func TestConfigRejectsBlockedPath(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "", "config", "set", "agent.__proto__", "x")
	assert.ErrorContains(t, err, "blocked key")
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"FALSE", false},
		{"42", 42},
		{"-3", -3},
		{"0.7", 0.7},
		{"1e3", 1000.0},
		{"12abc", "12abc"},
		{"claude-3-5-sonnet-20240620", "claude-3-5-sonnet-20240620"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}

func TestPrintValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printValue(&buf, []any{"a", "b"}))
	assert.Equal(t, "- a\n- b\n", buf.String())

	buf.Reset()
	require.NoError(t, printValue(&buf, 7))
	assert.Equal(t, "7\n", buf.String())
}

func TestFactsAndConversationsEmpty(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "", "facts", "list")
	require.NoError(t, err)
	assert.Equal(t, "No facts.\n", out)

	out, err = runCLI(t, home, "", "facts", "search", "tea")
	require.NoError(t, err)
	assert.Equal(t, "No facts.\n", out)

	// loading the contact opens its first conversation
	out, err = runCLI(t, home, "", "conversations", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.True(t, strings.HasSuffix(out, " - open\n"))

	_, err = runCLI(t, home, "", "conversations", "show", "nope")
	assert.ErrorContains(t, err, `conversation "nope" not found`)

	assert.FileExists(t, filepath.Join(home, "data", "yui.db"))
}

// ollamaServer answers every chat request with the next scripted message.
func ollamaServer(t *testing.T, replies ...map[string]any) *httptest.Server {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		if calls >= len(replies) {
			t.Errorf("unexpected completion request %d", calls+1)
			http.Error(w, "no more replies", http.StatusInternalServerError)
			return
		}
		msg := replies[calls]
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":       "llama3",
			"message":     msg,
			"done":        true,
			"done_reason": "stop",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, home, baseURL string) {
	t.Helper()
	conf := `contact:
  name: tester
models:
  default: local
  providers:
    local:
      api: ollama
      baseUrl: ` + baseURL + `
      models:
        - id: llama3
display:
  showTools: true
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(conf), 0o600))
}

func TestChatEndToEnd(t *testing.T) {
	home := t.TempDir()
	srv := ollamaServer(t,
		map[string]any{
			"role": "assistant",
			"tool_calls": []any{map[string]any{
				"function": map[string]any{"name": "remember_fact", "arguments": map[string]any{"fact": "likes tea"}},
			}},
		},
		map[string]any{"role": "assistant", "content": "Tea is lovely!"},
	)
	writeConfig(t, home, srv.URL)

	out, err := runCLI(t, home, "I like tea\n")
	require.NoError(t, err)
	assert.Contains(t, out, "I like tea")
	assert.Contains(t, out, "(remembered: likes tea)")
	assert.Contains(t, out, "Tea is lovely!")

	out, err = runCLI(t, home, "", "facts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "likes tea")

	out, err = runCLI(t, home, "", "conversations", "list")
	require.NoError(t, err)
	id := strings.Fields(out)[0]

	out, err = runCLI(t, home, "", "conversations", "show", "--tools", id)
	require.NoError(t, err)
	assert.Contains(t, out, "[remember_fact map[fact:likes tea]]")
	assert.Less(t, strings.Index(out, "I like tea"), strings.Index(out, "Tea is lovely!"))

	out, err = runCLI(t, home, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "LLM:      local (default local)")
	assert.Contains(t, out, "Contact:  tester (4 messages, 1 conversations, 1 facts)")
}

func TestChatEphemeralLeavesNoHistory(t *testing.T) {
	home := t.TempDir()
	srv := ollamaServer(t, map[string]any{"role": "assistant", "content": "hey!"})
	writeConfig(t, home, srv.URL)

	out, err := runCLI(t, home, "hi\n", "chat", "--ephemeral")
	require.NoError(t, err)
	assert.Contains(t, out, "hey!")

	out, err = runCLI(t, home, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 messages, 1 conversations, 0 facts)")
}

func TestShowBacklog(t *testing.T) {
	st := agent.NewMemoryStore()
	contact, err := st.GetOrCreateContact("tester")
	require.NoError(t, err)
	conv, err := st.CreateConversation(contact.ID)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"one", "two", "three"} {
		m := domain.NewChatMessage(domain.RoleUser, text, contact.ID, conv.ID)
		m.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, st.CreateMessage(m))
	}
	call := domain.NewToolUseMessage(domain.RoleAssistant, "", domain.ToolUse{ID: "t1", Name: "requires_follow_up"}, contact.ID, conv.ID)
	call.Timestamp = base.Add(5 * time.Minute)
	require.NoError(t, st.CreateMessage(call))

	var shown []string
	p := agent.PresenterFunc(func(_ domain.Role, _ time.Time, text string) {
		shown = append(shown, text)
	})

	require.NoError(t, showBacklog(p, nil, st, contact.ID, 2))
	assert.Equal(t, []string{"two", "three"}, shown)

	shown = nil
	require.NoError(t, showBacklog(p, nil, st, contact.ID, 0))
	assert.Empty(t, shown)

	require.NoError(t, showBacklog(p, nil, st, "nobody", 5))
	assert.Empty(t, shown)
}

func TestShowBacklogWithToolNotices(t *testing.T) {
	st := agent.NewMemoryStore()
	contact, err := st.GetOrCreateContact("tester")
	require.NoError(t, err)
	conv, err := st.CurrentConversation(contact.ID)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	at := func(m domain.Message, minute int) domain.Message {
		m.Timestamp = base.Add(time.Duration(minute) * time.Minute)
		return m
	}
	remember := domain.NewToolUseMessage(domain.RoleAssistant, "",
		domain.ToolUse{ID: "t1", Name: agent.ToolRememberFact, Input: map[string]any{"fact": "likes tea"}},
		contact.ID, conv.ID)
	topic := domain.NewToolUseMessage(domain.RoleAssistant, "",
		domain.ToolUse{ID: "t2", Name: agent.ToolTopicChanged, Input: map[string]any{}},
		contact.ID, "earlier")
	followUp := domain.NewToolUseMessage(domain.RoleAssistant, "",
		domain.ToolUse{ID: "t3", Name: agent.ToolRequiresFollowUp, Input: map[string]any{}},
		contact.ID, conv.ID)

	require.NoError(t, st.CreateMessages([]domain.Message{
		at(domain.NewChatMessage(domain.RoleUser, "too old", contact.ID, conv.ID), 0),
		at(domain.NewChatMessage(domain.RoleUser, "let's talk about tea", contact.ID, conv.ID), 1),
		at(domain.ToolResult(topic, "", conv.ID), 2),
		at(remember, 3),
		at(domain.ToolResult(remember, "likes tea", conv.ID), 3),
		at(followUp, 4),
		at(domain.ToolResult(followUp, "", conv.ID), 4),
		at(domain.NewChatMessage(domain.RoleAssistant, "tea is lovely", contact.ID, conv.ID), 5),
	}))

	var shown []string
	p := agent.PresenterFunc(func(_ domain.Role, _ time.Time, text string) {
		shown = append(shown, text)
	})
	notice := func(format string, args ...any) {
		shown = append(shown, fmt.Sprintf(format, args...))
	}

	require.NoError(t, showBacklog(p, notice, st, contact.ID, 2))
	assert.Equal(t, []string{
		"let's talk about tea",
		"(new topic)",
		"(remembered: likes tea)",
		"tea is lovely",
	}, shown)
}

func TestReplKeepsGoingAfterTurnError(t *testing.T) {
	log = logging.Nop()
	var out bytes.Buffer
	con := console.New(strings.NewReader("first\n\n  \nsecond\n"), &out, console.Options{})

	var turns []string
	err := repl(context.Background(), con, func(text string) error {
		turns = append(turns, text)
		if text == "first" {
			return errors.New("provider unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, turns)
	assert.Contains(t, out.String(), "Something went wrong: provider unavailable")
}

func TestReplStopsWhenCanceled(t *testing.T) {
	log = logging.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	con := console.New(strings.NewReader("a\nb\n"), io.Discard, console.Options{})

	var turns []string
	err := repl(ctx, con, func(text string) error {
		turns = append(turns, text)
		cancel()
		return ctx.Err()
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, turns)
}
