package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/soyeahso/yui/internal/agent"
	"github.com/soyeahso/yui/internal/console"
	"github.com/soyeahso/yui/internal/domain"
	"github.com/soyeahso/yui/internal/hooks"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		model     string
		ephemeral bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk with Yui in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loc, err := location()
			if err != nil {
				return err
			}

			a, err := openApp(ephemeral)
			if err != nil {
				return err
			}
			defer a.Close()

			if model == "" {
				model = cfg.Agent.Model
			}
			client, err := a.client(model)
			if err != nil {
				return err
			}

			con := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), console.Options{
				AgentName: cfg.Agent.Name,
				Width:     cfg.Display.Width,
			})

			hm := newHooks()
			var notice func(format string, args ...any)
			if cfg.Display.ShowTools {
				showToolNotices(hm, con)
				notice = con.Notice
			}

			summarizer := a.summarizer(client, model)
			if _, err := a.backfill(ctx, summarizer); err != nil {
				log.Warn().Err(err).Msg("summary backfill failed")
			}

			clog := log.With("contact", a.contact.Name)
			runner := agent.NewRunner(
				agent.RunnerConfig{
					AgentName:    cfg.Agent.Name,
					Model:        model,
					MaxTokens:    cfg.Agent.MaxTokens,
					Temperature:  cfg.Agent.Temperature,
					HistoryLimit: cfg.Agent.HistoryLimit,
					MaxPasses:    cfg.Agent.MaxPasses,
					Location:     loc,
					ExtraPrompt:  cfg.Agent.ExtraPrompt,
				},
				client,
				a.store,
				agent.DefaultTools(a.store, summarizer, hm, clog),
				con,
				hm,
				clog,
			)

			if err := showBacklog(con, notice, a.store, a.contact.ID, cfg.Display.Backlog); err != nil {
				log.Warn().Err(err).Msg("backlog not shown")
			}

			log.Info().
				Str("contact", a.contact.Name).
				Str("model", model).
				Bool("ephemeral", ephemeral).
				Msg("chat started")

			return repl(ctx, con, func(text string) error {
				_, err := runner.RunTurn(ctx, *a.contact, text)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model id or alias (default agent.model from config)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep the conversation in memory only")

	return cmd
}

type inputLine struct {
	text string
	err  error
}

// repl reads lines until input ends or ctx is canceled and hands each
// non-blank line to turn. Turn errors are shown and the loop goes on.
func repl(ctx context.Context, con *console.Console, turn func(text string) error) error {
	// Reading stdin cannot be interrupted, so it happens on its own goroutine
	// and is asked for one line at a time to keep the prompt after the replies.
	next := make(chan struct{}, 1)
	lines := make(chan inputLine)
	go func() {
		for range next {
			text, err := con.PromptForInput()
			lines <- inputLine{text: text, err: err}
			if err != nil {
				return
			}
		}
	}()
	defer close(next)

	for {
		next <- struct{}{}

		var in inputLine
		select {
		case <-ctx.Done():
			return nil
		case in = <-lines:
		}
		if errors.Is(in.err, io.EOF) {
			return nil
		}
		if in.err != nil {
			return fmt.Errorf("read input: %w", in.err)
		}

		text := strings.TrimSpace(in.text)
		if text == "" {
			continue
		}
		if err := turn(text); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("turn failed")
			con.Notice("Something went wrong: %v", err)
		}
	}
}

// showBacklog presents the last n chat messages of the open conversation,
// oldest first. With notice set, the tool results among them are shown as
// notices too.
func showBacklog(p agent.Presenter, notice func(format string, args ...any), st agent.Store, contactID string, n int) error {
	if n <= 0 {
		return nil
	}
	conv, err := st.CurrentConversation(contactID)
	if err != nil || conv == nil {
		return err
	}
	msgs, err := st.GetMessagesForConversation(conv.ID)
	if err != nil {
		return err
	}

	var backlog []domain.Message
	chats := 0
	for _, m := range msgs {
		switch {
		case m.IsChat():
			backlog = append(backlog, m)
			chats++
		case notice != nil && m.Role == domain.RoleUser && toolNotice(*m.ToolUse) != "":
			backlog = append(backlog, m)
		}
		if chats == n {
			break
		}
	}
	slices.Reverse(backlog)
	for _, m := range backlog {
		if m.IsChat() {
			p.Present(m.Role, m.Timestamp, m.Content)
		} else {
			notice("%s", toolNotice(*m.ToolUse))
		}
	}
	return nil
}

// toolNotice describes a tool's effect for the user, or "" for tools with
// nothing to show.
func toolNotice(use domain.ToolUse) string {
	switch use.Name {
	case agent.ToolRememberFact:
		return fmt.Sprintf("(remembered: %v)", use.Input["fact"])
	case agent.ToolTopicChanged:
		return "(new topic)"
	default:
		return ""
	}
}

func showToolNotices(hm *hooks.Manager, con *console.Console) {
	hm.On(hooks.EventFactRemembered, "console", func(_ context.Context, p hooks.Payload) error {
		con.Notice("%s", toolNotice(domain.ToolUse{
			Name:  agent.ToolRememberFact,
			Input: map[string]any{"fact": p.Data["fact"]},
		}))
		return nil
	})
	hm.On(hooks.EventTopicChanged, "console", func(context.Context, hooks.Payload) error {
		con.Notice("%s", toolNotice(domain.ToolUse{Name: agent.ToolTopicChanged}))
		return nil
	})
}
