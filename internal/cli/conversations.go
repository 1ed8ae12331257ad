package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/soyeahso/yui/internal/console"
	"github.com/soyeahso/yui/internal/domain"
	"github.com/soyeahso/yui/internal/store"
	"github.com/spf13/cobra"
)

const listTimeLayout = "2006-01-02 15:04"

func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Browse past conversations",
	}

	cmd.AddCommand(newConversationsListCmd())
	cmd.AddCommand(newConversationsShowCmd())
	return cmd
}

func newConversationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations with their summaries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			convs, err := a.chats.GetConversations(a.contact.ID)
			if err != nil {
				return err
			}
			printConversations(cmd.OutOrStdout(), convs)
			return nil
		},
	}
}

func newConversationsShowCmd() *cobra.Command {
	var tools bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := a.chats.GetConversation(args[0])
			if errors.Is(err, store.ErrNotFound) || (err == nil && conv.ContactID != a.contact.ID) {
				return fmt.Errorf("conversation %q not found", args[0])
			}
			if err != nil {
				return err
			}

			msgs, err := a.chats.GetMessagesForConversation(conv.ID)
			if err != nil {
				return err
			}
			slices.Reverse(msgs)

			out := cmd.OutOrStdout()
			printConversations(out, []domain.Conversation{*conv})
			fmt.Fprintln(out)

			con := console.New(cmd.InOrStdin(), out, console.Options{
				AgentName: cfg.Agent.Name,
				Width:     cfg.Display.Width,
			})
			for _, m := range msgs {
				switch {
				case m.IsChat():
					con.Present(m.Role, m.Timestamp, m.Content)
				case tools && m.Role == domain.RoleAssistant:
					con.Notice("[%s %v]", m.ToolUse.Name, m.ToolUse.Input)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tools, "tools", false, "include tool calls")
	return cmd
}

func printConversations(w io.Writer, convs []domain.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintln(w, "No conversations.")
		return
	}
	for _, c := range convs {
		end := "open"
		if c.EndTime != nil {
			end = c.EndTime.Local().Format(listTimeLayout)
		}
		fmt.Fprintf(w, "%s  %s - %s\n", c.ID, c.StartTime.Local().Format(listTimeLayout), end)
		if c.HasSummary() {
			fmt.Fprintf(w, "    %s\n", c.Summary)
		}
	}
}
