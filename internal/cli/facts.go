package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/yui/internal/domain"
	"github.com/spf13/cobra"
)

func newFactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Show what Yui remembers about the contact",
	}

	cmd.AddCommand(newFactsListCmd())
	cmd.AddCommand(newFactsSearchCmd())
	return cmd
}

func newFactsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List remembered facts, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			facts, err := a.chats.GetFacts(a.contact.ID)
			if err != nil {
				return err
			}
			printFacts(cmd.OutOrStdout(), facts)
			return nil
		},
	}
}

func newFactsSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search remembered facts, best match first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				return errors.New("empty query")
			}

			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			facts, err := a.chats.SearchFacts(a.contact.ID, query, limit)
			if err != nil {
				return err
			}
			printFacts(cmd.OutOrStdout(), facts)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}

func printFacts(w io.Writer, facts []domain.Fact) {
	if len(facts) == 0 {
		fmt.Fprintln(w, "No facts.")
		return
	}
	for _, f := range facts {
		fmt.Fprintf(w, "%s  %s\n", f.CreatedAt.Local().Format("2006-01-02 15:04"), f.Content)
	}
}
