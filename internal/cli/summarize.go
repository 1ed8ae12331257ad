package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize",
		Short: "Summarize closed conversations that have no summary yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := a.client(cfg.Agent.Model)
			if err != nil {
				return err
			}

			n, err := a.backfill(ctx, a.summarizer(client, cfg.Agent.Model))
			fmt.Fprintf(cmd.OutOrStdout(), "Summarized %d conversation(s).\n", n)
			return err
		},
	}
}
