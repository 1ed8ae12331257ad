package cli

import (
	"fmt"
	"strings"

	"github.com/soyeahso/yui/internal/config"
	"github.com/soyeahso/yui/internal/llm"
	"github.com/soyeahso/yui/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Yui status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Yui %s (commit %s)\n\n", version.Version, version.Commit)

			// Paths
			fmt.Fprintf(out, "Config:   %s\n", paths.Config)
			fmt.Fprintf(out, "Database: %s\n", paths.DatabasePath(cfg.Store))
			if f := paths.LogFile(cfg.Logging); f != "" {
				fmt.Fprintf(out, "Log:      %s\n", f)
			}
			if loadErr != nil {
				fmt.Fprintf(out, "          config not loaded: %v\n", loadErr)
			}
			fmt.Fprintln(out)

			// Agent
			tz := cfg.Agent.Timezone
			if tz == "" {
				tz = "local"
			}
			fmt.Fprintf(out, "Agent:    name=%s model=%s timezone=%s\n", cfg.Agent.Name, cfg.Agent.Model, tz)
			if len(cfg.Agent.Fallbacks) > 0 {
				fmt.Fprintf(out, "Fallback: %s\n", strings.Join(cfg.Agent.Fallbacks, ", "))
			}

			// LLM providers
			registry, err := llm.NewRegistryFromConfig(cfg.Models, log)
			if err != nil {
				fmt.Fprintf(out, "LLM:      error: %v\n", err)
			} else if providers := registry.List(); len(providers) > 0 {
				fmt.Fprintf(out, "LLM:      %s (default %s)\n", strings.Join(providers, ", "), cfg.Models.Default)
			} else {
				fmt.Fprintln(out, "LLM:      (none configured)")
			}

			// Hooks
			if events := newHooks().Events(); len(events) > 0 {
				fmt.Fprintf(out, "Hooks:    %s\n", strings.Join(events, ", "))
			}

			// Store
			a, err := openApp(false)
			if err != nil {
				fmt.Fprintf(out, "Store:    error: %v\n", err)
			} else {
				defer a.Close()
				st, err := a.chats.Stats(a.contact.ID)
				if err != nil {
					fmt.Fprintf(out, "Store:    error: %v\n", err)
				} else {
					fmt.Fprintf(out, "Contact:  %s (%d messages, %d conversations, %d facts)\n",
						a.contact.Name, st.Messages, st.Conversations, st.Facts)
				}
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
