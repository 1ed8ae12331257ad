package cli

import (
	"fmt"
	"io"

	"github.com/soyeahso/yui/internal/config"
	"github.com/soyeahso/yui/internal/logging"
	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"
)

var (
	cfgFile     string
	logLevel    string
	contactName string

	// loaded in PersistentPreRunE
	paths     config.Paths
	cfg       config.Config
	loadErr   error
	log       *logging.Logger
	logCloser io.Closer
)

func newRootCmd() *cobra.Command {
	chat := newChatCmd()

	cmd := &cobra.Command{
		Use:   "yui",
		Short: "Yui, a personal conversational agent",
		Long: "Yui is a conversational agent that remembers facts about you, " +
			"notices when the topic changes and keeps summaries of past conversations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			// A broken config file must not lock the user out of `yui config`.
			cfg, loadErr = config.Load(paths.Config)
			if loadErr != nil {
				cfg = config.Defaults()
			}
			if contactName != "" {
				cfg.Contact.Name = contactName
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
				cfg.Logging.ConsoleLevel = logLevel
			}

			log, logCloser, err = logging.NewWithOptions(logging.Options{
				Level:        cfg.Logging.Level,
				ConsoleLevel: cfg.Logging.ConsoleLevel,
				ConsoleStyle: cfg.Logging.ConsoleStyle,
				Console:      cmd.ErrOrStderr(),
				File:         paths.LogFile(cfg.Logging),
			})
			if err != nil {
				return fmt.Errorf("logging: %w", err)
			}
			if loadErr != nil {
				log.Warn().Err(loadErr).Str("path", paths.Config).Msg("config not loaded, using defaults")
			}

			if cfg.Dev.AutoRestart {
				log.Info().Msg("restarting on binary change")
				go autorestart.RestartOnChange()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		RunE:          chat.RunE,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().AddFlagSet(chat.Flags())

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.yui/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")
	cmd.PersistentFlags().StringVar(&contactName, "contact", "", "contact to talk as (default contact.name from config)")

	cmd.AddCommand(chat)
	cmd.AddCommand(newFactsCmd())
	cmd.AddCommand(newConversationsCmd())
	cmd.AddCommand(newSummarizeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
