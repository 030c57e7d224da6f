package cli

import (
	"fmt"

	"github.com/harun/redclaw/internal/config"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	cfgFile  string
	logLevel string

	// Root-level shortcuts for the agent and telegram commands.
	message     string
	interactive bool
	telegram    bool
}

// NewRootCmd builds the redclaw command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "redclaw",
		Short: "RedClaw - lightweight self-hosted AI agent",
		Long: `RedClaw is a small AI agent that answers from the terminal or a Telegram bot.
It keeps per-conversation history, daily notes and a handful of local tools
(files, shell, web search and fetch, process info).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.telegram:
				return runTelegram(cmd, opts)
			case opts.message != "":
				return runOneShot(cmd, opts, DefaultSessionKey, opts.message)
			case opts.interactive:
				return runInteractive(cmd, opts, DefaultSessionKey)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No mode specified. Use --help for usage info.")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", config.DefaultConfigPath, "path to config.json")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the config file")

	rootCmd.Flags().StringVarP(&opts.message, "message", "m", "", "send a single message to the agent and exit")
	rootCmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "start an interactive session in the terminal")
	rootCmd.Flags().BoolVarP(&opts.telegram, "telegram", "t", false, "run in Telegram bot mode")
	rootCmd.MarkFlagsMutuallyExclusive("message", "interactive", "telegram")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	rootCmd.AddCommand(
		newOnboardCmd(opts),
		newAgentCmd(opts),
		newTelegramCmd(opts),
		newStatusCmd(opts),
		newStopCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the command line. It is called by main.main.
func Execute() error {
	return NewRootCmd().Execute()
}

// GetRootCmd returns a fresh root command for testing
func GetRootCmd() *cobra.Command {
	return NewRootCmd()
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "redclaw version %s\n", version)
		},
	}
}
