package cli

import (
	"fmt"

	"github.com/harun/redclaw/internal/daemon"
	"github.com/spf13/cobra"
)

func newTelegramCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Run the Telegram bot",
		Long: `Run the Telegram bot in the foreground until SIGINT or SIGTERM.
Only senders listed in channels.telegram.allow_from are answered; an empty
list answers everyone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTelegram(cmd, opts)
		},
	}
}

func runTelegram(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if !cfg.Channels.Telegram.Enabled {
		return fmt.Errorf("telegram is disabled in %s", opts.cfgFile)
	}

	log, err := newLogger(cfg, opts, true)
	if err != nil {
		return err
	}
	defer log.Close()

	d, err := daemon.New(cfg, log, version)
	if err != nil {
		return err
	}

	if err := d.Start(); err != nil {
		d.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "RedClaw Telegram bot running (PID file: %s)\n", daemon.PIDFilePath(cfg.WorkspacePath()))
	d.Wait()
	return nil
}
