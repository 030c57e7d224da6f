package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/harun/redclaw/pkg/agent"
	"github.com/harun/redclaw/pkg/coretools"
	"github.com/spf13/cobra"
)

// DefaultSessionKey is the conversation used by the terminal modes.
const DefaultSessionKey = "cli"

var (
	promptColor = color.New(color.FgRed, color.Bold)
	titleColor  = color.New(color.FgCyan, color.Bold)
	errorColor  = color.New(color.FgRed)
	footerColor = color.New(color.Faint)
)

func newAgentCmd(opts *rootOptions) *cobra.Command {
	var (
		message     string
		interactive bool
		sessionKey  string
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Talk to the agent from the terminal",
		Long: `Send a single message with -m, or start an interactive session with -i.
Type "exit" or "quit" to leave the interactive session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case message != "":
				return runOneShot(cmd, opts, sessionKey, message)
			case interactive:
				return runInteractive(cmd, opts, sessionKey)
			}
			return fmt.Errorf("either --message or --interactive is required")
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "send a single message and exit")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start an interactive session")
	cmd.Flags().StringVar(&sessionKey, "session", DefaultSessionKey, "session key of the conversation")
	cmd.MarkFlagsMutuallyExclusive("message", "interactive")

	return cmd
}

// runOneShot sends text to the agent and prints the framed answer.
func runOneShot(cmd *cobra.Command, opts *rootOptions, key, text string) error {
	d, log, err := newDaemon(opts, false)
	if err != nil {
		return err
	}
	defer log.Close()
	defer d.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	answer, err := d.Loop().Run(ctx, key, text)
	if err != nil {
		return err
	}

	printReply(cmd.OutOrStdout(), "Claw", answer)
	return nil
}

// runInteractive reads lines until EOF, exit or quit. Errors from a run
// are printed and the session continues.
func runInteractive(cmd *cobra.Command, opts *rootOptions, key string) error {
	d, log, err := newDaemon(opts, false)
	if err != nil {
		return err
	}
	defer log.Close()
	defer d.Close()

	return repl(commandContext(cmd), d.Loop(), key, cmd.InOrStdin(), cmd.OutOrStdout())
}

// repl drives an interactive conversation on in and out.
func repl(ctx context.Context, loop *agent.Loop, key string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "RedClaw Interactive Mode")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		promptColor.Fprint(out, "╭─ Input: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		// Ctrl-C cancels the run in flight; at the prompt it ends the process.
		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		answer, err := loop.Run(runCtx, key, input)
		stop()

		fmt.Fprintln(out)
		if err != nil {
			printError(out, err)
		} else {
			printReply(out, "Claw", answer)
		}
		fmt.Fprintln(out)
	}
}

func printReply(out io.Writer, title, text string) {
	titleColor.Fprintf(out, "╭──── %s ────\n", title)
	printBody(out, text)
	printFooter(out)
}

func printError(out io.Writer, err error) {
	errorColor.Fprintln(out, "  Error:")
	printBody(out, err.Error())
	printFooter(out)
}

func printBody(out io.Writer, text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}
}

func printFooter(out io.Writer) {
	if rss, ok := coretools.ResidentKB(); ok {
		footerColor.Fprintf(out, "╰──── [RSS: %.2f MB] ────\n", float64(rss)/1024)
		return
	}
	footerColor.Fprintln(out, "╰────")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
