package coretools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/tracing"
	"github.com/harun/redclaw/pkg/tools"
)

const (
	execOutputLimit = 100 * 1024
	execTruncNotice = "... (truncated: output exceeds 100KB)"
)

// blockedPatterns are refused before a command reaches the shell. Matching
// is case-insensitive.
var blockedPatterns = []string{
	"rm -rf", "rm -r", "mkfs", "format", "dd if=", "> /dev/sd",
	"shutdown", "reboot", ":(){ :|:& };:", "chmod -R", "chown -R",
}

// blockedPattern returns the first dangerous pattern found in command.
func blockedPattern(command string) (string, bool) {
	lower := strings.ToLower(command)
	for _, p := range blockedPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

func execTool(opts Options) *tools.Definition {
	return &tools.Definition{
		ToolName: "exec",
		Summary:  "Execute a shell command (blocked: rm -rf, format, etc)",
		Params: []tools.Parameter{
			{Name: "command", Type: "string", Description: "The shell command to execute", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			command := stringArg(args, "command")
			if strings.TrimSpace(command) == "" {
				return "", fmt.Errorf("command is required")
			}

			if pattern, blocked := blockedPattern(command); blocked {
				observability.RecordSecurityAudit(ctx, "exec_blocked", tracing.GetSessionKey(ctx), "denied",
					map[string]interface{}{"pattern": pattern})
				opts.Logger.Warn().Str("pattern", pattern).Msg("Blocked dangerous command")
				return fmt.Sprintf("Security Error: Command blocked. Dangerous pattern '%s' detected.", pattern), nil
			}

			out, err := runShell(ctx, opts.Workspace, command, opts.ExecTimeout)
			status := "success"
			if err != nil {
				status = "error"
			}
			observability.RecordToolAudit(ctx, "exec", tracing.GetSessionKey(ctx), status, nil)
			return out, err
		},
	}
}

// runShell runs command with sh -c in dir. A non-zero exit status is not an
// error; the output speaks for itself.
func runShell(ctx context.Context, dir, command string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	// Grandchildren may hold the pipes open after the shell is killed.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s", timeout)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return "", err
	}

	result := stdout.String()
	if stderr.Len() > 0 {
		result += "\nSTDERR:\n" + stderr.String()
	}

	if len(result) > execOutputLimit {
		result = truncateBytes(result, execOutputLimit) + execTruncNotice
	}
	if result == "" {
		result = "(no output)"
	}
	return result, nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
