package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/harun/redclaw/internal/config"
	"github.com/harun/redclaw/internal/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWorkspaceConfig saves a config whose workspace lives in a temp dir
// and returns the config path and workspace.
func writeWorkspaceConfig(t *testing.T, mutate func(cfg *config.Config)) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Agents.Defaults.Workspace = filepath.Join(dir, "workspace")
	cfg.Providers.OpenRouter.APIKey = "sk-or-test"
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(dir, "config.json")
	require.NoError(t, config.Save(cfg, path))
	return path, cfg.Agents.Defaults.Workspace
}

func TestStatusCommand(t *testing.T) {
	t.Run("reports stopped without a PID file", func(t *testing.T) {
		cfgPath, _ := writeWorkspaceConfig(t, nil)

		cmd := GetRootCmd()
		cmd.SetArgs([]string{"status", "-c", cfgPath})
		output := &bytes.Buffer{}
		cmd.SetOut(output)

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "Status: stopped\n", output.String())
	})

	t.Run("reports a live process", func(t *testing.T) {
		cfgPath, workspace := writeWorkspaceConfig(t, nil)
		require.NoError(t, os.MkdirAll(workspace, 0755))
		require.NoError(t, os.WriteFile(daemon.PIDFilePath(workspace), []byte(strconv.Itoa(os.Getpid())), 0644))

		cmd := GetRootCmd()
		cmd.SetArgs([]string{"status", "-c", cfgPath})
		output := &bytes.Buffer{}
		cmd.SetOut(output)

		require.NoError(t, cmd.Execute())
		assert.Contains(t, output.String(), "Status: running")
		assert.Contains(t, output.String(), "PID: "+strconv.Itoa(os.Getpid()))
		assert.Contains(t, output.String(), "Uptime:")
	})

	t.Run("treats garbage as stopped", func(t *testing.T) {
		cfgPath, workspace := writeWorkspaceConfig(t, nil)
		require.NoError(t, os.MkdirAll(workspace, 0755))
		require.NoError(t, os.WriteFile(daemon.PIDFilePath(workspace), []byte("invalid"), 0644))

		cmd := GetRootCmd()
		cmd.SetArgs([]string{"status", "-c", cfgPath})
		output := &bytes.Buffer{}
		cmd.SetOut(output)

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "Status: stopped\n", output.String())
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"seconds only", 45 * time.Second, "45s"},
		{"minutes and seconds", 2*time.Minute + 30*time.Second, "2m30s"},
		{"hours minutes seconds", 3*time.Hour + 15*time.Minute + 20*time.Second, "3h15m20s"},
		{"zero", 0, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatDuration(tt.duration)
			assert.Equal(t, tt.expected, result)
		})
	}
}
