package coretools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExec(t *testing.T) {
	opts := testOptions(t)
	tool := execTool(opts)

	t.Run("should return stdout", func(t *testing.T) {
		out, err := run(t, tool, map[string]interface{}{"command": "echo hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello\n", out)
	})

	t.Run("should run in the workspace", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(opts.Workspace, "marker"), nil, 0644))

		out, err := run(t, tool, map[string]interface{}{"command": "ls"})
		require.NoError(t, err)
		assert.Equal(t, "marker\n", out)
	})

	t.Run("should append stderr", func(t *testing.T) {
		out, err := run(t, tool, map[string]interface{}{"command": "echo out; echo err 1>&2"})
		require.NoError(t, err)
		assert.Equal(t, "out\n\nSTDERR:\nerr\n", out)
	})

	t.Run("should report no output", func(t *testing.T) {
		out, err := run(t, tool, map[string]interface{}{"command": "exit 3"})
		require.NoError(t, err)
		assert.Equal(t, "(no output)", out)
	})

	t.Run("should truncate output over 100KB", func(t *testing.T) {
		out, err := run(t, tool, map[string]interface{}{"command": "head -c 200000 /dev/zero | tr '\\0' 'x'"})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(out, execTruncNotice))
		assert.Equal(t, 100*1024+len(execTruncNotice), len(out))
	})

	t.Run("should time out", func(t *testing.T) {
		short := opts
		short.ExecTimeout = 100 * time.Millisecond

		start := time.Now()
		_, err := run(t, execTool(short), map[string]interface{}{"command": "sleep 5"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}

func TestExec_BlockedPatterns(t *testing.T) {
	tool := execTool(testOptions(t))

	tests := []struct {
		command string
		pattern string
	}{
		{"rm -rf /", "rm -rf"},
		{"sudo RM -R /tmp/x", "rm -r"},
		{"mkfs.ext4 /dev/sda1", "mkfs"},
		{"dd if=/dev/zero of=/dev/sda", "dd if="},
		{"echo x > /dev/sda", "> /dev/sd"},
		{"shutdown now", "shutdown"},
		{"chmod -R 777 /", "chmod -R"},
		{"CHOWN -r root /", "chown -R"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			out, err := run(t, tool, map[string]interface{}{"command": tt.command})
			require.NoError(t, err)
			assert.Equal(t, "Security Error: Command blocked. Dangerous pattern '"+tt.pattern+"' detected.", out)
		})
	}
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "ab", truncateBytes("abc", 2))
	assert.Equal(t, "a", truncateBytes("aé", 2), "never splits a rune")
	assert.Equal(t, "abc", truncateBytes("abc", 10))
}
