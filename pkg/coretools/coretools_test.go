package coretools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/redclaw/pkg/tools"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Workspace:   t.TempDir(),
		ExecTimeout: 5 * time.Second,
		Logger:      testLogger(),
	}.withDefaults()
}

func run(t *testing.T, tool tools.Tool, args map[string]interface{}) (string, error) {
	t.Helper()
	return tool.Execute(context.Background(), args)
}

func TestRegisterCoreTools(t *testing.T) {
	reg := tools.NewRegistry(testLogger())
	require.NoError(t, RegisterCoreTools(reg, Options{Workspace: t.TempDir(), Logger: testLogger()}))

	assert.Equal(t, []string{
		"exec", "get_sys_info", "list_dir", "read_file", "web_fetch", "web_search", "write_file",
	}, reg.Names())

	for _, spec := range reg.Definitions() {
		assert.Equal(t, "object", spec.Parameters["type"], spec.Name)
		assert.NotEmpty(t, spec.Description, spec.Name)
	}

	assert.Error(t, RegisterCoreTools(nil, Options{}))
}

func TestReadFile(t *testing.T) {
	opts := testOptions(t)
	tool := readFileTool(opts)

	t.Run("should read a file relative to the workspace", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(opts.Workspace, "note.txt"), []byte("hello"), 0644))

		out, err := run(t, tool, map[string]interface{}{"path": "note.txt"})
		require.NoError(t, err)
		assert.Equal(t, "hello", out)
	})

	t.Run("should truncate files over 256KB", func(t *testing.T) {
		path := filepath.Join(opts.Workspace, "big.txt")
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", 300*1024)), 0644))

		out, err := run(t, tool, map[string]interface{}{"path": path})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(out, "\n... (truncated: file exceeds 256KB safety limit)"))
		assert.Equal(t, 256*1024+len(readTruncNotice), len(out))
	})

	t.Run("should fail for a missing file", func(t *testing.T) {
		_, err := run(t, tool, map[string]interface{}{"path": "missing.txt"})
		assert.Error(t, err)
	})

	t.Run("should reject a missing path argument", func(t *testing.T) {
		_, err := run(t, tool, map[string]interface{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid arguments")
	})
}

func TestWriteFile(t *testing.T) {
	opts := testOptions(t)
	tool := writeFileTool(opts)

	out, err := run(t, tool, map[string]interface{}{"path": "a/b/c.txt", "content": "data"})
	require.NoError(t, err)
	assert.Equal(t, "File written successfully", out)

	data, err := os.ReadFile(filepath.Join(opts.Workspace, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestListDir(t *testing.T) {
	opts := testOptions(t)
	tool := listDirTool(opts)

	t.Run("should report an empty directory", func(t *testing.T) {
		out, err := run(t, tool, map[string]interface{}{"path": "."})
		require.NoError(t, err)
		assert.Equal(t, "(empty directory)", out)
	})

	t.Run("should list entries sorted with their kind", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(opts.Workspace, "b.txt"), nil, 0644))
		require.NoError(t, os.Mkdir(filepath.Join(opts.Workspace, "a"), 0755))

		out, err := run(t, tool, map[string]interface{}{"path": "."})
		require.NoError(t, err)
		assert.Equal(t, "DIR:  a\nFILE: b.txt\n", out)
	})

	t.Run("should fail for a missing directory", func(t *testing.T) {
		_, err := run(t, tool, map[string]interface{}{"path": "nope"})
		assert.Error(t, err)
	})
}
