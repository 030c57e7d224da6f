package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMemoryDirectory(t *testing.T) {
	t.Run("should create a new directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		memoryPath, err := EnsureMemoryDirectory(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmpDir, "memory"), memoryPath)

		info, err := os.Stat(memoryPath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("should accept an existing directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		memoryPath := filepath.Join(tmpDir, "memory")
		require.NoError(t, os.MkdirAll(memoryPath, 0755))

		result, err := EnsureMemoryDirectory(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, memoryPath, result)
	})

	t.Run("should fail when the path is a file", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "memory"), []byte("x"), 0644))

		_, err := EnsureMemoryDirectory(tmpDir)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.md")

	exists, err := FileExists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))
	exists, err = FileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSeedWorkspace(t *testing.T) {
	t.Run("should create starter files", func(t *testing.T) {
		ws := t.TempDir()

		created, err := SeedWorkspace(ws)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"USER.md", "SOUL.md", "IDENTITY.md", filepath.Join("memory", "MEMORY.md")}, created)

		for _, name := range created {
			assert.FileExists(t, filepath.Join(ws, name))
		}
	})

	t.Run("should keep existing files", func(t *testing.T) {
		ws := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(ws, "SOUL.md"), []byte("custom"), 0644))

		created, err := SeedWorkspace(ws)
		require.NoError(t, err)
		assert.NotContains(t, created, "SOUL.md")

		data, err := os.ReadFile(filepath.Join(ws, "SOUL.md"))
		require.NoError(t, err)
		assert.Equal(t, "custom", string(data))
	})
}
