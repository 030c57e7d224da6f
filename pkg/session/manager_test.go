package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/redclaw/pkg/llm"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
}

func setupTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sessions")
	m, err := New(dir, testLogger())
	require.NoError(t, err)
	return m, dir
}

func sampleSession() *Session {
	s := NewSession()
	s.Append(
		llm.UserMessage("what is here?"),
		llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID: "call_1", Type: "function",
			Function: llm.FunctionCall{Name: "list_dir", Arguments: `{"path":"."}`},
		}}},
		llm.ToolResultMessage("call_1", "list_dir", "FILE: a.txt"),
		llm.AssistantMessage("There is one file."),
	)
	return s
}

func TestManager_SaveLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip a session", func(t *testing.T) {
		m, _ := setupTestManager(t)
		want := sampleSession()

		require.NoError(t, m.Save(ctx, "123", want))

		got, err := m.Load(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("should write the messages document", func(t *testing.T) {
		m, dir := setupTestManager(t)
		require.NoError(t, m.Save(ctx, "cli", sampleSession()))

		data, err := os.ReadFile(filepath.Join(dir, "cli.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"messages"`)
		assert.Contains(t, string(data), `"tool_call_id": "call_1"`)
	})

	t.Run("should return an empty session when the file is missing", func(t *testing.T) {
		m, _ := setupTestManager(t)
		s, err := m.Load(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("should return an empty session when the file is corrupt", func(t *testing.T) {
		m, dir := setupTestManager(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0600))

		s, err := m.Load(ctx, "bad")
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("should recreate a removed sessions directory on save", func(t *testing.T) {
		m, dir := setupTestManager(t)
		require.NoError(t, os.RemoveAll(dir))

		require.NoError(t, m.Save(ctx, "cli", sampleSession()))
		assert.FileExists(t, filepath.Join(dir, "cli.json"))
	})

	t.Run("should leave no temp files behind", func(t *testing.T) {
		m, dir := setupTestManager(t)
		require.NoError(t, m.Save(ctx, "cli", sampleSession()))
		require.NoError(t, m.Save(ctx, "cli", NewSession()))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "cli.json", entries[0].Name())
	})

	t.Run("should serialize concurrent saves", func(t *testing.T) {
		m, _ := setupTestManager(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, m.Save(ctx, "shared", sampleSession()))
			}()
		}
		wg.Wait()

		s, err := m.Load(ctx, "shared")
		require.NoError(t, err)
		assert.Equal(t, 4, s.Len())
	})
}

func TestManager_InvalidKeys(t *testing.T) {
	m, _ := setupTestManager(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`, "nul\x00"} {
		_, err := m.Load(ctx, key)
		assert.True(t, errors.Is(err, ErrInvalidSessionKey), "load %q", key)

		err = m.Save(ctx, key, NewSession())
		assert.True(t, errors.Is(err, ErrInvalidSessionKey), "save %q", key)
	}

	assert.NoError(t, ValidateKey("-100123456"))
	assert.NoError(t, ValidateKey("cli"))
}

func TestManager_ListDelete(t *testing.T) {
	m, _ := setupTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, "b", sampleSession()))
	require.NoError(t, m.Save(ctx, "a", NewSession()))

	keys, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	loaded, err := m.Load(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 4)

	require.NoError(t, m.Delete(ctx, "b"))
	require.NoError(t, m.Delete(ctx, "b"), "deleting twice is fine")

	keys, err = m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)

	loaded, err = m.Load(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, loaded.Messages)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should isolate stored sessions from callers", func(t *testing.T) {
		store := NewMemoryStore()
		s := sampleSession()
		require.NoError(t, store.Save(ctx, "k", s))

		s.Append(llm.UserMessage("not saved"))
		*s.Messages[0].Content = "mutated"

		got, err := store.Load(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, sampleSession(), got)
		assert.Equal(t, 1, store.Saves())
	})

	t.Run("should list and delete", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, "x", NewSession()))

		keys, _ := store.List(ctx)
		assert.Equal(t, []string{"x"}, keys)

		require.NoError(t, store.Delete(ctx, "x"))
		got, err := store.Load(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
	})
}
