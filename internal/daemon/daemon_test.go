package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harun/redclaw/internal/config"
	"github.com/harun/redclaw/internal/logger"
	"github.com/harun/redclaw/internal/telegram"
	"github.com/harun/redclaw/pkg/llm"
	"github.com/harun/redclaw/pkg/tools"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	answer string
}

func (s *stubClient) Chat(ctx context.Context, messages []llm.Message, specs []tools.Spec) (llm.Message, error) {
	return llm.AssistantMessage(s.answer), nil
}

type stubChannel struct {
	runs atomic.Int32
}

func (s *stubChannel) Run(ctx context.Context) error {
	s.runs.Add(1)
	<-ctx.Done()
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Agents.Defaults.Workspace = t.TempDir()
	cfg.Providers.OpenRouter.APIKey = "sk-or-test"
	return cfg
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Console: false})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

// stubModel swaps the model client constructor for the test's duration.
func stubModel(t *testing.T, answer string) {
	t.Helper()
	orig := newModelClient
	newModelClient = func(opts llm.Options) (llm.Client, error) {
		return &stubClient{answer: answer}, nil
	}
	t.Cleanup(func() { newModelClient = orig })
}

func stubTelegram(t *testing.T) *stubChannel {
	t.Helper()
	ch := &stubChannel{}
	orig := newTelegramChannel
	newTelegramChannel = func(cfg config.TelegramConfig, runner telegram.Runner, sessions telegram.Sessions, log zerolog.Logger) (Channel, error) {
		return ch, nil
	}
	t.Cleanup(func() { newTelegramChannel = orig })
	return ch
}

func TestNew(t *testing.T) {
	t.Run("should build the core modules", func(t *testing.T) {
		stubModel(t, "ok")
		cfg := testConfig(t)

		d, err := New(cfg, testLogger(t), "test")
		require.NoError(t, err)
		defer d.Close()

		assert.NotNil(t, d.Loop())
		assert.NotNil(t, d.Sessions())
		assert.NotNil(t, d.ContextStore())
		assert.Equal(t, cfg, d.GetConfig())
		assert.ElementsMatch(t,
			[]string{"exec", "get_sys_info", "list_dir", "read_file", "web_fetch", "web_search", "write_file"},
			d.Registry().Names(),
		)

		for _, name := range []string{"USER.md", "SOUL.md", "IDENTITY.md", filepath.Join("memory", "MEMORY.md")} {
			assert.FileExists(t, filepath.Join(cfg.WorkspacePath(), name))
		}
	})

	t.Run("should reject an invalid configuration", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Providers.OpenRouter.APIKey = ""

		_, err := New(cfg, testLogger(t), "test")
		assert.Error(t, err)
	})

	t.Run("should surface model client errors", func(t *testing.T) {
		orig := newModelClient
		newModelClient = func(opts llm.Options) (llm.Client, error) {
			return nil, errors.New("unsupported provider")
		}
		defer func() { newModelClient = orig }()

		_, err := New(testConfig(t), testLogger(t), "test")
		assert.Error(t, err)
	})
}

func TestDaemon_LoopRoundTrip(t *testing.T) {
	stubModel(t, "pong")
	cfg := testConfig(t)

	d, err := New(cfg, testLogger(t), "test")
	require.NoError(t, err)
	defer d.Close()

	answer, err := d.Loop().Run(context.Background(), "cli", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", answer)

	assert.FileExists(t, filepath.Join(cfg.WorkspacePath(), "sessions", "cli.json"))
	assert.Contains(t, d.ContextStore().ReadToday(), "User: ping\nAssistant: pong\n")
}

func TestDaemonStartStop(t *testing.T) {
	t.Run("should require the telegram channel", func(t *testing.T) {
		stubModel(t, "ok")
		d, err := New(testConfig(t), testLogger(t), "test")
		require.NoError(t, err)
		defer d.Close()

		assert.Error(t, d.Start())
		assert.False(t, d.Status().Running)
	})

	t.Run("should run the channel until stopped", func(t *testing.T) {
		stubModel(t, "ok")
		ch := stubTelegram(t)
		cfg := testConfig(t)
		cfg.Channels.Telegram.Enabled = true
		cfg.Channels.Telegram.Token = "123456:ABC-test"

		d, err := New(cfg, testLogger(t), "test")
		require.NoError(t, err)

		require.NoError(t, d.Start())
		assert.Eventually(t, func() bool { return ch.runs.Load() == 1 }, time.Second, 10*time.Millisecond)

		status := d.Status()
		assert.True(t, status.Running)
		assert.FileExists(t, d.lifecycle.PIDFile())
		assert.True(t, d.cleanup.IsRunning())

		assert.Error(t, d.Start())

		require.NoError(t, d.Stop())
		assert.False(t, d.Status().Running)
		assert.NoFileExists(t, d.lifecycle.PIDFile())
		assert.Error(t, d.Stop())
	})
}

func TestLifecycle(t *testing.T) {
	stubModel(t, "ok")
	d, err := New(testConfig(t), testLogger(t), "test")
	require.NoError(t, err)
	defer d.Close()

	lm := NewLifecycleManager(d)
	assert.Equal(t, filepath.Join(d.GetConfig().WorkspacePath(), PIDFileName), lm.PIDFile())

	require.NoError(t, lm.Start())
	pid, err := ReadPID(lm.PIDFile())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, ProcessAlive(pid))

	require.NoError(t, lm.Stop())
	_, err = ReadPID(lm.PIDFile())
	assert.True(t, os.IsNotExist(err))
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	t.Run("should reject garbage", func(t *testing.T) {
		path := filepath.Join(dir, "bad.pid")
		require.NoError(t, os.WriteFile(path, []byte("invalid"), 0644))

		_, err := ReadPID(path)
		assert.Error(t, err)
	})

	t.Run("should trim whitespace", func(t *testing.T) {
		path := filepath.Join(dir, "ok.pid")
		require.NoError(t, os.WriteFile(path, []byte("1234\n"), 0644))

		pid, err := ReadPID(path)
		require.NoError(t, err)
		assert.Equal(t, 1234, pid)
	})

	t.Run("should treat non-positive pids as dead", func(t *testing.T) {
		assert.False(t, ProcessAlive(0))
		assert.False(t, ProcessAlive(-1))
	})
}
