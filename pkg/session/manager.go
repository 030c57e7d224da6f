package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/tracing"
	"github.com/harun/redclaw/pkg/llm"
)

const fileExt = ".json"

// Manager stores sessions as <dir>/<key>.json.
type Manager struct {
	sessionsDir string
	writeLocks  map[string]*sync.Mutex
	locksMu     sync.Mutex
	logger      zerolog.Logger
}

// New creates a manager rooted at sessionsDir, creating the directory.
func New(sessionsDir string, logger zerolog.Logger) (*Manager, error) {
	observability.EnsureRegistered()

	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	m := &Manager{
		sessionsDir: sessionsDir,
		writeLocks:  make(map[string]*sync.Mutex),
		logger:      logger.With().Str("component", "session").Logger(),
	}

	m.logger.Debug().Str("dir", sessionsDir).Msg("Session manager initialized")
	m.updateActiveSessionsMetric()

	return m, nil
}

// Dir returns the sessions directory.
func (m *Manager) Dir() string {
	return m.sessionsDir
}

// Path returns the file backing key.
func (m *Manager) Path(key string) string {
	return filepath.Join(m.sessionsDir, key+fileExt)
}

func (m *Manager) getWriteLock(key string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.writeLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.writeLocks[key] = lock
	}
	return lock
}

// Load reads the session for key. A missing or corrupt file yields an empty
// session; only an invalid key is an error.
func (m *Manager) Load(ctx context.Context, key string) (*Session, error) {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerSession, "session.load",
		attribute.String("session_key", key))
	logger := tracing.LoggerFromContext(ctx, m.logger).With().Str("session_key", key).Logger()
	start := time.Now()
	defer func() {
		observability.RecordSessionLoad(time.Since(start))
	}()

	if err := ValidateKey(key); err != nil {
		tracing.EndSpan(span, err)
		return nil, err
	}
	defer span.End()

	data, err := os.ReadFile(m.Path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Msg("Failed to read session, starting empty")
		}
		return NewSession(), nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		logger.Warn().Err(err).Msg("Corrupt session file, starting empty")
		return NewSession(), nil
	}
	if sess.Messages == nil {
		sess.Messages = []llm.Message{}
	}

	span.SetAttributes(attribute.Int("messages", len(sess.Messages)))
	logger.Debug().Int("messages", len(sess.Messages)).Msg("Session loaded")

	return &sess, nil
}

// Save writes s to a temp file in the sessions directory and renames it
// over the session file.
func (m *Manager) Save(ctx context.Context, key string, s *Session) (err error) {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerSession, "session.save",
		attribute.String("session_key", key))
	logger := tracing.LoggerFromContext(ctx, m.logger).With().Str("session_key", key).Logger()
	start := time.Now()
	defer func() {
		observability.RecordSessionSave(time.Since(start))
		tracing.EndSpan(span, err)
	}()

	if err := ValidateKey(key); err != nil {
		return err
	}
	if s == nil {
		s = NewSession()
	}

	lock := m.getWriteLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(m.sessionsDir, 0700); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(m.sessionsDir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close session: %w", err)
	}
	if err := os.Rename(tmpPath, m.Path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	m.updateActiveSessionsMetric()
	logger.Debug().Int("messages", len(s.Messages)).Msg("Session saved")

	return nil
}

// Delete removes the session file. Deleting a missing session is not an
// error.
func (m *Manager) Delete(ctx context.Context, key string) (err error) {
	ctx, span := tracing.StartSpan(ctx, tracing.TracerSession, "session.delete",
		attribute.String("session_key", key))
	logger := tracing.LoggerFromContext(ctx, m.logger).With().Str("session_key", key).Logger()
	defer func() { tracing.EndSpan(span, err) }()

	if err := ValidateKey(key); err != nil {
		return err
	}

	lock := m.getWriteLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(m.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	m.updateActiveSessionsMetric()
	logger.Info().Msg("Session deleted")

	return nil
}

// List returns the stored session keys, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(keys)

	return keys, nil
}

func (m *Manager) updateActiveSessionsMetric() {
	keys, err := m.List(context.Background())
	if err != nil {
		return
	}
	observability.SetActiveSessions(len(keys))
}
