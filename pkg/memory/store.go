package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/redclaw/internal/observability"
)

const (
	longTermFile = "MEMORY.md"
	recentDays   = 3

	sectionSeparator = "\n\n---\n\n"
)

// ContextStore reads and writes the long-term note and the daily notes.
// Dates are UTC calendar days.
type ContextStore struct {
	memoryDir string
	logger    zerolog.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// Option configures a ContextStore.
type Option func(*ContextStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ContextStore) {
		s.now = now
	}
}

// NewContextStore creates the store for workspace, creating the memory
// directory.
func NewContextStore(workspace string, logger zerolog.Logger, opts ...Option) (*ContextStore, error) {
	memoryDir, err := EnsureMemoryDirectory(workspace)
	if err != nil {
		return nil, err
	}

	s := &ContextStore{
		memoryDir: memoryDir,
		logger:    logger.With().Str("component", "memory").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the memory directory.
func (s *ContextStore) Dir() string {
	return s.memoryDir
}

// LongTermPath returns the path of MEMORY.md.
func (s *ContextStore) LongTermPath() string {
	return filepath.Join(s.memoryDir, longTermFile)
}

// DailyPath returns memory/YYYYMM/YYYYMMDD.md for the UTC day of t.
func (s *ContextStore) DailyPath(t time.Time) string {
	t = t.UTC()
	return filepath.Join(s.memoryDir, t.Format("200601"), t.Format("20060102")+".md")
}

func (s *ContextStore) today() time.Time {
	return s.now().UTC()
}

// ReadLongTerm returns the long-term note, or "" when there is none.
func (s *ContextStore) ReadLongTerm() string {
	return readOptional(s.LongTermPath())
}

// WriteLongTerm replaces the long-term note.
func (s *ContextStore) WriteLongTerm(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.memoryDir, 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}
	if err := os.WriteFile(s.LongTermPath(), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write long-term memory: %w", err)
	}
	return nil
}

// ReadToday returns today's daily note, or "".
func (s *ContextStore) ReadToday() string {
	return readOptional(s.DailyPath(s.today()))
}

// AppendToday appends content to today's note. The first write of a day
// starts the file with a "# YYYY-MM-DD" heading.
func (s *ContextStore) AppendToday(content string) (err error) {
	defer func() {
		observability.RecordDailyNoteAppend(err == nil)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.today()
	path := s.DailyPath(now)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create daily note directory: %w", err)
	}

	existing := readOptional(path)
	var next string
	if existing == "" {
		next = fmt.Sprintf("# %s\n\n%s", now.Format("2006-01-02"), content)
	} else {
		next = existing + "\n" + content
	}

	if err := os.WriteFile(path, []byte(next), 0644); err != nil {
		return fmt.Errorf("failed to write daily note: %w", err)
	}

	s.logger.Debug().Str("file", path).Int("bytes", len(content)).Msg("Daily note appended")
	return nil
}

// RecentNotes returns the daily notes of the last three UTC days, oldest
// first. Absent days are skipped.
func (s *ContextStore) RecentNotes() []string {
	now := s.today()
	notes := make([]string, 0, recentDays)
	for i := recentDays - 1; i >= 0; i-- {
		if note := readOptional(s.DailyPath(now.AddDate(0, 0, -i))); note != "" {
			notes = append(notes, note)
		}
	}
	return notes
}

// ContextBlock renders the long-term note and recent daily notes for the
// system message. It returns "" when neither exists.
func (s *ContextStore) ContextBlock() string {
	var parts []string

	if longTerm := s.ReadLongTerm(); longTerm != "" {
		parts = append(parts, "## Long-term Memory\n\n"+longTerm)
	}

	if notes := s.RecentNotes(); len(notes) > 0 {
		parts = append(parts, "## Recent Daily Notes\n\n"+strings.Join(notes, sectionSeparator))
	}

	if len(parts) == 0 {
		return ""
	}

	return "# Memory\n\n" + strings.Join(parts, sectionSeparator)
}
