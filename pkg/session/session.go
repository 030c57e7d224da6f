package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harun/redclaw/pkg/llm"
)

// ErrInvalidSessionKey is returned for keys that cannot name a file.
var ErrInvalidSessionKey = errors.New("invalid session key")

// Session is the ordered message history of one conversation.
type Session struct {
	Messages []llm.Message `json:"messages"`
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{Messages: []llm.Message{}}
}

// Append adds messages to the end of the history.
func (s *Session) Append(msgs ...llm.Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Len returns the number of messages.
func (s *Session) Len() int {
	return len(s.Messages)
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	out := &Session{Messages: make([]llm.Message, len(s.Messages))}
	for i, m := range s.Messages {
		if m.Content != nil {
			m.Content = llm.String(*m.Content)
		}
		if m.ToolCalls != nil {
			m.ToolCalls = append([]llm.ToolCall(nil), m.ToolCalls...)
		}
		out.Messages[i] = m
	}
	return out
}

// Store loads and saves sessions by key.
type Store interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, s *Session) error
}

// ValidateKey rejects empty keys and keys containing path separators, ".."
// or NUL.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidSessionKey)
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidSessionKey, key)
	}
	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSessionKey, key)
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("%w: key contains a null byte", ErrInvalidSessionKey)
	}
	return nil
}
