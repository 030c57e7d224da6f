package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/harun/redclaw/pkg/llm"
	"github.com/harun/redclaw/pkg/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRunState builds a run directly, bypassing Run, with the transcript
// holding a system message and one user message.
func newRunState(f *fixture) *run {
	r := &run{
		loop:       f.loop,
		session:    session.NewSession(),
		transcript: []llm.Message{llm.SystemMessage("persona")},
		specs:      f.registry.Definitions(),
		logger:     zerolog.Nop(),
	}
	r.record(llm.UserMessage("hi"))
	return r
}

func TestRun_AwaitModel(t *testing.T) {
	t.Run("should finish on a text reply", func(t *testing.T) {
		f := newFixture(t, 3, answer("hello"))
		r := newRunState(f)

		next, err := r.awaitModel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StateDone, next)
		assert.Equal(t, "hello", r.answer)
		assert.Equal(t, 1, r.iterations)
		assert.Equal(t, 1, r.roundTrips)
		assert.Len(t, r.session.Messages, 2)
		assert.NotEmpty(t, f.client.Calls()[0].specs)
	})

	t.Run("should move to tool execution on tool calls", func(t *testing.T) {
		f := newFixture(t, 3, toolCall("c1", "list_dir", `{"path":"."}`))
		r := newRunState(f)

		next, err := r.awaitModel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StateExecutingTools, next)
		assert.True(t, r.last.HasToolCalls())
	})

	t.Run("should move to the fallback once the budget is spent", func(t *testing.T) {
		f := newFixture(t, 2, answer("unused"))
		r := newRunState(f)
		r.iterations = 2

		next, err := r.awaitModel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StateForcedFallback, next)
		assert.Empty(t, f.client.Calls())
	})

	t.Run("should classify model failures without recording", func(t *testing.T) {
		f := newFixture(t, 3, reply{err: &llm.ProtocolError{Reason: "no choices", Err: errors.New("no choices")}})
		r := newRunState(f)

		_, err := r.awaitModel(context.Background())
		assert.ErrorIs(t, err, ErrProtocol)
		assert.Len(t, r.session.Messages, 1)
		assert.Equal(t, 0, r.roundTrips)
	})
}

func TestRun_ExecuteTools(t *testing.T) {
	f := newFixture(t, 3, answer("unused"))
	r := newRunState(f)
	r.last = llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "c1", Type: "function", Function: llm.FunctionCall{Name: "list_dir", Arguments: `{"path":"."}`}},
			{ID: "c2", Type: "function", Function: llm.FunctionCall{Name: "missing", Arguments: `{}`}},
		},
	}

	next := r.executeTools(context.Background())
	assert.Equal(t, StateAwaitingModel, next)
	assert.Equal(t, 2, r.toolCalls)
	assert.Empty(t, f.client.Calls())

	results := r.session.Messages[1:]
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ToolCallID)
	assert.Equal(t, "FILE: config.json\nDIR:  workspace", results[0].Text())
	assert.Equal(t, "c2", results[1].ToolCallID)
	assert.Contains(t, results[1].Text(), "Error: ")
	assert.Contains(t, results[1].Text(), "tool not found")
}

func TestRun_ForceFallback(t *testing.T) {
	t.Run("should call without tools and record text only", func(t *testing.T) {
		withTools := toolCall("c1", "list_dir", `{"path":"."}`)
		withTools.msg.Content = llm.String("done anyway")
		f := newFixture(t, 1, withTools)
		r := newRunState(f)

		next := r.forceFallback(context.Background())
		assert.Equal(t, StateDone, next)
		assert.True(t, r.forced)
		assert.Equal(t, "done anyway", r.answer)

		calls := f.client.Calls()
		require.Len(t, calls, 1)
		assert.Empty(t, calls[0].specs)

		last := r.session.Messages[len(r.session.Messages)-1]
		assert.Equal(t, llm.RoleAssistant, last.Role)
		assert.Empty(t, last.ToolCalls)
		assert.Equal(t, "done anyway", last.Text())
	})

	t.Run("should yield an empty answer on failure", func(t *testing.T) {
		f := newFixture(t, 1, reply{err: &llm.NetworkError{Provider: "openrouter", Err: errors.New("reset")}})
		r := newRunState(f)

		next := r.forceFallback(context.Background())
		assert.Equal(t, StateDone, next)
		assert.Equal(t, "", r.answer)
		assert.Len(t, r.session.Messages, 1)
		assert.Equal(t, 0, r.roundTrips)
	})
}
