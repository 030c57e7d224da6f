package agent

import (
	"context"
	"fmt"

	"github.com/harun/redclaw/pkg/llm"
	"github.com/harun/redclaw/pkg/session"
	"github.com/harun/redclaw/pkg/tools"
	"github.com/rs/zerolog"
)

// State is a step of a run.
type State int

const (
	// StateAwaitingModel sends the transcript, with tools, to the model.
	StateAwaitingModel State = iota
	// StateExecutingTools runs the tool calls of the last reply.
	StateExecutingTools
	// StateForcedFallback asks once more, without tools, after the
	// iteration budget is spent.
	StateForcedFallback
	// StateDone means the answer is final.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTools:
		return "executing_tools"
	case StateForcedFallback:
		return "forced_fallback"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// run is the mutable state of one Run. Every message is appended to both the
// transcript sent to the model and the session that gets persisted.
type run struct {
	loop       *Loop
	session    *session.Session
	transcript []llm.Message
	specs      []tools.Spec

	last       llm.Message
	answer     string
	iterations int
	roundTrips int
	toolCalls  int
	forced     bool

	logger zerolog.Logger
}

func (r *run) record(m llm.Message) {
	r.transcript = append(r.transcript, m)
	r.session.Append(m)
}

// drive steps the state machine until StateDone or a model failure.
func (r *run) drive(ctx context.Context) error {
	state := StateAwaitingModel
	for state != StateDone {
		var err error
		switch state {
		case StateAwaitingModel:
			state, err = r.awaitModel(ctx)
		case StateExecutingTools:
			state = r.executeTools(ctx)
		case StateForcedFallback:
			state = r.forceFallback(ctx)
		default:
			return fmt.Errorf("unexpected run state %s", state)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// awaitModel performs one tool-enabled round-trip. A reply with tool calls
// moves to StateExecutingTools; anything else is the final answer.
func (r *run) awaitModel(ctx context.Context) (State, error) {
	if r.iterations >= r.loop.maxIterations {
		return StateForcedFallback, nil
	}
	r.iterations++

	reply, err := r.loop.client.Chat(ctx, r.transcript, r.specs)
	if err != nil {
		return StateDone, classifyModelError(err)
	}
	r.roundTrips++
	r.record(reply)
	r.last = reply

	if reply.HasToolCalls() {
		return StateExecutingTools, nil
	}
	r.answer = reply.Text()
	return StateDone, nil
}

// executeTools runs the last reply's tool calls in order and records one tool
// message per call.
func (r *run) executeTools(ctx context.Context) State {
	for _, call := range r.last.ToolCalls {
		result := r.executeTool(ctx, call)
		r.toolCalls++
		r.record(llm.ToolResultMessage(call.ID, call.Function.Name, result))
	}
	return StateAwaitingModel
}

func (r *run) executeTool(ctx context.Context, call llm.ToolCall) string {
	name := call.Function.Name
	logger := r.logger.With().Str("tool", name).Str("tool_call_id", call.ID).Logger()

	args, err := call.ParseArguments()
	if err != nil {
		logger.Debug().Err(err).Msg("Invalid tool arguments")
		return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
	}

	out, err := r.loop.tools.Execute(ctx, name, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

// forceFallback makes the single tools-free call after the budget is spent.
// Its failure yields an empty answer instead of an error.
func (r *run) forceFallback(ctx context.Context) State {
	r.forced = true
	r.logger.Warn().Int("max_iterations", r.loop.maxIterations).Msg("Iteration limit reached, requesting final answer without tools")

	reply, err := r.loop.client.Chat(ctx, r.transcript, nil)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Final answer request failed")
		r.answer = ""
		return StateDone
	}
	r.roundTrips++
	// Tool calls here would never get results, so only the text is kept.
	r.answer = reply.Text()
	r.record(llm.AssistantMessage(r.answer))
	return StateDone
}
