package agent

import (
	"errors"
	"fmt"

	"github.com/harun/redclaw/pkg/llm"
)

var (
	// ErrModelUnavailable means the model backend could not be reached.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrProtocol means the backend answered with an error or an unusable payload.
	ErrProtocol = errors.New("model protocol error")
)

// classifyModelError tags a client error with the kind Run surfaces while
// keeping the llm error in the chain.
func classifyModelError(err error) error {
	var netErr *llm.NetworkError
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	var protoErr *llm.ProtocolError
	var provErr *llm.ProviderError
	if errors.As(err, &protoErr) || errors.As(err, &provErr) {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	// Anything else (a cancelled context, a client bug) cannot have reached
	// the backend.
	return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
}
