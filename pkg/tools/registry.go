package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/redclaw/internal/observability"
	"github.com/harun/redclaw/internal/tracing"
)

// ErrToolNotFound is returned by Execute for unregistered names.
var ErrToolNotFound = errors.New("tool not found")

// Registry maps tool names to tools. It owns registered tools for the
// lifetime of the process.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger.With().Str("component", "tools").Logger(),
	}
}

// Register adds t, replacing any tool already registered under the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		r.logger.Debug().Str("tool", t.Name()).Msg("Tool replaced")
	}
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the schema of every registered tool. Order is not
// significant.
func (r *Registry) Definitions() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, SpecOf(t))
	}
	return specs
}

// Execute runs the named tool. The tool's output and error are returned
// unchanged; converting failures into text is the caller's job.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	ctx, span := tracing.StartSpan(ctx, tracing.TracerTools, "tool.execute", attribute.String("tool", name))
	logger := tracing.LoggerFromContext(ctx, r.logger).With().Str("tool", name).Logger()

	start := time.Now()
	out, err := t.Execute(ctx, args)
	duration := time.Since(start)

	observability.RecordToolExecution(name, duration, err == nil)
	tracing.EndSpan(span, err)

	if err != nil {
		logger.Debug().Err(err).Dur("duration", duration).Msg("Tool failed")
	} else {
		logger.Debug().Int("output_bytes", len(out)).Dur("duration", duration).Msg("Tool executed")
	}

	return out, err
}
