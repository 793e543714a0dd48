package tool

import (
	"context"
	"sync"
	"time"

	"github.com/enkiluv/scl-core-experiment/internal/types"
)

// Registry is the name→tool dispatch table for the action stage.
//
// Registration order is preserved so Describe produces reproducible
// snapshots for the decision-maker. Re-registering a name overwrites the
// previous tool (registration happens once at setup in the intended
// usage, never at run time).
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	metrics map[string]*Metrics
	timeout time.Duration
}

// RegistryOption is a functional option for configuring the Registry.
type RegistryOption func(*Registry)

// WithDispatchTimeout bounds every Dispatch call with a deadline. The
// expired-deadline error surfaces like any other execution error, so the
// orchestrator never blocks indefinitely on a single tool.
// Default: 30s. Zero disables the bound.
func WithDispatchTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		tools:   make(map[string]Tool),
		metrics: make(map[string]*Metrics),
		timeout: 30 * time.Second,
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// Register adds a tool to the registry. A tool with the same name
// replaces the prior registration but keeps its position in the
// registration order.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return types.NewError(ErrToolInvalid, "tool cannot be nil")
	}

	name := t.Name()
	if name == "" {
		return types.NewError(ErrToolInvalid, "tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
		r.metrics[name] = NewMetrics()
	}
	r.tools[name] = t

	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, notFound(name)
	}
	return t, nil
}

// Describe returns descriptors for all registered tools in registration
// order.
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		descriptors = append(descriptors, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
		})
	}
	return descriptors
}

// Dispatch runs a tool by name with the given parameters, recording
// metrics. The tool's result is returned unchanged. Returns a
// TOOL_NOT_FOUND error for unregistered names and wraps execution
// failures with TOOL_EXECUTION_FAILED.
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	output, execErr := t.Execute(ctx, params)
	duration := time.Since(start)

	r.mu.Lock()
	if metrics, exists := r.metrics[name]; exists {
		if execErr != nil {
			metrics.RecordFailure(duration)
		} else {
			metrics.RecordSuccess(duration)
		}
	}
	r.mu.Unlock()

	if execErr != nil {
		return nil, executionFailed(name, execErr)
	}

	return output, nil
}

// Metrics returns a copy of the dispatch metrics for a tool.
func (r *Registry) Metrics(name string) (Metrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics, exists := r.metrics[name]
	if !exists {
		return Metrics{}, notFound(name)
	}
	return *metrics, nil
}
