package tool

import "context"

// Tool is an atomic operation the action stage can dispatch. Tools are
// external collaborators: the registry performs no retries and no
// validation of their output beyond the map shape.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool
	// does, surfaced to the decision-maker through Describe.
	Description() string

	// Execute runs the tool with a named-parameter mapping. Errors are
	// raised normally; the action stage converts them into structured
	// error results rather than propagating them.
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Descriptor is the registration metadata exposed to the decision-maker.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// funcTool adapts a plain function into a Tool.
type funcTool struct {
	name        string
	description string
	fn          func(ctx context.Context, params map[string]any) (map[string]any, error)
}

// NewFunc wraps a function as a Tool with the given name and description.
func NewFunc(name, description string, fn func(ctx context.Context, params map[string]any) (map[string]any, error)) Tool {
	return &funcTool{name: name, description: description, fn: fn}
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.description }

func (t *funcTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	return t.fn(ctx, params)
}
