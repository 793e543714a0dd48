package orchestrator

import "context"

// Planner produces the retrieval plan that seeds the audit store at the
// start of a run: evidence requirements, domain thresholds, and the tool
// inventory the decision-maker should work from. The retrieval stage runs
// exactly once per run and never repeats.
type Planner interface {
	Plan(ctx context.Context, task string) (map[string]any, error)
}

// PlannerFunc adapts a plain function into a Planner.
type PlannerFunc func(ctx context.Context, task string) (map[string]any, error)

// Plan implements Planner.
func (f PlannerFunc) Plan(ctx context.Context, task string) (map[string]any, error) {
	return f(ctx, task)
}
