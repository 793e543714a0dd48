package cognition

import (
	"context"

	"github.com/enkiluv/scl-core-experiment/internal/memory"
	"github.com/enkiluv/scl-core-experiment/internal/tool"
)

// Snapshot is the full input the orchestrator hands the engine for one
// cognition invocation. It is rebuilt from the audit store before every
// invocation, so the engine always reasons over current state.
type Snapshot struct {
	// Memory is the audit store summary at the time of the invocation.
	Memory memory.Summary `json:"memory"`

	// Tools lists the registered tools in registration order.
	Tools []tool.Descriptor `json:"tools"`

	// Context carries the running task context across iterations.
	Context RunContext `json:"context"`
}

// RunContext is the per-iteration carry-over the orchestrator threads
// from one cognition invocation to the next.
type RunContext struct {
	// Task is the original task text.
	Task string `json:"task"`

	// Plan is the retrieval plan seeded at the start of the run.
	Plan map[string]any `json:"plan,omitempty"`

	// Loop is the number of cognition invocations so far.
	Loop int `json:"loop"`

	// LastResult is the previous iteration's action result, if any.
	LastResult map[string]any `json:"last_result,omitempty"`

	// LastRejection is the control rejection reason from the previous
	// iteration, empty if the previous proposal was approved.
	LastRejection string `json:"last_rejection,omitempty"`

	// PendingFollowUp is a follow-up goal declared by an earlier approved
	// proposal that has not yet been addressed.
	PendingFollowUp string `json:"pending_follow_up,omitempty"`
}

// Engine is the external decision-maker. Given a state snapshot it returns
// a proposed action plus reasoning metadata. The orchestrator imposes no
// constraint on how the engine decides (rule table, search, or a model
// call), only on the structural shape of its output (Proposal.Validate).
type Engine interface {
	Propose(ctx context.Context, snapshot Snapshot) (*Proposal, error)
}
