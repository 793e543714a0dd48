package events

import (
	"time"

	"github.com/enkiluv/scl-core-experiment/internal/types"
)

// EventType identifies the kind of loop lifecycle event.
type EventType string

const (
	// EventRunStarted fires once when a run begins, before retrieval.
	EventRunStarted EventType = "run.started"

	// EventStageCompleted fires after each stage appends its trace record.
	EventStageCompleted EventType = "stage.completed"

	// EventProposalRejected fires when control rejects a proposal.
	EventProposalRejected EventType = "proposal.rejected"

	// EventActionExecuted fires after the action stage records a result.
	EventActionExecuted EventType = "action.executed"

	// EventRunFinished fires once when a run stops, whatever the status.
	EventRunFinished EventType = "run.finished"
)

// Event is one loop lifecycle notification. Events replace the ad hoc
// console printing of stage activity: subscribers format them however
// they like, and the engine itself stays silent.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     types.ID       `json:"run_id"`
	Stage     string         `json:"stage,omitempty"`
	Iteration int            `json:"iteration,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}
