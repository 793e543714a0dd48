package orchestrator

import "github.com/enkiluv/scl-core-experiment/internal/types"

// Orchestrator error codes
const (
	// ErrRetrievalFailed is returned when the planner cannot produce a
	// retrieval plan. The run aborts before entering the loop.
	ErrRetrievalFailed types.ErrorCode = "ORCHESTRATOR_RETRIEVAL_FAILED"

	// ErrInvalidTask is returned for an empty task.
	ErrInvalidTask types.ErrorCode = "ORCHESTRATOR_INVALID_TASK"
)
