package orchestrator

// State is the orchestrator's position in the loop state machine.
// Transitions:
//
//	INIT → RETRIEVED                                  (retrieval, once per run)
//	RETRIEVED → AWAITING_COGNITION                    (enter the loop)
//	AWAITING_COGNITION → AWAITING_CONTROL             (engine proposed)
//	AWAITING_CONTROL → AWAITING_COGNITION             (rejected, re-invoke)
//	AWAITING_CONTROL → EXECUTING_ACTION               (approved)
//	EXECUTING_ACTION → COMPLETE                       (final action executed)
//	EXECUTING_ACTION → AWAITING_COGNITION             (continue)
//	* → EXHAUSTED                                     (ceiling or cancellation)
type State string

const (
	StateInit              State = "INIT"
	StateRetrieved         State = "RETRIEVED"
	StateAwaitingCognition State = "AWAITING_COGNITION"
	StateAwaitingControl   State = "AWAITING_CONTROL"
	StateExecutingAction   State = "EXECUTING_ACTION"
	StateComplete          State = "COMPLETE"
	StateExhausted         State = "EXHAUSTED"
)

// String returns the string representation of the State.
func (s State) String() string {
	return string(s)
}

// Status is the terminal outcome of a run.
type Status string

const (
	// StatusCompleted indicates a final action was approved and executed.
	StatusCompleted Status = "completed"

	// StatusExhausted indicates the iteration ceiling was reached before
	// a final action was both proposed and approved. Not an error.
	StatusExhausted Status = "exhausted"

	// StatusCancelled indicates the context was cancelled mid-run.
	StatusCancelled Status = "cancelled"

	// StatusFailed indicates a fatal contract error from an external
	// collaborator (a malformed or erroring decision-maker).
	StatusFailed Status = "failed"
)

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// IsTerminalSuccess reports whether the run produced a completion marker.
func (s Status) IsTerminalSuccess() bool {
	return s == StatusCompleted
}
