package orchestrator

import (
	"fmt"
	"time"

	"github.com/enkiluv/scl-core-experiment/internal/memory"
	"github.com/enkiluv/scl-core-experiment/internal/types"
)

// Report is the sole durable output of a run: the original task, the
// active policy rule names, the full ordered trace log, and an aggregate
// summary. Serialization to a file is the caller's business.
type Report struct {
	// RunID identifies this run.
	RunID types.ID `json:"run_id"`

	// Task is the original task text.
	Task string `json:"task"`

	// Status is the terminal outcome. Only StatusCompleted carries a
	// completion marker; an exhausted run is recognizable by its absence.
	Status Status `json:"status"`

	// StopReason explains why the run stopped.
	StopReason string `json:"stop_reason,omitempty"`

	// Policies lists the active policy rule names in evaluation order.
	Policies []string `json:"policies"`

	// Log is the full ordered trace log.
	Log []memory.TraceRecord `json:"log"`

	// Summary aggregates the run.
	Summary ReportSummary `json:"summary"`

	// Duration is the total wall time of the run.
	Duration time.Duration `json:"duration"`
}

// ReportSummary aggregates a finished run.
type ReportSummary struct {
	// TotalLoops is the number of cognition invocations, equal to the
	// count of cognition-stage trace records. Never exceeds the ceiling.
	TotalLoops int `json:"total_loops"`

	// PolicyViolations is the count of control-stage trace records whose
	// validation result is false.
	PolicyViolations int `json:"policy_violations"`

	// FinalState is the audit store summary at the end of the run.
	FinalState memory.Summary `json:"final_state"`
}

// String returns a one-line human-readable form of the report.
func (r *Report) String() string {
	return fmt.Sprintf(
		"Report{Status: %s, Loops: %d, Violations: %d, Traces: %d, Duration: %s}",
		r.Status,
		r.Summary.TotalLoops,
		r.Summary.PolicyViolations,
		len(r.Log),
		r.Duration,
	)
}
