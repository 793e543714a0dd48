package memory

import "time"

// Stage identifies which loop stage produced a trace record.
type Stage string

const (
	StageRetrieval Stage = "retrieval"
	StageCognition Stage = "cognition"
	StageControl   Stage = "control"
	StageAction    Stage = "action"
)

// String returns the string representation of the Stage.
func (s Stage) String() string {
	return string(s)
}

// IsValid checks if the Stage is one of the defined constants.
func (s Stage) IsValid() bool {
	switch s {
	case StageRetrieval, StageCognition, StageControl, StageAction:
		return true
	default:
		return false
	}
}

// TraceRecord is one immutable entry in the audit log. The store assigns
// Seq and Timestamp on append; everything else is supplied by the caller.
type TraceRecord struct {
	// Seq is the strictly increasing sequence number within a run.
	Seq int64 `json:"seq"`

	// Stage is the loop stage that produced this record.
	Stage Stage `json:"stage"`

	// Timestamp is when the record was appended.
	Timestamp time.Time `json:"timestamp"`

	// Input is the stage's input snapshot.
	Input map[string]any `json:"input"`

	// Output is the stage's output snapshot.
	Output map[string]any `json:"output"`

	// Validation holds the control verdict for control-stage records.
	// Nil for all other stages.
	Validation *bool `json:"validation,omitempty"`

	// EvidenceRefs lists evidence identifiers cited or produced by this stage.
	EvidenceRefs []string `json:"evidence_refs,omitempty"`
}

// Entry is a working-memory value with its write timestamp and an optional
// backlink to the evidence that produced it.
type Entry struct {
	Value      any       `json:"value"`
	WrittenAt  time.Time `json:"written_at"`
	EvidenceID string    `json:"evidence_id,omitempty"`
}

// Summary is a read-only snapshot of the store, used to build the
// decision-maker's input context.
type Summary struct {
	// StoredValues maps working-memory keys to their current values.
	StoredValues map[string]any `json:"stored_values"`

	// EvidenceKeys lists cached evidence identifiers in insertion order.
	EvidenceKeys []string `json:"evidence_keys"`

	// TraceCount is the number of records in the audit log.
	TraceCount int `json:"trace_count"`
}
