package cognition

import "github.com/enkiluv/scl-core-experiment/internal/types"

// Cognition error codes
const (
	// ErrEngineFailed is returned when the engine itself errors.
	ErrEngineFailed types.ErrorCode = "COGNITION_ENGINE_FAILED"

	// ErrEngineContract is returned when the engine produces a proposal
	// missing required structural fields. This aborts the run: it means
	// the external collaborator is broken, not a runtime condition the
	// loop can reason about.
	ErrEngineContract types.ErrorCode = "COGNITION_ENGINE_CONTRACT"
)
