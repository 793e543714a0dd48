package tool

import (
	"fmt"

	"github.com/enkiluv/scl-core-experiment/internal/types"
)

// Tool error codes
const (
	ErrToolNotFound        types.ErrorCode = "TOOL_NOT_FOUND"
	ErrToolExecutionFailed types.ErrorCode = "TOOL_EXECUTION_FAILED"
	ErrToolInvalid         types.ErrorCode = "TOOL_INVALID"
)

func notFound(name string) error {
	return types.NewError(ErrToolNotFound, fmt.Sprintf("tool %q not found", name))
}

func executionFailed(name string, cause error) error {
	return types.WrapError(ErrToolExecutionFailed, fmt.Sprintf("tool %q execution failed", name), cause)
}
