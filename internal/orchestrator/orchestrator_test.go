package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/enkiluv/scl-core-experiment/internal/cognition"
	"github.com/enkiluv/scl-core-experiment/internal/events"
	"github.com/enkiluv/scl-core-experiment/internal/memory"
	"github.com/enkiluv/scl-core-experiment/internal/tool"
	"github.com/enkiluv/scl-core-experiment/internal/types"
)

// scriptEngine replays a fixed sequence of proposals; the last entry
// repeats once the script is exhausted.
type scriptEngine struct {
	script []*cognition.Proposal
	calls  int
	lastCx cognition.Snapshot
}

func (e *scriptEngine) Propose(_ context.Context, snapshot cognition.Snapshot) (*cognition.Proposal, error) {
	e.lastCx = snapshot
	idx := e.calls
	if idx >= len(e.script) {
		idx = len(e.script) - 1
	}
	e.calls++
	return e.script[idx], nil
}

type erroringEngine struct{ err error }

func (e *erroringEngine) Propose(_ context.Context, _ cognition.Snapshot) (*cognition.Proposal, error) {
	return nil, e.err
}

func staticPlanner(plan map[string]any) Planner {
	return PlannerFunc(func(_ context.Context, _ string) (map[string]any, error) {
		return plan, nil
	})
}

func newTestRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	registry := tool.NewRegistry()

	lookup := tool.NewFunc("lookup", "returns a fixed record", func(_ context.Context, params map[string]any) (map[string]any, error) {
		return map[string]any{"key": params["key"], "value": 42}, nil
	})
	broken := tool.NewFunc("broken", "always errors", func(_ context.Context, _ map[string]any) (map[string]any, error) {
		return nil, fmt.Errorf("upstream unavailable")
	})

	require.NoError(t, registry.Register(lookup))
	require.NoError(t, registry.Register(broken))
	return registry
}

func finalProposal(refs ...string) *cognition.Proposal {
	return &cognition.Proposal{
		Reasoning:    "evidence gathered, concluding",
		Action:       &cognition.ActionSpec{Tool: "lookup", Params: map[string]any{"key": "final"}},
		EvidenceRefs: refs,
		Final:        true,
	}
}

func TestRun_EmptyTask(t *testing.T) {
	orch := New(&scriptEngine{}, staticPlanner(nil), newTestRegistry(t))

	_, err := orch.Run(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidTask, types.CodeOf(err))
}

func TestRun_RetrievalFailure(t *testing.T) {
	planner := PlannerFunc(func(_ context.Context, _ string) (map[string]any, error) {
		return nil, fmt.Errorf("index offline")
	})
	orch := New(&scriptEngine{script: []*cognition.Proposal{finalProposal("ev")}}, planner, newTestRegistry(t))

	report, err := orch.Run(context.Background(), "do the thing")
	require.Error(t, err)
	assert.Equal(t, ErrRetrievalFailed, types.CodeOf(err))
	assert.Nil(t, report)
}

func TestRun_CompletesOnFinalApprovedAction(t *testing.T) {
	engine := &scriptEngine{script: []*cognition.Proposal{finalProposal("plan")}}
	orch := New(engine, staticPlanner(map[string]any{"sources": []string{"kb"}}), newTestRegistry(t))

	report, err := orch.Run(context.Background(), "answer the question")
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.True(t, report.Status.IsTerminalSuccess())
	assert.Equal(t, 1, report.Summary.TotalLoops)
	assert.Equal(t, 0, report.Summary.PolicyViolations)
	assert.NoError(t, report.RunID.Validate())
	assert.NotEmpty(t, report.Policies)

	// Exactly one pass through each stage: retrieval, cognition, control,
	// action, in order and with increasing sequence numbers.
	require.Len(t, report.Log, 4)
	stages := []memory.Stage{memory.StageRetrieval, memory.StageCognition, memory.StageControl, memory.StageAction}
	for i, record := range report.Log {
		assert.Equal(t, stages[i], record.Stage)
		assert.Equal(t, int64(i+1), record.Seq)
	}

	// The final action stored its result as evidence.
	assert.Len(t, report.Summary.FinalState.EvidenceKeys, 1)
}

func TestRun_ExhaustsAtIterationCeiling(t *testing.T) {
	neverFinal := &cognition.Proposal{
		Reasoning:    "still gathering",
		Action:       &cognition.ActionSpec{Tool: "lookup", Params: map[string]any{"key": "a"}},
		EvidenceRefs: []string{"plan"},
	}
	engine := &scriptEngine{script: []*cognition.Proposal{neverFinal}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t), WithMaxIterations(1))

	report, err := orch.Run(context.Background(), "never finishes")
	require.NoError(t, err)

	assert.Equal(t, StatusExhausted, report.Status)
	assert.Equal(t, "iteration ceiling reached", report.StopReason)
	assert.Equal(t, 1, report.Summary.TotalLoops)
	assert.Equal(t, 1, engine.calls)
}

func TestRun_RejectionsCountTowardCeiling(t *testing.T) {
	// No citations, so every proposal is rejected and no tool ever runs.
	uncited := &cognition.Proposal{
		Reasoning: "acting without evidence",
		Action:    &cognition.ActionSpec{Tool: "lookup", Params: map[string]any{"key": "a"}},
	}
	engine := &scriptEngine{script: []*cognition.Proposal{uncited}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t), WithMaxIterations(3))

	report, err := orch.Run(context.Background(), "stubborn engine")
	require.NoError(t, err)

	assert.Equal(t, StatusExhausted, report.Status)
	assert.Equal(t, 3, report.Summary.TotalLoops)
	assert.Equal(t, 3, report.Summary.PolicyViolations)

	for _, record := range report.Log {
		assert.NotEqual(t, memory.StageAction, record.Stage)
	}
	assert.Empty(t, report.Summary.FinalState.EvidenceKeys)
}

func TestRun_RejectionReasonSurfacesToNextIteration(t *testing.T) {
	uncited := &cognition.Proposal{
		Reasoning: "acting without evidence",
		Action:    &cognition.ActionSpec{Tool: "lookup", Params: map[string]any{"key": "a"}},
	}
	engine := &scriptEngine{script: []*cognition.Proposal{uncited, finalProposal("plan")}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t))

	report, err := orch.Run(context.Background(), "recovers after rejection")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 2, report.Summary.TotalLoops)
	assert.Equal(t, 1, report.Summary.PolicyViolations)
	assert.Contains(t, engine.lastCx.Context.LastRejection, "must_cite_stored_evidence")
}

func TestRun_RedundantCallRejectedBeforeExecution(t *testing.T) {
	repeat := &cognition.Proposal{
		Reasoning:    "query the record",
		Action:       &cognition.ActionSpec{Tool: "lookup", Params: map[string]any{"key": "dup"}},
		EvidenceRefs: []string{"plan"},
	}
	conclude := &cognition.Proposal{
		Reasoning:    "record already cached, concluding",
		EvidenceRefs: []string{"plan"},
		Final:        true,
	}
	engine := &scriptEngine{script: []*cognition.Proposal{repeat, repeat, conclude}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t))

	report, err := orch.Run(context.Background(), "dedup")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 1, report.Summary.PolicyViolations)

	// The duplicate never executed: one cached lookup plus the final
	// no-action record.
	assert.Len(t, report.Summary.FinalState.EvidenceKeys, 1)

	var actionCount int
	for _, record := range report.Log {
		if record.Stage == memory.StageAction {
			actionCount++
		}
	}
	assert.Equal(t, 2, actionCount)
	assert.Contains(t, engine.lastCx.Context.LastRejection, "redundant tool call")
}

func TestRun_ToolFailureFoldsIntoResult(t *testing.T) {
	failing := &cognition.Proposal{
		Reasoning:    "call the broken dependency",
		Action:       &cognition.ActionSpec{Tool: "broken", Params: map[string]any{}},
		EvidenceRefs: []string{"plan"},
	}
	engine := &scriptEngine{script: []*cognition.Proposal{failing, finalProposal("plan")}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t))

	report, err := orch.Run(context.Background(), "tolerates tool failure")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, report.Status)

	// The failure produced a structured result and no evidence entry.
	assert.Equal(t, "error", engine.lastCx.Context.LastResult["status"])
	assert.Contains(t, engine.lastCx.Context.LastResult["message"], "upstream unavailable")
	assert.Len(t, report.Summary.FinalState.EvidenceKeys, 1)
}

func TestRun_NoActionProposal(t *testing.T) {
	think := &cognition.Proposal{
		Reasoning:    "reflecting before acting",
		EvidenceRefs: []string{"plan"},
	}
	engine := &scriptEngine{script: []*cognition.Proposal{think, finalProposal("plan")}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t))

	report, err := orch.Run(context.Background(), "thinks first")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, "no_action", engine.lastCx.Context.LastResult["status"])
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &scriptEngine{script: []*cognition.Proposal{finalProposal("plan")}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t))

	report, err := orch.Run(ctx, "cancelled before the loop")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, report.Status)
	assert.Equal(t, 0, report.Summary.TotalLoops)
	assert.Equal(t, 0, engine.calls)
}

func TestRun_EngineError(t *testing.T) {
	orch := New(&erroringEngine{err: fmt.Errorf("model unreachable")}, staticPlanner(nil), newTestRegistry(t))

	report, err := orch.Run(context.Background(), "broken engine")
	require.Error(t, err)
	assert.Equal(t, cognition.ErrEngineFailed, types.CodeOf(err))

	require.NotNil(t, report)
	assert.Equal(t, StatusFailed, report.Status)
}

func TestRun_MalformedProposalAbortsRun(t *testing.T) {
	malformed := &cognition.Proposal{Reasoning: "", Action: &cognition.ActionSpec{Tool: "lookup"}}
	engine := &scriptEngine{script: []*cognition.Proposal{malformed}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t))

	report, err := orch.Run(context.Background(), "contract breach")
	require.Error(t, err)
	assert.Equal(t, cognition.ErrEngineContract, types.CodeOf(err))

	require.NotNil(t, report)
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, 0, report.Summary.TotalLoops)
}

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(64)
	defer cancel()

	engine := &scriptEngine{script: []*cognition.Proposal{finalProposal("plan")}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t), WithEventBus(bus))

	_, err := orch.Run(context.Background(), "emits events")
	require.NoError(t, err)

	seen := map[events.EventType]int{}
	deadline := time.After(time.Second)
	for len(seen) < 4 {
		select {
		case ev := <-ch:
			seen[ev.Type]++
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}

	assert.Equal(t, 1, seen[events.EventRunStarted])
	assert.Equal(t, 1, seen[events.EventRunFinished])
	assert.Equal(t, 1, seen[events.EventActionExecuted])
	assert.Equal(t, 4, seen[events.EventStageCompleted])
}

func TestRun_EmitsSpansForEachStage(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	engine := &scriptEngine{script: []*cognition.Proposal{finalProposal("plan")}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t),
		WithTracer(provider.Tracer("test")))

	_, err := orch.Run(context.Background(), "traced run")
	require.NoError(t, err)

	names := map[string]bool{}
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}
	assert.True(t, names["orchestrator.run"])
	assert.True(t, names["orchestrator.retrieval"])
	assert.True(t, names["orchestrator.cognition"])
	assert.True(t, names["orchestrator.action"])
}

func TestRun_OrchestratorIsReusableAcrossRuns(t *testing.T) {
	engine := &scriptEngine{script: []*cognition.Proposal{finalProposal("plan")}}
	orch := New(engine, staticPlanner(nil), newTestRegistry(t))

	first, err := orch.Run(context.Background(), "first run")
	require.NoError(t, err)

	engine.calls = 0
	second, err := orch.Run(context.Background(), "second run")
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Len(t, second.Log, 4)
	assert.Len(t, second.Summary.FinalState.EvidenceKeys, 1)
}
