package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/enkiluv/scl-core-experiment/internal/cognition"
	"github.com/enkiluv/scl-core-experiment/internal/events"
	"github.com/enkiluv/scl-core-experiment/internal/memory"
	"github.com/enkiluv/scl-core-experiment/internal/policy"
	"github.com/enkiluv/scl-core-experiment/internal/tool"
	"github.com/enkiluv/scl-core-experiment/internal/types"
)

// Working-memory keys the orchestrator owns. Task-scoped: each is written
// by one stage, and overwrites are last-write-wins by design.
const (
	keyTask            = "task"
	keyRetrievalPlan   = "retrieval_plan"
	keyLastResult      = "last_action_result"
	keyPendingFollowUp = "pending_followup"
)

// Orchestrator drives the retrieval→cognition→control→action→memory loop.
//
// A single Orchestrator is safe to reuse across runs: every Run creates a
// fresh audit store and policy gate, so no state leaks between tasks. The
// loop itself is strictly sequential: each cognition invocation depends
// on the store state produced by the prior control/action stages.
type Orchestrator struct {
	engine   cognition.Engine
	planner  Planner
	registry *tool.Registry

	rules         []policy.Rule
	maxIterations int
	bus           events.Bus
	logger        *slog.Logger
	tracer        trace.Tracer
}

// Option is a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithMaxIterations sets the ceiling on cognition invocations per run.
// The ceiling counts every invocation, including ones whose proposal is
// rejected, which is what guarantees termination under persistent
// rejection. Default: 20.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithRules replaces the default policy rule set for runs.
func WithRules(rules []policy.Rule) Option {
	return func(o *Orchestrator) {
		if len(rules) > 0 {
			o.rules = rules
		}
	}
}

// WithEventBus sets the bus for loop lifecycle events.
func WithEventBus(bus events.Bus) Option {
	return func(o *Orchestrator) {
		if bus != nil {
			o.bus = bus
		}
	}
}

// WithLogger sets the logger for orchestrator operations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer for run and stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// New creates an Orchestrator from its three collaborators: the external
// decision-maker, the retrieval planner, and the tool registry.
func New(engine cognition.Engine, planner Planner, registry *tool.Registry, options ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:        engine,
		planner:       planner,
		registry:      registry,
		rules:         policy.DefaultRules(),
		maxIterations: 20,
		logger:        slog.Default(),
		tracer:        noop.NewTracerProvider().Tracer("orchestrator"),
	}

	for _, opt := range options {
		opt(o)
	}

	return o
}

// run carries the per-run mutable state so the Orchestrator itself stays
// reusable.
type run struct {
	id    types.ID
	task  string
	store *memory.Store
	gate  *policy.Gate
	state State

	plan          map[string]any
	loops         int
	lastResult    map[string]any
	lastRejection string
}

// Run executes the loop for one task until the decision-maker's final
// proposal is approved and executed, the iteration ceiling is reached, or
// the context is cancelled.
//
// Every stage records a trace; nothing escapes as an unhandled fault
// under normal tool behavior. The only error returns are a failed
// retrieval plan and a broken decision-maker (engine error or a proposal
// violating the structural contract); in the latter case the partial
// report is returned alongside the error.
func (o *Orchestrator) Run(ctx context.Context, task string) (*Report, error) {
	if strings.TrimSpace(task) == "" {
		return nil, types.NewError(ErrInvalidTask, "task cannot be empty")
	}

	started := time.Now()
	r := &run{
		id:    types.NewID(),
		task:  task,
		store: memory.NewStore(),
		state: StateInit,
	}
	r.gate = policy.NewGate(r.store,
		policy.WithRules(o.rules),
		policy.WithLogger(o.logger),
		policy.WithTracer(o.tracer),
	)

	ctx, span := o.tracer.Start(ctx, "orchestrator.run",
		trace.WithAttributes(attribute.String("run.id", r.id.String())))
	defer span.End()

	o.logger.Info("run starting",
		"run_id", r.id,
		"max_iterations", o.maxIterations,
	)
	o.publish(events.Event{Type: events.EventRunStarted, RunID: r.id})

	if err := o.retrieve(ctx, r); err != nil {
		return nil, err
	}

	status, stopReason, err := o.loop(ctx, r)

	report := o.buildReport(r, status, stopReason, time.Since(started))
	o.logger.Info("run finished",
		"run_id", r.id,
		"status", status,
		"loops", r.loops,
		"violations", report.Summary.PolicyViolations,
	)
	o.publish(events.Event{
		Type:  events.EventRunFinished,
		RunID: r.id,
		Attrs: map[string]any{
			"status":      status.String(),
			"total_loops": r.loops,
			"stop_reason": stopReason,
		},
	})

	return report, err
}

// retrieve runs the retrieval stage exactly once, seeding the store with
// the task text and the planner's retrieval plan.
func (o *Orchestrator) retrieve(ctx context.Context, r *run) error {
	ctx, span := o.tracer.Start(ctx, "orchestrator.retrieval")
	defer span.End()

	plan, err := o.planner.Plan(ctx, r.task)
	if err != nil {
		return types.WrapError(ErrRetrievalFailed, "retrieval planning failed", err)
	}

	r.plan = plan
	r.store.Write(keyTask, r.task, "")
	r.store.Write(keyRetrievalPlan, plan, "")
	record := r.store.AppendTrace(memory.TraceRecord{
		Stage:  memory.StageRetrieval,
		Input:  map[string]any{"task": r.task},
		Output: plan,
	})
	r.state = StateRetrieved

	o.logger.Debug("retrieval complete", "run_id", r.id, "plan_keys", len(plan))
	o.publishStage(r, record)

	return nil
}

// loop repeats cognition→control→action until a terminal condition.
func (o *Orchestrator) loop(ctx context.Context, r *run) (Status, string, error) {
	for r.loops < o.maxIterations {
		select {
		case <-ctx.Done():
			o.logger.Warn("run cancelled", "run_id", r.id, "loops", r.loops, "error", ctx.Err())
			r.state = StateExhausted
			return StatusCancelled, "context cancelled", nil
		default:
		}

		proposal, err := o.cognitionStage(ctx, r)
		if err != nil {
			return StatusFailed, "decision-maker contract error", err
		}

		verdict, certified := o.controlStage(ctx, r, proposal)
		if !verdict.Approved {
			// Rejection is normal control flow: no tool runs, and the
			// next cognition invocation sees the reason in context.
			r.lastRejection = verdict.Reason
			r.state = StateAwaitingCognition
			o.publish(events.Event{
				Type:      events.EventProposalRejected,
				RunID:     r.id,
				Iteration: r.loops,
				Attrs:     map[string]any{"reason": verdict.Reason, "redundant": verdict.Redundant},
			})
			continue
		}
		r.lastRejection = ""

		result := o.actionStage(ctx, r, certified, verdict)
		r.lastResult = result

		if certified.Final {
			r.state = StateComplete
			return StatusCompleted, "final action approved and executed", nil
		}
		r.state = StateAwaitingCognition
	}

	o.logger.Warn("iteration ceiling reached", "run_id", r.id, "ceiling", o.maxIterations)
	r.state = StateExhausted
	return StatusExhausted, "iteration ceiling reached", nil
}

// cognitionStage builds the state snapshot, invokes the engine, and appends
// the cognition trace. The iteration counter increments here: the ceiling
// bounds total cognition invocations, not just approved ones.
func (o *Orchestrator) cognitionStage(ctx context.Context, r *run) (*cognition.Proposal, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.cognition",
		trace.WithAttributes(attribute.Int("loop", r.loops)))
	defer span.End()

	snapshot := cognition.Snapshot{
		Memory: r.store.Summarize(),
		Tools:  o.registry.Describe(),
		Context: cognition.RunContext{
			Task:            r.task,
			Plan:            r.plan,
			Loop:            r.loops,
			LastResult:      r.lastResult,
			LastRejection:   r.lastRejection,
			PendingFollowUp: o.pendingFollowUp(r),
		},
	}
	r.state = StateAwaitingCognition

	proposal, err := o.engine.Propose(ctx, snapshot)
	if err != nil {
		return nil, types.WrapError(cognition.ErrEngineFailed, "decision-maker invocation failed", err)
	}
	if err := proposal.Validate(); err != nil {
		return nil, types.WrapError(cognition.ErrEngineContract, "decision-maker returned malformed proposal", err)
	}

	r.loops++

	record := r.store.AppendTrace(memory.TraceRecord{
		Stage: memory.StageCognition,
		Input: map[string]any{
			"task":              r.task,
			"loop":              snapshot.Context.Loop,
			"last_rejection":    snapshot.Context.LastRejection,
			"pending_follow_up": snapshot.Context.PendingFollowUp,
		},
		Output:       proposal.Map(),
		EvidenceRefs: proposal.EvidenceRefs,
	})

	o.logger.Debug("proposal received",
		"run_id", r.id,
		"loop", r.loops,
		"proposal", proposal.String(),
	)
	o.publishStage(r, record)

	return proposal, nil
}

// controlStage runs the policy gate and appends the control trace with the
// validation verdict.
func (o *Orchestrator) controlStage(ctx context.Context, r *run, proposal *cognition.Proposal) (policy.Verdict, *cognition.Proposal) {
	r.state = StateAwaitingControl

	verdict, certified := r.gate.Evaluate(ctx, proposal)

	approved := verdict.Approved
	record := r.store.AppendTrace(memory.TraceRecord{
		Stage:      memory.StageControl,
		Input:      certified.Map(),
		Output:     map[string]any{"approved": approved, "reason": verdict.Reason},
		Validation: &approved,
	})
	o.publishStage(r, record)

	return verdict, certified
}

// actionStage executes the approved proposal's tool call, if any, and records
// the result as working memory, evidence, and an action trace. Tool
// failures are folded into a structured error result; they never abort
// the run and never store evidence.
func (o *Orchestrator) actionStage(ctx context.Context, r *run, certified *cognition.Proposal, verdict policy.Verdict) map[string]any {
	ctx, span := o.tracer.Start(ctx, "orchestrator.action")
	defer span.End()

	r.state = StateExecutingAction

	input := map[string]any{"no_action": true}
	var result map[string]any
	var evidenceRefs []string
	evidenceID := ""

	if certified.Action == nil {
		result = map[string]any{"status": "no_action"}
	} else {
		input = map[string]any{
			"tool":   certified.Action.Tool,
			"params": certified.Action.Params,
		}

		output, err := o.registry.Dispatch(ctx, certified.Action.Tool, certified.Action.Params)
		if err != nil {
			o.logger.Warn("tool dispatch failed",
				"run_id", r.id,
				"tool", certified.Action.Tool,
				"error", err,
			)
			result = map[string]any{"status": "error", "message": err.Error()}
		} else {
			result = output
			evidenceID = verdict.EvidenceID
			r.store.StoreEvidence(evidenceID, output)
			evidenceRefs = []string{evidenceID}
		}
	}

	r.store.Write(keyLastResult, result, evidenceID)
	r.store.Write(keyPendingFollowUp, certified.FollowUp, "")

	record := r.store.AppendTrace(memory.TraceRecord{
		Stage:        memory.StageAction,
		Input:        input,
		Output:       map[string]any{"result": result, "evidence_id": evidenceID},
		EvidenceRefs: evidenceRefs,
	})

	o.publishStage(r, record)
	o.publish(events.Event{
		Type:      events.EventActionExecuted,
		RunID:     r.id,
		Iteration: r.loops,
		Attrs:     map[string]any{"evidence_id": evidenceID, "final": certified.Final},
	})

	return result
}

// pendingFollowUp reads the follow-up goal declared by the most recent
// approved proposal, empty when none is pending.
func (o *Orchestrator) pendingFollowUp(r *run) string {
	value, ok := r.store.Read(keyPendingFollowUp)
	if !ok {
		return ""
	}
	followUp, _ := value.(string)
	return followUp
}

func (o *Orchestrator) buildReport(r *run, status Status, stopReason string, duration time.Duration) *Report {
	return &Report{
		RunID:      r.id,
		Task:       r.task,
		Status:     status,
		StopReason: stopReason,
		Policies:   r.gate.RuleNames(),
		Log:        r.store.Trace(),
		Summary: ReportSummary{
			TotalLoops:       r.loops,
			PolicyViolations: r.store.Violations(),
			FinalState:       r.store.Summarize(),
		},
		Duration: duration,
	}
}

func (o *Orchestrator) publish(event events.Event) {
	if o.bus != nil {
		o.bus.Publish(event)
	}
}

func (o *Orchestrator) publishStage(r *run, record memory.TraceRecord) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.Event{
		Type:      events.EventStageCompleted,
		RunID:     r.id,
		Stage:     record.Stage.String(),
		Iteration: r.loops,
		Attrs:     map[string]any{"seq": record.Seq},
	})
}
