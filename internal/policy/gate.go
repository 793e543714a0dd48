package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/enkiluv/scl-core-experiment/internal/cognition"
	"github.com/enkiluv/scl-core-experiment/internal/memory"
)

// EvidenceChecker is the slice of the audit store the gate needs: a pure
// lookup for whether an evidence identifier already exists.
type EvidenceChecker interface {
	HasEvidence(id string) bool
}

// Verdict is the gate's structured outcome. The gate never raises; a
// rejection is normal control flow, not an error.
type Verdict struct {
	// Approved is true when no rule was violated and the proposed call is
	// not redundant.
	Approved bool

	// Reason is "PASS" on approval, otherwise the violation summary.
	Reason string

	// Redundant is true when the rejection is specifically a duplicate
	// tool call (the evidence identifier already exists).
	Redundant bool

	// EvidenceID is the candidate identifier for the proposed tool call,
	// empty when the proposal carries no action. On approval the action
	// stage stores the tool result under this identifier.
	EvidenceID string
}

// Gate validates proposed actions against the fixed rule set and detects
// duplicate tool invocations before they run. The rule set is immutable
// for the gate's lifetime; changing it means constructing a new Gate.
type Gate struct {
	rules    []Rule
	evidence EvidenceChecker
	logger   *slog.Logger
	tracer   trace.Tracer
}

// GateOption is a functional option for configuring the Gate.
type GateOption func(*Gate)

// WithRules replaces the default rule set. The slice order is the
// evaluation order.
func WithRules(rules []Rule) GateOption {
	return func(g *Gate) {
		if len(rules) > 0 {
			g.rules = rules
		}
	}
}

// WithLogger sets the logger for gate decisions.
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer for gate evaluation spans.
func WithTracer(tracer trace.Tracer) GateOption {
	return func(g *Gate) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// NewGate creates a Gate checking redundancy against the given evidence
// store, with the default rule set unless overridden.
func NewGate(evidence EvidenceChecker, options ...GateOption) *Gate {
	g := &Gate{
		rules:    DefaultRules(),
		evidence: evidence,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("policy"),
	}

	for _, opt := range options {
		opt(g)
	}

	return g
}

// RuleNames returns the active rule names in evaluation order, for the
// audit report.
func (g *Gate) RuleNames() []string {
	names := make([]string, len(g.rules))
	for i, rule := range g.rules {
		names[i] = rule.Name
	}
	return names
}

// Evaluate decides whether a proposal may proceed to execution.
//
// Order matters:
//  1. A final proposal is certified first: only control may mark
//     finality. Certification produces a new proposal value; the input
//     is never mutated.
//  2. The rule set is evaluated against the certified proposal.
//  3. If the proposal carries an action, its evidence identifier is
//     derived and checked against the cache. A hit rejects the proposal
//     as redundant regardless of the rule outcome.
//
// The returned proposal is the certified copy the caller must use for
// the action stage; it equals the input for non-final proposals.
func (g *Gate) Evaluate(ctx context.Context, proposal *cognition.Proposal) (Verdict, *cognition.Proposal) {
	_, span := g.tracer.Start(ctx, "policy.evaluate")
	defer span.End()

	evaluated := proposal
	if proposal.Final {
		evaluated = proposal.Certified()
	}

	var violations []string
	for _, rule := range g.rules {
		if msg := rule.Check(evaluated); msg != "" {
			violations = append(violations, fmt.Sprintf("%s: %s", rule.Name, msg))
		}
	}

	verdict := Verdict{Approved: len(violations) == 0, Reason: "PASS"}
	if len(violations) > 0 {
		verdict.Reason = "violations: " + strings.Join(violations, "; ")
	}

	if evaluated.Action != nil {
		verdict.EvidenceID = memory.EvidenceID(evaluated.Action.Tool, evaluated.Action.Params)
		if g.evidence.HasEvidence(verdict.EvidenceID) {
			verdict.Approved = false
			verdict.Redundant = true
			verdict.Reason = fmt.Sprintf("redundant tool call: evidence %s already stored", verdict.EvidenceID)
		}
	}

	span.SetAttributes(
		attribute.Bool("policy.approved", verdict.Approved),
		attribute.Bool("policy.redundant", verdict.Redundant),
		attribute.String("policy.reason", verdict.Reason),
	)

	if verdict.Approved {
		g.logger.Debug("proposal approved", "final", evaluated.Final, "evidence_id", verdict.EvidenceID)
	} else {
		g.logger.Info("proposal rejected", "reason", verdict.Reason, "redundant", verdict.Redundant)
	}

	return verdict, evaluated
}
