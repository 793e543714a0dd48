package cognition

import (
	"fmt"
	"strings"
)

// ActionSpec names a registered tool and the parameters to call it with.
type ActionSpec struct {
	// Tool is the registered tool name to dispatch.
	Tool string `json:"tool"`

	// Params is the named-parameter mapping passed to the tool.
	Params map[string]any `json:"params,omitempty"`
}

// Proposal is the decision-maker's output for one cognition invocation.
//
// ControlValidated is owned by the control stage: only control may certify
// a final proposal, and it does so by constructing a new certified copy
// rather than mutating the instance the engine returned (see
// Proposal.Certified). A proposal cannot self-certify.
type Proposal struct {
	// Reasoning is the engine's explanation for this proposal. Required.
	Reasoning string `json:"reasoning"`

	// Action is the tool call to execute. Nil means the engine proposes
	// no action this iteration; the action stage records a no-op.
	Action *ActionSpec `json:"action,omitempty"`

	// EvidenceRefs lists the evidence identifiers the reasoning cites.
	EvidenceRefs []string `json:"evidence_refs,omitempty"`

	// Final marks this as the run's final action. The loop stops after a
	// final proposal is approved and executed.
	Final bool `json:"final"`

	// ControlValidated records that the control stage certified this
	// proposal. Set only by control, never by the engine.
	ControlValidated bool `json:"control_validated"`

	// FollowUp optionally names a goal the engine intends to address in
	// the next iteration. The orchestrator surfaces it back through the
	// snapshot context so the chained intent is auditable.
	FollowUp string `json:"follow_up,omitempty"`
}

// Validate checks the structural contract the orchestrator imposes on
// engine output. A failure here means the external engine itself is
// broken, and the run is aborted with a contract error.
func (p *Proposal) Validate() error {
	if p == nil {
		return fmt.Errorf("proposal is nil")
	}

	if strings.TrimSpace(p.Reasoning) == "" {
		return fmt.Errorf("reasoning is required")
	}

	if p.Action != nil {
		if strings.TrimSpace(p.Action.Tool) == "" {
			return fmt.Errorf("action tool name is required when an action is proposed")
		}
	}

	return nil
}

// Certified returns a copy of the proposal with ControlValidated set.
// Control uses this instead of mutating the input so that an engine
// reusing the same Proposal instance across retries never observes a
// flag it did not set.
func (p *Proposal) Certified() *Proposal {
	certified := *p
	if p.Action != nil {
		action := *p.Action
		certified.Action = &action
	}
	certified.EvidenceRefs = append([]string(nil), p.EvidenceRefs...)
	certified.ControlValidated = true
	return &certified
}

// Map renders the proposal for inclusion in a trace record.
func (p *Proposal) Map() map[string]any {
	out := map[string]any{
		"reasoning":         p.Reasoning,
		"final":             p.Final,
		"control_validated": p.ControlValidated,
	}
	if p.Action != nil {
		out["action"] = map[string]any{
			"tool":   p.Action.Tool,
			"params": p.Action.Params,
		}
	}
	if len(p.EvidenceRefs) > 0 {
		out["evidence_refs"] = p.EvidenceRefs
	}
	if p.FollowUp != "" {
		out["follow_up"] = p.FollowUp
	}
	return out
}

// String returns a short human-readable form for logs.
func (p *Proposal) String() string {
	if p == nil {
		return "<nil proposal>"
	}

	var sb strings.Builder
	sb.WriteString("Proposal{")
	if p.Action != nil {
		sb.WriteString(fmt.Sprintf("Tool: %s, ", p.Action.Tool))
	} else {
		sb.WriteString("Tool: <none>, ")
	}
	sb.WriteString(fmt.Sprintf("Final: %v, Refs: %d}", p.Final, len(p.EvidenceRefs)))
	return sb.String()
}
