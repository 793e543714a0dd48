package policy

import "github.com/enkiluv/scl-core-experiment/internal/cognition"

// Rule is one named predicate in the gate's fixed rule set. Check returns
// an empty string when the proposal satisfies the rule, or a violation
// message otherwise. Rules are evaluated in list order, so new rules
// compose without touching the evaluation logic.
type Rule struct {
	Name  string
	Check func(p *cognition.Proposal) string
}

// Rule names for the default set.
const (
	RuleMustCiteStoredEvidence      = "must_cite_stored_evidence"
	RuleNoFinalAnswerWithoutControl = "no_final_answer_without_control_pass"
)

// DefaultRules returns the fixed rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: RuleMustCiteStoredEvidence,
			Check: func(p *cognition.Proposal) string {
				if len(p.EvidenceRefs) == 0 {
					return "missing evidence citations"
				}
				return ""
			},
		},
		{
			// Unreachable after certification; still fires for a final
			// proposal that bypassed it.
			Name: RuleNoFinalAnswerWithoutControl,
			Check: func(p *cognition.Proposal) string {
				if p.Final && !p.ControlValidated {
					return "final action without control certification"
				}
				return ""
			},
		},
	}
}
