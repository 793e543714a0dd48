package scenario

import "context"

// Planner produces the retrieval plan for a travel-planning run: which
// evidence is needed, the decision threshold, and the tool inventory.
type Planner struct {
	def Definition
}

// NewPlanner creates a Planner over a scenario definition.
func NewPlanner(def Definition) *Planner {
	return &Planner{def: def}
}

// Plan implements orchestrator.Planner.
func (p *Planner) Plan(_ context.Context, _ string) (map[string]any, error) {
	needed := make([]string, len(p.def.Cities))
	for i, city := range p.def.Cities {
		needed[i] = city.Key
	}

	return map[string]any{
		"evidence_needed":  needed,
		"base_temperature": p.def.BaseTemperatureF,
		"tools_required": []string{
			ToolGetWeather, ToolSendEmail, ToolGenerateImage, ToolCancelTrip,
		},
	}, nil
}
