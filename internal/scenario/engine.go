package scenario

import (
	"context"
	"fmt"

	"github.com/enkiluv/scl-core-experiment/internal/cognition"
	"github.com/enkiluv/scl-core-experiment/internal/memory"
)

// Engine is a rule-table decision-maker for the travel-planning scenario.
// It stands in for a model-backed engine: it collects weather for each
// candidate city, then applies the threshold branching from the task.
//
// The engine accumulates observations from each iteration's action result,
// so it is stateful across Propose calls and scoped to a single run.
type Engine struct {
	def       Definition
	collected map[string]observation
}

type observation struct {
	city         string
	temperatureF float64
	condition    string
	precipChance int
}

// NewEngine creates an Engine for one run of the given scenario.
func NewEngine(def Definition) *Engine {
	return &Engine{
		def:       def,
		collected: make(map[string]observation),
	}
}

// Propose implements cognition.Engine.
func (e *Engine) Propose(_ context.Context, snapshot cognition.Snapshot) (*cognition.Proposal, error) {
	e.absorb(snapshot.Context.LastResult)

	// A previously approved proposal declared a follow-up goal: address
	// it before anything else.
	if snapshot.Context.PendingFollowUp == ToolRecommendSnacks {
		return &cognition.Proposal{
			Reasoning: "Trip cancelled; recommending convenience store snacks to enjoy at home as the declared follow-up.",
			Action: &cognition.ActionSpec{
				Tool:   ToolRecommendSnacks,
				Params: map[string]any{"preference": "general"},
			},
			EvidenceRefs: e.weatherEvidence(),
			Final:        true,
		}, nil
	}

	// Collection phase: query the next city without an observation.
	for _, city := range e.def.Cities {
		if _, ok := e.collected[city.Name]; !ok {
			return &cognition.Proposal{
				Reasoning: fmt.Sprintf("No stored weather for %s; memory shows no matching evidence, so query the weather service.", city.Name),
				Action: &cognition.ActionSpec{
					Tool:   ToolGetWeather,
					Params: map[string]any{"city": city.Name},
				},
				EvidenceRefs: []string{"retrieval_plan"},
				Final:        false,
			}, nil
		}
	}

	// Decision phase: all observations collected.
	return e.decide(), nil
}

// absorb records the previous action result if it is a weather reading.
func (e *Engine) absorb(result map[string]any) {
	if result == nil {
		return
	}

	city, _ := result["city"].(string)
	temp, hasTemp := result["temperature_f"].(float64)
	if city == "" || !hasTemp {
		return
	}
	if _, exists := e.collected[city]; exists {
		return
	}

	obs := observation{city: city, temperatureF: temp}
	obs.condition, _ = result["condition"].(string)
	switch chance := result["precipitation_chance"].(type) {
	case int:
		obs.precipChance = chance
	case float64:
		obs.precipChance = int(chance)
	}

	e.collected[city] = obs
}

// decide applies the threshold branching over the collected observations.
func (e *Engine) decide() *cognition.Proposal {
	var above []observation
	for _, city := range e.def.Cities {
		obs := e.collected[city.Name]
		if obs.temperatureF > e.def.BaseTemperatureF {
			above = append(above, obs)
		}
	}

	refs := e.weatherEvidence()

	switch {
	case len(above) == 0:
		// Every destination is at or below the threshold: cancel, and
		// declare the snack recommendation as an explicit follow-up so
		// the next iteration is bound to address it.
		return &cognition.Proposal{
			Reasoning: fmt.Sprintf("All cities are at or below the base temperature %.0f°F; cancelling the trip. Snack recommendation to follow.", e.def.BaseTemperatureF),
			Action: &cognition.ActionSpec{
				Tool:   ToolCancelTrip,
				Params: map[string]any{"reason": "All destinations below comfortable temperature threshold"},
			},
			EvidenceRefs: refs,
			Final:        false,
			FollowUp:     ToolRecommendSnacks,
		}

	case len(above) == len(e.def.Cities):
		// All destinations qualify: visualize the coolest one.
		coolest := coolestOf(above)
		return &cognition.Proposal{
			Reasoning: fmt.Sprintf("All cities are above the base temperature %.0f°F; travelling to the coolest, %s at %.0f°F. %s.",
				e.def.BaseTemperatureF, coolest.city, coolest.temperatureF, umbrellaAdvice(coolest)),
			Action: &cognition.ActionSpec{
				Tool: ToolGenerateImage,
				Params: map[string]any{
					"description": fmt.Sprintf("%s weather: %s, %.0f°F", coolest.city, coolest.condition, coolest.temperatureF),
				},
			},
			EvidenceRefs: refs,
			Final:        true,
		}

	default:
		// Some but not all qualify: notify with the coolest qualifying
		// destination (for two above, the cooler of the two).
		destination := coolestOf(above)
		body := fmt.Sprintf("Travelling to %s. Temperature: %.0f°F, Condition: %s. %s.",
			destination.city, destination.temperatureF, destination.condition, umbrellaAdvice(destination))
		return &cognition.Proposal{
			Reasoning: fmt.Sprintf("%d of %d cities are above the base temperature %.0f°F; selecting %s and sending the notification email.",
				len(above), len(e.def.Cities), e.def.BaseTemperatureF, destination.city),
			Action: &cognition.ActionSpec{
				Tool: ToolSendEmail,
				Params: map[string]any{
					"recipient": e.def.Recipient,
					"subject":   fmt.Sprintf("Travel Plan Confirmed: %s", destination.city),
					"body":      body,
				},
			},
			EvidenceRefs: refs,
			Final:        true,
		}
	}
}

// weatherEvidence returns the evidence identifiers of the weather calls
// made so far, matching the cache keys the action stage stored.
func (e *Engine) weatherEvidence() []string {
	var refs []string
	for _, city := range e.def.Cities {
		if _, ok := e.collected[city.Name]; ok {
			refs = append(refs, memory.EvidenceID(ToolGetWeather, map[string]any{"city": city.Name}))
		}
	}
	return refs
}

func coolestOf(observations []observation) observation {
	coolest := observations[0]
	for _, obs := range observations[1:] {
		if obs.temperatureF < coolest.temperatureF {
			coolest = obs
		}
	}
	return coolest
}

func umbrellaAdvice(obs observation) string {
	if obs.precipChance > umbrellaThreshold {
		return "Bring umbrella"
	}
	return "No umbrella needed"
}
