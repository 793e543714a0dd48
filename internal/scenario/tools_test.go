package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enkiluv/scl-core-experiment/internal/tool"
)

func TestRegisterTools(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, RegisterTools(registry, Default()))

	descriptors := registry.Describe()
	require.Len(t, descriptors, 6)

	// Fixed registration order keeps tool listings reproducible.
	expected := []string{
		ToolGetWeather, ToolSendEmail, ToolGenerateImage,
		ToolCancelTrip, ToolRecommendSnacks, ToolCheckUmbrella,
	}
	for i, d := range descriptors {
		assert.Equal(t, expected[i], d.Name)
		assert.NotEmpty(t, d.Description)
	}
}

func TestGetWeather(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, RegisterTools(registry, Default()))

	t.Run("known city", func(t *testing.T) {
		out, err := registry.Dispatch(context.Background(), ToolGetWeather, map[string]any{"city": "Miami"})
		require.NoError(t, err)
		assert.Equal(t, "Miami", out["city"])
		assert.Equal(t, float64(75), out["temperature_f"])
		assert.Equal(t, "Sunny", out["condition"])
		assert.Equal(t, 40, out["precipitation_chance"])
		assert.Equal(t, "wx-miami-001", out["api_ref"])
	})

	t.Run("unknown city", func(t *testing.T) {
		_, err := registry.Dispatch(context.Background(), ToolGetWeather, map[string]any{"city": "Atlantis"})
		assert.Error(t, err)
	})

	t.Run("missing city param", func(t *testing.T) {
		_, err := registry.Dispatch(context.Background(), ToolGetWeather, nil)
		assert.Error(t, err)
	})
}

func TestSendEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("requires recipient", func(t *testing.T) {
		_, err := sendEmail(ctx, map[string]any{"subject": "hi"})
		assert.Error(t, err)
	})

	t.Run("deterministic message id", func(t *testing.T) {
		params := map[string]any{"recipient": "a@b.c", "subject": "s", "body": "same body"}

		first, err := sendEmail(ctx, params)
		require.NoError(t, err)
		second, err := sendEmail(ctx, params)
		require.NoError(t, err)

		assert.Equal(t, "sent", first["status"])
		assert.Equal(t, first["message_id"], second["message_id"])
	})
}

func TestGenerateImage(t *testing.T) {
	out, err := generateImage(context.Background(), map[string]any{"description": "Miami weather"})
	require.NoError(t, err)
	assert.Equal(t, "generated", out["status"])
	assert.Contains(t, out["image_url"], "Miami_weather")

	_, err = generateImage(context.Background(), nil)
	assert.Error(t, err)
}

func TestRecommendSnacks(t *testing.T) {
	t.Run("default preference", func(t *testing.T) {
		out, err := recommendSnacks(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "general", out["preference"])
		assert.Equal(t, 5, out["total_items"])
	})

	t.Run("named preference", func(t *testing.T) {
		out, err := recommendSnacks(context.Background(), map[string]any{"preference": "sweet"})
		require.NoError(t, err)
		assert.Equal(t, "sweet", out["preference"])
		assert.Contains(t, out["snacks"], "Choco Pie")
	})

	t.Run("unknown preference falls back", func(t *testing.T) {
		out, err := recommendSnacks(context.Background(), map[string]any{"preference": "spicy"})
		require.NoError(t, err)
		assert.Equal(t, snackLists["general"], out["snacks"])
	})
}

func TestCheckUmbrella(t *testing.T) {
	tests := []struct {
		name     string
		chance   any
		expected string
	}{
		{name: "above threshold", chance: 40, expected: "Bring umbrella"},
		{name: "at threshold", chance: 30, expected: "No umbrella needed"},
		{name: "below threshold", chance: 10, expected: "No umbrella needed"},
		{name: "float chance", chance: 55.0, expected: "Bring umbrella"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := checkUmbrella(context.Background(), map[string]any{
				"city":                 "Miami",
				"precipitation_chance": tt.chance,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out["recommendation"])
		})
	}
}

func TestPlanner_Plan(t *testing.T) {
	plan, err := NewPlanner(Default()).Plan(context.Background(), "any task")
	require.NoError(t, err)

	assert.Equal(t, []string{"SF_weather", "Miami_weather", "Atlanta_weather"}, plan["evidence_needed"])
	assert.Equal(t, float64(55), plan["base_temperature"])
	assert.Contains(t, plan["tools_required"], ToolGetWeather)
}
