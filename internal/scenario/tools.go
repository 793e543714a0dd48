package scenario

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/enkiluv/scl-core-experiment/internal/tool"
)

// Tool names registered by this scenario.
const (
	ToolGetWeather      = "get_weather"
	ToolSendEmail       = "send_email"
	ToolGenerateImage   = "generate_image"
	ToolCancelTrip      = "cancel_trip"
	ToolRecommendSnacks = "recommend_snacks"
	ToolCheckUmbrella   = "check_umbrella"
)

// Precipitation chance above which an umbrella is recommended.
const umbrellaThreshold = 30

var snackLists = map[string][]string{
	"general": {"Honey Butter Chips", "Choco Pie", "Pepero Sticks", "Shin Ramyun Cup", "Market O Brownies"},
	"sweet":   {"Choco Pie", "Market O Brownies", "Custard Cake", "Pepero Almond", "Crown Sando"},
	"savory":  {"Honey Butter Chips", "Shin Ramyun Cup", "Squid Peanut Snack", "Turtle Chips", "Seaweed Snack"},
}

// RegisterTools registers the scenario's tool suite on the registry in a
// fixed order so tool listings are reproducible across runs.
func RegisterTools(registry *tool.Registry, def Definition) error {
	tools := []tool.Tool{
		tool.NewFunc(ToolGetWeather,
			"Get current weather for a city (temperature, condition, precipitation)",
			getWeather(def)),
		tool.NewFunc(ToolSendEmail,
			"Send email notification with subject and body",
			sendEmail),
		tool.NewFunc(ToolGenerateImage,
			"Generate weather visualization image from description",
			generateImage),
		tool.NewFunc(ToolCancelTrip,
			"Cancel travel plans with specified reason",
			cancelTrip),
		tool.NewFunc(ToolRecommendSnacks,
			"Get convenience store snack recommendations",
			recommendSnacks),
		tool.NewFunc(ToolCheckUmbrella,
			"Determine if umbrella is needed based on precipitation",
			checkUmbrella),
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// getWeather serves recorded weather from the scenario definition. An
// unknown city raises, which the action stage folds into an error result.
func getWeather(def Definition) func(ctx context.Context, params map[string]any) (map[string]any, error) {
	return func(_ context.Context, params map[string]any) (map[string]any, error) {
		city, _ := params["city"].(string)
		if city == "" {
			return nil, fmt.Errorf("city parameter is required")
		}

		fixture, ok := def.City(city)
		if !ok {
			return nil, fmt.Errorf("city %q not found", city)
		}

		return map[string]any{
			"city":                 fixture.Name,
			"temperature_f":        fixture.TemperatureF,
			"condition":            fixture.Condition,
			"precipitation_chance": fixture.PrecipitationChance,
			"api_ref":              fmt.Sprintf("wx-%s-001", strings.ToLower(strings.ReplaceAll(fixture.Name, " ", ""))),
		}, nil
	}
}

func sendEmail(_ context.Context, params map[string]any) (map[string]any, error) {
	recipient, _ := params["recipient"].(string)
	subject, _ := params["subject"].(string)
	body, _ := params["body"].(string)

	if recipient == "" {
		return nil, fmt.Errorf("recipient parameter is required")
	}

	return map[string]any{
		"status":     "sent",
		"recipient":  recipient,
		"subject":    subject,
		"message_id": messageID(body),
	}, nil
}

func generateImage(_ context.Context, params map[string]any) (map[string]any, error) {
	description, _ := params["description"].(string)
	if description == "" {
		return nil, fmt.Errorf("description parameter is required")
	}

	return map[string]any{
		"status":      "generated",
		"description": description,
		"image_url":   fmt.Sprintf("https://placeholder.example/weather/%s.jpg", strings.ReplaceAll(description, " ", "_")),
		"format":      "JPEG",
		"size":        "1024x768",
	}, nil
}

func cancelTrip(_ context.Context, params map[string]any) (map[string]any, error) {
	reason, _ := params["reason"].(string)

	return map[string]any{
		"status":           "cancelled",
		"reason":           reason,
		"refund_initiated": true,
	}, nil
}

func recommendSnacks(_ context.Context, params map[string]any) (map[string]any, error) {
	preference, _ := params["preference"].(string)
	if preference == "" {
		preference = "general"
	}

	snacks, ok := snackLists[preference]
	if !ok {
		snacks = snackLists["general"]
	}

	return map[string]any{
		"status":      "recommended",
		"preference":  preference,
		"snacks":      snacks,
		"total_items": len(snacks),
	}, nil
}

func checkUmbrella(_ context.Context, params map[string]any) (map[string]any, error) {
	city, _ := params["city"].(string)
	chance := asInt(params["precipitation_chance"])

	recommendation := "No umbrella needed"
	if chance > umbrellaThreshold {
		recommendation = "Bring umbrella"
	}

	return map[string]any{
		"city":                 city,
		"precipitation_chance": chance,
		"recommendation":       recommendation,
	}, nil
}

// messageID derives a stable identifier from the message body so repeat
// runs over the same fixtures produce identical results.
func messageID(body string) string {
	sum := sha256.Sum256([]byte(body))
	return fmt.Sprintf("msg-%04d", binary.BigEndian.Uint16(sum[:2])%10000)
}

func asInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
