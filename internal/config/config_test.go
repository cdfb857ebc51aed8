package config

import (
	"testing"
	"time"
)

func validSettings() map[string]any {
	return map[string]any{
		"constraints": map[string]any{
			"max_depth":      3,
			"max_time":       "5m",
			"max_cost":       1.0,
			"max_goals":      25,
			"max_concurrent": 4,
		},
		"oracle": map[string]any{
			"model": "gemini-2.5-flash",
		},
		"providers": map[string]any{
			"tavily":     map[string]any{"enabled": true, "depth": "basic"},
			"brave":      map[string]any{"enabled": false},
			"duckduckgo": map[string]any{"enabled": true},
		},
		"retention": map[string]any{
			"keep_last": 20,
		},
	}
}

func TestValidateSettings_AcceptsValidConfig(t *testing.T) {
	t.Parallel()

	if err := ValidateSettings(validSettings()); err != nil {
		t.Fatalf("ValidateSettings returned error: %v", err)
	}
}

func TestValidateSettings_AcceptsPartialConfig(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"constraints": map[string]any{"max_depth": 2},
	}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("ValidateSettings returned error: %v", err)
	}
}

func TestValidateSettings_RejectsUnknownKey(t *testing.T) {
	t.Parallel()

	settings := validSettings()
	settings["mystery"] = true
	if err := ValidateSettings(settings); err == nil {
		t.Fatal("ValidateSettings accepted an unknown key, want error")
	}
}

func TestValidateSettings_RejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"negative_depth", func(s map[string]any) {
			s["constraints"].(map[string]any)["max_depth"] = -1
		}},
		{"bad_duration", func(s map[string]any) {
			s["constraints"].(map[string]any)["max_time"] = "five minutes"
		}},
		{"negative_cost", func(s map[string]any) {
			s["constraints"].(map[string]any)["max_cost"] = -0.5
		}},
		{"zero_goals", func(s map[string]any) {
			s["constraints"].(map[string]any)["max_goals"] = 0
		}},
		{"bad_tavily_depth", func(s map[string]any) {
			s["providers"].(map[string]any)["tavily"].(map[string]any)["depth"] = "exhaustive"
		}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			settings := validSettings()
			tc.mutate(settings)
			if err := ValidateSettings(settings); err == nil {
				t.Fatal("ValidateSettings accepted invalid settings, want error")
			}
		})
	}
}

func TestDefault_ResearchConstraints(t *testing.T) {
	t.Parallel()

	c := Default().ResearchConstraints()
	if c.MaxDepth != 3 {
		t.Fatalf("MaxDepth = %d, want 3", c.MaxDepth)
	}
	if c.MaxTime != 5*time.Minute {
		t.Fatalf("MaxTime = %s, want 5m", c.MaxTime)
	}
	if c.MaxCost != 1.0 {
		t.Fatalf("MaxCost = %v, want 1.0", c.MaxCost)
	}
	if c.MaxGoals != 25 {
		t.Fatalf("MaxGoals = %d, want 25", c.MaxGoals)
	}
	if c.MaxConcurrent != 4 {
		t.Fatalf("MaxConcurrent = %d, want 4", c.MaxConcurrent)
	}
}
