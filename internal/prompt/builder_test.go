package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func testConfig() CustomConfig {
	return CustomConfig{Options: []Option{
		{Name: "background", Label: "Background", Type: TypeColor, Prompt: "a {{ color }} backdrop"},
		{Name: "style", Label: "Style", Type: TypeSelect, Prompt: "{{ choice }} style", Choices: []string{"vintage", "modern"}},
		{Name: "intensity", Label: "Intensity", Type: TypeRange, Prompt: "at intensity {{ value }}", Min: f64(0), Max: f64(10), Step: f64(1)},
	}}
}

func TestCustomConfigRoundTrip(t *testing.T) {
	cfg := testConfig()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	s := string(raw)
	decoded, err := ParseCustomConfig(&s)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
	require.NoError(t, decoded.Validate())
}

func TestParseCustomConfigEmpty(t *testing.T) {
	cfg, err := ParseCustomConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Options)

	blank := "   "
	cfg, err = ParseCustomConfig(&blank)
	require.NoError(t, err)
	assert.Empty(t, cfg.Options)

	bad := "{not json"
	_, err = ParseCustomConfig(&bad)
	assert.Error(t, err)
}

func TestValidateRejectsBadSchemas(t *testing.T) {
	cases := []struct {
		name string
		cfg  CustomConfig
	}{
		{"missing name", CustomConfig{Options: []Option{{Type: TypeText}}}},
		{"duplicate name", CustomConfig{Options: []Option{
			{Name: "x", Type: TypeText},
			{Name: "x", Type: TypeColor},
		}}},
		{"unknown type", CustomConfig{Options: []Option{{Name: "x", Type: "slider"}}}},
		{"select without choices", CustomConfig{Options: []Option{{Name: "x", Type: TypeSelect}}}},
		{"range min above max", CustomConfig{Options: []Option{
			{Name: "x", Type: TypeRange, Min: f64(5), Max: f64(1)},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.Validate())
		})
	}
}

func TestBuildSubstitutesSelectedOptions(t *testing.T) {
	base := "Change the background to {{ background }} and make it {{ style }}"
	res := Build(base, testConfig(), map[string]string{
		"background": "red",
		"style":      "vintage",
	})
	assert.Equal(t, "Change the background to a red backdrop and make it vintage style", res.Prompt)
	assert.True(t, res.FullyResolved)
}

func TestBuildStripsUnresolvedPlaceholders(t *testing.T) {
	base := "Change the background to {{ background }} and make it {{ style }}"
	res := Build(base, testConfig(), nil)
	assert.Equal(t, "Change the background to and make it", res.Prompt)
	assert.False(t, res.FullyResolved)
}

func TestBuildPartialSelection(t *testing.T) {
	base := "Apply {{ style }} at {{ intensity }}"
	res := Build(base, testConfig(), map[string]string{"style": "modern"})
	assert.Equal(t, "Apply modern style at", res.Prompt)
	assert.False(t, res.FullyResolved)
}

func TestBuildFragmentlessOptionUsesRawValue(t *testing.T) {
	cfg := CustomConfig{Options: []Option{{Name: "subject", Type: TypeText}}}
	res := Build("Draw {{ subject }} in pencil", cfg, map[string]string{"subject": "a lighthouse"})
	assert.Equal(t, "Draw a lighthouse in pencil", res.Prompt)
	assert.True(t, res.FullyResolved)
}

func TestBuildPlaceholderWhitespaceVariants(t *testing.T) {
	cfg := CustomConfig{Options: []Option{{Name: "tone", Type: TypeText}}}
	res := Build("Set a {{tone}} mood", cfg, map[string]string{"tone": "warm"})
	assert.Equal(t, "Set a warm mood", res.Prompt)
	assert.True(t, res.FullyResolved)
}

func TestCombine(t *testing.T) {
	assert.Equal(t, "", Combine(nil))
	assert.Equal(t, "remove the background",
		Combine([]ToolPrompt{{ToolName: "Background Remover", Prompt: "remove the background"}}))
	assert.Equal(t, "Background Remover: remove the background. Upscaler: upscale to 4k",
		Combine([]ToolPrompt{
			{ToolName: "Background Remover", Prompt: "remove the background."},
			{ToolName: "Upscaler", Prompt: "upscale to 4k"},
		}))
}

func TestOverride(t *testing.T) {
	_, ok := Override("too short")
	assert.False(t, ok)

	got, ok := Override("  replace the sky with a dramatic sunset  ")
	assert.True(t, ok)
	assert.Equal(t, "replace the sky with a dramatic sunset", got)
}
