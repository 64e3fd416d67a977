package emotion_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-service/internal/emotion"
)

func TestResolveBuiltinPresets(t *testing.T) {
	t.Parallel()

	preset, ok := emotion.Resolve("happy", nil)
	require.True(t, ok)
	assert.InEpsilon(t, 1.1, preset.SpeakingRate, 0.0001)
	assert.InEpsilon(t, 2.0, preset.PitchShift, 0.0001)
	assert.InEpsilon(t, 1.1, preset.Energy, 0.0001)

	preset, ok = emotion.Resolve("sad", nil)
	require.True(t, ok)
	assert.InEpsilon(t, 0.9, preset.SpeakingRate, 0.0001)
	assert.InEpsilon(t, -1.5, preset.PitchShift, 0.0001)

	neutral, ok := emotion.Resolve("neutral", nil)
	require.True(t, ok)
	assert.InEpsilon(t, 1.0, neutral.SpeakingRate, 0.0001)
	assert.Zero(t, neutral.PitchShift)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	preset, ok := emotion.Resolve("  Angry ", nil)
	require.True(t, ok)
	assert.InEpsilon(t, 1.15, preset.SpeakingRate, 0.0001)
}

func TestResolveCustomOverridesDefault(t *testing.T) {
	t.Parallel()

	custom := map[string]emotion.Preset{
		"happy": {SpeakingRate: 1.3, PitchShift: 3.0, Energy: 1.25},
	}

	preset, ok := emotion.Resolve("HAPPY", custom)
	require.True(t, ok)
	assert.InEpsilon(t, 1.3, preset.SpeakingRate, 0.0001)
	assert.InEpsilon(t, 3.0, preset.PitchShift, 0.0001)
}

func TestResolveUnknownLabel(t *testing.T) {
	t.Parallel()

	_, ok := emotion.Resolve("melancholic", nil)
	assert.False(t, ok)

	_, ok = emotion.Resolve("", nil)
	assert.False(t, ok)
}

func TestParsePresets(t *testing.T) {
	t.Parallel()

	raw := map[string]json.RawMessage{
		"Excited":   json.RawMessage(`[1.2, 2.5, 1.3]`),
		"whisper":   json.RawMessage(`{"speaking_rate": 0.85, "pitch_shift": -2.0, "energy": 0.6}`),
		"broken":    json.RawMessage(`[1.0, 2.0]`),
		"malformed": json.RawMessage(`"fast"`),
	}

	presets := emotion.ParsePresets(raw)
	require.Len(t, presets, 2)

	excited, ok := presets["excited"]
	require.True(t, ok, "array presets are accepted verbatim under a lowercased name")
	assert.InEpsilon(t, 1.2, excited.SpeakingRate, 0.0001)
	assert.InEpsilon(t, 2.5, excited.PitchShift, 0.0001)
	assert.InEpsilon(t, 1.3, excited.Energy, 0.0001)

	whisper, ok := presets["whisper"]
	require.True(t, ok)
	assert.InEpsilon(t, -2.0, whisper.PitchShift, 0.0001)
}
