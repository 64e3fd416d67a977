// Package emotion maps emotion labels to prosody adjustment triples.
//
// A preset is a (speaking rate, pitch shift in semitones, energy gain)
// triple. Custom presets loaded from the catalog document override the
// built-in defaults by name; lookups are case-insensitive.
package emotion

import (
	"encoding/json"
	"strings"
)

const presetComponents = 3

// Preset is a prosody adjustment triple derived from an emotion label.
type Preset struct {
	SpeakingRate float64 `json:"speaking_rate"`
	PitchShift   float64 `json:"pitch_shift"`
	Energy       float64 `json:"energy"`
}

// defaultPresets are the built-in emotion presets. Read-only.
var defaultPresets = map[string]Preset{
	"neutral": {SpeakingRate: 1.0, PitchShift: 0, Energy: 1.0},
	"happy":   {SpeakingRate: 1.1, PitchShift: 2.0, Energy: 1.1},
	"sad":     {SpeakingRate: 0.9, PitchShift: -1.5, Energy: 0.9},
	"angry":   {SpeakingRate: 1.15, PitchShift: 1.5, Energy: 1.2},
	"calm":    {SpeakingRate: 0.95, PitchShift: -0.5, Energy: 0.95},
}

// Resolve maps an emotion label to its preset. Custom presets take
// precedence over the built-in defaults; exactly one of the two wins per
// lookup. An empty or unknown label reports ok=false and the caller
// leaves the prosody fields unset.
func Resolve(label string, custom map[string]Preset) (Preset, bool) {
	if label == "" {
		return Preset{}, false
	}

	key := strings.ToLower(strings.TrimSpace(label))

	preset, ok := custom[key]
	if ok {
		return preset, true
	}

	preset, ok = defaultPresets[key]
	if ok {
		return preset, true
	}

	return Preset{}, false
}

// ParsePresets decodes the `emotions` section of the catalog document.
// Each entry is either a 3-number array (rate, pitch, energy) accepted
// verbatim, or a nested preset object. Malformed entries are skipped so
// one bad preset cannot poison the catalog load.
func ParsePresets(raw map[string]json.RawMessage) map[string]Preset {
	out := make(map[string]Preset, len(raw))

	for name, value := range raw {
		preset, ok := parsePreset(value)
		if !ok {
			continue
		}

		out[strings.ToLower(strings.TrimSpace(name))] = preset
	}

	return out
}

func parsePreset(value json.RawMessage) (Preset, bool) {
	var triple []float64

	err := json.Unmarshal(value, &triple)
	if err == nil {
		if len(triple) != presetComponents {
			return Preset{}, false
		}

		return Preset{
			SpeakingRate: triple[0],
			PitchShift:   triple[1],
			Energy:       triple[2],
		}, true
	}

	var nested Preset

	err = json.Unmarshal(value, &nested)
	if err != nil {
		return Preset{}, false
	}

	return nested, true
}
