// Package cache provides deterministic request fingerprinting and a
// bounded, content-addressed file store for synthesized audio.
//
// Three key generations coexist for backward compatibility. Entries
// written by older releases under the legacy or v2 scheme remain
// readable; new entries are written only under the newest applicable
// generation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// unsetField is the stable textual form of a prosody field left unset,
// so that "no value" and "explicit zero" derive different v3 keys.
const unsetField = "none"

// LegacyKey derives the original cache key:
// "{voice}|{sample_rate}|{format}|{text}".
func LegacyKey(text, voiceID string, sampleRate int, format string) string {
	base := fmt.Sprintf("%s|%d|%s|%s", voiceID, sampleRate, format, strings.TrimSpace(text))

	return digest(base)
}

// KeyV2 derives the provider-aware cache key:
// "v2|{provider}|{model}|{voice}|{sample_rate}|{format}|{text}".
func KeyV2(text, provider, model, voiceID string, sampleRate int, format string) string {
	base := fmt.Sprintf(
		"v2|%s|%s|%s|%d|%s|%s",
		provider, model, voiceID, sampleRate, format, strings.TrimSpace(text),
	)

	return digest(base)
}

// KeyV3 derives the prosody-aware cache key:
// "v3|{provider}|{model}|{voice}|{sample_rate}|{format}|{speaking_rate}|{pitch_shift}|{energy}|{text}".
// Unset prosody fields are encoded as a fixed marker so the mapping stays
// stable across process restarts.
func KeyV3(
	text, provider, model, voiceID string,
	sampleRate int,
	format string,
	speakingRate, pitchShift, energy *float64,
) string {
	base := fmt.Sprintf(
		"v3|%s|%s|%s|%d|%s|%s|%s|%s|%s",
		provider, model, voiceID, sampleRate, format,
		prosodyField(speakingRate), prosodyField(pitchShift), prosodyField(energy),
		strings.TrimSpace(text),
	)

	return digest(base)
}

func prosodyField(value *float64) string {
	if value == nil {
		return unsetField
	}

	return strconv.FormatFloat(*value, 'g', -1, 64)
}

func digest(base string) string {
	sum := sha256.Sum256([]byte(base))

	return hex.EncodeToString(sum[:])
}
