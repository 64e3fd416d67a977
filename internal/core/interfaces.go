// Package core defines the shared types and interfaces for the voice service.
package core

import "context"

// Audio output formats accepted by the pipeline.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
	FormatOGG = "ogg"
)

// DefaultSampleRate is the sample rate assumed for voices that do not
// declare one in the catalog document.
const DefaultSampleRate = 22050

// Voice is a catalog-resolved synthesis configuration. Voices are loaded
// once at startup and never mutated afterward.
type Voice struct {
	ID         string `json:"id"`
	Provider   string `json:"provider"`
	Lang       string `json:"lang"`
	Model      string `json:"model"`
	Config     string `json:"config,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// EngineKnobs carries the provider-specific synthesis parameters. Knobs
// that are not meaningful to a given provider are ignored by it. Zero
// values mean "unset, use the engine default".
type EngineKnobs struct {
	LengthScale float64
	NoiseScale  float64
	NoiseW      float64
	Speaker     string
}

// SynthesisRequest is the fully-resolved input to the orchestration
// pipeline. The three prosody fields use pointers so that an explicit
// neutral value (e.g. speaking rate 1.0) is distinguishable from a field
// left unset for emotion resolution to fill.
type SynthesisRequest struct {
	Text       string
	VoiceID    string
	Format     string
	SampleRate int
	Knobs      EngineKnobs

	SpeakingRate *float64
	PitchShift   *float64
	Energy       *float64
	Emotion      string
}

// SynthesisResult is the outcome of a successful pipeline run.
type SynthesisResult struct {
	Audio    []byte
	Format   string
	VoiceID  string
	Provider string
	CacheHit bool
	// Degraded reports that prosody or resampling fell back to the
	// unprocessed waveform instead of failing the request.
	Degraded bool
}

// Engine is the single capability every synthesis provider implements:
// map text plus parameters to a single-channel 16-bit PCM WAV waveform.
// A zero sampleRate requests the engine's native rate.
type Engine interface {
	SynthesizeToWAV(ctx context.Context, text string, sampleRate int, knobs EngineKnobs) ([]byte, error)
	Speakers() []string
	Close() error
}

// ObjectStore is a key-value blob store for synthesized audio.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}
