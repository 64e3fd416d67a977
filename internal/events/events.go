// Package events defines the NATS message payloads for the voice
// service. All events are JSON-encoded.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventHeader carries the identity and provenance of an event through
// the workflow.
type EventHeader struct {
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	EventID    string    `json:"event_id"`
}

// NewEventHeader creates a header for a new event within the given
// workflow.
func NewEventHeader(workflowID string) EventHeader {
	return EventHeader{
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		EventID:    uuid.NewString(),
	}
}

// SynthesisRequestedEvent asks the service to synthesize speech. The
// text arrives either inline or as an object-store key; TextKey wins
// when both are set.
type SynthesisRequestedEvent struct {
	Header EventHeader `json:"header"`

	TextKey    string `json:"text_key,omitempty"`
	Text       string `json:"text,omitempty"`
	VoiceID    string `json:"voice_id"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`

	LengthScale float64 `json:"length_scale,omitempty"`
	NoiseScale  float64 `json:"noise_scale,omitempty"`
	NoiseW      float64 `json:"noise_w,omitempty"`
	Speaker     string  `json:"speaker,omitempty"`

	SpeakingRate *float64 `json:"speaking_rate,omitempty"`
	PitchShift   *float64 `json:"pitch_shift,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Emotion      string   `json:"emotion,omitempty"`
}

// AudioCreatedEvent reports a finished synthesis. The audio bytes live
// in the object store under AudioKey.
type AudioCreatedEvent struct {
	Header EventHeader `json:"header"`

	AudioKey string `json:"audio_key"`
	Format   string `json:"format"`
	VoiceID  string `json:"voice_id"`
	Provider string `json:"provider"`
	CacheHit bool   `json:"cache_hit"`
	Degraded bool   `json:"degraded"`
}
