// Package worker provides the NATS worker that serves synthesis
// requests.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-service/internal/core"
	"github.com/book-expert/voice-service/internal/events"
)

const defaultHandleTimeout = 30 * time.Second

var (
	// ErrMissingVoice indicates an event without a voice id.
	ErrMissingVoice = errors.New("voice_id cannot be empty")
	// ErrMissingText indicates an event with neither inline text nor a
	// text object key.
	ErrMissingText = errors.New("event carries neither text nor text_key")
)

// Synthesizer runs the synthesis pipeline for one request.
type Synthesizer interface {
	Synthesize(ctx context.Context, req core.SynthesisRequest) (*core.SynthesisResult, error)
}

// NatsWorker listens for synthesis requests on a NATS subject, runs the
// pipeline, stores the audio, and replies with an AudioCreatedEvent.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	textStore      core.ObjectStore
	audioStore     core.ObjectStore
	pipeline       Synthesizer
	handleTimeout  time.Duration
	log            *logger.Logger
}

// NewNatsWorker creates a worker. A non-positive handleTimeout selects
// the default per-message timeout.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	textStore core.ObjectStore,
	audioStore core.ObjectStore,
	pipeline Synthesizer,
	handleTimeout time.Duration,
	log *logger.Logger,
) *NatsWorker {
	if handleTimeout <= 0 {
		handleTimeout = defaultHandleTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		textStore:      textStore,
		audioStore:     audioStore,
		pipeline:       pipeline,
		handleTimeout:  handleTimeout,
		log:            log,
	}
}

// Run subscribes to the subject and blocks until the context is
// cancelled, then drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for synthesis requests on %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.handleTimeout)
	defer cancel()

	event, err := parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		return
	}

	reply, processErr := w.processRequest(ctx, event)
	if processErr != nil {
		w.log.Error(
			"Failed to process synthesis request for workflow %s: %v",
			event.Header.WorkflowID, processErr,
		)

		return
	}

	err = w.publishReply(msg, reply)
	if err != nil {
		w.log.Error(
			"Failed to publish reply for workflow %s: %v",
			event.Header.WorkflowID, err,
		)
	}
}

// processRequest resolves the input text, runs the pipeline, and uploads
// the result, returning the reply event. Events carrying an event id get
// a deterministic audio key, so a redelivered message finds its audio
// already stored and is answered without re-synthesis.
func (w *NatsWorker) processRequest(
	ctx context.Context,
	event *events.SynthesisRequestedEvent,
) (*events.AudioCreatedEvent, error) {
	audioKey := uuid.NewString() + "." + event.Format
	if event.Header.EventID != "" {
		audioKey = event.Header.EventID + "." + event.Format

		stored, existsErr := w.audioStore.Exists(ctx, audioKey)
		if existsErr != nil {
			w.log.Warn("Failed to check for stored audio '%s': %v", audioKey, existsErr)
		} else if stored {
			w.log.Info("Audio '%s' already stored, replying without re-synthesis", audioKey)

			return &events.AudioCreatedEvent{
				Header:   events.NewEventHeader(event.Header.WorkflowID),
				AudioKey: audioKey,
				Format:   event.Format,
				VoiceID:  event.VoiceID,
				Provider: "",
				CacheHit: true,
				Degraded: false,
			}, nil
		}
	}

	textInput := event.Text
	if event.TextKey != "" {
		data, err := w.textStore.Download(ctx, event.TextKey)
		if err != nil {
			return nil, fmt.Errorf("failed to download text for key '%s': %w", event.TextKey, err)
		}

		textInput = string(data)
	}

	req := core.SynthesisRequest{
		Text:       textInput,
		VoiceID:    event.VoiceID,
		Format:     event.Format,
		SampleRate: event.SampleRate,
		Knobs: core.EngineKnobs{
			LengthScale: event.LengthScale,
			NoiseScale:  event.NoiseScale,
			NoiseW:      event.NoiseW,
			Speaker:     event.Speaker,
		},
		SpeakingRate: event.SpeakingRate,
		PitchShift:   event.PitchShift,
		Energy:       event.Energy,
		Emotion:      event.Emotion,
	}

	result, err := w.pipeline.Synthesize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	err = w.audioStore.Upload(ctx, audioKey, result.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio for key '%s': %w", audioKey, err)
	}

	return &events.AudioCreatedEvent{
		Header:   events.NewEventHeader(event.Header.WorkflowID),
		AudioKey: audioKey,
		Format:   result.Format,
		VoiceID:  result.VoiceID,
		Provider: result.Provider,
		CacheHit: result.CacheHit,
		Degraded: result.Degraded,
	}, nil
}

func (w *NatsWorker) publishReply(msg *nats.Msg, reply *events.AudioCreatedEvent) error {
	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseAndValidateEvent(msg *nats.Msg) (*events.SynthesisRequestedEvent, error) {
	var event events.SynthesisRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.VoiceID == "" {
		return nil, ErrMissingVoice
	}

	if event.Text == "" && event.TextKey == "" {
		return nil, ErrMissingText
	}

	if event.Format == "" {
		event.Format = core.FormatWAV
	}

	return &event, nil
}
