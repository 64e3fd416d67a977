// Package orchestrator composes the synthesis pipeline: voice and
// emotion resolution, cache lookup across key generations, engine
// dispatch with baseline fallback, prosody, and format conversion.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-service/internal/audio"
	"github.com/book-expert/voice-service/internal/cache"
	"github.com/book-expert/voice-service/internal/catalog"
	"github.com/book-expert/voice-service/internal/core"
	"github.com/book-expert/voice-service/internal/emotion"
	"github.com/book-expert/voice-service/internal/engine"
	"github.com/book-expert/voice-service/internal/format"
	"github.com/book-expert/voice-service/internal/text"
)

// Options carries the pipeline policy knobs.
type Options struct {
	// EnableFallback permits retrying a failed synthesis on the
	// baseline provider's voice for the same language.
	EnableFallback bool
	// EnableProsody turns on post-synthesis prosody processing and
	// shifts cache writes to the prosody-aware key generation.
	EnableProsody bool
	// NormalizeNumbers expands isolated integers to words before
	// synthesis.
	NormalizeNumbers bool
	// Timeout bounds a full pipeline run. Zero means no limit.
	Timeout time.Duration
	// DefaultNoiseW fills the piper noise-w knob when the request
	// leaves it unset.
	DefaultNoiseW float64
}

// Orchestrator is the end-to-end synthesis pipeline. It is safe for
// concurrent use; racing identical requests may both reach the engine,
// with the cache converging afterward.
type Orchestrator struct {
	catalog   *catalog.Catalog
	engines   *engine.Registry
	store     *cache.Store
	converter *format.Converter
	opts      Options
	log       *logger.Logger

	mu          sync.Mutex
	normalizers map[string]*text.Normalizer
}

// New creates an orchestrator over the given catalog, engine registry,
// cache store, and format converter.
func New(
	cat *catalog.Catalog,
	engines *engine.Registry,
	store *cache.Store,
	converter *format.Converter,
	opts Options,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		catalog:     cat,
		engines:     engines,
		store:       store,
		converter:   converter,
		opts:        opts,
		log:         log,
		mu:          sync.Mutex{},
		normalizers: make(map[string]*text.Normalizer),
	}
}

// Synthesize runs the full pipeline for one request and returns the
// encoded audio. Validation failures surface before any engine work;
// cache failures never abort a request.
func (o *Orchestrator) Synthesize(
	ctx context.Context,
	req core.SynthesisRequest,
) (*core.SynthesisResult, error) {
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	result, err := o.synthesize(ctx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: synthesis exceeded %s", core.ErrTimeout, o.opts.Timeout)
	}

	return result, err
}

func (o *Orchestrator) synthesize(
	ctx context.Context,
	req core.SynthesisRequest,
) (*core.SynthesisResult, error) {
	err := format.Validate(req.Format)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Text) == "" {
		return nil, core.ErrEmptyText
	}

	voice, err := o.catalog.Resolve(req.VoiceID)
	if err != nil {
		return nil, err
	}

	sampleRate := req.SampleRate
	if sampleRate <= 0 {
		sampleRate = voice.SampleRate
	}

	if o.opts.NormalizeNumbers {
		req.Text = o.normalizerFor(voice.Lang).NormalizeNumbers(req.Text)
	}

	o.resolveEmotion(&req)

	keys := o.deriveKeys(req, voice, sampleRate)

	if cached := o.lookup(keys, req.Format); cached != nil {
		return &core.SynthesisResult{
			Audio:    cached,
			Format:   req.Format,
			VoiceID:  voice.ID,
			Provider: voice.Provider,
			CacheHit: true,
			Degraded: false,
		}, nil
	}

	wavBytes, usedVoice, err := o.dispatch(ctx, voice, req, sampleRate)
	if err != nil {
		return nil, err
	}

	degraded := false

	if o.opts.EnableProsody {
		processed := audio.ApplyProsody(
			wavBytes, req.SpeakingRate, req.PitchShift, req.Energy, o.log,
		)
		wavBytes = processed.Audio
		degraded = processed.Degraded
	}

	encoded, err := o.converter.Convert(ctx, wavBytes, req.Format)
	if err != nil {
		return nil, err
	}

	writeKey := keys.v2
	if o.opts.EnableProsody {
		writeKey = keys.v3
	}

	saveErr := o.store.Save(writeKey, req.Format, encoded)
	if saveErr != nil {
		o.log.Warn("Cache write failed for voice %s: %v", voice.ID, saveErr)
	}

	return &core.SynthesisResult{
		Audio:    encoded,
		Format:   req.Format,
		VoiceID:  usedVoice.ID,
		Provider: usedVoice.Provider,
		CacheHit: false,
		Degraded: degraded,
	}, nil
}

// resolveEmotion fills unset prosody fields from the request's emotion
// preset. Explicitly provided fields always win over the preset.
func (o *Orchestrator) resolveEmotion(req *core.SynthesisRequest) {
	if req.Emotion == "" {
		return
	}

	preset, found := emotion.Resolve(req.Emotion, o.catalog.Emotions())
	if !found {
		o.log.Warn("Unknown emotion %q ignored", req.Emotion)

		return
	}

	if req.SpeakingRate == nil {
		rate := preset.SpeakingRate
		req.SpeakingRate = &rate
	}

	if req.PitchShift == nil {
		pitch := preset.PitchShift
		req.PitchShift = &pitch
	}

	if req.Energy == nil {
		energy := preset.Energy
		req.Energy = &energy
	}
}

// keySet holds the three cache key generations for one request.
type keySet struct {
	legacy string
	v2     string
	v3     string
}

func (o *Orchestrator) deriveKeys(
	req core.SynthesisRequest,
	voice core.Voice,
	sampleRate int,
) keySet {
	return keySet{
		legacy: cache.LegacyKey(req.Text, voice.ID, sampleRate, req.Format),
		v2: cache.KeyV2(
			req.Text, voice.Provider, voice.Model, voice.ID, sampleRate, req.Format,
		),
		v3: cache.KeyV3(
			req.Text, voice.Provider, voice.Model, voice.ID, sampleRate, req.Format,
			req.SpeakingRate, req.PitchShift, req.Energy,
		),
	}
}

// lookup probes the cache newest generation first. A nil return means a
// miss across all three generations.
func (o *Orchestrator) lookup(keys keySet, formatName string) []byte {
	for _, key := range []string{keys.v3, keys.v2, keys.legacy} {
		data, err := o.store.Load(key, formatName)
		if err == nil {
			return data
		}

		if !errors.Is(err, core.ErrCacheMiss) {
			o.log.Warn("Cache read failed: %v", err)
		}
	}

	return nil
}

// dispatch runs the fallback state machine: synthesize on the resolved
// voice, and on engine failure retry once on the baseline provider's
// voice for the same language when fallback applies.
func (o *Orchestrator) dispatch(
	ctx context.Context,
	voice core.Voice,
	req core.SynthesisRequest,
	sampleRate int,
) ([]byte, core.Voice, error) {
	wavBytes, primaryErr := o.synthesizeOn(ctx, voice, req, sampleRate)
	if primaryErr == nil {
		return wavBytes, voice, nil
	}

	if errors.Is(primaryErr, core.ErrUnknownProvider) ||
		errors.Is(primaryErr, core.ErrEmptyText) {
		return nil, voice, primaryErr
	}

	if !o.opts.EnableFallback || voice.Provider == o.catalog.BaselineProvider() {
		return nil, voice, primaryErr
	}

	fallbackVoice, found := o.catalog.FindFallback(voice.Lang)
	if !found {
		return nil, voice, fmt.Errorf(
			"%w: voice %s (%s) failed: %w; no %s voice for language %s",
			core.ErrFallbackExhausted, voice.ID, voice.Provider, primaryErr,
			o.catalog.BaselineProvider(), voice.Lang,
		)
	}

	o.log.Warn(
		"Voice %s (%s) failed, falling back to %s: %v",
		voice.ID, voice.Provider, fallbackVoice.ID, primaryErr,
	)

	wavBytes, fallbackErr := o.synthesizeOn(ctx, fallbackVoice, req, sampleRate)
	if fallbackErr != nil {
		return nil, voice, fmt.Errorf(
			"%w: voice %s (%s) failed: %w; fallback voice %s failed: %w",
			core.ErrFallbackExhausted, voice.ID, voice.Provider, primaryErr,
			fallbackVoice.ID, fallbackErr,
		)
	}

	return wavBytes, fallbackVoice, nil
}

func (o *Orchestrator) synthesizeOn(
	ctx context.Context,
	voice core.Voice,
	req core.SynthesisRequest,
	sampleRate int,
) ([]byte, error) {
	eng, err := o.engines.Engine(voice)
	if err != nil {
		return nil, err
	}

	knobs := req.Knobs
	if knobs.NoiseW == 0 {
		knobs.NoiseW = o.opts.DefaultNoiseW
	}

	return eng.SynthesizeToWAV(ctx, req.Text, sampleRate, knobs)
}

func (o *Orchestrator) normalizerFor(lang string) *text.Normalizer {
	o.mu.Lock()
	defer o.mu.Unlock()

	norm, ok := o.normalizers[lang]
	if !ok {
		norm = text.NewNormalizer(lang)
		o.normalizers[lang] = norm
	}

	return norm
}
