package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/book-expert/logger"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/book-expert/voice-service/internal/audio"
	"github.com/book-expert/voice-service/internal/core"
)

// Model is the capability an in-process synthesis model exposes to the
// engine. Implementations are not assumed reentrant-safe; the pool
// serializes inference calls per instance.
type Model interface {
	Synthesize(text, speaker string) (samples []int, sampleRate int, err error)
	Speakers() []string
	Close() error
}

// ModelLoader loads a heavy model instance for a model identifier and
// GPU flag. Loading is expensive; the pool memoizes the result.
type ModelLoader func(modelID string, useGPU bool) (Model, error)

type modelKey struct {
	modelID string
	useGPU  bool
}

// modelHandle pairs a loaded model with the exclusive lock serializing
// its inference calls.
type modelHandle struct {
	mu    sync.Mutex
	model Model
}

// ModelPool is a bounded cache of loaded model instances shared across
// all requests targeting the same (model, GPU flag) pair. Instances
// beyond the bound are evicted least-recently-used and closed.
type ModelPool struct {
	mu     sync.Mutex
	cache  *lru.Cache[modelKey, *modelHandle]
	loader ModelLoader
	log    *logger.Logger
}

// NewModelPool creates a pool holding at most size concurrently loaded
// model instances.
func NewModelPool(size int, loader ModelLoader, log *logger.Logger) (*ModelPool, error) {
	onEvict := func(key modelKey, handle *modelHandle) {
		closeErr := handle.model.Close()
		if closeErr != nil {
			log.Warn("Failed to dispose evicted model %s (gpu=%t): %v",
				key.modelID, key.useGPU, closeErr)

			return
		}

		log.Info("Disposed evicted model instance %s (gpu=%t)", key.modelID, key.useGPU)
	}

	cache, err := lru.NewWithEvict[modelKey, *modelHandle](size, onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create model pool: %w", err)
	}

	return &ModelPool{
		cache:  cache,
		loader: loader,
		log:    log,
	}, nil
}

// acquire returns the shared handle for the key, loading the model on
// first use.
func (p *ModelPool) acquire(modelID string, useGPU bool) (*modelHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := modelKey{modelID: modelID, useGPU: useGPU}

	handle, ok := p.cache.Get(key)
	if ok {
		return handle, nil
	}

	model, err := p.loader(modelID, useGPU)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s (gpu=%t): %w", modelID, useGPU, err)
	}

	handle = &modelHandle{model: model}
	p.cache.Add(key, handle)

	return handle, nil
}

// Close disposes every cached model instance.
func (p *ModelPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache.Purge()

	return nil
}

// convertRate is swappable so tests can exercise the hard-failure path
// without corrupting a self-encoded waveform.
var convertRate = audio.ConvertRate

// CoquiEngine synthesizes speech with an in-process model instance
// drawn from a shared bounded pool.
type CoquiEngine struct {
	pool    *ModelPool
	modelID string
	useGPU  bool
	log     *logger.Logger
}

// NewCoquiEngine creates an in-process engine for the voice's model.
// GPU usage is auto-detected unless forceGPU is set in configuration.
func NewCoquiEngine(pool *ModelPool, voice core.Voice, forceGPU *bool, log *logger.Logger) *CoquiEngine {
	useGPU := detectGPU()
	if forceGPU != nil {
		useGPU = *forceGPU
	}

	return &CoquiEngine{
		pool:    pool,
		modelID: voice.Model,
		useGPU:  useGPU,
		log:     log,
	}
}

// SynthesizeToWAV runs inference on the shared model instance and
// renders the samples as canonical WAV. Unlike the subprocess engine, a
// failed sample-rate conversion here is a hard error: callers of the
// in-process path expect the requested rate, with no native-rate
// fallback.
func (e *CoquiEngine) SynthesizeToWAV(
	_ context.Context,
	textInput string,
	sampleRate int,
	knobs core.EngineKnobs,
) ([]byte, error) {
	trimmed := strings.TrimSpace(textInput)
	if trimmed == "" {
		return nil, core.ErrEmptyText
	}

	handle, err := e.pool.acquire(e.modelID, e.useGPU)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEngineFailure, err)
	}

	err = validateSpeaker(knobs.Speaker, handle.model.Speakers())
	if err != nil {
		return nil, err
	}

	// The underlying model is not proven reentrant-safe; inference is
	// serialized per instance.
	handle.mu.Lock()
	samples, nativeRate, synthErr := handle.model.Synthesize(trimmed, knobs.Speaker)
	handle.mu.Unlock()

	if synthErr != nil {
		return nil, fmt.Errorf("%w: model inference failed: %w", core.ErrEngineFailure, synthErr)
	}

	if nativeRate <= 0 {
		nativeRate = core.DefaultSampleRate
	}

	wavBytes, encodeErr := audio.EncodeMono(samples, nativeRate)
	if encodeErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEngineFailure, encodeErr)
	}

	if sampleRate <= 0 || sampleRate == nativeRate {
		return wavBytes, nil
	}

	converted, convErr := convertRate(wavBytes, sampleRate)
	if convErr != nil {
		return nil, fmt.Errorf("%w: %d Hz to %d Hz: %w",
			core.ErrResampleUnavailable, nativeRate, sampleRate, convErr)
	}

	return converted, nil
}

// Speakers lists the speakers of the loaded model, loading it on demand.
func (e *CoquiEngine) Speakers() []string {
	handle, err := e.pool.acquire(e.modelID, e.useGPU)
	if err != nil {
		e.log.Warn("Cannot list speakers for model %s: %v", e.modelID, err)

		return nil
	}

	return handle.model.Speakers()
}

// Close is a no-op; model lifecycle belongs to the shared pool.
func (e *CoquiEngine) Close() error {
	return nil
}

// validateSpeaker accepts an empty speaker, a valid index, or a known
// speaker name. Validation only applies when the model is multi-speaker.
func validateSpeaker(speaker string, available []string) error {
	if speaker == "" || len(available) == 0 {
		return nil
	}

	index, parseErr := strconv.Atoi(speaker)
	if parseErr == nil {
		if index < 0 || index >= len(available) {
			return fmt.Errorf("%w: speaker index %d out of range (0-%d)",
				core.ErrEngineFailure, index, len(available)-1)
		}

		return nil
	}

	for _, name := range available {
		if name == speaker {
			return nil
		}
	}

	return fmt.Errorf("%w: speaker %q not in model (available: %s)",
		core.ErrEngineFailure, speaker, strings.Join(available, ", "))
}

// detectGPU reports whether an NVIDIA GPU appears to be present.
func detectGPU() bool {
	_, err := exec.LookPath("nvidia-smi")

	return err == nil
}
