package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-service/internal/core"
	"github.com/book-expert/voice-service/internal/engine"
)

// stubEngine is a minimal core.Engine for registry tests.
type stubEngine struct {
	closed bool
}

func (s *stubEngine) SynthesizeToWAV(context.Context, string, int, core.EngineKnobs) ([]byte, error) {
	return []byte("stub audio"), nil
}

func (s *stubEngine) Speakers() []string { return nil }

func (s *stubEngine) Close() error {
	s.closed = true

	return nil
}

func TestRegistryCreatesAndReusesInstances(t *testing.T) {
	t.Parallel()

	registry := engine.NewRegistry()
	created := 0

	registry.Register("Piper", func(core.Voice) (core.Engine, error) {
		created++

		return &stubEngine{closed: false}, nil
	})

	voice := core.Voice{
		ID:         "v1",
		Provider:   "piper",
		Lang:       "es-ES",
		Model:      "models/a.onnx",
		Config:     "",
		SampleRate: 22050,
	}

	first, err := registry.Engine(voice)
	require.NoError(t, err)

	second, err := registry.Engine(voice)
	require.NoError(t, err)
	assert.Same(t, first, second, "same provider+model shares one instance")
	assert.Equal(t, 1, created)

	otherModel := voice
	otherModel.Model = "models/b.onnx"

	third, err := registry.Engine(otherModel)
	require.NoError(t, err)
	assert.NotSame(t, first, third, "a different model gets its own instance")
	assert.Equal(t, 2, created)
}

func TestRegistryUnknownProvider(t *testing.T) {
	t.Parallel()

	registry := engine.NewRegistry()

	_, err := registry.Engine(core.Voice{
		ID:         "v1",
		Provider:   "espeak",
		Lang:       "en-US",
		Model:      "m",
		Config:     "",
		SampleRate: 22050,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownProvider))
}

func TestRegistryProviderNamesAreCaseInsensitive(t *testing.T) {
	t.Parallel()

	registry := engine.NewRegistry()
	registry.Register("CoQui", func(core.Voice) (core.Engine, error) {
		return &stubEngine{closed: false}, nil
	})

	_, err := registry.Engine(core.Voice{
		ID:         "v1",
		Provider:   "COQUI",
		Lang:       "en-US",
		Model:      "m",
		Config:     "",
		SampleRate: 22050,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"coqui"}, registry.Providers())
}

func TestRegistryCloseClosesInstances(t *testing.T) {
	t.Parallel()

	registry := engine.NewRegistry()
	stub := &stubEngine{closed: false}

	registry.Register("piper", func(core.Voice) (core.Engine, error) {
		return stub, nil
	})

	_, err := registry.Engine(core.Voice{
		ID:         "v1",
		Provider:   "piper",
		Lang:       "es-ES",
		Model:      "m",
		Config:     "",
		SampleRate: 22050,
	})
	require.NoError(t, err)

	require.NoError(t, registry.Close())
	assert.True(t, stub.closed)
}
