package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/voice-service/internal/audio"
	"github.com/book-expert/voice-service/internal/core"
)

const bridgeRequestTimeout = 120 * time.Second

// NewRemoteModelLoader returns a ModelLoader whose models run on the
// synthesis server at baseURL. Each loaded model holds its own client
// bound to one model identifier, so the pool's memoization and eviction
// apply to server-side model residency the same way they would to
// in-process instances.
func NewRemoteModelLoader(baseURL string) ModelLoader {
	return func(modelID string, _ bool) (Model, error) {
		voice := core.Voice{
			ID:         "",
			Provider:   "",
			Lang:       "",
			Model:      modelID,
			Config:     "",
			SampleRate: 0,
		}

		return &bridgedModel{
			engine: NewRemoteEngine(baseURL, voice, bridgeRequestTimeout),
		}, nil
	}
}

// bridgedModel adapts a RemoteEngine to the Model interface by decoding
// the returned WAV into raw samples.
type bridgedModel struct {
	engine *RemoteEngine
}

func (m *bridgedModel) Synthesize(textInput, speaker string) ([]int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), bridgeRequestTimeout)
	defer cancel()

	knobs := core.EngineKnobs{LengthScale: 0, NoiseScale: 0, NoiseW: 0, Speaker: speaker}

	wavBytes, err := m.engine.SynthesizeToWAV(ctx, textInput, 0, knobs)
	if err != nil {
		return nil, 0, err
	}

	samples, sampleRate, err := audio.DecodeMono(wavBytes)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode synthesized waveform: %w", err)
	}

	return samples, sampleRate, nil
}

func (m *bridgedModel) Speakers() []string {
	return m.engine.Speakers()
}

func (m *bridgedModel) Close() error {
	return m.engine.Close()
}
