package audio_test

import (
	"math"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-service/internal/audio"
)

const testSampleRate = 22050

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "audio-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

// sineWAV builds a mono 16-bit PCM WAV containing a sine tone.
func sineWAV(t *testing.T, freq float64, seconds float64, amplitude int) []byte {
	t.Helper()

	frames := int(seconds * testSampleRate)
	samples := make([]int, frames)

	for i := range frames {
		samples[i] = int(float64(amplitude) * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}

	data, err := audio.EncodeMono(samples, testSampleRate)
	require.NoError(t, err)

	return data
}

func peak(samples []int) int {
	maxAbs := 0

	for _, sample := range samples {
		if sample < 0 {
			sample = -sample
		}

		if sample > maxAbs {
			maxAbs = sample
		}
	}

	return maxAbs
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	wavBytes := sineWAV(t, 440, 0.5, 10000)

	samples, rate, err := audio.DecodeMono(wavBytes)
	require.NoError(t, err)
	assert.Equal(t, testSampleRate, rate)
	assert.Equal(t, int(0.5*testSampleRate), len(samples))
	assert.InDelta(t, 10000, peak(samples), 50)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := audio.DecodeMono([]byte("definitely not a wav file"))
	require.Error(t, err)
	assert.ErrorIs(t, err, audio.ErrInvalidWaveform)
}

func TestResampleChangesLengthProportionally(t *testing.T) {
	t.Parallel()

	samples := make([]int, 22050)
	for i := range samples {
		samples[i] = int(10000 * math.Sin(2*math.Pi*220*float64(i)/testSampleRate))
	}

	down := audio.Resample(samples, 22050, 11025)
	assert.InDelta(t, len(samples)/2, len(down), 2)

	up := audio.Resample(samples, 22050, 44100)
	assert.InDelta(t, len(samples)*2, len(up), 2)

	same := audio.Resample(samples, 22050, 22050)
	assert.Equal(t, len(samples), len(same))
}

func TestConvertRatePassthroughAndConversion(t *testing.T) {
	t.Parallel()

	wavBytes := sineWAV(t, 440, 0.25, 10000)

	unchanged, err := audio.ConvertRate(wavBytes, testSampleRate)
	require.NoError(t, err)
	assert.Equal(t, wavBytes, unchanged)

	converted, err := audio.ConvertRate(wavBytes, 16000)
	require.NoError(t, err)

	samples, rate, err := audio.DecodeMono(converted)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	assert.InDelta(t, 0.25*16000, float64(len(samples)), 3)
}

func TestApplyProsodyNeutralIsPassthrough(t *testing.T) {
	t.Parallel()

	wavBytes := sineWAV(t, 440, 0.25, 10000)

	result := audio.ApplyProsody(wavBytes, nil, nil, nil, testLogger(t))
	assert.False(t, result.Degraded)
	assert.Equal(t, wavBytes, result.Audio)

	one := 1.0
	zero := 0.0
	result = audio.ApplyProsody(wavBytes, &one, &zero, &one, testLogger(t))
	assert.Equal(t, wavBytes, result.Audio, "explicit neutral values are also a passthrough")
}

func TestApplyProsodyEnergyScalesAmplitude(t *testing.T) {
	t.Parallel()

	wavBytes := sineWAV(t, 440, 0.25, 8000)
	gain := 1.5

	result := audio.ApplyProsody(wavBytes, nil, nil, &gain, testLogger(t))
	require.False(t, result.Degraded)

	samples, _, err := audio.DecodeMono(result.Audio)
	require.NoError(t, err)
	assert.InDelta(t, 12000, peak(samples), 200)
}

func TestApplyProsodyEnergyClipsAtFullScale(t *testing.T) {
	t.Parallel()

	wavBytes := sineWAV(t, 440, 0.25, 30000)
	gain := 4.0

	result := audio.ApplyProsody(wavBytes, nil, nil, &gain, testLogger(t))
	require.False(t, result.Degraded)

	samples, _, err := audio.DecodeMono(result.Audio)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak(samples), 32767)
	assert.InDelta(t, 32767, peak(samples), 10)
}

func TestApplyProsodyRateChangesDuration(t *testing.T) {
	t.Parallel()

	wavBytes := sineWAV(t, 220, 1.0, 10000)
	fast := 1.25

	result := audio.ApplyProsody(wavBytes, &fast, nil, nil, testLogger(t))
	require.False(t, result.Degraded)

	samples, _, err := audio.DecodeMono(result.Audio)
	require.NoError(t, err)

	// rate > 1 means a shorter signal: expect roughly 1/1.25 of the input.
	expected := float64(testSampleRate) / fast
	assert.InDelta(t, expected, float64(len(samples)), expected*0.05)
}

func TestApplyProsodyPitchShiftKeepsDuration(t *testing.T) {
	t.Parallel()

	wavBytes := sineWAV(t, 220, 1.0, 10000)
	up := 2.0

	result := audio.ApplyProsody(wavBytes, nil, &up, nil, testLogger(t))
	require.False(t, result.Degraded)

	samples, _, err := audio.DecodeMono(result.Audio)
	require.NoError(t, err)
	assert.InDelta(t, testSampleRate, float64(len(samples)), float64(testSampleRate)*0.05)
	assert.NotEqual(t, wavBytes, result.Audio)
}

func TestApplyProsodyDegradesOnMalformedAudio(t *testing.T) {
	t.Parallel()

	garbage := []byte("not audio at all")
	gain := 1.2

	result := audio.ApplyProsody(garbage, nil, nil, &gain, testLogger(t))
	assert.True(t, result.Degraded)
	assert.Equal(t, garbage, result.Audio, "degradation returns the original bytes untouched")
}
