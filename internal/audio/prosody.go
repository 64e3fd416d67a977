package audio

import (
	"math"

	"github.com/book-expert/logger"
)

// Overlap-add framing parameters for time stretching. The frame length
// suits speech sampled at 16-48 kHz.
const (
	olaFrameLength  = 1024
	olaSynthesisHop = olaFrameLength / 4

	semitonesPerOctave = 12
)

// ProsodyResult carries processed audio together with a degradation
// marker so callers and tests can distinguish full-fidelity output from
// the pass-through fallback.
type ProsodyResult struct {
	Audio    []byte
	Degraded bool
}

// ApplyProsody post-processes a waveform's rate, pitch, and energy.
// Adjustments apply in a fixed order: energy gain with hard clipping,
// time stretch by the inverse of the speaking rate, then pitch shift in
// semitones independent of duration.
//
// Unset or neutral parameters make the call a byte passthrough. Any
// processing failure degrades to the original, unprocessed bytes with
// the Degraded flag set rather than failing the request.
func ApplyProsody(
	wavBytes []byte,
	speakingRate, pitchShift, energy *float64,
	log *logger.Logger,
) ProsodyResult {
	rate := valueOr(speakingRate, 1.0)
	pitch := valueOr(pitchShift, 0.0)
	gain := valueOr(energy, 1.0)

	if rate == 1.0 && pitch == 0.0 && gain == 1.0 {
		return ProsodyResult{Audio: wavBytes, Degraded: false}
	}

	samples, sampleRate, err := DecodeMono(wavBytes)
	if err != nil || len(samples) == 0 {
		log.Warn("Prosody degraded to unprocessed audio: %v", err)

		return ProsodyResult{Audio: wavBytes, Degraded: true}
	}

	if gain != 1.0 {
		samples = applyGain(samples, gain)
	}

	if rate != 1.0 && rate > 0 {
		samples = Stretch(samples, rate)
	}

	if pitch != 0.0 {
		samples = PitchShift(samples, pitch)
	}

	processed, err := EncodeMono(samples, sampleRate)
	if err != nil {
		log.Warn("Prosody degraded to unprocessed audio: %v", err)

		return ProsodyResult{Audio: wavBytes, Degraded: true}
	}

	return ProsodyResult{Audio: processed, Degraded: false}
}

func valueOr(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}

	return *value
}

func applyGain(samples []int, gain float64) []int {
	out := make([]int, len(samples))
	for i, sample := range samples {
		out[i] = clip(int(float64(sample) * gain))
	}

	return out
}

// Stretch changes the duration of the signal by overlap-add without
// changing its pitch. A speed above 1 shortens the signal; below 1
// lengthens it. Signals shorter than one analysis frame fall back to
// plain interpolation.
func Stretch(samples []int, speed float64) []int {
	if speed == 1.0 || len(samples) == 0 {
		return samples
	}

	if len(samples) < olaFrameLength*2 {
		return resampleRatio(samples, 1/speed)
	}

	analysisHop := int(float64(olaSynthesisHop) * speed)
	if analysisHop < 1 {
		analysisHop = 1
	}

	numFrames := (len(samples)-olaFrameLength)/analysisHop + 1
	outLen := (numFrames-1)*olaSynthesisHop + olaFrameLength

	acc := make([]float64, outLen)
	norm := make([]float64, outLen)
	window := hannWindow(olaFrameLength)

	for frame := range numFrames {
		in := frame * analysisHop
		out := frame * olaSynthesisHop

		for i := range olaFrameLength {
			acc[out+i] += float64(samples[in+i]) * window[i]
			norm[out+i] += window[i]
		}
	}

	stretched := make([]int, outLen)

	for i := range outLen {
		if norm[i] > 1e-9 {
			stretched[i] = clip(int(acc[i] / norm[i]))
		}
	}

	return stretched
}

// PitchShift shifts the signal by the given number of semitones without
// changing its duration: the signal is time-stretched by the inverse of
// the pitch factor and then resampled back to its original length.
func PitchShift(samples []int, semitones float64) []int {
	if semitones == 0 || len(samples) == 0 {
		return samples
	}

	factor := math.Pow(2, -semitones/semitonesPerOctave)

	stretched := Stretch(samples, factor)

	return resampleRatio(stretched, float64(len(samples))/float64(maxOf(len(stretched), 1)))
}

func hannWindow(length int) []float64 {
	window := make([]float64, length)
	for i := range length {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(length-1)))
	}

	return window
}
