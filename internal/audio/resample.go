package audio

import "fmt"

// Resample converts samples from one sample rate to another by linear
// interpolation. Identical rates return the input unchanged.
func Resample(samples []int, fromRate, toRate int) []int {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}

	return resampleRatio(samples, float64(toRate)/float64(fromRate))
}

// ConvertRate re-renders WAV bytes at the target sample rate. A zero
// target or a target equal to the native rate returns the input
// unchanged.
func ConvertRate(wavBytes []byte, targetRate int) ([]byte, error) {
	if targetRate <= 0 {
		return wavBytes, nil
	}

	samples, nativeRate, err := DecodeMono(wavBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot resample: %w", err)
	}

	if nativeRate == targetRate {
		return wavBytes, nil
	}

	resampled := Resample(samples, nativeRate, targetRate)

	out, err := EncodeMono(resampled, targetRate)
	if err != nil {
		return nil, fmt.Errorf("cannot resample: %w", err)
	}

	return out, nil
}

// resampleRatio stretches the sample slice to ratio times its length by
// linear interpolation, independent of any nominal sample rate.
func resampleRatio(samples []int, ratio float64) []int {
	if ratio == 1 || len(samples) < 2 {
		return samples
	}

	outLen := int(float64(len(samples)) * ratio)
	if outLen < 1 {
		outLen = 1
	}

	out := make([]int, outLen)
	step := float64(len(samples)-1) / float64(maxOf(outLen-1, 1))

	for i := range outLen {
		pos := float64(i) * step
		left := int(pos)

		if left >= len(samples)-1 {
			out[i] = samples[len(samples)-1]

			continue
		}

		frac := pos - float64(left)
		out[i] = int(float64(samples[left])*(1-frac) + float64(samples[left+1])*frac)
	}

	return out
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}

	return b
}
