// Package audio implements the waveform processing for the voice
// service: decoding and encoding of the canonical single-channel 16-bit
// PCM WAV form, sample-rate conversion, and prosody adjustment.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	canonicalBitDepth = 16
	canonicalChannels = 1

	// pcmFormat is the WAV audio format tag for uncompressed PCM.
	pcmFormat = 1

	maxInt16 = 32767
	minInt16 = -32768
)

// ErrInvalidWaveform indicates bytes that could not be parsed as WAV.
var ErrInvalidWaveform = errors.New("invalid waveform")

// DecodeMono parses WAV bytes into integer samples and a sample rate.
// Multi-channel audio is mixed down to mono by averaging channels;
// higher bit depths are scaled to the 16-bit range.
func DecodeMono(wavBytes []byte) ([]int, int, error) {
	decoder := wav.NewDecoder(bytes.NewReader(wavBytes))
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrInvalidWaveform)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidWaveform, err)
	}

	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("%w: missing format chunk", ErrInvalidWaveform)
	}

	samples := mixdown(buf.Data, buf.Format.NumChannels)
	samples = scaleTo16Bit(samples, int(decoder.BitDepth))

	return samples, buf.Format.SampleRate, nil
}

// EncodeMono renders integer samples as single-channel 16-bit PCM WAV.
func EncodeMono(samples []int, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidWaveform, sampleRate)
	}

	var sink memoryWriteSeeker

	encoder := wav.NewEncoder(&sink, sampleRate, canonicalBitDepth, canonicalChannels, pcmFormat)

	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: canonicalChannels,
			SampleRate:  sampleRate,
		},
		Data:           clipAll(samples),
		SourceBitDepth: canonicalBitDepth,
	}

	err := encoder.Write(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to finalize WAV: %w", err)
	}

	return sink.Bytes(), nil
}

func mixdown(data []int, channels int) []int {
	if channels == 1 {
		return data
	}

	frames := len(data) / channels
	mono := make([]int, frames)

	for frame := range frames {
		sum := 0
		for ch := range channels {
			sum += data[frame*channels+ch]
		}

		mono[frame] = sum / channels
	}

	return mono
}

func scaleTo16Bit(samples []int, bitDepth int) []int {
	if bitDepth == 0 || bitDepth == canonicalBitDepth {
		return samples
	}

	shift := bitDepth - canonicalBitDepth
	scaled := make([]int, len(samples))

	for i, sample := range samples {
		if shift > 0 {
			scaled[i] = sample >> uint(shift)
		} else {
			scaled[i] = sample << uint(-shift)
		}
	}

	return scaled
}

func clip(sample int) int {
	if sample > maxInt16 {
		return maxInt16
	}

	if sample < minInt16 {
		return minInt16
	}

	return sample
}

func clipAll(samples []int) []int {
	clipped := make([]int, len(samples))
	for i, sample := range samples {
		clipped[i] = clip(sample)
	}

	return clipped
}

// memoryWriteSeeker adapts an in-memory buffer to io.WriteSeeker for the
// WAV encoder, which seeks back to patch chunk sizes on Close.
type memoryWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memoryWriteSeeker) Write(p []byte) (int, error) {
	needed := m.pos + len(p)
	if needed > len(m.buf) {
		grown := make([]byte, needed)
		copy(grown, m.buf)
		m.buf = grown
	}

	copy(m.buf[m.pos:], p)
	m.pos += len(p)

	return len(p), nil
}

func (m *memoryWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64

	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(m.pos) + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("%w: seek whence %d", ErrInvalidWaveform, whence)
	}

	if next < 0 {
		return 0, fmt.Errorf("%w: negative seek position", ErrInvalidWaveform)
	}

	m.pos = int(next)

	return next, nil
}

func (m *memoryWriteSeeker) Bytes() []byte {
	return m.buf
}
