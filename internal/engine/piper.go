package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-service/internal/audio"
	"github.com/book-expert/voice-service/internal/core"
)

const (
	tempFilePattern     = "piper-input-*.txt"
	tempFilePermissions = 0o600
)

// PiperEngine synthesizes speech by invoking the piper executable as a
// subprocess. The input text travels through a temporary file and the
// WAV bytes are captured from standard output.
type PiperEngine struct {
	executable string
	modelPath  string
	configPath string
	log        *logger.Logger
}

// NewPiperEngine creates a subprocess engine for the voice's model. The
// model path must exist; the optional config path, when set, must too.
func NewPiperEngine(executable string, voice core.Voice, log *logger.Logger) (*PiperEngine, error) {
	_, err := os.Stat(voice.Model)
	if err != nil {
		return nil, fmt.Errorf("piper model not found at %s: %w", voice.Model, err)
	}

	if voice.Config != "" {
		_, err = os.Stat(voice.Config)
		if err != nil {
			return nil, fmt.Errorf("piper config not found at %s: %w", voice.Config, err)
		}
	}

	return &PiperEngine{
		executable: executable,
		modelPath:  voice.Model,
		configPath: voice.Config,
		log:        log,
	}, nil
}

// SynthesizeToWAV writes the text to a temporary file, runs piper, and
// returns the captured WAV bytes. The temporary file is deleted on every
// exit path, and the spawned process is killed if the context ends
// before it does. When the target sample rate differs from the engine's
// native rate and conversion fails, the native-rate audio is returned
// unchanged rather than failing the request.
func (p *PiperEngine) SynthesizeToWAV(
	ctx context.Context,
	textInput string,
	sampleRate int,
	knobs core.EngineKnobs,
) ([]byte, error) {
	trimmed := strings.TrimSpace(textInput)
	if trimmed == "" {
		return nil, core.ErrEmptyText
	}

	inputPath, err := writeTempInput(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEngineFailure, err)
	}

	defer func() {
		removeErr := os.Remove(inputPath)
		if removeErr != nil {
			p.log.Warn("Failed to remove piper input file %s: %v", inputPath, removeErr)
		}
	}()

	args, err := p.buildArgs(inputPath, knobs)
	if err != nil {
		return nil, err
	}

	// #nosec G204 -- the executable and model path come from validated configuration
	cmd := exec.CommandContext(ctx, p.executable, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		return nil, fmt.Errorf("%w: piper exited abnormally: %w: %s",
			core.ErrEngineFailure, runErr, strings.TrimSpace(stderr.String()))
	}

	raw := stdout.Bytes()
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: piper produced no audio", core.ErrEngineFailure)
	}

	if sampleRate <= 0 {
		return raw, nil
	}

	converted, convErr := audio.ConvertRate(raw, sampleRate)
	if convErr != nil {
		// Silent degradation: native-rate audio is acceptable output.
		p.log.Warn("Piper resample to %d Hz degraded to native rate: %v", sampleRate, convErr)

		return raw, nil
	}

	return converted, nil
}

// Speakers reports nothing for piper; speaker selection is by index knob.
func (p *PiperEngine) Speakers() []string {
	return nil
}

// Close is a no-op; each synthesis spawns and reaps its own process.
func (p *PiperEngine) Close() error {
	return nil
}

func (p *PiperEngine) buildArgs(inputPath string, knobs core.EngineKnobs) ([]string, error) {
	args := []string{
		"--model", p.modelPath,
		"--output_file", "-",
		"--input_file", inputPath,
	}

	if p.configPath != "" {
		args = append(args, "--config", p.configPath)
	}

	if knobs.LengthScale > 0 {
		args = append(args, "--length_scale", formatFloat(knobs.LengthScale))
	}

	if knobs.NoiseScale > 0 {
		args = append(args, "--noise_scale", formatFloat(knobs.NoiseScale))
	}

	if knobs.NoiseW > 0 {
		args = append(args, "--noise_w", formatFloat(knobs.NoiseW))
	}

	if knobs.Speaker != "" {
		speakerIndex, parseErr := strconv.Atoi(knobs.Speaker)
		if parseErr != nil || speakerIndex < 0 {
			return nil, fmt.Errorf("%w: piper speaker must be a non-negative index, got %q",
				core.ErrEngineFailure, knobs.Speaker)
		}

		args = append(args, "--speaker", strconv.Itoa(speakerIndex))
	}

	return args, nil
}

func writeTempInput(text string) (string, error) {
	tempFile, err := os.CreateTemp("", tempFilePattern)
	if err != nil {
		return "", fmt.Errorf("failed to create piper input file: %w", err)
	}

	_, writeErr := tempFile.WriteString(text + "\n")
	closeErr := tempFile.Close()

	if writeErr != nil {
		_ = os.Remove(tempFile.Name())

		return "", fmt.Errorf("failed to write piper input file: %w", writeErr)
	}

	if closeErr != nil {
		_ = os.Remove(tempFile.Name())

		return "", fmt.Errorf("failed to close piper input file: %w", closeErr)
	}

	return tempFile.Name(), nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
