// voicectl is the operator CLI for the voice service. It runs the
// synthesis pipeline locally, without NATS, for spot checks and batch
// rendering.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-service/internal/cache"
	"github.com/book-expert/voice-service/internal/catalog"
	"github.com/book-expert/voice-service/internal/config"
	"github.com/book-expert/voice-service/internal/core"
	"github.com/book-expert/voice-service/internal/engine"
	"github.com/book-expert/voice-service/internal/fileutil"
	"github.com/book-expert/voice-service/internal/format"
	"github.com/book-expert/voice-service/internal/orchestrator"
)

// Flag descriptions.
const (
	flagTextDesc    = "Text to synthesize"
	flagChunksDesc  = "JSON file containing an array of text chunks"
	flagOutputDesc  = "Output file (single text) or directory (chunks)"
	flagVoiceDesc   = "Voice id from the catalog"
	flagFormatDesc  = "Output format: wav, mp3, or ogg"
	flagEmotionDesc = "Emotion preset name"
	flagWorkersDesc = "Concurrent chunk workers"
	flagListDesc    = "List catalog voices and exit"
	flagVerboseDesc = "Enable verbose logging"
)

const (
	defaultWorkers     = 4
	outputFileFormat   = "chunk_%04d.%s"
	defaultOutputStem  = "output"
	filePermissions    = 0o600
	logFileNameDefault = "voicectl.log"
	logFileNameVerbose = "voicectl-verbose.log"
)

var (
	errTextOrChunksRequired = errors.New("either -text or -chunks must be provided")
	errTextAndChunks        = errors.New("cannot specify both -text and -chunks")
)

type appFlags struct {
	text    string
	chunks  string
	output  string
	voice   string
	format  string
	emotion string
	workers int
	list    bool
	verbose bool
}

func main() {
	err := run()
	if err != nil {
		stdlog.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	log, err := setupLogger(flags.verbose)
	if err != nil {
		return err
	}

	defer func() { _ = log.Close() }()

	cfg, err := config.Load(log)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	pipeline, cat, registry, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}

	defer func() { _ = registry.Close() }()

	if flags.list {
		return listVoices(cat)
	}

	return handleExecution(pipeline, cfg, log, flags)
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, "text", "", flagTextDesc)
	flag.StringVar(&flags.chunks, "chunks", "", flagChunksDesc)
	flag.StringVar(&flags.output, "output", "", flagOutputDesc)
	flag.StringVar(&flags.voice, "voice", "", flagVoiceDesc)
	flag.StringVar(&flags.format, "format", core.FormatWAV, flagFormatDesc)
	flag.StringVar(&flags.emotion, "emotion", "", flagEmotionDesc)
	flag.IntVar(&flags.workers, "workers", defaultWorkers, flagWorkersDesc)
	flag.BoolVar(&flags.list, "list-voices", false, flagListDesc)
	flag.BoolVar(&flags.verbose, "verbose", false, flagVerboseDesc)
	flag.Parse()

	return flags
}

func setupLogger(verbose bool) (*logger.Logger, error) {
	logFileName := logFileNameDefault
	if verbose {
		logFileName = logFileNameVerbose
	}

	log, err := logger.New(fileutil.CacheDir(), logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return log, nil
}

// buildPipeline wires a local orchestrator from the loaded
// configuration, mirroring the service binary without the NATS layer.
func buildPipeline(
	cfg *config.Config,
	log *logger.Logger,
) (*orchestrator.Orchestrator, *catalog.Catalog, *engine.Registry, error) {
	cat, err := catalog.Load(
		cfg.Synthesis.VoicesPath,
		cfg.Synthesis.LegacyVoicesPath,
		cfg.Synthesis.BaselineProvider,
		log,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load voice catalog: %w", err)
	}

	registry := engine.NewRegistry()
	registry.Register("piper", func(voice core.Voice) (core.Engine, error) {
		return engine.NewPiperEngine(cfg.Synthesis.PiperExecutable, voice, log)
	})

	if cfg.Synthesis.RemoteEngineURL != "" {
		pool, poolErr := engine.NewModelPool(
			cfg.Synthesis.ModelPoolSize,
			engine.NewRemoteModelLoader(cfg.Synthesis.RemoteEngineURL),
			log,
		)
		if poolErr != nil {
			return nil, nil, nil, fmt.Errorf("failed to create model pool: %w", poolErr)
		}

		registry.Register("coqui", func(voice core.Voice) (core.Engine, error) {
			return engine.NewCoquiEngine(pool, voice, cfg.Synthesis.ForceGPU, log), nil
		})

		registry.Register("remote", func(voice core.Voice) (core.Engine, error) {
			return engine.NewRemoteEngine(
				cfg.Synthesis.RemoteEngineURL, voice, cfg.Synthesis.Timeout(),
			), nil
		})
	}

	store, err := cache.NewStore(cfg.Cache.Dir, cfg.Cache.MaxBytes, cfg.Cache.Enabled, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open audio cache: %w", err)
	}

	opts := orchestrator.Options{
		EnableFallback:   cfg.Synthesis.EnableFallback,
		EnableProsody:    cfg.Synthesis.EnableProsody,
		NormalizeNumbers: cfg.Synthesis.NormalizeNumbers,
		Timeout:          cfg.Synthesis.Timeout(),
		DefaultNoiseW:    cfg.Synthesis.DefaultNoiseW,
	}

	converter := format.NewConverter(cfg.Synthesis.FFmpegExecutable, log)
	pipeline := orchestrator.New(cat, registry, store, converter, opts, log)

	return pipeline, cat, registry, nil
}

func listVoices(cat *catalog.Catalog) error {
	for _, voice := range cat.Voices() {
		fmt.Printf("%-24s %-8s %-6s %s\n", voice.ID, voice.Provider, voice.Lang, voice.Model)
	}

	return nil
}

func handleExecution(
	pipeline *orchestrator.Orchestrator,
	cfg *config.Config,
	log *logger.Logger,
	flags appFlags,
) error {
	if flags.text == "" && flags.chunks == "" {
		flag.Usage()

		return errTextOrChunksRequired
	}

	if flags.text != "" && flags.chunks != "" {
		return errTextAndChunks
	}

	if flags.text != "" {
		return processSingleText(pipeline, cfg, log, flags)
	}

	return processChunks(pipeline, cfg, log, flags)
}

func synthesizeToFile(
	pipeline *orchestrator.Orchestrator,
	flags appFlags,
	textInput, outputPath string,
	log *logger.Logger,
) error {
	req := core.SynthesisRequest{
		Text:         textInput,
		VoiceID:      flags.voice,
		Format:       flags.format,
		SampleRate:   0,
		Knobs:        core.EngineKnobs{LengthScale: 0, NoiseScale: 0, NoiseW: 0, Speaker: ""},
		SpeakingRate: nil,
		PitchShift:   nil,
		Energy:       nil,
		Emotion:      flags.emotion,
	}

	result, err := pipeline.Synthesize(context.Background(), req)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	err = os.WriteFile(outputPath, result.Audio, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write audio file %s: %w", outputPath, err)
	}

	log.Info(
		"Generated %s (%s, voice %s, cache hit: %t)",
		outputPath, fileutil.FormatFileSize(int64(len(result.Audio))),
		result.VoiceID, result.CacheHit,
	)

	return nil
}

func processSingleText(
	pipeline *orchestrator.Orchestrator,
	cfg *config.Config,
	log *logger.Logger,
	flags appFlags,
) error {
	outputPath := flags.output
	if outputPath == "" {
		outputPath = filepath.Join(
			cfg.Paths.OutputDir, defaultOutputStem+"."+flags.format,
		)
	}

	err := fileutil.EnsureDir(filepath.Dir(outputPath))
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err = synthesizeToFile(pipeline, flags, flags.text, outputPath, log)
	if err != nil {
		return err
	}

	fmt.Printf("Generated: %s\n", outputPath)

	return nil
}

// processChunks renders every chunk in the JSON file concurrently,
// bounded by the worker count. Individual chunk failures are reported
// but do not stop the remaining chunks.
func processChunks(
	pipeline *orchestrator.Orchestrator,
	cfg *config.Config,
	log *logger.Logger,
	flags appFlags,
) error {
	chunks, err := readChunksFile(flags.chunks)
	if err != nil {
		return err
	}

	outputDir := flags.output
	if outputDir == "" {
		outputDir = cfg.Paths.OutputDir
	}

	err = fileutil.EnsureDir(outputDir)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		waitGroup sync.WaitGroup
		mutex     sync.Mutex
		lastError error
	)

	workerPool := make(chan struct{}, flags.workers)

	for chunkIndex, chunk := range chunks {
		waitGroup.Add(1)

		go func(index int, textInput string) {
			defer waitGroup.Done()

			workerPool <- struct{}{}

			defer func() { <-workerPool }()

			outputPath := filepath.Join(
				outputDir,
				fmt.Sprintf(outputFileFormat, index+1, flags.format),
			)

			chunkErr := synthesizeToFile(pipeline, flags, textInput, outputPath, log)
			if chunkErr != nil {
				mutex.Lock()

				lastError = fmt.Errorf("chunk %d failed: %w", index+1, chunkErr)

				mutex.Unlock()
				log.Error("Chunk %d failed: %v", index+1, chunkErr)

				return
			}

			log.Info("Processed chunk %d of %d", index+1, len(chunks))
		}(chunkIndex, chunk)
	}

	waitGroup.Wait()
	close(workerPool)

	if lastError != nil {
		return lastError
	}

	fmt.Printf("Generated %d audio files in: %s\n", len(chunks), outputDir)

	return nil
}

func readChunksFile(chunksPath string) ([]string, error) {
	data, err := os.ReadFile(chunksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks file %s: %w", chunksPath, err)
	}

	var chunks []string

	err = json.Unmarshal(data, &chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunks file %s: %w", chunksPath, err)
	}

	return chunks, nil
}
