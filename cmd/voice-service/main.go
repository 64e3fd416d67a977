// main package for the voice-service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-service/internal/cache"
	"github.com/book-expert/voice-service/internal/catalog"
	"github.com/book-expert/voice-service/internal/config"
	"github.com/book-expert/voice-service/internal/core"
	"github.com/book-expert/voice-service/internal/engine"
	"github.com/book-expert/voice-service/internal/format"
	"github.com/book-expert/voice-service/internal/objectstore"
	"github.com/book-expert/voice-service/internal/orchestrator"
	"github.com/book-expert/voice-service/internal/worker"
)

var errRemoteURLRequired = errors.New(
	"synthesis.remote_engine_url must be set to serve coqui or remote voices",
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "voice-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

func serve(cfg *config.Config, log *logger.Logger) error {
	pipeline, registry, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := registry.Close()
		if closeErr != nil {
			log.Warn("Failed to close engine registry: %v", closeErr)
		}
	}()

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	textStore, err := objectstore.New(jetstreamContext, cfg.NATS.TextObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to open text object store: %w", err)
	}

	audioStore, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to open audio object store: %w", err)
	}

	natsWorker := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.SynthesisSubject,
		textStore,
		audioStore,
		pipeline,
		cfg.NATS.HandleMessageTimeout(),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.System("Voice service started. Listening on subject: %s", cfg.NATS.SynthesisSubject)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped with error: %w", runErr)
	}

	log.System("Voice service shut down.")

	return nil
}

// buildPipeline wires the catalog, engines, cache, and converter into
// the orchestrator.
func buildPipeline(
	cfg *config.Config,
	log *logger.Logger,
) (*orchestrator.Orchestrator, *engine.Registry, error) {
	cat, err := catalog.Load(
		cfg.Synthesis.VoicesPath,
		cfg.Synthesis.LegacyVoicesPath,
		cfg.Synthesis.BaselineProvider,
		log,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load voice catalog: %w", err)
	}

	registry, err := buildRegistry(cfg, cat, log)
	if err != nil {
		return nil, nil, err
	}

	store, err := cache.NewStore(cfg.Cache.Dir, cfg.Cache.MaxBytes, cfg.Cache.Enabled, log)
	if err != nil {
		closeErr := registry.Close()
		if closeErr != nil {
			log.Warn("Failed to close engine registry: %v", closeErr)
		}

		return nil, nil, fmt.Errorf("failed to open audio cache: %w", err)
	}

	converter := format.NewConverter(cfg.Synthesis.FFmpegExecutable, log)

	opts := orchestrator.Options{
		EnableFallback:   cfg.Synthesis.EnableFallback,
		EnableProsody:    cfg.Synthesis.EnableProsody,
		NormalizeNumbers: cfg.Synthesis.NormalizeNumbers,
		Timeout:          cfg.Synthesis.Timeout(),
		DefaultNoiseW:    cfg.Synthesis.DefaultNoiseW,
	}

	return orchestrator.New(cat, registry, store, converter, opts, log), registry, nil
}

// buildRegistry registers a factory per provider present in the catalog.
func buildRegistry(
	cfg *config.Config,
	cat *catalog.Catalog,
	log *logger.Logger,
) (*engine.Registry, error) {
	registry := engine.NewRegistry()

	registry.Register("piper", func(voice core.Voice) (core.Engine, error) {
		return engine.NewPiperEngine(cfg.Synthesis.PiperExecutable, voice, log)
	})

	needsRemote := false

	for _, voice := range cat.Voices() {
		if voice.Provider == "coqui" || voice.Provider == "remote" {
			needsRemote = true

			break
		}
	}

	if needsRemote {
		if cfg.Synthesis.RemoteEngineURL == "" {
			closeErr := registry.Close()
			if closeErr != nil {
				log.Warn("Failed to close engine registry: %v", closeErr)
			}

			return nil, errRemoteURLRequired
		}

		pool, err := engine.NewModelPool(
			cfg.Synthesis.ModelPoolSize,
			engine.NewRemoteModelLoader(cfg.Synthesis.RemoteEngineURL),
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create model pool: %w", err)
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

	return registry, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
