// main package for the translation-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/translation-service/internal/config"
	"github.com/book-expert/translation-service/internal/core"
	"github.com/book-expert/translation-service/internal/languages"
	"github.com/book-expert/translation-service/internal/objectstore"
	"github.com/book-expert/translation-service/internal/pipeline"
	"github.com/book-expert/translation-service/internal/recognize"
	"github.com/book-expert/translation-service/internal/synth"
	"github.com/book-expert/translation-service/internal/translate"
	"github.com/book-expert/translation-service/internal/worker"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "translation-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return runService(cfg, finalLog)
}

func runService(cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to initialize audio object store: %w", err)
	}

	registry := pipeline.NewRegistry(buildPipelineBuilder(cfg, log), log)

	if cfg.NATS.PreloadDefaultOnStartup {
		preloadErr := preloadDefault(cfg, registry, log)
		if preloadErr != nil {
			return preloadErr
		}
	}

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		worker.Config{
			Subject:         cfg.NATS.SpeechJobSubject,
			ResultSubject:   cfg.NATS.SpeechResultSubject,
			StatusSubject:   cfg.NATS.StatusSubject,
			DefaultLanguage: cfg.NATS.DefaultTargetLanguageName,
			JobTimeout:      time.Duration(cfg.NATS.JobTimeoutSeconds) * time.Second,
		},
		store,
		registry,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	log.System(
		"Translation service initialized. Listening for jobs on subject: %s",
		cfg.NATS.SpeechJobSubject,
	)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped with error: %w", runErr)
	}

	log.System("Translation service shut down cleanly.")

	return nil
}

// buildPipelineBuilder wires the per-language pipeline builder from the
// loaded configuration. The synthesis chain is shared across pipelines;
// disabled tiers are left nil and skipped by the chain.
func buildPipelineBuilder(cfg *config.Config, log *logger.Logger) pipeline.Builder {
	var (
		clone  core.CloneSynthesizer
		neural core.NeuralSynthesizer
		system core.SystemSynthesizer
	)

	if cfg.Synthesis.Clone.Enabled {
		clone = synth.NewCloneAdapter(synth.CloneConfig{
			BinaryPath: cfg.Synthesis.Clone.BinaryPath,
			ModelDir:   cfg.Synthesis.Clone.ModelDir,
			WorkDir:    "",
		}, log)
	}

	if cfg.Synthesis.Neural.Enabled {
		neural = synth.NewNeuralSynthesizer(synth.NeuralConfig{
			BaseURL:        cfg.Synthesis.Neural.BaseURL,
			TimeoutSeconds: cfg.Synthesis.Neural.TimeoutSeconds,
			MaxChunkChars:  cfg.Synthesis.Neural.MaxChunkChars,
		}, log)
	}

	if cfg.Synthesis.System.Enabled {
		system = synth.NewSystemSynthesizer(synth.SystemConfig{
			BinaryPath: cfg.Synthesis.System.BinaryPath,
			Rate:       cfg.Synthesis.System.Rate,
			WorkDir:    "",
		}, log)
	}

	chain := synth.NewChain(clone, neural, system, log)

	return pipeline.NewDefaultBuilder(pipeline.BuilderDeps{
		Recognizer: recognize.Config{
			BinaryPath: cfg.Recognizer.BinaryPath,
			Model:      cfg.Recognizer.Model,
			Device:     cfg.Recognizer.Device,
		},
		SPM: translate.SPMConfig{
			EncodeBinary: cfg.Translator.EncodeBinaryPath,
			DecodeBinary: cfg.Translator.DecodeBinaryPath,
			ModelDir:     cfg.Translator.ModelDir,
		},
		Runner: translate.RunnerConfig{
			BinaryPath: cfg.Translator.RunnerBinaryPath,
			ModelDir:   cfg.Translator.ModelDir,
		},
		Chain: chain,
		Log:   log,
	})
}

// preloadDefault warms the default language so the first job does not pay
// the pipeline construction cost.
func preloadDefault(
	cfg *config.Config,
	registry *pipeline.Registry,
	log *logger.Logger,
) error {
	defaultLanguage := cfg.NATS.DefaultTargetLanguageName
	if defaultLanguage == "" {
		defaultLanguage = languages.DefaultTargetLanguage
	}

	_, err := registry.Get(defaultLanguage)
	if err != nil {
		return fmt.Errorf(
			"failed to preload pipeline for %q: %w", defaultLanguage, err,
		)
	}

	log.Info("Preloaded pipeline for default language %q.", defaultLanguage)

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
