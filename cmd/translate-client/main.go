// main package for the translate-client, a small job-submission tool
// for the translation-service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/translation-service/internal/config"
	"github.com/book-expert/translation-service/internal/objectstore"
	"github.com/book-expert/translation-service/internal/worker"
)

// Flag descriptions.
const (
	flagAudioDesc    = "Input audio file (.wav) to translate"
	flagLanguageDesc = "Target language (defaults to the service default)"
	flagHintDesc     = "Source language hint for recognition (e.g. en)"
	flagVoiceDesc    = "Neural voice override"
	flagSampleDesc   = "Speaker reference sample (.wav) for voice cloning"
	flagOutputDesc   = "Output file path (.wav)"
	flagTimeoutDesc  = "Seconds to wait for the translated result"
)

// Error messages.
const (
	errAudioRequired = "--audio must be provided"
)

const (
	defaultTimeoutSeconds = 180
	defaultOutputFile     = "translated.wav"
	clientLogFileName     = "translate-client.log"
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	audio          string
	language       string
	hint           string
	voice          string
	sample         string
	output         string
	timeoutSeconds int
}

func main() {
	err := run()
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

// run is the main application entry point, returning an error on failure.
func run() error {
	flags := parseFlags()
	if flags.audio == "" {
		flag.Usage()

		return errors.New(errAudioRequired)
	}

	clientLog, err := logger.New(os.TempDir(), clientLogFileName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		closeErr := clientLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	cfg, err := config.Load(clientLog)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(flags.timeoutSeconds)*time.Second,
	)
	defer cancel()

	return submitJob(ctx, cfg, clientLog, flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags
	flag.StringVar(&flags.audio, "audio", "", flagAudioDesc)
	flag.StringVar(&flags.language, "language", "", flagLanguageDesc)
	flag.StringVar(&flags.hint, "hint", "", flagHintDesc)
	flag.StringVar(&flags.voice, "voice", "", flagVoiceDesc)
	flag.StringVar(&flags.sample, "sample", "", flagSampleDesc)
	flag.StringVar(&flags.output, "output", defaultOutputFile, flagOutputDesc)
	flag.IntVar(&flags.timeoutSeconds, "timeout", defaultTimeoutSeconds, flagTimeoutDesc)
	flag.Parse()

	return flags
}

// submitJob uploads the inputs, requests a translation, and saves the
// translated audio next to the transcript summary printed to stdout.
func submitJob(
	ctx context.Context,
	cfg *config.Config,
	clientLog *logger.Logger,
	flags appFlags,
) error {
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

	audioKey, err := uploadFile(ctx, store, flags.audio)
	if err != nil {
		return err
	}

	clientLog.Info("Uploaded input audio as %s", audioKey)

	sampleKey := ""
	if flags.sample != "" {
		sampleKey, err = uploadFile(ctx, store, flags.sample)
		if err != nil {
			return err
		}

		clientLog.Info("Uploaded speaker sample as %s", sampleKey)
	}

	result, err := requestTranslation(ctx, natsConnection, cfg, flags, audioKey, sampleKey)
	if err != nil {
		return err
	}

	return saveResult(ctx, store, result, flags.output)
}

// uploadFile stores a local file in the object store under a fresh key.
func uploadFile(
	ctx context.Context,
	store *objectstore.AudioStore,
	path string,
) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	key := uuid.NewString() + filepath.Ext(path)

	uploadErr := store.Upload(ctx, key, data)
	if uploadErr != nil {
		return "", fmt.Errorf("failed to upload %s: %w", path, uploadErr)
	}

	return key, nil
}

// requestTranslation publishes the job and waits for the service reply.
func requestTranslation(
	ctx context.Context,
	natsConnection *nats.Conn,
	cfg *config.Config,
	flags appFlags,
	audioKey, sampleKey string,
) (*worker.SpeechResultEvent, error) {
	job := worker.SpeechJobEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
		},
		AudioKey:         audioKey,
		TargetLanguage:   flags.language,
		LanguageHint:     flags.hint,
		VoiceOverride:    flags.voice,
		SpeakerSampleKey: sampleKey,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job event: %w", err)
	}

	replyMsg, err := natsConnection.RequestWithContext(
		ctx, cfg.NATS.SpeechJobSubject, jobData,
	)
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}

	var result worker.SpeechResultEvent

	unmarshalErr := json.Unmarshal(replyMsg.Data, &result)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to decode result event: %w", unmarshalErr)
	}

	return &result, nil
}

// saveResult downloads the translated audio and writes it locally.
func saveResult(
	ctx context.Context,
	store *objectstore.AudioStore,
	result *worker.SpeechResultEvent,
	outputPath string,
) error {
	audioData, err := store.Download(ctx, result.AudioKey)
	if err != nil {
		return fmt.Errorf(
			"failed to download result audio %s: %w", result.AudioKey, err,
		)
	}

	writeErr := os.WriteFile(outputPath, audioData, 0o600)
	if writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, writeErr)
	}

	fmt.Printf("Transcript: %s\n", result.Transcript)
	fmt.Printf("Translated: %s\n", result.Translated)
	fmt.Printf("Audio (%s): %s\n", result.TargetLanguage, outputPath)

	return nil
}
