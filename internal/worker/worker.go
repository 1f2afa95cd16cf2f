// Package worker provides the NATS worker that runs speech-translation
// jobs end to end: download audio, transcribe, translate, synthesize,
// upload the result.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/audio"
	"github.com/book-expert/translation-service/internal/languages"
	"github.com/book-expert/translation-service/internal/pipeline"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const defaultJobTimeout = 120 * time.Second

// ErrEmptyAudioKey indicates a job without an audio object to process.
var ErrEmptyAudioKey = errors.New("audio key cannot be empty")

// SpeechJobEvent is the payload of one speech-translation job. AudioKey
// names the uploaded source audio in the object store. TargetLanguage
// selects the pipeline; empty falls back to the configured default.
// SpeakerSampleKey optionally names a voice reference for cloning.
type SpeechJobEvent struct {
	Header           events.EventHeader `json:"header"`
	AudioKey         string             `json:"audio_key"`
	TargetLanguage   string             `json:"target_language"`
	LanguageHint     string             `json:"language_hint"`
	VoiceOverride    string             `json:"voice_override"`
	SpeakerSampleKey string             `json:"speaker_sample_key"`
}

// SpeechResultEvent is the reply published when a job completes.
type SpeechResultEvent struct {
	Header         events.EventHeader `json:"header"`
	Transcript     string             `json:"transcript"`
	Translated     string             `json:"translated"`
	TargetLanguage string             `json:"target_language"`
	AudioKey       string             `json:"audio_key"`
	SampleRate     int                `json:"sample_rate"`
}

// ObjectStore is the blob store the worker reads jobs from and writes
// results to.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// PipelineProvider hands out per-language pipelines.
type PipelineProvider interface {
	Get(key string) (*pipeline.Pipeline, error)
	LoadedLanguages() []string
}

// Config holds the worker's messaging parameters. ResultSubject receives
// completed results for jobs submitted without a reply inbox.
// StatusSubject, when set, answers diagnostic queries.
type Config struct {
	Subject         string
	ResultSubject   string
	StatusSubject   string
	DefaultLanguage string
	JobTimeout      time.Duration
}

// StatusEvent is the reply to a status query: the full language catalog
// and the subset with a pipeline currently in memory.
type StatusEvent struct {
	SupportedLanguages []string `json:"supported_languages"`
	LoadedLanguages    []string `json:"loaded_languages"`
	DefaultLanguage    string   `json:"default_language"`
}

// NatsWorker listens for speech-translation jobs on a NATS subject.
type NatsWorker struct {
	natsConnection *nats.Conn
	config         Config
	store          ObjectStore
	registry       PipelineProvider
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of the worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	cfg Config,
	store ObjectStore,
	registry PipelineProvider,
	log *logger.Logger,
) (*NatsWorker, error) {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}

	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = languages.DefaultTargetLanguage
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		config:         cfg,
		store:          store,
		registry:       registry,
		log:            log,
	}, nil
}

// Run subscribes and blocks until the context is canceled.
func (w *NatsWorker) Run(ctx context.Context) error {
	subs := make([]*nats.Subscription, 0, 2)

	jobSub, err := w.natsConnection.Subscribe(w.config.Subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf(
			"failed to subscribe to subject %s: %w", w.config.Subject, err,
		)
	}

	subs = append(subs, jobSub)

	if w.config.StatusSubject != "" {
		statusSub, statusErr := w.natsConnection.Subscribe(
			w.config.StatusSubject, w.handleStatus,
		)
		if statusErr != nil {
			return fmt.Errorf(
				"failed to subscribe to subject %s: %w",
				w.config.StatusSubject,
				statusErr,
			)
		}

		subs = append(subs, statusSub)
	}

	<-ctx.Done()

	for _, sub := range subs {
		drainErr := sub.Drain()
		if drainErr != nil {
			return fmt.Errorf("failed to drain subscription: %w", drainErr)
		}
	}

	return nil
}

// handleStatus answers a diagnostic query with the language catalog and
// the currently loaded pipelines.
func (w *NatsWorker) handleStatus(msg *nats.Msg) {
	status := StatusEvent{
		SupportedLanguages: languages.Keys(),
		LoadedLanguages:    w.registry.LoadedLanguages(),
		DefaultLanguage:    w.config.DefaultLanguage,
	}

	statusData, marshalErr := json.Marshal(status)
	if marshalErr != nil {
		w.log.Error("Failed to marshal status event: %v", marshalErr)

		return
	}

	respondErr := msg.Respond(statusData)
	if respondErr != nil {
		w.log.Error("Failed to respond to status query: %v", respondErr)
	}
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.JobTimeout)
	defer cancel()

	var event SpeechJobEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal job event: %v", err)

		return
	}

	result, processErr := w.processJob(ctx, &event)
	if processErr != nil {
		w.log.Error(
			"Failed to process job %s: %v", event.Header.WorkflowID, processErr,
		)

		return
	}

	replyData, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		w.log.Error("Failed to marshal result event: %v", marshalErr)

		return
	}

	publishErr := w.publishResult(msg, replyData)
	if publishErr != nil {
		w.log.Error(
			"Failed to publish result for workflow %s: %v",
			event.Header.WorkflowID,
			publishErr,
		)
	}
}

// publishResult answers on the request inbox when one exists, falling
// back to the configured result subject for fire-and-forget jobs.
func (w *NatsWorker) publishResult(msg *nats.Msg, data []byte) error {
	if msg.Reply != "" {
		respondErr := msg.Respond(data)
		if respondErr != nil {
			return fmt.Errorf("failed to respond on inbox: %w", respondErr)
		}

		return nil
	}

	if w.config.ResultSubject == "" {
		return nil
	}

	publishErr := w.natsConnection.Publish(w.config.ResultSubject, data)
	if publishErr != nil {
		return fmt.Errorf(
			"failed to publish to subject %s: %w",
			w.config.ResultSubject,
			publishErr,
		)
	}

	return nil
}

// processJob runs one job through the full pipeline.
func (w *NatsWorker) processJob(
	ctx context.Context,
	event *SpeechJobEvent,
) (*SpeechResultEvent, error) {
	if event.AudioKey == "" {
		return nil, ErrEmptyAudioKey
	}

	targetLanguage := event.TargetLanguage
	if targetLanguage == "" {
		targetLanguage = w.config.DefaultLanguage
	}

	pipe, err := w.registry.Get(targetLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pipeline: %w", err)
	}

	audioPath, cleanup, err := w.downloadToTempFile(ctx, event.AudioKey)
	if err != nil {
		return nil, err
	}

	defer cleanup()

	transcript, err := pipe.Transcribe(ctx, audioPath, event.LanguageHint)
	if err != nil {
		return nil, fmt.Errorf("transcription stage failed: %w", err)
	}

	translated, err := pipe.Translate(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("translation stage failed: %w", err)
	}

	speakerSample, err := w.downloadSpeakerSample(ctx, event.SpeakerSampleKey)
	if err != nil {
		return nil, err
	}

	waveform, err := pipe.TTS(ctx, translated, event.VoiceOverride, speakerSample)
	if err != nil {
		return nil, fmt.Errorf("synthesis stage failed: %w", err)
	}

	resultKey := uuid.NewString() + ".wav"

	uploadErr := w.store.Upload(ctx, resultKey, audio.EncodeWAV(waveform))
	if uploadErr != nil {
		return nil, fmt.Errorf(
			"failed to upload result audio '%s': %w", resultKey, uploadErr,
		)
	}

	return &SpeechResultEvent{
		Header:         event.Header,
		Transcript:     transcript,
		Translated:     translated,
		TargetLanguage: pipe.Key(),
		AudioKey:       resultKey,
		SampleRate:     waveform.SampleRate,
	}, nil
}

// downloadToTempFile fetches the job audio into a temp file owned by
// this call. The returned cleanup removes it on every exit path.
func (w *NatsWorker) downloadToTempFile(
	ctx context.Context,
	key string,
) (string, func(), error) {
	data, err := w.store.Download(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf(
			"failed to download job audio '%s': %w", key, err,
		)
	}

	tempFile, err := os.CreateTemp("", "job-audio-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp audio file: %w", err)
	}

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()

	cleanup := func() {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil {
			w.log.Warn(
				"Failed to remove temp file '%s': %v", tempFile.Name(), removeErr,
			)
		}
	}

	if writeErr != nil {
		cleanup()

		return "", nil, fmt.Errorf("failed to write temp audio file: %w", writeErr)
	}

	if closeErr != nil {
		cleanup()

		return "", nil, fmt.Errorf("failed to close temp audio file: %w", closeErr)
	}

	return tempFile.Name(), cleanup, nil
}

func (w *NatsWorker) downloadSpeakerSample(
	ctx context.Context,
	key string,
) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	sample, err := w.store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to download speaker sample '%s': %w", key, err,
		)
	}

	return sample, nil
}
