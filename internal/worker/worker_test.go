// Package worker_test tests the NATS speech-translation worker.
package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/core"
	"github.com/book-expert/translation-service/internal/languages"
	"github.com/book-expert/translation-service/internal/pipeline"
	"github.com/book-expert/translation-service/internal/synth"
	"github.com/book-expert/translation-service/internal/worker"
	"github.com/google/uuid"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockDownload = errors.New("mock download error")

// mockObjectStore is an in-memory ObjectStore.
type mockObjectStore struct {
	downloadShouldFail bool
	objects            map[string][]byte
	uploadedKey        string
	uploadedData       []byte
}

func (m *mockObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	if m.downloadShouldFail {
		return nil, errMockDownload
	}

	data, ok := m.objects[key]
	if !ok {
		return nil, errMockDownload
	}

	return data, nil
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	m.uploadedKey = key
	m.uploadedData = data

	return nil
}

// Stub pipeline stages.
type stubRecognizer struct{}

func (stubRecognizer) Transcribe(
	_ context.Context, _, _ string,
) ([]core.Segment, error) {
	return []core.Segment{
		{Start: 0, End: 1, Text: " hello "},
		{Start: 1, End: 2, Text: "world"},
	}, nil
}

type stubTranslator struct{}

func (stubTranslator) Translate(_ context.Context, text string) (string, error) {
	return "es:" + text, nil
}

type stubChain struct{}

func (stubChain) Synthesize(_ context.Context, _ synth.Request) (core.Waveform, error) {
	return core.Waveform{
		Samples:    []float32{0.1, 0.2, 0.3},
		SampleRate: 24000,
	}, nil
}

func createTestNatsClient(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

func testRegistry(t *testing.T) *pipeline.Registry {
	t.Helper()

	log, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	builder := func(key string, profile languages.Profile) (*pipeline.Pipeline, error) {
		return pipeline.NewPipeline(
			key, profile, stubRecognizer{}, stubTranslator{}, stubChain{}, log,
		), nil
	}

	return pipeline.NewRegistry(builder, log)
}

func setupWorker(t *testing.T, store *mockObjectStore) *nats.Conn {
	t.Helper()

	natsConnection := createTestNatsClient(t)

	log, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	workerInstance, err := worker.NewNatsWorker(
		natsConnection,
		worker.Config{
			Subject:         "speech.translate.job",
			ResultSubject:   "speech.translate.result",
			StatusSubject:   "speech.translate.status",
			DefaultLanguage: "spanish",
			JobTimeout:      10 * time.Second,
		},
		store,
		testRegistry(t),
		log,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()

		shutdownErr := <-errChan
		assert.NoError(t, shutdownErr)
	})

	return natsConnection
}

func TestWorker_ProcessJobEndToEnd(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{
		objects: map[string][]byte{
			"input-audio.wav": []byte("fake audio bytes"),
		},
	}

	natsConnection := setupWorker(t, store)

	job := worker.SpeechJobEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
		},
		AudioKey:       "input-audio.wav",
		TargetLanguage: "spanish",
		LanguageHint:   "en",
	}

	jobData, err := json.Marshal(job)
	require.NoError(t, err)

	replyMsg, err := natsConnection.Request(
		"speech.translate.job", jobData, 5*time.Second,
	)
	require.NoError(t, err)

	var result worker.SpeechResultEvent

	err = json.Unmarshal(replyMsg.Data, &result)
	require.NoError(t, err)

	assert.Equal(t, "hello world", result.Transcript)
	assert.Equal(t, "es:hello world", result.Translated)
	assert.Equal(t, "spanish", result.TargetLanguage)
	assert.Equal(t, 24000, result.SampleRate)
	assert.True(t, strings.HasSuffix(result.AudioKey, ".wav"))
	assert.Equal(t, result.AudioKey, store.uploadedKey)
	assert.NotEmpty(t, store.uploadedData)
	assert.Equal(t, job.Header.WorkflowID, result.Header.WorkflowID)
}

func TestWorker_DefaultLanguageApplied(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{
		objects: map[string][]byte{"audio.wav": []byte("fake")},
	}

	natsConnection := setupWorker(t, store)

	job := worker.SpeechJobEvent{
		Header:   events.EventHeader{WorkflowID: uuid.NewString()},
		AudioKey: "audio.wav",
	}

	jobData, err := json.Marshal(job)
	require.NoError(t, err)

	replyMsg, err := natsConnection.Request(
		"speech.translate.job", jobData, 5*time.Second,
	)
	require.NoError(t, err)

	var result worker.SpeechResultEvent

	err = json.Unmarshal(replyMsg.Data, &result)
	require.NoError(t, err)
	assert.Equal(t, "spanish", result.TargetLanguage)
}

func TestWorker_StatusQuery(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{
		objects: map[string][]byte{"audio.wav": []byte("fake")},
	}

	natsConnection := setupWorker(t, store)

	// Load one pipeline by running a job first.
	job := worker.SpeechJobEvent{
		Header:         events.EventHeader{WorkflowID: uuid.NewString()},
		AudioKey:       "audio.wav",
		TargetLanguage: "english",
	}

	jobData, err := json.Marshal(job)
	require.NoError(t, err)

	_, err = natsConnection.Request("speech.translate.job", jobData, 5*time.Second)
	require.NoError(t, err)

	statusMsg, err := natsConnection.Request(
		"speech.translate.status", nil, 5*time.Second,
	)
	require.NoError(t, err)

	var status worker.StatusEvent

	err = json.Unmarshal(statusMsg.Data, &status)
	require.NoError(t, err)

	assert.Equal(t, languages.Keys(), status.SupportedLanguages)
	assert.Equal(t, []string{"english"}, status.LoadedLanguages)
	assert.Equal(t, "spanish", status.DefaultLanguage)
}

func TestWorker_PublishesToResultSubjectWithoutReplyInbox(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{
		objects: map[string][]byte{"audio.wav": []byte("fake")},
	}

	natsConnection := setupWorker(t, store)

	resultChan := make(chan *nats.Msg, 1)

	sub, err := natsConnection.ChanSubscribe("speech.translate.result", resultChan)
	require.NoError(t, err)

	t.Cleanup(func() {
		unsubErr := sub.Unsubscribe()
		assert.NoError(t, unsubErr)
	})

	job := worker.SpeechJobEvent{
		Header:         events.EventHeader{WorkflowID: uuid.NewString()},
		AudioKey:       "audio.wav",
		TargetLanguage: "english",
	}

	jobData, err := json.Marshal(job)
	require.NoError(t, err)

	err = natsConnection.Publish("speech.translate.job", jobData)
	require.NoError(t, err)

	select {
	case msg := <-resultChan:
		var result worker.SpeechResultEvent

		err = json.Unmarshal(msg.Data, &result)
		require.NoError(t, err)
		assert.Equal(t, "english", result.TargetLanguage)
		assert.Equal(t, job.Header.WorkflowID, result.Header.WorkflowID)
	case <-time.After(5 * time.Second):
		t.Fatal("no result published to the result subject")
	}
}

func TestWorker_DownloadFailureProducesNoReply(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{downloadShouldFail: true}

	natsConnection := setupWorker(t, store)

	job := worker.SpeechJobEvent{
		Header:   events.EventHeader{WorkflowID: uuid.NewString()},
		AudioKey: "missing.wav",
	}

	jobData, err := json.Marshal(job)
	require.NoError(t, err)

	_, err = natsConnection.Request("speech.translate.job", jobData, 500*time.Millisecond)
	require.Error(t, err)
	assert.Empty(t, store.uploadedKey)
}
