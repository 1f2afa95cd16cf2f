package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/audio"
	"github.com/book-expert/translation-service/internal/core"
	"github.com/book-expert/translation-service/internal/text"
)

// API endpoints of the neural TTS service.
const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

const defaultMaxChunkChars = 400

// Static errors.
var (
	ErrNeuralEmptyAudio = errors.New("neural synthesizer returned empty audio")
	ErrNeuralStatus     = errors.New("neural synthesizer returned non-OK status")
)

// NeuralConfig configures the HTTP client for the multilingual neural
// synthesizer service.
type NeuralConfig struct {
	// BaseURL includes protocol and port (e.g. "http://localhost:8880").
	BaseURL string
	// TimeoutSeconds applies per HTTP request.
	TimeoutSeconds int
	// MaxChunkChars bounds the text length per synthesis request. Zero
	// selects the default.
	MaxChunkChars int
}

// synthesizeRequest is the JSON payload of one chunk request.
type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice,omitempty"`
}

// NeuralSynthesizer implements core.NeuralSynthesizer against an HTTP
// neural TTS service. Long texts are synthesized as an ordered series of
// chunks, concatenated in emission order.
type NeuralSynthesizer struct {
	httpClient    *http.Client
	baseURL       string
	maxChunkChars int
	log           *logger.Logger
}

// NewNeuralSynthesizer creates the HTTP-backed neural synthesizer.
func NewNeuralSynthesizer(cfg NeuralConfig, log *logger.Logger) *NeuralSynthesizer {
	maxChunkChars := cfg.MaxChunkChars
	if maxChunkChars <= 0 {
		maxChunkChars = defaultMaxChunkChars
	}

	return &NeuralSynthesizer{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		maxChunkChars: maxChunkChars,
		log:           log,
	}
}

// Synthesize generates the waveform for text, chunk by chunk.
func (n *NeuralSynthesizer) Synthesize(
	ctx context.Context,
	input, language, voice string,
) (core.Waveform, error) {
	chunks := text.SplitChunks(input, n.maxChunkChars)
	waveforms := make([]core.Waveform, 0, len(chunks))

	for index, chunk := range chunks {
		waveform, err := n.synthesizeChunk(ctx, chunk, language, voice)
		if err != nil {
			return core.Waveform{}, fmt.Errorf(
				"chunk %d/%d: %w", index+1, len(chunks), err,
			)
		}

		waveforms = append(waveforms, waveform)
	}

	return audio.Concat(waveforms), nil
}

// HealthCheck verifies the neural TTS service is reachable.
func (n *NeuralSynthesizer) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, n.baseURL+apiHealth, http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", n.baseURL, err)
	}

	defer n.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrNeuralStatus, resp.Status)
	}

	return nil
}

func (n *NeuralSynthesizer) synthesizeChunk(
	ctx context.Context,
	chunk, language, voice string,
) (core.Waveform, error) {
	requestBody, err := json.Marshal(synthesizeRequest{
		Text:     chunk,
		Language: language,
		Voice:    voice,
	})
	if err != nil {
		return core.Waveform{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.baseURL+apiSynthesize,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return core.Waveform{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return core.Waveform{}, fmt.Errorf(
			"failed to send request to neural TTS at %s: %w", n.baseURL, err,
		)
	}

	defer n.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return core.Waveform{}, fmt.Errorf(
			"%w: %s, body: %s", ErrNeuralStatus, resp.Status, string(body),
		)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Waveform{}, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return core.Waveform{}, ErrNeuralEmptyAudio
	}

	waveform, decodeErr := audio.DecodeWAV(audioData)
	if decodeErr != nil {
		return core.Waveform{}, fmt.Errorf(
			"failed to decode neural audio: %w", decodeErr,
		)
	}

	return waveform, nil
}

func (n *NeuralSynthesizer) closeBody(resp *http.Response) {
	closeErr := resp.Body.Close()
	if closeErr != nil {
		n.log.Warn("Failed to close response body: %v", closeErr)
	}
}
