// Package recognize provides the speech recognition boundary of the
// pipeline. The heavyweight model runs in an external faster-whisper
// runner process; this package owns invocation, decoding of its JSON
// output, and error reporting.
package recognize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/core"
)

// Recognition runs with beam width 1: lowest-latency deterministic
// decoding rather than highest accuracy.
const beamSize = 1

// ErrRecognition is the sentinel for any recognizer failure. Recognition
// is one-shot: failures propagate to the caller without retry.
var ErrRecognition = errors.New("speech recognition failed")

// Config holds the runner invocation parameters.
type Config struct {
	// BinaryPath is the faster-whisper runner executable.
	BinaryPath string
	// Model is the Whisper model name or path (e.g. "small").
	Model string
	// Device selects the compute device: "auto", "cpu" or "cuda".
	Device string
}

// WhisperRecognizer implements core.Recognizer by invoking the runner
// binary once per call.
type WhisperRecognizer struct {
	config Config
	log    *logger.Logger
}

// New creates a recognizer for the given runner configuration.
func New(cfg Config, log *logger.Logger) *WhisperRecognizer {
	return &WhisperRecognizer{
		config: cfg,
		log:    log,
	}
}

// runnerOutput mirrors the runner's JSON report.
type runnerOutput struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe converts the audio file into timed text segments. The
// optional language hint skips the model's language auto-detection.
func (r *WhisperRecognizer) Transcribe(
	ctx context.Context,
	audioPath, languageHint string,
) ([]core.Segment, error) {
	args := []string{
		"--audio", audioPath,
		"--model", r.config.Model,
		"--beam-size", strconv.Itoa(beamSize),
	}

	device := r.config.Device
	if device == "" {
		device = "auto"
	}

	args = append(args, "--device", device)

	if languageHint != "" {
		args = append(args, "--language", languageHint)
	}

	// #nosec G204 -- binary path and model come from validated config
	cmd := exec.CommandContext(ctx, r.config.BinaryPath, args...)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf(
				"%w: runner exited: %s", ErrRecognition, string(exitErr.Stderr),
			)
		}

		return nil, fmt.Errorf("%w: %w", ErrRecognition, err)
	}

	var parsed runnerOutput

	err = json.Unmarshal(output, &parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed runner output: %w", ErrRecognition, err)
	}

	r.log.Info("Transcribed %s: %d segments, detected language %q",
		audioPath, len(parsed.Segments), parsed.Language)

	segments := make([]core.Segment, 0, len(parsed.Segments))
	for _, segment := range parsed.Segments {
		segments = append(segments, core.Segment{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}

	return segments, nil
}
