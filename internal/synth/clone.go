// Package synth implements the tiered speech synthesis chain: a
// voice-cloning backend, a multilingual neural backend, and an OS-level
// fallback, tried in that order with quality gating.
package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/audio"
	"github.com/book-expert/translation-service/internal/core"
)

// ErrCloneUnavailable means the cloning backend could not be initialized.
var ErrCloneUnavailable = errors.New("voice cloning backend unavailable")

// CloneConfig configures the external voice-cloning engine.
type CloneConfig struct {
	// BinaryPath is the cloning engine executable.
	BinaryPath string
	// ModelDir is the cloning model directory.
	ModelDir string
	// WorkDir receives the per-call temporary files. Empty means the
	// system temp directory.
	WorkDir string
}

// CloneAdapter wraps a single heavyweight voice-cloning engine. The
// engine is loaded lazily behind a double-checked lock so concurrent
// first use cannot initialize it twice, and all synthesis calls are
// serialized because the native engine is not reentrant-safe.
type CloneAdapter struct {
	config  CloneConfig
	log     *logger.Logger
	ready   atomic.Bool
	loadMu  sync.Mutex
	synthMu sync.Mutex
}

// NewCloneAdapter creates the adapter without loading the engine; the
// first synthesis call pays the load cost.
func NewCloneAdapter(cfg CloneConfig, log *logger.Logger) *CloneAdapter {
	return &CloneAdapter{
		config: cfg,
		log:    log,
	}
}

// ensureLoaded verifies the engine artifacts once. Failures are not
// cached; a later call re-attempts after the operator fixes the install.
func (a *CloneAdapter) ensureLoaded() error {
	if a.ready.Load() {
		return nil
	}

	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	if a.ready.Load() {
		return nil
	}

	_, statErr := os.Stat(a.config.ModelDir)
	if statErr != nil {
		return fmt.Errorf("%w: model dir: %w", ErrCloneUnavailable, statErr)
	}

	binaryPath, lookErr := exec.LookPath(a.config.BinaryPath)
	if lookErr != nil {
		return fmt.Errorf("%w: %w", ErrCloneUnavailable, lookErr)
	}

	a.log.Info("Voice cloning engine ready: %s (model %s)", binaryPath, a.config.ModelDir)
	a.ready.Store(true)

	return nil
}

// Synthesize generates speech in the voice of the reference sample.
// Caller-supplied sample bytes take priority over the reference path.
// Both the speaker temp file and the output temp file are deleted on
// every exit path.
func (a *CloneAdapter) Synthesize(
	ctx context.Context,
	text, language string,
	speakerSample []byte,
	samplePath string,
) (core.Waveform, error) {
	loadErr := a.ensureLoaded()
	if loadErr != nil {
		return core.Waveform{}, loadErr
	}

	speakerPath := samplePath

	if len(speakerSample) > 0 {
		tempSpeaker, err := a.writeTempFile("clone-speaker-*.wav", speakerSample)
		if err != nil {
			return core.Waveform{}, err
		}

		defer a.removeTempFile(tempSpeaker)

		speakerPath = tempSpeaker
	}

	outputFile, err := os.CreateTemp(a.config.WorkDir, "clone-output-*.wav")
	if err != nil {
		return core.Waveform{}, fmt.Errorf(
			"failed to create temp file for clone output: %w", err,
		)
	}

	outputPath := outputFile.Name()

	closeErr := outputFile.Close()
	if closeErr != nil {
		a.log.Warn("Failed to close temp file '%s': %v", outputPath, closeErr)
	}

	defer a.removeTempFile(outputPath)

	runErr := a.runEngine(ctx, text, language, speakerPath, outputPath)
	if runErr != nil {
		return core.Waveform{}, runErr
	}

	audioData, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return core.Waveform{}, fmt.Errorf(
			"failed to read clone output audio: %w", readErr,
		)
	}

	waveform, decodeErr := audio.DecodeWAV(audioData)
	if decodeErr != nil {
		return core.Waveform{}, fmt.Errorf(
			"failed to decode clone output audio: %w", decodeErr,
		)
	}

	return waveform, nil
}

// runEngine invokes the native engine under the synthesis lock; the
// engine is a single shared instance and must never run concurrently.
func (a *CloneAdapter) runEngine(
	ctx context.Context,
	text, language, speakerPath, outputPath string,
) error {
	args := []string{
		"--model-dir", a.config.ModelDir,
		"--language", language,
		"--out", outputPath,
	}

	if speakerPath != "" {
		args = append(args, "--speaker-wav", speakerPath)
	}

	args = append(args, "--text", text)

	a.synthMu.Lock()
	defer a.synthMu.Unlock()

	// #nosec G204 -- binary path comes from validated config
	cmd := exec.CommandContext(ctx, a.config.BinaryPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf(
			"clone engine execution failed: %w - output: %s", err, string(output),
		)
	}

	return nil
}

func (a *CloneAdapter) writeTempFile(pattern string, data []byte) (string, error) {
	tempFile, err := os.CreateTemp(a.config.WorkDir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp speaker file: %w", err)
	}

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()

	if writeErr != nil {
		a.removeTempFile(tempFile.Name())

		return "", fmt.Errorf("failed to write temp speaker file: %w", writeErr)
	}

	if closeErr != nil {
		a.removeTempFile(tempFile.Name())

		return "", fmt.Errorf("failed to close temp speaker file: %w", closeErr)
	}

	return tempFile.Name(), nil
}

func (a *CloneAdapter) removeTempFile(path string) {
	removeErr := os.Remove(path)
	if removeErr != nil && !os.IsNotExist(removeErr) {
		a.log.Warn("Failed to remove temp file '%s': %v", path, removeErr)
	}
}
