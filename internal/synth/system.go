package synth

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/audio"
	"github.com/book-expert/translation-service/internal/core"
)

const defaultSpeechRate = 160

// SystemConfig configures the OS-level fallback synthesizer.
type SystemConfig struct {
	// BinaryPath is the espeak-ng compatible executable.
	BinaryPath string
	// Rate is the speech rate in words per minute. Zero selects the
	// default.
	Rate int
	// WorkDir receives the per-call temporary files. Empty means the
	// system temp directory.
	WorkDir string
}

// SystemSynthesizer implements core.SystemSynthesizer by invoking the OS
// speech engine, writing to a temporary WAV file that is always deleted
// before the call returns.
type SystemSynthesizer struct {
	config SystemConfig
	log    *logger.Logger
}

// NewSystemSynthesizer creates the fallback synthesizer.
func NewSystemSynthesizer(cfg SystemConfig, log *logger.Logger) *SystemSynthesizer {
	if cfg.Rate <= 0 {
		cfg.Rate = defaultSpeechRate
	}

	return &SystemSynthesizer{
		config: cfg,
		log:    log,
	}
}

// Synthesize renders text with the OS voice best matching the hint.
func (s *SystemSynthesizer) Synthesize(
	ctx context.Context,
	text, voiceHint string,
) (core.Waveform, error) {
	outputFile, err := os.CreateTemp(s.config.WorkDir, "system-tts-*.wav")
	if err != nil {
		return core.Waveform{}, fmt.Errorf(
			"failed to create temp file for system tts output: %w", err,
		)
	}

	outputPath := outputFile.Name()

	closeErr := outputFile.Close()
	if closeErr != nil {
		s.log.Warn("Failed to close temp file '%s': %v", outputPath, closeErr)
	}

	defer func() {
		removeErr := os.Remove(outputPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			s.log.Warn("Failed to remove temp file '%s': %v", outputPath, removeErr)
		}
	}()

	args := []string{
		"-s", strconv.Itoa(s.config.Rate),
		"-w", outputPath,
	}

	voice := s.matchVoice(ctx, voiceHint)
	if voice != "" {
		args = append(args, "-v", voice)
	}

	args = append(args, text)

	// #nosec G204 -- binary path comes from validated config
	cmd := exec.CommandContext(ctx, s.config.BinaryPath, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return core.Waveform{}, fmt.Errorf(
			"system tts execution failed: %w - output: %s", runErr, string(output),
		)
	}

	audioData, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return core.Waveform{}, fmt.Errorf(
			"failed to read system tts output: %w", readErr,
		)
	}

	waveform, decodeErr := audio.DecodeWAV(audioData)
	if decodeErr != nil {
		return core.Waveform{}, fmt.Errorf(
			"failed to decode system tts output: %w", decodeErr,
		)
	}

	return waveform, nil
}

// matchVoice lists the engine's voices and picks the first whose name
// contains the hint, case-insensitively. An empty result leaves voice
// selection to the engine.
func (s *SystemSynthesizer) matchVoice(ctx context.Context, hint string) string {
	if hint == "" {
		return ""
	}

	// #nosec G204 -- binary path comes from validated config
	cmd := exec.CommandContext(ctx, s.config.BinaryPath, "--voices")

	output, err := cmd.Output()
	if err != nil {
		s.log.Warn("Failed to list system voices: %v", err)

		return ""
	}

	lowerHint := strings.ToLower(hint)

	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		// Column 4 of espeak-ng --voices is the voice name.
		name := fields[3]
		if strings.Contains(strings.ToLower(name), lowerHint) {
			return name
		}
	}

	return ""
}
