package synth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/audio"
	"github.com/book-expert/translation-service/internal/core"
	"github.com/book-expert/translation-service/internal/languages"
)

// Quality gate thresholds for the neural tier. Output below either bound
// is degenerate (near-silent or truncated) and falls through to the OS
// fallback.
const (
	MinAcceptedDuration = 0.8
	MinAcceptedPeak     = 0.01
)

// Static errors.
var (
	// ErrSynthesisUnavailable means every tier was exhausted without an
	// accepted result.
	ErrSynthesisUnavailable = errors.New("speech synthesis unavailable")
	// ErrExplicitCloneFailed means voice cloning failed although the
	// caller supplied their own voice sample. The chain does not fall
	// through to a generic voice in that case.
	ErrExplicitCloneFailed = errors.New("voice cloning with caller sample failed")
)

// Request carries one synthesis call through the chain.
type Request struct {
	Text string
	// Profile supplies per-language voice parameters for every tier.
	Profile languages.Profile
	// VoiceOverride replaces the profile's neural voice when set.
	VoiceOverride string
	// SpeakerSample is a caller-supplied cloning reference. When set,
	// a cloning failure is fatal instead of falling through.
	SpeakerSample []byte
}

// outcome tags the result of one tier attempt.
type outcome struct {
	waveform core.Waveform
	accepted bool
	reject   string
	fatal    error
}

type attempt struct {
	name string
	run  func(ctx context.Context, req Request) outcome
}

// Chain composes the three synthesis tiers in fixed priority order. Any
// backend may be nil, which skips its tier. All dependencies are injected
// at construction.
type Chain struct {
	clone  core.CloneSynthesizer
	neural core.NeuralSynthesizer
	system core.SystemSynthesizer
	log    *logger.Logger
}

// NewChain builds the tier list. Nil backends are permitted and skipped.
func NewChain(
	clone core.CloneSynthesizer,
	neural core.NeuralSynthesizer,
	system core.SystemSynthesizer,
	log *logger.Logger,
) *Chain {
	return &Chain{
		clone:  clone,
		neural: neural,
		system: system,
		log:    log,
	}
}

// Synthesize walks the tiers in order and returns the first accepted
// result, peak-normalized. A tier's rejection or non-fatal failure falls
// through silently; only explicit-sample cloning failure or exhaustion of
// all tiers surfaces an error.
func (c *Chain) Synthesize(ctx context.Context, req Request) (core.Waveform, error) {
	attempts := []attempt{
		{name: "clone", run: c.attemptClone},
		{name: "neural", run: c.attemptNeural},
		{name: "system", run: c.attemptSystem},
	}

	for _, tier := range attempts {
		result := tier.run(ctx, req)

		if result.fatal != nil {
			return core.Waveform{}, result.fatal
		}

		if result.accepted {
			return audio.Normalize(result.waveform), nil
		}

		if result.reject != "" {
			c.log.Info("Synthesis tier %s rejected: %s", tier.name, result.reject)
		}
	}

	return core.Waveform{}, ErrSynthesisUnavailable
}

// attemptClone runs Tier 1. It is attempted only when the backend exists,
// the language supports cloning, and a reference voice is available.
func (c *Chain) attemptClone(ctx context.Context, req Request) outcome {
	if c.clone == nil || req.Profile.CloneLang == "" {
		return outcome{reject: "cloning not configured for language"}
	}

	explicit := len(req.SpeakerSample) > 0

	samplePath := ""
	if !explicit {
		if req.Profile.DefaultVoiceSamplePath == "" {
			return outcome{reject: "no voice reference sample"}
		}

		_, statErr := os.Stat(req.Profile.DefaultVoiceSamplePath)
		if statErr != nil {
			return outcome{reject: "default voice sample missing"}
		}

		samplePath = req.Profile.DefaultVoiceSamplePath
	}

	waveform, err := c.clone.Synthesize(
		ctx, req.Text, req.Profile.CloneLang, req.SpeakerSample, samplePath,
	)

	if err == nil && waveform.Empty() {
		err = errors.New("clone backend produced empty audio")
	}

	if err != nil {
		if explicit {
			return outcome{
				fatal: fmt.Errorf("%w: %w", ErrExplicitCloneFailed, err),
			}
		}

		return outcome{reject: fmt.Sprintf("default-sample cloning failed: %v", err)}
	}

	return outcome{waveform: waveform, accepted: true}
}

// attemptNeural runs Tier 2 with the quality gate.
func (c *Chain) attemptNeural(ctx context.Context, req Request) outcome {
	if c.neural == nil {
		return outcome{reject: "neural backend not configured"}
	}

	voice := req.VoiceOverride
	if voice == "" {
		voice = req.Profile.NeuralVoice
	}

	waveform, err := c.neural.Synthesize(ctx, req.Text, req.Profile.NeuralLang, voice)
	if err != nil {
		return outcome{reject: fmt.Sprintf("neural synthesis failed: %v", err)}
	}

	if waveform.Duration() < MinAcceptedDuration {
		return outcome{reject: fmt.Sprintf(
			"quality gate: duration %.2fs below %.2fs",
			waveform.Duration(), MinAcceptedDuration,
		)}
	}

	if waveform.Peak() <= MinAcceptedPeak {
		return outcome{reject: fmt.Sprintf(
			"quality gate: peak %.4f not above %.4f",
			waveform.Peak(), MinAcceptedPeak,
		)}
	}

	return outcome{waveform: waveform, accepted: true}
}

// attemptSystem runs Tier 3, the last resort.
func (c *Chain) attemptSystem(ctx context.Context, req Request) outcome {
	if c.system == nil {
		return outcome{reject: "system backend not configured"}
	}

	waveform, err := c.system.Synthesize(ctx, req.Text, req.Profile.SystemVoiceHint)
	if err != nil {
		return outcome{reject: fmt.Sprintf("system synthesis failed: %v", err)}
	}

	if waveform.Empty() {
		return outcome{reject: "system backend produced empty audio"}
	}

	return outcome{waveform: waveform, accepted: true}
}
