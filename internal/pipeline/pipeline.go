// Package pipeline binds one language profile to its recognizer,
// translator and synthesis chain, and caches the resulting pipelines
// process-wide.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/core"
	"github.com/book-expert/translation-service/internal/languages"
	"github.com/book-expert/translation-service/internal/synth"
)

// Translator is the text translation stage of a pipeline.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Synthesizer is the speech synthesis stage of a pipeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) (core.Waveform, error)
}

// Pipeline is the per-language processing unit. Pipelines are built and
// owned by the Registry; consumers obtain them through Registry.Get and
// hold them for the life of the process.
type Pipeline struct {
	key        string
	profile    languages.Profile
	recognizer core.Recognizer
	translator Translator
	chain      Synthesizer
	log        *logger.Logger
}

// NewPipeline assembles a pipeline from its stages. Production code calls
// this only from the Registry's builder.
func NewPipeline(
	key string,
	profile languages.Profile,
	recognizer core.Recognizer,
	translator Translator,
	chain Synthesizer,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		key:        key,
		profile:    profile,
		recognizer: recognizer,
		translator: translator,
		chain:      chain,
		log:        log,
	}
}

// Key returns the language key this pipeline serves.
func (p *Pipeline) Key() string {
	return p.key
}

// Profile returns the language profile this pipeline serves.
func (p *Pipeline) Profile() languages.Profile {
	return p.profile
}

// Transcribe converts an audio file into a transcript: the recognizer's
// non-empty trimmed segments joined with single spaces, in emission
// order.
func (p *Pipeline) Transcribe(
	ctx context.Context,
	audioPath, languageHint string,
) (string, error) {
	segments, err := p.recognizer.Transcribe(ctx, audioPath, languageHint)
	if err != nil {
		return "", fmt.Errorf("transcription failed for %s: %w", audioPath, err)
	}

	parts := make([]string, 0, len(segments))

	for _, segment := range segments {
		trimmed := strings.TrimSpace(segment.Text)
		if trimmed == "" {
			continue
		}

		parts = append(parts, trimmed)
	}

	return strings.Join(parts, " "), nil
}

// Translate converts text into the pipeline's target language.
func (p *Pipeline) Translate(ctx context.Context, text string) (string, error) {
	translated, err := p.translator.Translate(ctx, text)
	if err != nil {
		return "", fmt.Errorf(
			"translation to %s failed: %w", p.profile.DisplayName, err,
		)
	}

	return translated, nil
}

// TTS synthesizes speech for text through the tiered chain. The voice
// override replaces the profile's default neural voice; a speaker sample
// requests voice cloning and makes cloning failure fatal.
func (p *Pipeline) TTS(
	ctx context.Context,
	text, voiceOverride string,
	speakerSample []byte,
) (core.Waveform, error) {
	waveform, err := p.chain.Synthesize(ctx, synth.Request{
		Text:          text,
		Profile:       p.profile,
		VoiceOverride: voiceOverride,
		SpeakerSample: speakerSample,
	})
	if err != nil {
		return core.Waveform{}, fmt.Errorf(
			"synthesis for %s failed: %w", p.profile.DisplayName, err,
		)
	}

	return waveform, nil
}
