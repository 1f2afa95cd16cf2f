package pipeline

import (
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/languages"
	"github.com/book-expert/translation-service/internal/recognize"
	"github.com/book-expert/translation-service/internal/translate"
)

// BuilderDeps carries everything the default builder needs to assemble a
// pipeline: recognizer and translation runner configuration plus the
// shared synthesis chain. The chain is one process-wide instance injected
// here rather than a hidden singleton.
type BuilderDeps struct {
	Recognizer recognize.Config
	SPM        translate.SPMConfig
	Runner     translate.RunnerConfig
	Chain      Synthesizer
	Log        *logger.Logger
}

// NewDefaultBuilder returns the production Builder. The converted
// translation model directory is verified once per build; a missing
// artifact fails construction with translate.ErrModelNotFound.
func NewDefaultBuilder(deps BuilderDeps) Builder {
	return func(key string, profile languages.Profile) (*Pipeline, error) {
		ensureErr := translate.EnsureModelDir(deps.Runner.ModelDir)
		if ensureErr != nil {
			return nil, ensureErr
		}

		tokenizer, tokErr := translate.NewSPMTokenizer(deps.SPM, profile.SourceTag)
		if tokErr != nil {
			return nil, fmt.Errorf(
				"failed to create tokenizer for %q: %w", key, tokErr,
			)
		}

		model := translate.NewCT2Model(deps.Runner)
		translator := translate.NewTranslator(
			tokenizer, model, profile.TargetTag, deps.Log,
		)
		recognizer := recognize.New(deps.Recognizer, deps.Log)

		return NewPipeline(
			key, profile, recognizer, translator, deps.Chain, deps.Log,
		), nil
	}
}
