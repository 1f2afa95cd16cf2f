package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/core"
)

// Binary model artifact required inside a converted model directory.
const modelBinaryFile = "model.bin"

// ErrModelNotFound means the converted translation model artifact is
// missing on disk. This is fatal at pipeline construction and is never
// retried automatically; the operator must run the offline conversion
// step first.
var ErrModelNotFound = errors.New("converted translation model not found")

// Special tokens stripped from every hypothesis before detokenization.
var specialTokens = map[string]struct{}{
	"<pad>": {},
	"</s>":  {},
	"<unk>": {},
	"<s>":   {},
}

// EnsureModelDir verifies the converted model directory holds the binary
// model file.
func EnsureModelDir(dir string) error {
	modelFile := filepath.Join(dir, modelBinaryFile)

	_, statErr := os.Stat(modelFile)
	if statErr != nil {
		return fmt.Errorf(
			"%w in %s: run the model conversion utility to produce %s first: %w",
			ErrModelNotFound,
			dir,
			modelBinaryFile,
			statErr,
		)
	}

	return nil
}

// Translator performs constrained decoding into one fixed target
// language. The forced target token is resolved once at construction, not
// per call.
type Translator struct {
	tokenizer   core.Tokenizer
	model       core.TranslationModel
	targetToken string
	log         *logger.Logger
}

// NewTranslator resolves the forced target token for targetTag and binds
// the tokenizer and model.
func NewTranslator(
	tokenizer core.Tokenizer,
	model core.TranslationModel,
	targetTag string,
	log *logger.Logger,
) *Translator {
	targetToken, found := tokenizer.LanguageToken(targetTag)
	if !found {
		log.Warn(
			"Target language tag %q not in tokenizer vocabulary, using raw code as forced token",
			targetTag,
		)
	}

	return &Translator{
		tokenizer:   tokenizer,
		model:       model,
		targetToken: targetToken,
		log:         log,
	}
}

// TargetToken exposes the resolved forced decoding prefix token.
func (t *Translator) TargetToken() string {
	return t.targetToken
}

// Translate converts text into the translator's target language. Empty
// input returns empty output without touching the model.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	tokens, err := t.tokenizer.Encode(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to tokenize source text: %w", err)
	}

	hypothesis, err := t.model.Generate(ctx, tokens, []string{t.targetToken})
	if err != nil {
		return "", fmt.Errorf("failed to generate translation: %w", err)
	}

	filtered := make([]string, 0, len(hypothesis))

	for _, token := range hypothesis {
		if token == t.targetToken {
			continue
		}

		if _, special := specialTokens[token]; special {
			continue
		}

		filtered = append(filtered, token)
	}

	translated, err := t.tokenizer.Decode(ctx, filtered)
	if err != nil {
		return "", fmt.Errorf("failed to detokenize translation: %w", err)
	}

	return strings.TrimSpace(translated), nil
}
