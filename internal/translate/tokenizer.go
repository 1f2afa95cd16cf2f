// Package translate implements the text translation stage: SentencePiece
// tokenization, constrained decoding through an external CTranslate2
// runner, and the surrounding translator logic.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Artifact names inside a converted model directory.
const (
	spmModelFile   = "sentencepiece.bpe.model"
	vocabularyFile = "shared_vocabulary.json"
)

// End-of-sequence marker appended to every encoded sentence.
const eosToken = "</s>"

// SPMConfig configures the external SentencePiece tools.
type SPMConfig struct {
	// EncodeBinary is the spm_encode executable.
	EncodeBinary string
	// DecodeBinary is the spm_decode executable.
	DecodeBinary string
	// ModelDir is the converted translation model directory holding the
	// SentencePiece model and the shared vocabulary.
	ModelDir string
}

// SPMTokenizer implements core.Tokenizer for one fixed source language by
// shelling out to the SentencePiece tools. The shared vocabulary is loaded
// once at construction and used to resolve language tokens.
type SPMTokenizer struct {
	config     SPMConfig
	sourceTag  string
	vocabulary map[string]struct{}
}

// NewSPMTokenizer loads the shared vocabulary and binds the tokenizer to
// one source-language tag.
func NewSPMTokenizer(cfg SPMConfig, sourceTag string) (*SPMTokenizer, error) {
	vocabulary, err := loadVocabulary(filepath.Join(cfg.ModelDir, vocabularyFile))
	if err != nil {
		return nil, err
	}

	return &SPMTokenizer{
		config:     cfg,
		sourceTag:  sourceTag,
		vocabulary: vocabulary,
	}, nil
}

// Encode splits text into model tokens under the fixed source-language
// tag: [source_tag, pieces..., </s>].
func (s *SPMTokenizer) Encode(ctx context.Context, text string) ([]string, error) {
	// #nosec G204 -- binary path comes from validated config
	cmd := exec.CommandContext(
		ctx,
		s.config.EncodeBinary,
		"--model="+filepath.Join(s.config.ModelDir, spmModelFile),
		"--output_format=piece",
	)
	cmd.Stdin = strings.NewReader(text)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to encode text with spm_encode: %w", err)
	}

	pieces := strings.Fields(string(output))
	tokens := make([]string, 0, len(pieces)+2)
	tokens = append(tokens, s.sourceTag)
	tokens = append(tokens, pieces...)
	tokens = append(tokens, eosToken)

	return tokens, nil
}

// Decode joins model tokens back into plain text.
func (s *SPMTokenizer) Decode(ctx context.Context, tokens []string) (string, error) {
	// #nosec G204 -- binary path comes from validated config
	cmd := exec.CommandContext(
		ctx,
		s.config.DecodeBinary,
		"--model="+filepath.Join(s.config.ModelDir, spmModelFile),
	)
	cmd.Stdin = strings.NewReader(strings.Join(tokens, " "))

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to decode tokens with spm_decode: %w", err)
	}

	return string(output), nil
}

// LanguageToken resolves a language code against the shared vocabulary.
// Unknown codes fall back to the raw code string with found=false.
func (s *SPMTokenizer) LanguageToken(code string) (string, bool) {
	_, ok := s.vocabulary[code]

	return code, ok
}

// loadVocabulary reads the converter's shared vocabulary, a JSON array of
// token strings, into a membership set.
func loadVocabulary(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shared vocabulary: %w", err)
	}

	var tokens []string

	err = json.Unmarshal(data, &tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shared vocabulary: %w", err)
	}

	vocabulary := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		vocabulary[token] = struct{}{}
	}

	return vocabulary, nil
}
