// Package text provides text normalization and chunking for the speech
// synthesis backends.
package text

import (
	"regexp"
	"strings"
)

const whitespaceRegexPattern = `\s+`

var whitespacePattern = regexp.MustCompile(whitespaceRegexPattern)

// Sentence terminators considered chunk boundaries.
const sentenceEnders = ".!?"

// NormalizeWhitespace collapses all whitespace runs to single spaces and
// trims the ends.
func NormalizeWhitespace(input string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(input, " "))
}

// SplitChunks breaks text into pieces of at most maxChars, preferring
// sentence boundaries and falling back to word boundaries for oversized
// sentences. Chunk order follows text order. Empty input yields no chunks.
func SplitChunks(input string, maxChars int) []string {
	normalized := NormalizeWhitespace(input)
	if normalized == "" {
		return nil
	}

	if maxChars <= 0 || len(normalized) <= maxChars {
		return []string{normalized}
	}

	var (
		chunks  []string
		current strings.Builder
	)

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		current.Reset()
	}

	for _, sentence := range splitSentences(normalized) {
		if current.Len() > 0 && current.Len()+1+len(sentence) > maxChars {
			flush()
		}

		if len(sentence) > maxChars {
			flush()

			for _, word := range strings.Fields(sentence) {
				if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
					flush()
				}

				if current.Len() > 0 {
					current.WriteByte(' ')
				}

				current.WriteString(word)
			}

			continue
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
		}

		current.WriteString(sentence)
	}

	flush()

	return chunks
}

// splitSentences cuts text after sentence-ending punctuation.
func splitSentences(input string) []string {
	var (
		sentences []string
		start     int
	)

	for i, r := range input {
		if strings.ContainsRune(sentenceEnders, r) {
			end := i + 1
			sentence := strings.TrimSpace(input[start:end])

			if sentence != "" {
				sentences = append(sentences, sentence)
			}

			start = end
		}
	}

	tail := strings.TrimSpace(input[start:])
	if tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}
