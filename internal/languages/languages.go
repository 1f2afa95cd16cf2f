// Package languages holds the static per-language configuration catalog.
//
// Each profile links the translation model's language tags with the voice
// identifiers of the synthesis backends. Extend the catalog to support
// additional locales.
package languages

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedLanguage is returned when a language key is absent from the
// catalog.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// DefaultTargetLanguage is the language preloaded at service start and used
// when a job does not name a target.
const DefaultTargetLanguage = "spanish"

// Profile is the immutable per-language configuration bundle.
type Profile struct {
	// DisplayName is the human-readable language name.
	DisplayName string
	// SourceTag is the translation model tag of the expected input
	// language (FLORES-200 code).
	SourceTag string
	// TargetTag is the translation model tag this profile translates
	// into (FLORES-200 code).
	TargetTag string
	// NeuralLang selects the multilingual neural synthesizer language.
	NeuralLang string
	// NeuralVoice names the default neural synthesizer voice.
	NeuralVoice string
	// SystemVoiceHint is matched case-insensitively against the OS
	// fallback synthesizer's voice list.
	SystemVoiceHint string
	// CloneLang selects the voice-cloning synthesizer language. Empty
	// disables cloning for this language.
	CloneLang string
	// DefaultVoiceSamplePath optionally points at a reference sample
	// used for cloning when the caller supplies none.
	DefaultVoiceSamplePath string
}

var catalog = map[string]Profile{
	"spanish": {
		DisplayName:     "Spanish",
		SourceTag:       "eng_Latn",
		TargetTag:       "spa_Latn",
		NeuralLang:      "es",
		NeuralVoice:     "af_heart",
		SystemVoiceHint: "spanish",
		CloneLang:       "es",
	},
	"english": {
		DisplayName:     "English",
		SourceTag:       "spa_Latn",
		TargetTag:       "eng_Latn",
		NeuralLang:      "en",
		NeuralVoice:     "af_heart",
		SystemVoiceHint: "english",
		CloneLang:       "en",
	},
	"french": {
		DisplayName:     "French",
		SourceTag:       "eng_Latn",
		TargetTag:       "fra_Latn",
		NeuralLang:      "fr",
		NeuralVoice:     "ff_siwis",
		SystemVoiceHint: "french",
		CloneLang:       "fr",
	},
	"german": {
		DisplayName:     "German",
		SourceTag:       "eng_Latn",
		TargetTag:       "deu_Latn",
		NeuralLang:      "de",
		NeuralVoice:     "af_heart",
		SystemVoiceHint: "german",
		CloneLang:       "de",
	},
}

// Lookup resolves a language key to its profile. Keys are case-insensitive
// and surrounding whitespace is ignored.
func Lookup(key string) (Profile, error) {
	profile, ok := catalog[Normalize(key)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, key)
	}

	return profile, nil
}

// Normalize canonicalizes a language key for catalog lookup.
func Normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Keys returns the supported language keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
