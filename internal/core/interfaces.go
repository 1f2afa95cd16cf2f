// Package core defines the domain types and interfaces shared by the
// speech-translation pipeline.
package core

import "context"

// Segment is one timed piece of recognized speech.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Recognizer converts an audio file into timed text segments.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) ([]Segment, error)
}

// Tokenizer converts between text and model tokens for one source language.
type Tokenizer interface {
	Encode(ctx context.Context, text string) ([]string, error)
	Decode(ctx context.Context, tokens []string) (string, error)
	// LanguageToken resolves a language code against the tokenizer's
	// vocabulary. The second return reports whether the code was found.
	LanguageToken(code string) (string, bool)
}

// TranslationModel runs one constrained decoding pass over encoded tokens.
// The target prefix forces the decoder to begin output with those tokens,
// which is how a single multilingual model is steered into one target
// language per call.
type TranslationModel interface {
	Generate(ctx context.Context, tokens, targetPrefix []string) ([]string, error)
}

// CloneSynthesizer produces speech in the voice of a reference sample.
// Either speakerSample (raw audio bytes) or samplePath may be set; the
// bytes take priority.
type CloneSynthesizer interface {
	Synthesize(ctx context.Context, text, language string, speakerSample []byte, samplePath string) (Waveform, error)
}

// NeuralSynthesizer generates speech with a multilingual neural voice.
type NeuralSynthesizer interface {
	Synthesize(ctx context.Context, text, language, voice string) (Waveform, error)
}

// SystemSynthesizer is the OS-level fallback voice.
type SystemSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceHint string) (Waveform, error)
}

// ObjectStore is a key-value blob store for job audio and text artifacts.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}
