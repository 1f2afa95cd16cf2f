// Package config provides the configuration structure for the
// translation-service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NATSConfig holds the messaging configuration.
type NATSConfig struct {
	URL                       string `toml:"url"`
	SpeechJobSubject          string `toml:"speech_job_subject"`
	SpeechResultSubject       string `toml:"speech_result_subject"`
	StatusSubject             string `toml:"status_subject"`
	AudioObjectStoreBucket    string `toml:"audio_object_store_bucket"`
	JobTimeoutSeconds         int    `toml:"job_timeout_seconds"`
	PreloadDefaultOnStartup   bool   `toml:"preload_default_on_startup"`
	DefaultTargetLanguageName string `toml:"default_target_language"`
}

// RecognizerConfig holds the speech recognition runner configuration.
type RecognizerConfig struct {
	BinaryPath string `toml:"binary_path"`
	Model      string `toml:"model"`
	Device     string `toml:"device"`
}

// TranslatorConfig holds the translation runner and tokenizer
// configuration. ModelDir must contain a converted CTranslate2 model.
type TranslatorConfig struct {
	RunnerBinaryPath string `toml:"runner_binary_path"`
	EncodeBinaryPath string `toml:"encode_binary_path"`
	DecodeBinaryPath string `toml:"decode_binary_path"`
	ModelDir         string `toml:"model_dir"`
}

// CloneConfig holds the voice-cloning engine configuration.
type CloneConfig struct {
	Enabled    bool   `toml:"enabled"`
	BinaryPath string `toml:"binary_path"`
	ModelDir   string `toml:"model_dir"`
}

// NeuralConfig holds the neural TTS service configuration.
type NeuralConfig struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxChunkChars  int    `toml:"max_chunk_chars"`
}

// SystemConfig holds the OS fallback synthesizer configuration.
type SystemConfig struct {
	Enabled    bool   `toml:"enabled"`
	BinaryPath string `toml:"binary_path"`
	Rate       int    `toml:"rate"`
}

// SynthesisConfig groups the three synthesis tiers.
type SynthesisConfig struct {
	Clone  CloneConfig  `toml:"clone"`
	Neural NeuralConfig `toml:"neural"`
	System SystemConfig `toml:"system"`
}

// PathsConfig holds the file path configuration.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS       NATSConfig       `toml:"nats"`
	Recognizer RecognizerConfig `toml:"recognizer"`
	Translator TranslatorConfig `toml:"translator"`
	Synthesis  SynthesisConfig  `toml:"synthesis"`
	Paths      PathsConfig      `toml:"paths"`
}

// Load loads the configuration for the translation-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
