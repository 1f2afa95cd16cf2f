// Package synth_test tests the tiered synthesis chain and its backends.
package synth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/core"
	"github.com/book-expert/translation-service/internal/languages"
	"github.com/book-expert/translation-service/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errStubClone  = errors.New("stub clone failure")
	errStubNeural = errors.New("stub neural failure")
	errStubSystem = errors.New("stub system failure")
)

// makeWave builds a constant-amplitude waveform of the given duration.
func makeWave(amplitude float32, seconds float64, rate int) core.Waveform {
	samples := make([]float32, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = amplitude
	}

	return core.Waveform{Samples: samples, SampleRate: rate}
}

type stubClone struct {
	calls    int
	waveform core.Waveform
	err      error
}

func (s *stubClone) Synthesize(
	_ context.Context, _, _ string, _ []byte, _ string,
) (core.Waveform, error) {
	s.calls++

	return s.waveform, s.err
}

type stubNeural struct {
	calls    int
	waveform core.Waveform
	err      error
}

func (s *stubNeural) Synthesize(
	_ context.Context, _, _, _ string,
) (core.Waveform, error) {
	s.calls++

	return s.waveform, s.err
}

type stubSystem struct {
	calls    int
	waveform core.Waveform
	err      error
}

func (s *stubSystem) Synthesize(_ context.Context, _, _ string) (core.Waveform, error) {
	s.calls++

	return s.waveform, s.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "synth-test.log")
	require.NoError(t, err)

	return log
}

func cloneProfile(t *testing.T) languages.Profile {
	t.Helper()

	samplePath := filepath.Join(t.TempDir(), "reference.wav")
	err := os.WriteFile(samplePath, []byte("fake"), 0o600)
	require.NoError(t, err)

	return languages.Profile{
		DisplayName:            "Spanish",
		NeuralLang:             "es",
		NeuralVoice:            "af_heart",
		SystemVoiceHint:        "spanish",
		CloneLang:              "es",
		DefaultVoiceSamplePath: samplePath,
	}
}

func TestChain_TierOrdering_CloneFailsNeuralWins(t *testing.T) {
	t.Parallel()

	clone := &stubClone{err: errStubClone}
	neural := &stubNeural{waveform: makeWave(0.5, 1.0, 24000)}
	system := &stubSystem{waveform: makeWave(0.5, 1.0, 22050)}

	chain := synth.NewChain(clone, neural, system, testLogger(t))

	result, err := chain.Synthesize(context.Background(), synth.Request{
		Text:    "hola",
		Profile: cloneProfile(t),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, clone.calls)
	assert.Equal(t, 1, neural.calls)
	assert.Zero(t, system.calls)
	assert.Equal(t, 24000, result.SampleRate)
	assert.InDelta(t, 1.0, result.Peak(), 1e-6)
}

func TestChain_QualityGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		neuralWave core.Waveform
		wantSystem bool
	}{
		{
			name:       "short full amplitude rejected",
			neuralWave: makeWave(1.0, 0.3, 24000),
			wantSystem: true,
		},
		{
			name:       "long near-silent rejected",
			neuralWave: makeWave(0.005, 1.0, 24000),
			wantSystem: true,
		},
		{
			name:       "long half amplitude accepted",
			neuralWave: makeWave(0.5, 1.0, 24000),
			wantSystem: false,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			neural := &stubNeural{waveform: testCase.neuralWave}
			system := &stubSystem{waveform: makeWave(0.4, 1.0, 22050)}

			chain := synth.NewChain(nil, neural, system, testLogger(t))

			result, err := chain.Synthesize(context.Background(), synth.Request{
				Text:    "hola",
				Profile: languages.Profile{NeuralLang: "es", SystemVoiceHint: "spanish"},
			})
			require.NoError(t, err)

			if testCase.wantSystem {
				assert.Equal(t, 1, system.calls)
				assert.Equal(t, 22050, result.SampleRate)
			} else {
				assert.Zero(t, system.calls)
				assert.Equal(t, 24000, result.SampleRate)
			}
		})
	}
}

func TestChain_ExplicitSampleFailureIsFatal(t *testing.T) {
	t.Parallel()

	clone := &stubClone{err: errStubClone}
	neural := &stubNeural{waveform: makeWave(0.5, 1.0, 24000)}
	system := &stubSystem{waveform: makeWave(0.5, 1.0, 22050)}

	chain := synth.NewChain(clone, neural, system, testLogger(t))

	_, err := chain.Synthesize(context.Background(), synth.Request{
		Text:          "hola",
		Profile:       languages.Profile{CloneLang: "es"},
		SpeakerSample: []byte("caller sample"),
	})
	require.ErrorIs(t, err, synth.ErrExplicitCloneFailed)

	assert.Zero(t, neural.calls)
	assert.Zero(t, system.calls)
}

func TestChain_ExplicitSampleEmptyAudioIsFatal(t *testing.T) {
	t.Parallel()

	clone := &stubClone{waveform: core.Waveform{SampleRate: 24000}}

	chain := synth.NewChain(clone, nil, nil, testLogger(t))

	_, err := chain.Synthesize(context.Background(), synth.Request{
		Text:          "hola",
		Profile:       languages.Profile{CloneLang: "es"},
		SpeakerSample: []byte("caller sample"),
	})
	require.ErrorIs(t, err, synth.ErrExplicitCloneFailed)
}

func TestChain_CloneSkippedWithoutReferenceSample(t *testing.T) {
	t.Parallel()

	clone := &stubClone{waveform: makeWave(0.5, 1.0, 24000)}
	neural := &stubNeural{waveform: makeWave(0.5, 1.0, 24000)}

	chain := synth.NewChain(clone, neural, nil, testLogger(t))

	// CloneLang set but neither caller sample nor default sample path.
	_, err := chain.Synthesize(context.Background(), synth.Request{
		Text:    "hola",
		Profile: languages.Profile{CloneLang: "es", NeuralLang: "es"},
	})
	require.NoError(t, err)

	assert.Zero(t, clone.calls)
	assert.Equal(t, 1, neural.calls)
}

func TestChain_DefaultSampleCloneSuccess(t *testing.T) {
	t.Parallel()

	clone := &stubClone{waveform: makeWave(0.25, 2.0, 24000)}
	neural := &stubNeural{waveform: makeWave(0.5, 1.0, 24000)}

	chain := synth.NewChain(clone, neural, nil, testLogger(t))

	result, err := chain.Synthesize(context.Background(), synth.Request{
		Text:    "hola",
		Profile: cloneProfile(t),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, clone.calls)
	assert.Zero(t, neural.calls)
	assert.InDelta(t, 1.0, result.Peak(), 1e-6)
}

func TestChain_AllTiersExhausted(t *testing.T) {
	t.Parallel()

	neural := &stubNeural{err: errStubNeural}
	system := &stubSystem{err: errStubSystem}

	chain := synth.NewChain(nil, neural, system, testLogger(t))

	_, err := chain.Synthesize(context.Background(), synth.Request{
		Text:    "hola",
		Profile: languages.Profile{NeuralLang: "es"},
	})
	require.ErrorIs(t, err, synth.ErrSynthesisUnavailable)
}

func TestChain_SystemEmptyResultExhausts(t *testing.T) {
	t.Parallel()

	system := &stubSystem{waveform: core.Waveform{SampleRate: 22050}}

	chain := synth.NewChain(nil, nil, system, testLogger(t))

	_, err := chain.Synthesize(context.Background(), synth.Request{
		Text:    "hola",
		Profile: languages.Profile{},
	})
	require.ErrorIs(t, err, synth.ErrSynthesisUnavailable)
	assert.Equal(t, 1, system.calls)
}
