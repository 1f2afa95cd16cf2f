// Package audio provides waveform normalization and WAV encoding for the
// synthesis pipeline.
package audio

import (
	"github.com/book-expert/translation-service/internal/core"
)

// NormalizeEpsilon is the smallest peak amplitude worth normalizing.
// Signals at or below this level are passed through unchanged so that
// silence is not amplified into noise.
const NormalizeEpsilon = 1e-6

// Normalize scales the waveform so its peak absolute amplitude is exactly
// 1.0. Waveforms whose peak does not exceed the epsilon are returned
// unchanged.
func Normalize(waveform core.Waveform) core.Waveform {
	peak := waveform.Peak()
	if peak <= NormalizeEpsilon {
		return waveform
	}

	normalized := make([]float32, len(waveform.Samples))
	for i, sample := range waveform.Samples {
		normalized[i] = sample / peak
	}

	return core.Waveform{
		Samples:    normalized,
		SampleRate: waveform.SampleRate,
	}
}

// Concat joins waveform chunks in order. The sample rate of the first
// non-empty chunk wins; chunks are expected to share one rate.
func Concat(chunks []core.Waveform) core.Waveform {
	var (
		total      int
		sampleRate int
	)

	for _, chunk := range chunks {
		total += len(chunk.Samples)

		if sampleRate == 0 && chunk.SampleRate > 0 {
			sampleRate = chunk.SampleRate
		}
	}

	samples := make([]float32, 0, total)
	for _, chunk := range chunks {
		samples = append(samples, chunk.Samples...)
	}

	return core.Waveform{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}
