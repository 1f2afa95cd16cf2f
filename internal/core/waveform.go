package core

// Waveform is a mono floating-point audio signal with its sample rate.
// A zero-length waveform signals "no audio produced" and must be treated
// by callers as an error condition, never as silence.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Empty reports whether the waveform carries no audio.
func (w Waveform) Empty() bool {
	return len(w.Samples) == 0
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}

	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Peak returns the largest absolute sample amplitude.
func (w Waveform) Peak() float32 {
	var peak float32

	for _, sample := range w.Samples {
		if sample < 0 {
			sample = -sample
		}

		if sample > peak {
			peak = sample
		}
	}

	return peak
}
