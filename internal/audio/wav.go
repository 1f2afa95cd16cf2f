package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/book-expert/translation-service/internal/core"
)

// WAV container constants (PCM, 16-bit).
const (
	wavHeaderSize    = 44
	wavFormatPCM     = 1
	wavBitsPerSample = 16
	wavBytesPerSamp  = 2
	pcm16Max         = 32767
	pcm16Min         = -32768
)

// Static errors for WAV parsing.
var (
	ErrNotWAV           = errors.New("data is not a RIFF/WAVE stream")
	ErrUnsupportedCodec = errors.New("unsupported WAV codec")
	ErrTruncatedWAV     = errors.New("truncated WAV data")
)

// EncodeWAV serializes a mono float32 waveform as a 16-bit PCM WAV file.
// Samples outside [-1, 1] are clipped.
func EncodeWAV(waveform core.Waveform) []byte {
	dataSize := len(waveform.Samples) * wavBytesPerSamp
	buf := make([]byte, wavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(waveform.SampleRate))
	byteRate := waveform.SampleRate * wavBytesPerSamp
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], wavBytesPerSamp)
	binary.LittleEndian.PutUint16(buf[34:36], wavBitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, sample := range waveform.Samples {
		scaled := int(math.Round(float64(sample) * pcm16Max))
		if scaled > pcm16Max {
			scaled = pcm16Max
		}

		if scaled < pcm16Min {
			scaled = pcm16Min
		}

		binary.LittleEndian.PutUint16(
			buf[wavHeaderSize+i*wavBytesPerSamp:],
			uint16(int16(scaled)),
		)
	}

	return buf
}

// DecodeWAV parses a 16-bit PCM WAV file into a mono float32 waveform.
// Multi-channel audio is averaged down to mono, matching the behavior of
// the synthesis backends' readers.
func DecodeWAV(data []byte) (core.Waveform, error) {
	if len(data) < wavHeaderSize {
		return core.Waveform{}, ErrTruncatedWAV
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return core.Waveform{}, ErrNotWAV
	}

	var (
		sampleRate int
		channels   int
		bits       int
		pcm        []byte
	)

	// Walk the chunk list; fmt must precede data.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if body+chunkSize > len(data) {
			return core.Waveform{}, ErrTruncatedWAV
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return core.Waveform{}, ErrTruncatedWAV
			}

			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != wavFormatPCM {
				return core.Waveform{}, fmt.Errorf(
					"%w: format tag %d", ErrUnsupportedCodec, format,
				)
			}

			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize + chunkSize%2
	}

	if sampleRate == 0 || channels == 0 || pcm == nil {
		return core.Waveform{}, ErrTruncatedWAV
	}

	if bits != wavBitsPerSample {
		return core.Waveform{}, fmt.Errorf(
			"%w: %d bits per sample", ErrUnsupportedCodec, bits,
		)
	}

	frameSize := channels * wavBytesPerSamp
	frames := len(pcm) / frameSize
	samples := make([]float32, frames)

	for frame := 0; frame < frames; frame++ {
		var sum float32

		for ch := 0; ch < channels; ch++ {
			raw := int16(binary.LittleEndian.Uint16(
				pcm[frame*frameSize+ch*wavBytesPerSamp:],
			))
			sum += float32(raw) / pcm16Max
		}

		samples[frame] = sum / float32(channels)
	}

	return core.Waveform{
		Samples:    samples,
		SampleRate: sampleRate,
	}, nil
}
