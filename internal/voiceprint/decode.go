package voiceprint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrUnsupportedFormat is returned by Decode for containers other than WAV
// and MP3.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Signal is decoded mono audio.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Decode sniffs the container, decodes at most MaxDurationSeconds of audio,
// mixes it down to mono and resamples to TargetSampleRate.
func Decode(data []byte) (Signal, error) {
	var (
		sig Signal
		err error
	)

	switch {
	case isWAV(data):
		sig, err = decodeWAV(data)
	case isMP3(data):
		sig, err = decodeMP3(data)
	default:
		return Signal{}, ErrUnsupportedFormat
	}
	if err != nil {
		return Signal{}, err
	}

	return resample(sig, TargetSampleRate)
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeWAV(data []byte) (Signal, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return Signal{}, errors.New("invalid wav file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return Signal{}, errors.New("wav file has no usable format")
	}

	channels := buf.Format.NumChannels
	rate := buf.Format.SampleRate

	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return Signal{}, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}

	frames := len(buf.Data) / channels
	if limit := MaxDurationSeconds * rate; frames > limit {
		frames = limit
	}

	scale := float64(int64(1) << (bitDepth - 1))
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			v := float64(buf.Data[i*channels+c])
			if bitDepth == 8 {
				// 8-bit PCM is unsigned
				v -= 128
			}
			sum += v / scale
		}
		mono[i] = sum / float64(channels)
	}

	return Signal{Samples: mono, SampleRate: rate}, nil
}

func decodeMP3(data []byte) (Signal, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Signal{}, fmt.Errorf("decode mp3: %w", err)
	}

	rate := d.SampleRate()
	if rate <= 0 {
		return Signal{}, errors.New("mp3 stream has no sample rate")
	}

	// go-mp3 always yields 16-bit little-endian stereo
	const frameBytes = 4
	limit := int64(MaxDurationSeconds * rate * frameBytes)

	pcm, err := io.ReadAll(io.LimitReader(d, limit))
	if err != nil {
		return Signal{}, fmt.Errorf("read mp3: %w", err)
	}

	frames := len(pcm) / frameBytes
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*frameBytes:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*frameBytes+2:]))
		mono[i] = (float64(l) + float64(r)) / 2 / 32768.0
	}

	return Signal{Samples: mono, SampleRate: rate}, nil
}

func resample(sig Signal, rate int) (Signal, error) {
	if sig.SampleRate == rate || len(sig.Samples) == 0 {
		return Signal{Samples: sig.Samples, SampleRate: rate}, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(sig.SampleRate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return Signal{}, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := r.Process(sig.Samples)
	if err != nil {
		return Signal{}, fmt.Errorf("resample %d→%d: %w", sig.SampleRate, rate, err)
	}

	return Signal{Samples: out, SampleRate: rate}, nil
}
