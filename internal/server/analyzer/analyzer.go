// Package analyzer holds the language-model capability used to read spoken
// secrets from audio and payment commands from transcripts, together with
// the parsers that turn the model's loosely formatted replies into values.
package analyzer

import (
	"bytes"
	"context"
	"errors"
)

// ErrUnsupported is returned by an Analyzer that cannot handle the requested
// kind of input.
var ErrUnsupported = errors.New("analyzer: unsupported input")

const (
	MIMETypeWAV     = "audio/wav"
	MIMETypeMP3     = "audio/mpeg"
	MIMETypeUnknown = "application/octet-stream"
)

// Audio is an audio sample handed to a model.
type Audio struct {
	Data     []byte
	MIMEType string
}

// NewAudio wraps data and sniffs its MIME type.
func NewAudio(data []byte) Audio {
	return Audio{Data: data, MIMEType: DetectMIMEType(data)}
}

// Analyzer answers a prompt about either an audio sample or a piece of text
// and returns the model's raw reply.
type Analyzer interface {
	AnalyzeAudio(ctx context.Context, prompt string, audio Audio) (string, error)
	AnalyzeText(ctx context.Context, prompt, text string) (string, error)
}

func DetectMIMEType(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return MIMETypeWAV
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return MIMETypeMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return MIMETypeMP3
	default:
		return MIMETypeUnknown
	}
}
