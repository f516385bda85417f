// Package voiceprint turns a recorded audio sample into a fixed-length
// speaker descriptor ("voiceprint") plus a content hash.
//
// # Pipeline
//
//  1. Decode: WAV or MP3 bytes → mono float64 samples at 22050 Hz, at most 30 s
//  2. Features: a fixed recipe of 100 acoustic statistics (MFCC, chroma,
//     spectral shape, rhythm, energy, mel bands, harmonic/percussive split,
//     pitch, magnitude and voice-quality proxies)
//  3. Normalize: non-finite cleanup, z-score across the vector, clip to
//     [-1, 1], round to 6 decimals
//
// # Fallback
//
// Extraction never fails outward. When any stage fails (unsupported
// container, empty signal, numeric trouble) the Extractor emits a vector
// derived deterministically from the content hash and tags the result with
// MethodFallback. Such a vector identifies the file, not the speaker: it is a
// degraded mode and callers should surface it.
package voiceprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/voicepay/internal/common"
)

// Method tags recorded with every voiceprint.
const (
	MethodFeatureBased = "feature-based"
	MethodFallback     = "fallback-hash-based"
)

const (
	// TargetSampleRate is the rate every signal is resampled to.
	TargetSampleRate = 22050
	// MaxDurationSeconds caps how much of a recording is analysed.
	MaxDurationSeconds = 30
)

// Result is the outcome of one extraction.
type Result struct {
	Embedding  []float64 `json:"embedding"`
	Method     string    `json:"method"`
	Dimensions int       `json:"dimensions"`
	FileHash   string    `json:"file_hash"`
	// Error holds the reason the fallback was used; empty otherwise.
	Error string `json:"error,omitempty"`
}

// IsFallback reports whether the embedding came from the content hash.
func (r Result) IsFallback() bool { return r.Method == MethodFallback }

// Extractor computes voiceprints. It holds no mutable state and is safe for
// concurrent use.
type Extractor struct {
	dims int
}

// NewExtractor returns an Extractor producing common.VoiceprintDimensions values.
func NewExtractor() *Extractor {
	return &Extractor{dims: common.VoiceprintDimensions}
}

// Dimensions is the length of every embedding this extractor returns.
func (e *Extractor) Dimensions() int { return e.dims }

// Extract computes the voiceprint of an encoded audio sample.
func (e *Extractor) Extract(data []byte) Result {
	hash := ContentHash(data)

	emb, err := e.features(data)
	if err != nil {
		return Result{
			Embedding:  Fallback(hash, e.dims),
			Method:     MethodFallback,
			Dimensions: e.dims,
			FileHash:   hash,
			Error:      err.Error(),
		}
	}

	return Result{
		Embedding:  emb,
		Method:     MethodFeatureBased,
		Dimensions: e.dims,
		FileHash:   hash,
	}
}

// ExtractFile reads path and extracts its voiceprint. A missing or unreadable
// file is the only error; everything after that degrades to the fallback.
func (e *Extractor) ExtractFile(path string) (Result, error) {
	data, err := ReadAudioFile(path)
	if err != nil {
		return Result{}, err
	}
	return e.Extract(data), nil
}

// ReadAudioFile loads an audio sample from disk, mapping I/O failures to
// common.ErrorInvalidInput.
func ReadAudioFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: audio file not found: %s", common.ErrorInvalidInput, path)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInvalidInput, err)
	}
	return data, nil
}

func (e *Extractor) features(data []byte) (emb []float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			emb, err = nil, fmt.Errorf("feature extraction panicked: %v", p)
		}
	}()

	sig, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if len(sig.Samples) == 0 {
		return nil, errors.New("empty signal")
	}

	return Normalize(computeFeatures(sig.Samples, sig.SampleRate), e.dims), nil
}
