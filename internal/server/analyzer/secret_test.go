package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSecret(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		wantErr bool
	}{
		{name: "strict json", raw: `{"numbers": [1, 2, 3, 4, 5]}`, want: []int{1, 2, 3, 4, 5}},
		{name: "code fence", raw: "```json\n{\"numbers\": [9, 8, 7, 6, 5]}\n```", want: []int{9, 8, 7, 6, 5}},
		{name: "trailing comma repaired", raw: `{"numbers": [4, 4, 0, 2, 1],}`, want: []int{4, 4, 0, 2, 1}},
		{name: "embedded object", raw: `Sure! Here you go: {"numbers": [3, 1, 4, 1, 5]} Hope it helps.`, want: []int{3, 1, 4, 1, 5}},
		{name: "bare integers", raw: "I heard 2 then 7 then 1, 8 and 2 and then 8 again", want: []int{2, 7, 1, 8, 2}},
		{name: "fewer bare integers", raw: "only 1 and 2", want: []int{1, 2}},
		{name: "nothing", raw: "I could not hear any numbers.", want: []int{}, wantErr: true},
		{name: "empty", raw: "", want: []int{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSecret(tt.raw)
			assert.Equal(t, tt.want, got.Numbers)
			if tt.wantErr {
				assert.NotEmpty(t, got.Error)
			} else {
				assert.Empty(t, got.Error)
			}
		})
	}
}

func TestParseSecret_ModelReportedError(t *testing.T) {
	got := ParseSecret(`{"numbers": [], "error": "audio too noisy"}`)
	assert.Empty(t, got.Numbers)
	assert.Equal(t, "audio too noisy", got.Error)
}

func TestSecretExtractor_Extract(t *testing.T) {
	audio := NewAudio([]byte("RIFF\x00\x00\x00\x00WAVEfmt "))
	fake := NewFake().SetAudioReply(audio.Data, `{"numbers": [1, 2, 3, 4, 5]}`)

	got, err := NewSecretExtractor(fake, time.Second).Extract(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, SecretPrompt, calls[0].Prompt)
	assert.Equal(t, AudioKey(audio.Data), calls[0].AudioHash)
}

func TestSecretExtractor_Failures(t *testing.T) {
	audio := NewAudio([]byte("some audio"))

	tests := []struct {
		name  string
		setup func(f *Fake)
	}{
		{name: "too few digits", setup: func(f *Fake) { f.DefaultAudio = `{"numbers": [1, 2, 3, 4]}` }},
		{name: "too many digits", setup: func(f *Fake) { f.DefaultAudio = `{"numbers": [1, 2, 3, 4, 5, 6]}` }},
		{name: "not digits", setup: func(f *Fake) { f.DefaultAudio = `{"numbers": [7, 42, 13, 89, 5]}` }},
		{name: "unparseable", setup: func(f *Fake) { f.DefaultAudio = "no idea" }},
		{name: "analyzer error", setup: func(f *Fake) { f.Err = errors.New("quota exceeded") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFake()
			tt.setup(f)

			got, err := NewSecretExtractor(f, time.Second).Extract(context.Background(), audio)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrorExtractionFailed)
			assert.Nil(t, got)
		})
	}
}

type slowAnalyzer struct{}

func (slowAnalyzer) AnalyzeAudio(ctx context.Context, _ string, _ Audio) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowAnalyzer) AnalyzeText(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestSecretExtractor_TimeoutIsExtractionFailure(t *testing.T) {
	_, err := NewSecretExtractor(slowAnalyzer{}, 20*time.Millisecond).Extract(context.Background(), NewAudio([]byte("x")))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorExtractionFailed)
	assert.Contains(t, err.Error(), "timed out")
}

func TestSecretExtractor_EmptyAudio(t *testing.T) {
	_, err := NewSecretExtractor(NewFake(), time.Second).Extract(context.Background(), Audio{})
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, MIMETypeWAV, DetectMIMEType([]byte("RIFF\x24\x00\x00\x00WAVEfmt ")))
	assert.Equal(t, MIMETypeMP3, DetectMIMEType([]byte("ID3\x04\x00")))
	assert.Equal(t, MIMETypeMP3, DetectMIMEType([]byte{0xFF, 0xFB, 0x90, 0x00}))
	assert.Equal(t, MIMETypeUnknown, DetectMIMEType([]byte("hello")))
	assert.Equal(t, MIMETypeUnknown, DetectMIMEType(nil))
}
