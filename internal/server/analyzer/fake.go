package analyzer

import (
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/voicepay/internal/voiceprint"
)

var _ Analyzer = (*Fake)(nil)

// Call records one request made to a Fake.
type Call struct {
	Prompt    string
	Text      string
	AudioHash string
}

// Fake is a deterministic Analyzer with canned replies. Audio replies are
// keyed by the content hash of the sample and text replies by the trimmed text;
// anything else gets the default reply or the configured error.
type Fake struct {
	mu sync.Mutex

	audio map[string]string
	text  map[string]string

	DefaultAudio string
	DefaultText  string
	Err          error

	calls []Call
}

func NewFake() *Fake {
	return &Fake{
		audio: map[string]string{},
		text:  map[string]string{},
	}
}

// AudioKey is the key under which a reply for data is stored.
func AudioKey(data []byte) string {
	return voiceprint.ContentHash(data)
}

func (f *Fake) SetAudioReply(data []byte, reply string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio[AudioKey(data)] = reply
	return f
}

func (f *Fake) SetTextReply(text, reply string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text[strings.TrimSpace(text)] = reply
	return f
}

func (f *Fake) AnalyzeAudio(ctx context.Context, prompt string, audio Audio) (string, error) {
	key := AudioKey(audio.Data)

	f.mu.Lock()
	f.calls = append(f.calls, Call{Prompt: prompt, AudioHash: key})
	reply, ok := f.audio[key]
	if !ok {
		reply = f.DefaultAudio
	}
	err := f.Err
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply, nil
}

func (f *Fake) AnalyzeText(ctx context.Context, prompt, text string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Prompt: prompt, Text: text})
	reply, ok := f.text[strings.TrimSpace(text)]
	if !ok {
		reply = f.DefaultText
	}
	err := f.Err
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply, nil
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
