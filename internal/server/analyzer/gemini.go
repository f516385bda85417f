package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

var _ Analyzer = (*Gemini)(nil)

type generateContentFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Gemini answers prompts with a Google Gemini model. Audio is sent inline.
type Gemini struct {
	model    string
	generate generateContentFunc
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return newGemini(model, client.Models.GenerateContent), nil
}

func newGemini(model string, generate generateContentFunc) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{model: model, generate: generate}
}

func (g *Gemini) AnalyzeAudio(ctx context.Context, prompt string, audio Audio) (string, error) {
	mime := audio.MIMEType
	if mime == "" || mime == MIMETypeUnknown {
		mime = DetectMIMEType(audio.Data)
	}
	if mime == MIMETypeUnknown {
		return "", fmt.Errorf("%w: unknown audio format", ErrUnsupported)
	}
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(audio.Data, mime),
	}
	return g.run(ctx, parts)
}

func (g *Gemini) AnalyzeText(ctx context.Context, prompt, text string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt + "\n" + text),
	}
	return g.run(ctx, parts)
}

func (g *Gemini) run(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	resp, err := g.generate(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini: empty reply")
	}
	return sb.String(), nil
}
