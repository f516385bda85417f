package analyzer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultOpenAIModel = "gpt-4o-audio-preview"

var _ Analyzer = (*OpenAI)(nil)

type chatCompletionFunc func(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)

// OpenAI answers prompts with an OpenAI compatible chat completion endpoint.
// Audio is sent as an input_audio content part, so the model must accept audio.
type OpenAI struct {
	model    string
	complete chatCompletionFunc
}

func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return newOpenAI(model, client.Chat.Completions.New), nil
}

func newOpenAI(model string, complete chatCompletionFunc) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{model: model, complete: complete}
}

func (o *OpenAI) AnalyzeAudio(ctx context.Context, prompt string, audio Audio) (string, error) {
	var format string
	switch DetectMIMEType(audio.Data) {
	case MIMETypeWAV:
		format = "wav"
	case MIMETypeMP3:
		format = "mp3"
	default:
		return "", fmt.Errorf("%w: unknown audio format", ErrUnsupported)
	}

	msg := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
			Data:   base64.StdEncoding.EncodeToString(audio.Data),
			Format: format,
		}),
	})
	return o.run(ctx, []openai.ChatCompletionMessageParamUnion{msg})
}

func (o *OpenAI) AnalyzeText(ctx context.Context, prompt, text string) (string, error) {
	return o.run(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt),
		openai.UserMessage(text),
	})
}

func (o *OpenAI) run(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := o.complete(ctx, openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New("openai: empty reply")
	}
	return content, nil
}
