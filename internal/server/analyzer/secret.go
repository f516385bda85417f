package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/kaptinlin/jsonrepair"
)

// SecretPrompt asks the model for the five spoken digits as JSON.
const SecretPrompt = `Extract exactly 5 secret numbers from this audio file.
Each number is a single spoken digit from 0 to 9, in the order spoken.
Return only this JSON format: {"numbers": [num1, num2, num3, num4, num5]}`

const DefaultTimeout = 30 * time.Second

var (
	secretObjectRe = regexp.MustCompile(`\{[^}]*"numbers"[^}]*\}`)
	bareIntRe      = regexp.MustCompile(`\b\d+\b`)
)

// SecretResult is the parsed reply of the secret prompt. Numbers is empty and
// Error set when nothing usable was found.
type SecretResult struct {
	Numbers []int  `json:"numbers"`
	Error   string `json:"error,omitempty"`
}

type secretPayload struct {
	Numbers []int  `json:"numbers"`
	Error   string `json:"error"`
}

// ParseSecret reads the numbers out of a model reply. It accepts a JSON
// object (repairing it when malformed), a JSON object embedded in prose, and
// finally falls back to the first five bare integers in the text.
func ParseSecret(raw string) SecretResult {
	text := stripCodeFence(raw)

	if p, ok := decodeSecret(text); ok {
		return SecretResult{Numbers: p.Numbers, Error: p.Error}
	}

	if m := secretObjectRe.FindString(text); m != "" {
		if p, ok := decodeSecret(m); ok {
			return SecretResult{Numbers: p.Numbers, Error: p.Error}
		}
	}

	found := bareIntRe.FindAllString(text, -1)
	if len(found) > common.SecretLength {
		found = found[:common.SecretLength]
	}
	nums := make([]int, 0, len(found))
	for _, f := range found {
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	if len(nums) > 0 {
		return SecretResult{Numbers: nums}
	}

	return SecretResult{Numbers: []int{}, Error: "could not extract numbers"}
}

func decodeSecret(text string) (secretPayload, bool) {
	var p secretPayload
	err := json.Unmarshal([]byte(text), &p)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, rerr := jsonrepair.JSONRepair(text)
		if rerr != nil {
			return p, false
		}
		p = secretPayload{}
		err = json.Unmarshal([]byte(fixed), &p)
	}
	if err != nil || p.Numbers == nil {
		return secretPayload{}, false
	}
	return p, true
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// SecretExtractor reads the spoken secret from an audio sample.
type SecretExtractor struct {
	analyzer Analyzer
	timeout  time.Duration
}

func NewSecretExtractor(a Analyzer, timeout time.Duration) *SecretExtractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SecretExtractor{analyzer: a, timeout: timeout}
}

// Extract returns exactly five digits or an error wrapping
// common.ErrorExtractionFailed. A timed out call is not retried.
func (e *SecretExtractor) Extract(ctx context.Context, audio Audio) ([]int, error) {
	if len(audio.Data) == 0 {
		return nil, fmt.Errorf("%w: empty audio", common.ErrorInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.analyzer.AnalyzeAudio(ctx, SecretPrompt, audio)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: secret analysis timed out after %s", common.ErrorExtractionFailed, e.timeout)
		}
		return nil, fmt.Errorf("%w: secret analysis: %w", common.ErrorExtractionFailed, err)
	}

	res := ParseSecret(raw)
	if len(res.Numbers) == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrorExtractionFailed, res.Error)
	}
	if err := models.ValidateSecret(res.Numbers); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorExtractionFailed, err)
	}

	return res.Numbers, nil
}
