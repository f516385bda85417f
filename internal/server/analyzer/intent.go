package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/kaptinlin/jsonrepair"
)

// IntentPrompt asks the model to turn a transcript into a payment command.
const IntentPrompt = `You are a strict payment command analyzer. Read the transcript and return ONLY a JSON object, without markdown, in this exact structure:
{"success": boolean, "has_payment_command": boolean, "recipients": string or null, "action": string or null, "amounts": integer or null, "currency": string, "confidence": number}

Rules:
- action is one of "pay", "send", "transfer", "give", "wire", or null.
- amounts is the amount in cents: "twenty dollars" is 2000, "$5.50" is 550.
- recipients is the payee named after "to", "for", "towards" or "at".
- currency is a lowercase ISO code and defaults to "usd".
- confidence is your confidence in the analysis between 0 and 1.

Transcript:`

const (
	DefaultCurrency = "usd"

	// LargeAmountCents triggers a warning but does not reject the payment.
	LargeAmountCents = 100000
	// MinConfidence is the confidence below which a warning is raised.
	MinConfidence = 0.7
)

var (
	ValidActions = []string{"pay", "send", "transfer", "give", "wire"}

	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

type intentPayload struct {
	Success           *bool    `json:"success"`
	HasPaymentCommand bool     `json:"has_payment_command"`
	Recipients        *string  `json:"recipients"`
	Action            *string  `json:"action"`
	Amounts           *float64 `json:"amounts"`
	Currency          string   `json:"currency"`
	Confidence        *float64 `json:"confidence"`
}

// ParseIntent decodes the model reply to IntentPrompt.
func ParseIntent(raw string) (models.PaymentIntent, error) {
	text := stripCodeFence(raw)

	var p intentPayload
	if err := unmarshalRepaired(text, &p); err != nil {
		m := jsonObjectRe.FindString(text)
		if m == "" {
			return models.PaymentIntent{}, fmt.Errorf("%w: no JSON object in reply", common.ErrorExtractionFailed)
		}
		p = intentPayload{}
		if err := unmarshalRepaired(m, &p); err != nil {
			return models.PaymentIntent{}, fmt.Errorf("%w: %w", common.ErrorExtractionFailed, err)
		}
	}

	if p.Success != nil && !*p.Success {
		return models.PaymentIntent{}, fmt.Errorf("%w: model could not process transcript", common.ErrorExtractionFailed)
	}

	intent := models.PaymentIntent{
		HasPaymentCommand: p.HasPaymentCommand,
		Currency:          strings.ToLower(strings.TrimSpace(p.Currency)),
	}
	if intent.Currency == "" {
		intent.Currency = DefaultCurrency
	}
	if p.Action != nil {
		intent.Action = strings.ToLower(strings.TrimSpace(*p.Action))
	}
	if p.Recipients != nil {
		intent.Recipient = strings.TrimSpace(*p.Recipients)
	}
	if p.Amounts != nil {
		intent.AmountCents = int64(*p.Amounts)
	}
	if p.Confidence != nil {
		intent.Confidence = *p.Confidence
	}

	return intent, nil
}

func unmarshalRepaired(text string, v any) error {
	err := json.Unmarshal([]byte(text), v)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, rerr := jsonrepair.JSONRepair(text)
		if rerr != nil {
			return fmt.Errorf("repair json: %w", rerr)
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

// ValidateIntent decides whether intent is complete enough to be processed.
func ValidateIntent(intent models.PaymentIntent) models.IntentValidation {
	v := models.IntentValidation{Errors: []string{}, Warnings: []string{}}

	if !intent.HasPaymentCommand {
		v.Errors = append(v.Errors, "No payment command detected")
		v.Summary = "Invalid payment"
		return v
	}

	switch {
	case intent.AmountCents <= 0:
		v.Errors = append(v.Errors, "Invalid or missing amount")
	case intent.AmountCents > LargeAmountCents:
		v.Warnings = append(v.Warnings, fmt.Sprintf("Large amount detected (>%s)", formatAmount(LargeAmountCents, DefaultCurrency)))
	}

	switch recipient := strings.TrimSpace(intent.Recipient); {
	case recipient == "":
		v.Errors = append(v.Errors, "Missing recipient")
	case len([]rune(recipient)) < 2:
		v.Warnings = append(v.Warnings, "Very short recipient name")
	}

	if !slices.Contains(ValidActions, intent.Action) {
		v.Errors = append(v.Errors, fmt.Sprintf("Invalid action: %q", intent.Action))
	}

	if intent.Confidence < MinConfidence {
		v.Warnings = append(v.Warnings, "Low confidence in analysis")
	}

	v.IsValid = len(v.Errors) == 0
	v.ReadyForProcessing = v.IsValid
	if v.IsValid {
		v.Summary = fmt.Sprintf("%s %s to %s", titleCase(intent.Action), formatAmount(intent.AmountCents, intent.Currency), titleCase(intent.Recipient))
	} else {
		v.Summary = "Invalid payment"
	}

	return v
}

func formatAmount(cents int64, currency string) string {
	amount := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	switch currency {
	case "usd", "":
		return "$" + amount
	default:
		return amount + " " + strings.ToUpper(currency)
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// IntentExtractor reads a payment command out of a transcript.
type IntentExtractor struct {
	analyzer Analyzer
	timeout  time.Duration
}

func NewIntentExtractor(a Analyzer, timeout time.Duration) *IntentExtractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &IntentExtractor{analyzer: a, timeout: timeout}
}

func (e *IntentExtractor) Extract(ctx context.Context, transcript string) (models.PaymentIntent, error) {
	if strings.TrimSpace(transcript) == "" {
		return models.PaymentIntent{}, fmt.Errorf("%w: empty transcript", common.ErrorInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.analyzer.AnalyzeText(ctx, IntentPrompt, transcript)
	if err != nil {
		return models.PaymentIntent{}, fmt.Errorf("%w: intent analysis: %w", common.ErrorExtractionFailed, err)
	}

	return ParseIntent(raw)
}
