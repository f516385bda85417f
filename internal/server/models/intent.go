package models

// PaymentIntent is the payment command read from a transcript.
type PaymentIntent struct {
	HasPaymentCommand bool    `json:"has_payment_command"`
	Action            string  `json:"action"`
	AmountCents       int64   `json:"amount"`
	Currency          string  `json:"currency"`
	Recipient         string  `json:"recipient"`
	Payer             string  `json:"payer,omitempty"`
	Confidence        float64 `json:"confidence"`
}

// IntentValidation reports whether a PaymentIntent can be handed to a
// payment processor.
type IntentValidation struct {
	IsValid            bool     `json:"is_valid"`
	Errors             []string `json:"errors"`
	Warnings           []string `json:"warnings"`
	ReadyForProcessing bool     `json:"ready_for_processing"`
	Summary            string   `json:"summary"`
}
