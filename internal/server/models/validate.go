package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/voicepay/internal/common"
)

func ValidateVoiceprint(v []float64) error {
	if len(v) != common.VoiceprintDimensions {
		return fmt.Errorf("%w: voiceprint has %d values, want %d", common.ErrorValidation, len(v), common.VoiceprintDimensions)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: voiceprint value %d is not finite", common.ErrorValidation, i)
		}
	}
	return nil
}

// ValidateSecret checks that s holds exactly five single digits.
func ValidateSecret(s []int) error {
	if len(s) != common.SecretLength {
		return fmt.Errorf("%w: secret has %d digits, want %d", common.ErrorValidation, len(s), common.SecretLength)
	}
	for i, d := range s {
		if d < 0 || d > 9 {
			return fmt.Errorf("%w: secret position %d is not a digit", common.ErrorValidation, i)
		}
	}
	return nil
}

func ValidateUserID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty user id", common.ErrorValidation)
	}
	return nil
}

// Validate checks every invariant a record must hold before it is persisted.
func (e *Enrollment) Validate() error {
	if err := ValidateUserID(e.UserID); err != nil {
		return err
	}
	if err := ValidateVoiceprint(e.Voiceprint); err != nil {
		return err
	}
	return ValidateSecret(e.Secret)
}

// SecretsEqual reports whether a and b hold the same digits in the same order.
func SecretsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
