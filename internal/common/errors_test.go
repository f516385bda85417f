package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels_AreDistinct(t *testing.T) {
	all := []error{
		ErrorInvalidInput, ErrorExtractionFailed, ErrorValidation, ErrorNotFound,
		ErrorStorage, ErrorAlreadyInState, ErrorInternal, ErrorUnauthorized,
		ErrInvalidToken, ErrTokenExpired,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v must not match %v", a, b)
			}
		}
	}
}

func TestSentinels_SurviveMultiWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("%w: upsert: %w", ErrorStorage, cause)

	assert.ErrorIs(t, err, ErrorStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrorNotFound)
}
