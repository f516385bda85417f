package common

import "errors"

var (

	// input errors: the audio sample is missing or unreadable
	ErrorInvalidInput = errors.New("invalid input")

	// extraction errors: no usable voiceprint or secret could be produced
	ErrorExtractionFailed = errors.New("extraction failed")

	// record errors: a voiceprint or secret violates the record invariants
	ErrorValidation = errors.New("validation error")

	// repository specific errors
	ErrorNotFound       = errors.New("not found")
	ErrorStorage        = errors.New("storage error")
	ErrorAlreadyInState = errors.New("already in requested state")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
