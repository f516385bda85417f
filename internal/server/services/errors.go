package services

import "fmt"

// Extraction stages reported by StageError.
const (
	StageVoiceprint = "voiceprint"
	StageSecret     = "secret"
	StageIntent     = "intent"
)

// StageError names the extraction stage that failed during Register or
// Authenticate. The wrapped error keeps its common.Error* classification.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
