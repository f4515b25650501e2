package engine

import (
	"errors"
	"fmt"
)

// ValidationError reports a step list or speed the engine refuses.
type ValidationError struct {
	// Code identifies the error category.
	Code ValidationErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the offending step index, -1 when not step-specific.
	Index int

	// StepID identifies the offending step, when known.
	StepID string
}

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode string

const (
	// ErrCodeInvalidDelay indicates a step delay that is not positive.
	ErrCodeInvalidDelay ValidationErrorCode = "INVALID_DELAY"

	// ErrCodeMissingID indicates a step without an ID.
	ErrCodeMissingID ValidationErrorCode = "MISSING_ID"

	// ErrCodeDuplicateID indicates two steps sharing an ID.
	ErrCodeDuplicateID ValidationErrorCode = "DUPLICATE_ID"

	// ErrCodeInvalidSpeed indicates a speed multiplier that is not a positive finite number.
	ErrCodeInvalidSpeed ValidationErrorCode = "INVALID_SPEED"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("%s: %s (step=%d, id=%s)", e.Code, e.Message, e.Index, e.StepID)
	}
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s (step=%d)", e.Code, e.Message, e.Index)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSpeedError returns true if the error is an invalid speed error.
// Uses errors.As to handle wrapped errors.
func IsSpeedError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeInvalidSpeed
	}
	return false
}

// IsStepError returns true if the error rejects a specific step.
func IsStepError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Index >= 0
	}
	return false
}

// NewSpeedError creates a ValidationError for an unusable speed value.
func NewSpeedError(value any, message string) *ValidationError {
	if message == "" {
		message = fmt.Sprintf("speed must be a positive finite number, got %v", value)
	}
	return &ValidationError{
		Code:    ErrCodeInvalidSpeed,
		Message: message,
		Index:   -1,
	}
}

// validateSteps checks delays and IDs of a step list.
func validateSteps(steps []Step) error {
	seen := make(map[string]int, len(steps))
	for i, s := range steps {
		if s.ID == "" {
			return &ValidationError{
				Code:    ErrCodeMissingID,
				Message: "step id is required",
				Index:   i,
			}
		}
		if s.Delay <= 0 {
			return &ValidationError{
				Code:    ErrCodeInvalidDelay,
				Message: fmt.Sprintf("delay must be positive, got %v", s.Delay),
				Index:   i,
				StepID:  s.ID,
			}
		}
		if first, dup := seen[s.ID]; dup {
			return &ValidationError{
				Code:    ErrCodeDuplicateID,
				Message: fmt.Sprintf("id already used by step %d", first),
				Index:   i,
				StepID:  s.ID,
			}
		}
		seen[s.ID] = i
	}
	return nil
}
