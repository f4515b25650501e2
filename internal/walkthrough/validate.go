package walkthrough

import (
	"fmt"
	"math"
	"time"
)

// MaxDelayMS is the longest step delay that still fits a time.Duration.
const MaxDelayMS = math.MaxInt64 / int64(time.Millisecond)

// FieldError locates a validation failure inside a definition.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a normalized definition and returns every problem found.
func Validate(def *Definition) []FieldError {
	var errs []FieldError

	if def.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}

	if def.Speed < 0 || math.IsInf(def.Speed, 0) || math.IsNaN(def.Speed) {
		errs = append(errs, FieldError{Field: "speed", Message: fmt.Sprintf("speed must be a positive number, got %v", def.Speed)})
	}

	if len(def.Steps) == 0 {
		errs = append(errs, FieldError{Field: "steps", Message: "steps list is required and must be non-empty"})
	}

	firstUse := make(map[string]int, len(def.Steps))
	for i, step := range def.Steps {
		switch {
		case step.DelayMS <= 0:
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("steps[%d].delay_ms", i),
				Message: fmt.Sprintf("delay must be a positive number of milliseconds, got %d", step.DelayMS),
			})
		case step.DelayMS > MaxDelayMS:
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("steps[%d].delay_ms", i),
				Message: fmt.Sprintf("delay must be at most %d milliseconds, got %d", MaxDelayMS, step.DelayMS),
			})
		}

		if step.ID == "" {
			continue
		}
		if first, dup := firstUse[step.ID]; dup {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("steps[%d].id", i),
				Message: fmt.Sprintf("duplicate id %q (first used by steps[%d])", step.ID, first),
			})
			continue
		}
		firstUse[step.ID] = i
	}

	return errs
}
