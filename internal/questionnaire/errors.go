package questionnaire

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingAnswer is wrapped by ValidationError
	ErrMissingAnswer = errors.New("missing required answer")
	// ErrUnknownOption is returned when a toggle names a value the step does not offer
	ErrUnknownOption = errors.New("unknown option")
	// ErrUnknownStep is returned when a step key is not in the catalog
	ErrUnknownStep = errors.New("unknown step")
	// ErrStepIncomplete is returned when advancing past a step that is not answered
	ErrStepIncomplete = errors.New("current step is not answered")
)

// ValidationError reports the required steps that are unanswered at submission time
type ValidationError struct {
	Keys []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingAnswer, strings.Join(e.Keys, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrMissingAnswer
}
