package service

import "fmt"

// ValidationError marks bad caller input; handlers translate it to HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientCreditsError reports a balance too low for the requested
// generation; handlers translate it to HTTP 402.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("Insufficient credits. You need %d credits but have %d.", e.Required, e.Available)
}
