package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error kinds. Everything the orchestrator surfaces wraps one of these so
// callers can classify failures with errors.Is.
var (
	ErrConfiguration = errors.New("extraction service not configured")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStructural    = errors.New("structural validation failed")
)

// InvalidRangeError reports a page range that does not fit the document.
type InvalidRangeError struct {
	StartPage  int
	EndPage    int
	TotalPages int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid page range %d-%d: document has %d pages",
		e.StartPage, e.EndPage, e.TotalPages)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidInput }

// DocumentParseError reports a source document that could not be read at all.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("document parse failed: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// ChunkError reports the failure of one chunk's extraction, naming its pages.
// A single failing chunk fails the whole request.
type ChunkError struct {
	StartPage int
	EndPage   int
	Err       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk pages %d-%d: %v", e.StartPage, e.EndPage, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// CountMismatchError reports an item count that does not equal the count the
// caller declared. Corrected is -1 when no correction pass ran (or it failed
// before producing a count).
type CountMismatchError struct {
	Expected  int
	Got       int
	Corrected int
	Truncated bool
	Err       error
}

func (e *CountMismatchError) Error() string {
	msg := fmt.Sprintf("extraction count mismatch: expected %d items, got %d", e.Expected, e.Got)
	if e.Corrected >= 0 {
		msg += fmt.Sprintf(", correction produced %d", e.Corrected)
	}
	if e.Truncated {
		msg += " (response may have been truncated by the model output limit)"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *CountMismatchError) Unwrap() error { return e.Err }

// RecoveryError reports that every JSON repair strategy was exhausted.
// Excerpt holds a bounded slice of the raw response for diagnosis.
type RecoveryError struct {
	Excerpt string
	Err     error
}

const recoveryExcerptLimit = 1000

// NewRecoveryError bounds the raw text before storing it.
func NewRecoveryError(raw string, cause error) *RecoveryError {
	if len(raw) > recoveryExcerptLimit {
		raw = raw[:recoveryExcerptLimit]
	}
	return &RecoveryError{Excerpt: raw, Err: cause}
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("json recovery exhausted: %v (excerpt: %q)", e.Err, e.Excerpt)
}

func (e *RecoveryError) Unwrap() error { return e.Err }
