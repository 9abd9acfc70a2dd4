package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable marks transport failures where the service could not be
	// reached at all: refused connections, DNS failures and timeouts.
	ErrUnreachable = errors.New("inference service unreachable")
	// ErrEmptyResponse is returned when the service replied with no text.
	ErrEmptyResponse = errors.New("inference service returned empty response")
)

// StatusError is a non-2xx reply from the inference service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("inference service returned status %d", e.Code)
	}
	return fmt.Sprintf("inference service returned status %d: %s", e.Code, e.Body)
}

// ExhaustedError is returned once every attempt allowed by the retry policy failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsUnreachable reports whether err means the service could not be reached.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
