package analyzer

import (
	"errors"
	"fmt"

	"github.com/spigell/resume-insight/internal/inference"
	"github.com/spigell/resume-insight/internal/prompts"
	"github.com/spigell/resume-insight/internal/utils"
)

// ParseError means the service answered but no structured data could be
// extracted from the reply. Raw holds the reply for diagnostics.
type ParseError struct {
	Kind prompts.Kind
	Raw  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: could not extract structured data from response (%q)", e.Kind, utils.TruncateForLog(e.Raw, 80))
}

// ValidationError means a structured reply lacked a field the caller cannot
// do without.
type ValidationError struct {
	Kind   prompts.Kind
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid response: %s", e.Kind, e.Reason)
}

// Failure reasons.
const (
	ReasonUnreachable = "unreachable"
	ReasonUnusable    = "unusable"
	ReasonFailed      = "failed"
)

// Failure is the error record handed to callers that render results rather
// than handle Go errors.
type Failure struct {
	Error       string `json:"error"`
	Reason      string `json:"reason"`
	Remedy      string `json:"remedy"`
	RawResponse string `json:"raw_response,omitempty"`
}

// FailureOf classifies err. Unreachable means the service must be started;
// unusable means it answered with output that could not be used.
func FailureOf(err error) Failure {
	if err == nil {
		return Failure{}
	}

	f := Failure{Error: err.Error(), Reason: ReasonFailed, Remedy: "check the logs for details and retry"}

	var parseErr *ParseError
	var validationErr *ValidationError
	switch {
	case inference.IsUnreachable(err):
		f.Reason = ReasonUnreachable
		f.Remedy = "start the inference service or fix its address, then retry"
	case errors.As(err, &parseErr):
		f.Reason = ReasonUnusable
		f.Remedy = "retry; if the output stays unusable report the prompt"
		f.RawResponse = parseErr.Raw
	case errors.As(err, &validationErr), errors.Is(err, inference.ErrEmptyResponse):
		f.Reason = ReasonUnusable
		f.Remedy = "retry; if the output stays unusable report the prompt"
	}
	return f
}
