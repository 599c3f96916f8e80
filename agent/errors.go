package agent

import (
	"errors"
	"fmt"
)

// Turn failures.
var (
	ErrEmptyStream           = errors.New("xAI stream returned no response")
	ErrTooManyToolIterations = errors.New("too many tool interactions")
	ErrResponseSchema        = errors.New("response does not match the requested structure")
	ErrNoAssistantContent    = errors.New("last content in chat log is not an assistant message")
	ErrNoImagePrompt         = errors.New("no user prompt found in chat log for image generation")
)

// SchemaViolationError carries the reason a structured reply was rejected.
// It matches ErrResponseSchema with errors.Is.
type SchemaViolationError struct {
	Detail string
	Err    error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrResponseSchema, e.Detail)
}

func (e *SchemaViolationError) Is(target error) bool {
	return target == ErrResponseSchema
}

func (e *SchemaViolationError) Unwrap() error { return e.Err }
