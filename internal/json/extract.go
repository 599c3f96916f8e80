// Package json extracts and validates JSON returned by the model.
//
// Structured replies are usually bare JSON, but models sometimes wrap them
// in markdown code fences or add a sentence around them.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"github.com/tidwall/gjson"
)

// ErrNoJSON is returned when no JSON value can be found in the text.
var ErrNoJSON = errors.New("no valid JSON found in response")

// Extract returns the JSON value contained in text.
// It accepts, in order:
// 1. The whole text, after stripping markdown code fences
// 2. The span from the first '{' to the last '}'
// 3. The span from the first '[' to the last ']'
func Extract(text string) (string, error) {
	text = stripCodeFences(text)
	if text != "" && gjson.Valid(text) {
		return text, nil
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start != -1 && end > start {
			candidate := text[start : end+1]
			if gjson.Valid(candidate) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNoJSON, preview(text))
}

// Decode extracts the JSON value in text and decodes it into a generic value.
// Numbers decode as float64.
func Decode(text string) (any, error) {
	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return value, nil
}

// DecodeInto extracts the JSON value in text and decodes it into result.
func DecodeInto[T any](text string) (T, error) {
	var result T
	raw, err := Extract(text)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// SchemaError reports a value that does not satisfy a JSON schema.
type SchemaError struct {
	Detail string
}

func (e *SchemaError) Error() string {
	return e.Detail
}

// CompileSchema compiles a JSON schema document.
func CompileSchema(schema []byte) (*jsonschema.Schema, error) {
	compiled, err := jsonschema.NewCompiler().Compile(schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return compiled, nil
}

// Validate checks value against schema. A failed check is a *SchemaError.
func Validate(schema []byte, value any) error {
	compiled, err := CompileSchema(schema)
	if err != nil {
		return err
	}
	result := compiled.Validate(value)
	if !result.IsValid() {
		return &SchemaError{Detail: result.Error()}
	}
	return nil
}

func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop the language tag on the opening fence.
	if nl := strings.IndexByte(trimmed, '\n'); nl != -1 && !strings.ContainsAny(trimmed[:nl], "{[") {
		trimmed = trimmed[nl+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "json")
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func preview(text string) string {
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}
