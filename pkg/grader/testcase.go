package grader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidTestCases indicates a stored test case document does not match the expected shape.
var ErrInvalidTestCases = errors.New("invalid test cases")

// TestCase is one call of the exercise function. Values are kept as raw JSON so
// that number text and key order survive until the harness is rendered.
type TestCase struct {
	Args     []json.RawMessage `json:"args"`
	Expected json.RawMessage   `json:"expected"`
}

const testCasesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["args", "expected"],
    "properties": {
      "args": {"type": "array"},
      "expected": true
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func testCaseSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("codesnap://testcases.schema.json", testCasesSchema)
	})
	return compiledSchema, schemaErr
}

// DecodeTestCases validates and decodes a persisted test case document. A
// document stored as a JSON string holding the array is unwrapped first.
func DecodeTestCases(raw []byte) ([]TestCase, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidTestCases)
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTestCases, err)
		}
		raw = bytes.TrimSpace([]byte(inner))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTestCases, err)
	}

	schema, err := testCaseSchema()
	if err != nil {
		return nil, fmt.Errorf("compile test case schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTestCases, err)
	}

	var cases []TestCase
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTestCases, err)
	}
	return cases, nil
}
