package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"parley/internal/domain"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
		{"  plain text  ", "plain text"},
	}
	for _, tc := range cases {
		if got := stripCodeFences(tc.in); got != tc.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecodeStructuredRepairsMalformedJSON(t *testing.T) {
	var out map[string]any
	err := decodeStructured(`{"name": "调研", "deps": ["a", "b"],}`, nil, &out)
	if err != nil {
		t.Fatalf("decodeStructured: %v", err)
	}
	if out["name"] != "调研" {
		t.Errorf("name = %v", out["name"])
	}
}

func TestDecodeStructuredEmptyOutput(t *testing.T) {
	var out map[string]any
	err := decodeStructured("", nil, &out)
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestDecodeStructuredSchemaViolation(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"count": {"type": "integer"}},
		"required": ["count"]
	}`)

	var out map[string]any
	err := decodeStructured(`{"count": "three"}`, schema, &out)
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestDecodeStructuredUnrepairableGarbage(t *testing.T) {
	var out map[string]any
	// Plain prose parses as a repaired JSON string, but cannot decode into a map.
	err := decodeStructured("I cannot answer that.", nil, &out)
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}
