package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/kaptinlin/jsonschema"

	"parley/internal/domain"
)

// structuredSystemPrompt appends JSON-only instructions and the expected
// schema to the caller's system prompt.
func structuredSystemPrompt(base string, schema json.RawMessage) string {
	var b strings.Builder
	if base != "" {
		b.WriteString(base)
		b.WriteString("\n\n")
	}
	b.WriteString("Return ONLY a valid JSON value matching this JSON Schema. ")
	b.WriteString("Do not wrap it in markdown fences. Do not include commentary.\n\nSCHEMA:\n")
	b.Write(schema)
	return b.String()
}

// decodeStructured turns raw model output into out. Markdown fences are
// stripped, malformed JSON goes through one repair attempt, and the parsed
// value must satisfy the schema. All failures surface as ErrParse.
func decodeStructured(raw string, schema json.RawMessage, out any) error {
	raw = stripCodeFences(raw)
	if raw == "" {
		return domain.NewDomainError("llm.decodeStructured", domain.ErrParse, "empty model output")
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return domain.NewDomainError("llm.decodeStructured", domain.ErrParse,
				fmt.Sprintf("invalid JSON: %v (repair: %v)", err, repairErr))
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return domain.NewDomainError("llm.decodeStructured", domain.ErrParse, err.Error())
		}
		raw = repaired
	}

	if len(schema) > 0 {
		if err := validateSchema(schema, parsed); err != nil {
			return domain.NewDomainError("llm.decodeStructured", domain.ErrParse, err.Error())
		}
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return domain.NewDomainError("llm.decodeStructured", domain.ErrParse, err.Error())
	}
	return nil
}

// validateSchema validates parsed JSON against a JSON Schema document.
func validateSchema(schemaBytes json.RawMessage, data any) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(schemaBytes))
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("%s", result.Error())
	}
	return nil
}

// codeFenceRe matches markdown code fences wrapping JSON.
var codeFenceRe = regexp.MustCompile(`(?si)^` + "```" + `(?:json)?\s*(.*?)\s*` + "```" + `$`)

// stripCodeFences removes markdown code fences if the model wrapped its output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}
