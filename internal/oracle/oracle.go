// Package oracle wraps the language-model decision service consulted for
// decomposition, query reformulation, and synthesis.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Oracle answers a structured prompt with JSON matching the given schema.
// A single synchronous request/response; no session state between calls.
// The returned cost is the estimated spend for the call in dollars.
type Oracle interface {
	Ask(ctx context.Context, prompt, schema string) (json.RawMessage, float64, error)
}

// ValidateAgainstSchema checks a raw JSON document against a JSON schema.
func ValidateAgainstSchema(doc json.RawMessage, schema string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate oracle output: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)
	return fmt.Errorf("oracle output schema violation: %s", strings.Join(errs, "; "))
}

// ExtractJSON pulls the first JSON object or array out of model output
// that may be wrapped in prose or markdown fences.
func ExtractJSON(out []byte) (json.RawMessage, bool) {
	s := strings.TrimSpace(string(out))
	if fenced, ok := stripFence(s); ok {
		s = fenced
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, false
	}
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return json.RawMessage(candidate), true
				}
				return nil, false
			}
		}
	}
	return nil, false
}

func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	rest := s[3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		return strings.TrimSpace(rest[:end]), true
	}
	return "", false
}
