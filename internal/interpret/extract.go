// File: internal/interpret/extract.go
package interpret

import (
	"fmt"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/okazakidev/adjutant/api/schemas"
)

// ExtractCommands parses a command batch out of free-form model text. Models
// are instructed to emit a raw JSON array but are not contractually reliable,
// so this tolerates markdown fences, surrounding prose, and a single object
// where an array was asked for. Returns an error only when no parseable JSON
// payload can be located at all.
func ExtractCommands(raw string) ([]schemas.Command, error) {
	clean := strings.TrimSpace(raw)

	clean = stripFence(clean)

	// Slice between the first '[' and the last ']' to shed any prose the
	// model wrapped around the payload. A lone object has no brackets and
	// passes through untouched.
	if start, end := strings.Index(clean, "["), strings.LastIndex(clean, "]"); start != -1 && end > start {
		clean = clean[start : end+1]
	}

	var batch []schemas.Command
	if err := json.Unmarshal([]byte(clean), &batch); err == nil {
		return batch, nil
	}

	// A single object instead of an array is a known model failure mode.
	var single schemas.Command
	if err := json.Unmarshal([]byte(clean), &single); err != nil {
		return nil, fmt.Errorf("no JSON command payload in model output: %w", err)
	}
	return []schemas.Command{single}, nil
}

// stripFence removes a markdown code fence when the payload is wrapped in
// one, preferring an explicit ```json fence over a bare one.
func stripFence(s string) string {
	if idx := strings.Index(s, "```json"); idx != -1 {
		inner := s[idx+len("```json"):]
		if end := strings.Index(inner, "```"); end != -1 {
			inner = inner[:end]
		}
		return strings.TrimSpace(inner)
	}
	if idx := strings.Index(s, "```"); idx != -1 {
		inner := s[idx+len("```"):]
		if end := strings.Index(inner, "```"); end != -1 {
			inner = inner[:end]
		}
		return strings.TrimSpace(inner)
	}
	return s
}
