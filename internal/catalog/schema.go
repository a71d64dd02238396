package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/leoprotocol/leoscore/internal/model"
)

// ErrInvalidPattern marks a malformed pattern record.
var ErrInvalidPattern = errors.New("invalid pattern")

const patternSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "category", "severity", "impact_weight", "status"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "category": {"enum": ["technical", "process", "communication", "resource", "market", "financial"]},
    "severity": {"enum": ["low", "medium", "high", "critical"]},
    "impact_weight": {"type": "number", "exclusiveMinimum": 0},
    "status": {"enum": ["draft", "active", "deprecated", "archived"]},
    "detection_signals": {
      "type": ["array", "null"],
      "items": {"type": "string", "minLength": 1}
    },
    "prevention_measures": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["measure", "effectiveness", "effort"],
        "properties": {
          "measure": {"type": "string", "minLength": 1},
          "effectiveness": {"type": "integer", "minimum": 0, "maximum": 100},
          "effort": {"enum": ["low", "medium", "high"]}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(patternSchemaJSON))
})

// Validate checks a single pattern record against the pattern schema.
func Validate(p model.Pattern) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile pattern schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(p))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p.ID, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %q: %s", ErrInvalidPattern, p.ID, strings.Join(msgs, "; "))
}
