package tools

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/consilio/internal/models"
)

// FieldType constrains a schema field's JSON type.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldObject FieldType = "object"
)

// Field is one argument in a tool schema.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
}

// Schema declares a tool's arguments. Validation happens in the
// dispatcher, before the tool runs, so tools can trust their inputs.
type Schema struct {
	Fields []Field
}

// Validate parses raw arguments against the schema. Violations name the
// offending field.
func (s Schema) Validate(tool string, raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &models.InvalidToolArgumentsError{Tool: tool, Reason: "arguments must be a JSON object"}
	}

	declared := make(map[string]Field, len(s.Fields))
	for _, field := range s.Fields {
		declared[field.Name] = field
	}

	for name := range args {
		if _, ok := declared[name]; !ok {
			return nil, &models.InvalidToolArgumentsError{Tool: tool, Field: name, Reason: "unknown field"}
		}
	}

	for _, field := range s.Fields {
		value, present := args[field.Name]
		if !present {
			if field.Required {
				return nil, &models.InvalidToolArgumentsError{Tool: tool, Field: field.Name, Reason: "required field missing"}
			}
			continue
		}

		switch field.Type {
		case FieldString:
			if _, ok := value.(string); !ok {
				return nil, &models.InvalidToolArgumentsError{Tool: tool, Field: field.Name, Reason: "must be a string"}
			}
		case FieldNumber:
			if _, ok := value.(float64); !ok {
				return nil, &models.InvalidToolArgumentsError{Tool: tool, Field: field.Name, Reason: "must be a number"}
			}
		case FieldObject:
			if _, ok := value.(map[string]any); !ok {
				return nil, &models.InvalidToolArgumentsError{Tool: tool, Field: field.Name, Reason: "must be an object"}
			}
		default:
			return nil, fmt.Errorf("tool %q declares unsupported field type %q", tool, field.Type)
		}
	}

	return args, nil
}
