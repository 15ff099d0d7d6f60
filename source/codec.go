package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrImportValidation matches every error caused by a rule set that lacks a
// required field.
var ErrImportValidation = errors.New("rule set import validation failed")

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrImportValidation
}

// UnmarshalJSON fills absent optional fields with the import defaults.
func (r *RuleSet) UnmarshalJSON(b []byte) error {
	type plain RuleSet
	p := plain(*New())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = RuleSet(p)

	return nil
}

// UnmarshalYAML fills absent optional fields with the import defaults.
func (r *RuleSet) UnmarshalYAML(value *yaml.Node) error {
	type plain RuleSet
	p := plain(*New())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = RuleSet(p)

	return nil
}

// DecodeJSON reads either a single rule set object or an array of them and
// validates each one.
func DecodeJSON(data []byte) ([]*RuleSet, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty rule set document")
	}

	var sets []*RuleSet
	if data[0] == '[' {
		if err := json.Unmarshal(data, &sets); err != nil {
			return nil, fmt.Errorf("decode rule sets: %w", err)
		}
	} else {
		rs := New()
		if err := json.Unmarshal(data, rs); err != nil {
			return nil, fmt.Errorf("decode rule set: %w", err)
		}
		sets = append(sets, rs)
	}

	return sets, validateAll(sets)
}

// DecodeYAML is DecodeJSON for YAML documents (a mapping or a sequence).
func DecodeYAML(data []byte) ([]*RuleSet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode rule sets: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, errors.New("empty rule set document")
	}

	doc := root.Content[0]
	var sets []*RuleSet
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&sets); err != nil {
			return nil, fmt.Errorf("decode rule sets: %w", err)
		}
	case yaml.MappingNode:
		rs := New()
		if err := doc.Decode(rs); err != nil {
			return nil, fmt.Errorf("decode rule set: %w", err)
		}
		sets = append(sets, rs)
	default:
		return nil, fmt.Errorf("unexpected yaml node kind %d", doc.Kind)
	}

	return sets, validateAll(sets)
}

// Decode picks the codec from the first significant byte: JSON documents
// start with '{' or '[', everything else is read as YAML.
func Decode(data []byte) ([]*RuleSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return DecodeJSON(trimmed)
	}

	return DecodeYAML(data)
}

func validateAll(sets []*RuleSet) error {
	for i, rs := range sets {
		if rs == nil {
			return fmt.Errorf("rule set %d: %w", i, &MissingFieldError{Field: "name"})
		}
		if err := rs.Validate(); err != nil {
			if rs.Name != "" {
				return fmt.Errorf("rule set %d (%s): %w", i, rs.Name, err)
			}
			return fmt.Errorf("rule set %d: %w", i, err)
		}
	}

	return nil
}

// EncodeJSON writes rule sets as an indented JSON array, the export and
// backup format.
func EncodeJSON(sets []*RuleSet) ([]byte, error) {
	if sets == nil {
		sets = []*RuleSet{}
	}

	return json.MarshalIndent(sets, "", "  ")
}
