package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pkg/errors"
)

// ValidationError names the first offending field, as a dotted path, and why it was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// Args are arguments that passed validation against a tool schema.
type Args struct {
	raw    json.RawMessage
	values map[string]any
}

// Raw returns the validated arguments as JSON.
func (a Args) Raw() json.RawMessage {
	return a.raw
}

// Decode unmarshals the validated arguments into v.
func (a Args) Decode(v any) error {
	if err := json.Unmarshal(a.raw, v); err != nil {
		return errors.Wrap(err, "failed to decode tool arguments")
	}
	return nil
}

// String returns a top-level string argument, or "" when it is absent.
func (a Args) String(key string) string {
	s, _ := a.values[key].(string)
	return s
}

// Validator checks arguments against one resolved schema.
type Validator struct {
	schema   Schema
	resolved *jsonschema.Resolved
}

// Compile resolves the schema once so every call validates against the same value the model was shown.
func Compile(schema Schema) (*Validator, error) {
	resolved, err := schema.JSONSchema().Resolve(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve tool schema")
	}
	return &Validator{schema: schema, resolved: resolved}, nil
}

// Validate compiles schema and checks raw against it.
func Validate(schema Schema, raw json.RawMessage) (Args, error) {
	v, err := Compile(schema)
	if err != nil {
		return Args{}, err
	}
	return v.Validate(raw)
}

// Validate checks raw arguments without coercing any value.
// Empty input is treated as an empty object.
func (v *Validator) Validate(raw json.RawMessage) (Args, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return Args{}, &ValidationError{Reason: "arguments are not valid JSON"}
	}
	if decoder.More() {
		return Args{}, &ValidationError{Reason: "arguments are not a single JSON value"}
	}
	object, ok := value.(map[string]any)
	if !ok {
		return Args{}, &ValidationError{Reason: "arguments must be a JSON object"}
	}

	var instance any
	if err := json.Unmarshal(trimmed, &instance); err != nil {
		return Args{}, &ValidationError{Reason: "arguments are not valid JSON"}
	}
	if err := v.resolved.Validate(instance); err != nil {
		// The library reports the violation in its own words; name the field the way callers read it.
		if located := validateObject("", v.schema.Fields, object); located != nil {
			return Args{}, located
		}
		return Args{}, &ValidationError{Reason: err.Error()}
	}
	return Args{raw: json.RawMessage(trimmed), values: object}, nil
}

func validateObject(path string, fields []Field, object map[string]any) error {
	declared := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		declared[f.Name] = struct{}{}
	}

	for _, f := range fields {
		value, ok := object[f.Name]
		if !ok || value == nil {
			if f.Optional {
				continue
			}
			return &ValidationError{Field: join(path, f.Name), Reason: "is required"}
		}
		if err := validateValue(join(path, f.Name), f, value); err != nil {
			return err
		}
	}

	unknown := make([]string, 0)
	for key := range object {
		if _, ok := declared[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{Field: join(path, unknown[0]), Reason: "is not allowed"}
	}
	return nil
}

func validateValue(path string, f Field, value any) error {
	switch f.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return mismatch(path, f.Type)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch(path, f.Type)
		}
	case TypeNumber:
		if _, ok := value.(json.Number); !ok {
			return mismatch(path, f.Type)
		}
	case TypeInteger:
		n, ok := value.(json.Number)
		if !ok {
			return mismatch(path, f.Type)
		}
		if _, err := n.Int64(); err != nil {
			return mismatch(path, f.Type)
		}
	case TypeObject:
		object, ok := value.(map[string]any)
		if !ok {
			return mismatch(path, f.Type)
		}
		return validateObject(path, f.Fields, object)
	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			return mismatch(path, f.Type)
		}
		if f.Items == nil {
			return nil
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if item == nil {
				return &ValidationError{Field: itemPath, Reason: "must not be null"}
			}
			if err := validateValue(itemPath, *f.Items, item); err != nil {
				return err
			}
		}
	default:
		return &ValidationError{Field: path, Reason: fmt.Sprintf("has unsupported schema type %q", f.Type)}
	}
	return nil
}

func mismatch(path string, t Type) error {
	article := "a"
	if strings.ContainsAny(string(t[:1]), "aeiou") {
		article = "an"
	}
	return &ValidationError{Field: path, Reason: fmt.Sprintf("must be %s %s", article, t)}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
