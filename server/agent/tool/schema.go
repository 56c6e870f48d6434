package tool

import "github.com/google/jsonschema-go/jsonschema"

// Type is the JSON type accepted for a field.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

// Field declares one parameter. Object fields list their members in Fields,
// array fields describe their elements in Items.
type Field struct {
	Name        string
	Type        Type
	Description string
	Optional    bool
	Fields      []Field
	Items       *Field
}

// Schema is the closed parameter shape of a tool: a top-level object whose
// unknown members are rejected.
type Schema struct {
	Fields []Field
}

// Object builds a top-level schema.
func Object(fields ...Field) Schema {
	return Schema{Fields: fields}
}

func String(name, description string) Field {
	return Field{Name: name, Type: TypeString, Description: description}
}

func Number(name, description string) Field {
	return Field{Name: name, Type: TypeNumber, Description: description}
}

func Integer(name, description string) Field {
	return Field{Name: name, Type: TypeInteger, Description: description}
}

func Boolean(name, description string) Field {
	return Field{Name: name, Type: TypeBoolean, Description: description}
}

// Nested builds an object-valued field.
func Nested(name, description string, fields ...Field) Field {
	return Field{Name: name, Type: TypeObject, Description: description, Fields: fields}
}

// ArrayOf builds an array-valued field whose elements match items. The item name is ignored.
func ArrayOf(name, description string, items Field) Field {
	return Field{Name: name, Type: TypeArray, Description: description, Items: &items}
}

// AsOptional marks the field as not required.
func (f Field) AsOptional() Field {
	f.Optional = true
	return f
}

// JSONSchema renders the closed shape as a JSON Schema: every object level
// lists its required members and forbids additional ones.
func (s Schema) JSONSchema() *jsonschema.Schema {
	return objectSchema("", s.Fields)
}

// closed is the false schema used for additionalProperties.
func closed() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func objectSchema(description string, fields []Field) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:                 string(TypeObject),
		Description:          description,
		Properties:           make(map[string]*jsonschema.Schema, len(fields)),
		Required:             make([]string, 0, len(fields)),
		AdditionalProperties: closed(),
	}
	for _, f := range fields {
		out.Properties[f.Name] = f.jsonSchema()
		if !f.Optional {
			out.Required = append(out.Required, f.Name)
		}
	}
	return out
}

func (f Field) jsonSchema() *jsonschema.Schema {
	switch f.Type {
	case TypeObject:
		return objectSchema(f.Description, f.Fields)
	case TypeArray:
		out := &jsonschema.Schema{Type: string(TypeArray), Description: f.Description}
		if f.Items != nil {
			out.Items = f.Items.jsonSchema()
		}
		return out
	default:
		return &jsonschema.Schema{Type: string(f.Type), Description: f.Description}
	}
}
