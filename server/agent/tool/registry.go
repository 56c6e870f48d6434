package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// SideEffect classifies what a tool does outside the process.
type SideEffect string

const (
	Pure          SideEffect = "pure"
	ExternalRead  SideEffect = "external-read"
	ExternalWrite SideEffect = "external-write"
)

// Session is the identity a turn runs under.
type Session struct {
	UserID   string
	UserName string
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// Handler runs a tool with validated arguments. Expected failures are
// returned as a Failure value rather than an error.
type Handler func(ctx context.Context, args Args, session Session) (any, error)

// Descriptor is a named capability the model may invoke.
type Descriptor struct {
	Name        string
	Description string
	Schema      Schema
	SideEffect  SideEffect
	Handler     Handler
}

// Failure is the structured error result a tool hands back to the model.
type Failure struct {
	Message string `json:"error"`
}

func (f Failure) Error() string {
	return f.Message
}

// Fail builds a Failure result.
func Fail(format string, a ...any) Failure {
	return Failure{Message: fmt.Sprintf(format, a...)}
}

// Call is a single tool invocation requested by the model.
type Call struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Result is the outcome of a call, paired to it by CallID.
type Result struct {
	CallID  string
	Name    string
	Payload json.RawMessage
	IsError bool
}

// Registry is the immutable set of tools exposed to the model.
type Registry struct {
	descriptors []Descriptor
	validators  []*Validator
	byName      map[string]int
}

// NewRegistry builds a registry, rejecting unnamed, handler-less or duplicate descriptors.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		validators:  make([]*Validator, 0, len(descriptors)),
		byName:      make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, errors.New("tool name must not be empty")
		}
		if d.Handler == nil {
			return nil, errors.Errorf("tool %q has no handler", d.Name)
		}
		if _, ok := r.byName[d.Name]; ok {
			return nil, errors.Errorf("tool %q is registered twice", d.Name)
		}
		switch d.SideEffect {
		case Pure, ExternalRead, ExternalWrite:
		case "":
			d.SideEffect = Pure
		default:
			return nil, errors.Errorf("tool %q has unknown side effect %q", d.Name, d.SideEffect)
		}
		validator, err := Compile(d.Schema)
		if err != nil {
			return nil, errors.Wrapf(err, "tool %q", d.Name)
		}
		r.byName[d.Name] = len(r.descriptors)
		r.descriptors = append(r.descriptors, d)
		r.validators = append(r.validators, validator)
	}
	return r, nil
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// validator returns the schema resolved for name at registration.
func (r *Registry) validator(name string) *Validator {
	return r.validators[r.byName[name]]
}

// Descriptors returns the tools in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}
