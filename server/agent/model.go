package agent

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/tool"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

// Session is the caller identity a turn runs under.
type Session = tool.Session

// EventKind tags a model stream event.
type EventKind int

const (
	EventText EventKind = iota
	EventToolCall
	EventFinish
)

// Event is one item of a model step: a text fragment, a tool call request, or the end of the step.
type Event struct {
	Kind         EventKind
	Text         string
	ToolCall     store.ToolCall
	FinishReason string
}

// Stream yields the events of one model step. Recv returns io.EOF once the step is over.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// ToolDefinition is the summary of a tool the model is allowed to call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

type ModelRequest struct {
	System   string
	Messages []store.Message
	Tools    []ToolDefinition
}

// Model streams one step of a conversation.
type Model interface {
	StreamTurn(ctx context.Context, request ModelRequest) (Stream, error)
}

// Emitter relays turn output to the client as it happens.
type Emitter interface {
	Text(content string)
	ToolCall(call store.ToolCall)
	ToolResult(message store.Message)
}

// ToolDefinitions summarizes a registry for the model.
func ToolDefinitions(registry *tool.Registry) []ToolDefinition {
	descriptors := registry.Descriptors()
	out := make([]ToolDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema.JSONSchema(),
		})
	}
	return out
}

// ToolMessage turns an executor result into the transcript entry answering a call.
func ToolMessage(result tool.Result) store.Message {
	return store.Message{
		Role:       store.RoleTool,
		ToolCallID: result.CallID,
		ToolName:   result.Name,
		Result:     json.RawMessage(result.Payload),
		IsError:    result.IsError,
	}
}
