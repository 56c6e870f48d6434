// Package agenttest provides a deterministic model and an event recorder for turn tests.
package agenttest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/jamilsonokay/iam-ai-chatbot/server/agent"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

// Step scripts one model step. When Err is set the step fails on StreamTurn;
// when RecvErr is set the stream fails after Events are drained.
type Step struct {
	Events  []agent.Event
	Err     error
	RecvErr error
}

// ScriptedModel replays steps in order and records every request it receives.
type ScriptedModel struct {
	mu       sync.Mutex
	index    int
	steps    []Step
	requests []agent.ModelRequest
}

func NewScriptedModel(steps ...Step) *ScriptedModel {
	cloned := make([]Step, len(steps))
	copy(cloned, steps)
	return &ScriptedModel{steps: cloned}
}

var _ agent.Model = (*ScriptedModel)(nil)

func (m *ScriptedModel) StreamTurn(_ context.Context, request agent.ModelRequest) (agent.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := make([]store.Message, len(request.Messages))
	copy(messages, request.Messages)
	request.Messages = messages
	m.requests = append(m.requests, request)

	if m.index >= len(m.steps) {
		return nil, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	current := m.steps[m.index]
	m.index++
	if current.Err != nil {
		return nil, current.Err
	}
	return &stream{events: current.Events, err: current.RecvErr}, nil
}

// Requests returns what the model was asked, one entry per step.
func (m *ScriptedModel) Requests() []agent.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]agent.ModelRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

type stream struct {
	events []agent.Event
	err    error
	pos    int
}

func (s *stream) Recv() (agent.Event, error) {
	if s.pos < len(s.events) {
		event := s.events[s.pos]
		s.pos++
		return event, nil
	}
	if s.err != nil {
		return agent.Event{}, s.err
	}
	return agent.Event{}, io.EOF
}

func (s *stream) Close() error {
	return nil
}

// Text scripts a text fragment.
func Text(content string) agent.Event {
	return agent.Event{Kind: agent.EventText, Text: content}
}

// Call scripts a tool call request with JSON-encoded arguments.
func Call(id, name string, args any) agent.Event {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return agent.Event{Kind: agent.EventToolCall, ToolCall: store.ToolCall{ID: id, Name: name, Arguments: raw}}
}

// Finish scripts the end of a step.
func Finish() agent.Event {
	return agent.Event{Kind: agent.EventFinish, FinishReason: "stop"}
}

// Recorder collects emitted events in order.
type Recorder struct {
	mu      sync.Mutex
	Texts   []string
	Calls   []store.ToolCall
	Results []store.Message
	Order   []string
}

var _ agent.Emitter = (*Recorder)(nil)

func (r *Recorder) Text(content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Texts = append(r.Texts, content)
	r.Order = append(r.Order, "text")
}

func (r *Recorder) ToolCall(call store.ToolCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, call)
	r.Order = append(r.Order, "tool_call:"+call.ID)
}

func (r *Recorder) ToolResult(message store.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results = append(r.Results, message)
	r.Order = append(r.Order, "tool_result:"+message.ToolCallID)
}
