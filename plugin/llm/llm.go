// Package llm adapts a langchaingo chat model to the agent model boundary.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/jamilsonokay/iam-ai-chatbot/server/agent"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

// Model streams turns through any langchaingo model that supports tool calling.
type Model struct {
	llm llms.Model
}

var _ agent.Model = (*Model)(nil)

func New(llm llms.Model) *Model {
	return &Model{llm: llm}
}

// NewOpenAICompatible connects to an OpenAI-compatible chat completions endpoint (OpenAI, OpenRouter, vLLM...).
func NewOpenAICompatible(baseURL, apiKey, model string) (*Model, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create openai client")
	}
	return New(client), nil
}

type item struct {
	event agent.Event
	err   error
}

type stream struct {
	items  chan item
	cancel context.CancelFunc
	once   sync.Once
}

func (s *stream) Recv() (agent.Event, error) {
	it, ok := <-s.items
	if !ok {
		return agent.Event{}, io.EOF
	}
	return it.event, it.err
}

func (s *stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		// Unblock the producer.
		go func() {
			for range s.items {
			}
		}()
	})
	return nil
}

// StreamTurn starts one model step. Text is delivered as it streams; tool calls
// are delivered once the step completes, followed by a finish event.
func (m *Model) StreamTurn(ctx context.Context, request agent.ModelRequest) (agent.Stream, error) {
	messages, err := convertMessages(request.System, request.Messages)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &stream{items: make(chan item, 16), cancel: cancel}

	send := func(it item) error {
		select {
		case s.items <- it:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	options := []llms.CallOption{
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 || isToolCallChunk(chunk) {
				return nil
			}
			return send(item{event: agent.Event{Kind: agent.EventText, Text: string(chunk)}})
		}),
	}
	if len(request.Tools) > 0 {
		options = append(options, llms.WithTools(convertTools(request.Tools)))
	}

	go func() {
		defer close(s.items)
		defer cancel()

		resp, err := m.llm.GenerateContent(ctx, messages, options...)
		if err != nil {
			_ = send(item{err: errors.Wrap(err, "failed to generate content")})
			return
		}
		if len(resp.Choices) == 0 {
			_ = send(item{err: errors.New("model returned no choices")})
			return
		}
		choice := resp.Choices[0]
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			call := store.ToolCall{
				ID:        tc.ID,
				Name:      tc.FunctionCall.Name,
				Arguments: json.RawMessage(tc.FunctionCall.Arguments),
			}
			if err := send(item{event: agent.Event{Kind: agent.EventToolCall, ToolCall: call}}); err != nil {
				return
			}
		}
		_ = send(item{event: agent.Event{Kind: agent.EventFinish, FinishReason: choice.StopReason}})
	}()

	return s, nil
}

func convertTools(definitions []agent.ToolDefinition) []llms.Tool {
	out := make([]llms.Tool, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

func convertMessages(system string, messages []store.Message) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(messages)+1)
	if system != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range messages {
		switch m.Role {
		case store.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case store.RoleAssistant:
			parts := make([]llms.ContentPart, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				parts = append(parts, llms.TextContent{Text: m.Content})
			}
			for _, call := range m.ToolCalls {
				arguments := string(call.Arguments)
				if arguments == "" {
					arguments = "{}"
				}
				parts = append(parts, llms.ToolCall{
					ID:   call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      call.Name,
						Arguments: arguments,
					},
				})
			}
			out = append(out, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})
		case store.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.ToolName,
					Content:    string(m.Result),
				}},
			})
		default:
			return nil, errors.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, nil
}

// isToolCallChunk reports whether a streamed chunk is a tool call delta
// rather than text. The openai client streams those as a JSON array.
func isToolCallChunk(chunk []byte) bool {
	trimmed := bytes.TrimSpace(chunk)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return false
	}
	var calls []struct {
		Function *json.RawMessage `json:"function"`
	}
	if err := json.Unmarshal(trimmed, &calls); err != nil || len(calls) == 0 {
		return false
	}
	return calls[0].Function != nil
}
